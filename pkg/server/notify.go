package server

import (
	"fmt"

	log "github.com/golang/glog"

	"github.com/OpenTraceLab/OpenTraceRSA/internal/metrics"
	"github.com/OpenTraceLab/OpenTraceRSA/pkg/broker"
	"github.com/OpenTraceLab/OpenTraceRSA/pkg/rsa"
	"github.com/OpenTraceLab/OpenTraceRSA/pkg/rsaid"
)

// onVariable forwards a variable change to the implementation. Changes that
// ParamNotify itself caused are not written back.
func (s *Server) onVariable(v *broker.Variable, self bool) {
	pb := paramOf(v)
	if pb == nil || s.acq == nil {
		return
	}
	defer metrics.Start("write_param").End()
	id, flags := pb.id, pb.flags
	running := s.acq.RunMode()
	if !self || s.handledParamID != id {
		value := v.Cur()
		if running && flags.Has(rsa.ParamWriteAtOff|rsa.ParamEffectsResult) {
			s.acq.SetRunMode(false, false)
			if flags.Has(rsa.ParamWriteAtOff) {
				log.Infof("server: %s: run mode off to write %s", s.cfg.ServerName, v.Name())
			}
		}
		s.acq.SetGetParam(id, &value, true)
		// The write may have removed the variable.
		if paramOf(v) != nil {
			v.SetCur(value, true)
		}
	}
	if flags.Has(rsa.ParamEffectsParameter) {
		s.EvaluateParams()
	}
	if flags.Has(rsa.ParamEffectsResult) {
		s.acq.SetRunMode(false, true)
		s.EvaluateResults()
		s.broker.ClearValidations()
	}
	if running && !s.acq.RunMode() {
		s.acq.SetRunMode(true, false)
		if flags.Has(rsa.ParamWriteAtOff) {
			log.Infof("server: %s: run mode on after writing %s", s.cfg.ServerName, v.Name())
		}
	}
}

// ParamNotify is the implementation's parameter hook. A zero id asks for the
// readonly state of all variables to be checked.
func (s *Server) ParamNotify(id rsaid.ID) {
	metrics.ParamNotify.Inc()
	if id == 0 {
		s.checkReadOnly()
		return
	}
	value, ok := s.acq.Param(id)
	if !ok {
		log.Warningf("server: %s: notified parameter %s not found", s.cfg.ServerName, id)
		return
	}
	s.handledParamID = id
	defer func() { s.handledParamID = 0 }()
	v := s.findVariable(id)
	if v == nil {
		log.Warningf("server: %s: notified parameter %s is not published", s.cfg.ServerName, id)
		return
	}
	v.SetCur(value, false)
}

// ResultNotify is the implementation's result hook. It copies every pending
// block into the bound result stream.
func (s *Server) ResultNotify(id rsaid.ID) {
	metrics.ResultNotify.Inc()
	if err := s.collect(id); err != nil {
		log.Errorf("server: %s: %v", s.cfg.ServerName, err)
	}
}

func (s *Server) collect(id rsaid.ID) error {
	r := s.findResult(id)
	if r == nil {
		return nil
	}
	blockSize := r.BufferSize(1)
	for {
		buf, ok := s.acq.ResultBuffer(id)
		if ok && buf.BlockBufSize != 0 {
			if buf.BlockBufSize != blockSize {
				return fmt.Errorf("result %s: block size %d, expected %d", r.Name(), buf.BlockBufSize, blockSize)
			}
			if err := r.BlockWrite(buf.Size, buf.Buffer); err != nil {
				return err
			}
			r.CommitValidations()
		}
		if buf.Remain == 0 {
			return nil
		}
	}
}

// SetLocked makes every variable readonly except those marked always
// writable. The legacy selector is locked as well.
func (s *Server) SetLocked(lock bool) {
	if lock == s.locked {
		return
	}
	s.locked = lock
	log.Infof("server: %s: locked=%v", s.cfg.ServerName, lock)
	s.checkReadOnly()
}

func (s *Server) checkReadOnly() {
	for _, v := range s.vars {
		s.applyLock(v)
	}
	if s.selector != nil {
		setReadonly(s.selector, s.locked)
	}
}

// applyLock sets the readonly flag of a parameter variable from the lock.
// Variables of readonly parameters are left alone.
func (s *Server) applyLock(v *broker.Variable) {
	pb := paramOf(v)
	if pb == nil || pb.flags.Has(rsa.ParamReadonly) {
		return
	}
	setReadonly(v, s.locked && !pb.flags.Has(rsa.ParamAlwaysWritable))
}

func setReadonly(v *broker.Variable, readonly bool) {
	if readonly {
		v.SetFlag(broker.FlagReadonly)
	} else {
		v.UnsetFlag(broker.FlagReadonly)
	}
}

// OnStateChange maps the broker state onto the implementation's run mode.
func (s *Server) OnStateChange(prev, next broker.State) {
	if s.acq == nil {
		return
	}
	switch next {
	case broker.StateOff:
		log.Infof("server: %s: run mode off, data cleared", s.cfg.ServerName)
		s.acq.SetRunMode(false, true)
	case broker.StateRun:
		log.Infof("server: %s: run mode on, data cleared", s.cfg.ServerName)
		s.acq.SetRunMode(true, true)
	case broker.StateRecord:
		// Coming from pause keeps the data.
		log.Infof("server: %s: run mode on, recording", s.cfg.ServerName)
		s.acq.SetRunMode(true, prev != broker.StatePause)
	case broker.StatePause, broker.StateStop:
		log.Infof("server: %s: run mode off", s.cfg.ServerName)
		s.acq.SetRunMode(false, false)
	}
}

// SetState drives the broker state machine.
func (s *Server) SetState(next broker.State) {
	s.broker.SetState(next)
}

// WriteParam writes a parameter through its published variable, the way a
// broker client would.
func (s *Server) WriteParam(id rsaid.ID, value rsa.Value) (rsa.Value, error) {
	v := s.findVariable(id)
	if v == nil {
		return rsa.Value{}, fmt.Errorf("server: parameter %s is not published", id)
	}
	if err := v.Write(value); err != nil {
		return rsa.Value{}, err
	}
	if v, ok := s.VariableOf(id); ok {
		return v.Cur(), nil
	}
	cur, _ := s.acq.Param(id)
	return cur, nil
}
