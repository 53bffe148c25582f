package server

import (
	log "github.com/golang/glog"

	"github.com/OpenTraceLab/OpenTraceRSA/internal/metrics"
	"github.com/OpenTraceLab/OpenTraceRSA/pkg/broker"
	"github.com/OpenTraceLab/OpenTraceRSA/pkg/rsa"
	"github.com/OpenTraceLab/OpenTraceRSA/pkg/rsaid"
)

const (
	kindParam  = "param"
	kindResult = "result"
)

func paramOf(v *broker.Variable) *paramBinding {
	pb, _ := v.Data().(*paramBinding)
	return pb
}

func resultOf(r *broker.Result) *resultBinding {
	rb, _ := r.Data().(*resultBinding)
	return rb
}

func (s *Server) findVariable(id rsaid.ID) *broker.Variable {
	for _, v := range s.vars {
		if pb := paramOf(v); pb != nil && pb.id == id {
			return v
		}
	}
	return nil
}

func (s *Server) findResult(id rsaid.ID) *broker.Result {
	for _, r := range s.results {
		if rb := resultOf(r); rb != nil && rb.id == id {
			return r
		}
	}
	return nil
}

// VariableOf returns the variable bound to a parameter id.
func (s *Server) VariableOf(id rsaid.ID) (*broker.Variable, bool) {
	v := s.findVariable(id)
	return v, v != nil
}

// ResultOf returns the result stream bound to a result id.
func (s *Server) ResultOf(id rsaid.ID) (*broker.Result, bool) {
	r := s.findResult(id)
	return r, r != nil
}

// EvaluateParams brings the published variables in line with the
// implementation's parameters. Variables of vanished ids are destroyed,
// changed ones are set up again and keep the implementation's value.
func (s *Server) EvaluateParams() {
	defer metrics.Start("evaluate_params").End()
	ids := s.acq.EnumParamIDs()
	want := make(map[rsaid.ID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for i := len(s.vars) - 1; i >= 0; i-- {
		if pb := paramOf(s.vars[i]); pb != nil && !want[pb.id] {
			s.destroyVariable(s.vars[i])
			metrics.Reconciled(kindParam, metrics.ActionDestroy)
		}
	}
	for _, id := range ids {
		info, ok := s.acq.ParamInfo(id)
		if !ok {
			continue
		}
		setup := s.ParamSetup(&info)
		v := s.findVariable(id)
		if v != nil {
			if pb := paramOf(v); pb.setup == setup && pb.flags == info.Flags {
				metrics.Reconciled(kindParam, metrics.ActionKeep)
				continue
			}
			cur, _ := s.acq.Param(id)
			if err := s.setupVariable(v, &info, setup); err != nil {
				log.Errorf("server: %s: recreate %s: %v", s.cfg.ServerName, id, err)
				s.destroyVariable(v)
				continue
			}
			v.SetCur(cur, true)
			metrics.Reconciled(kindParam, metrics.ActionUpdate)
			continue
		}
		v = &broker.Variable{}
		if err := s.setupVariable(v, &info, setup); err != nil {
			log.Errorf("server: %s: create %s: %v", s.cfg.ServerName, id, err)
			continue
		}
		s.vars = append(s.vars, v)
		if cur, ok := s.acq.Param(id); ok {
			v.SetCur(cur, true)
		}
		metrics.Reconciled(kindParam, metrics.ActionCreate)
	}
}

// setupVariable (re)defines v and attaches it under the parameter's class.
// Setup resets the current flags, so a held lock is applied again.
func (s *Server) setupVariable(v *broker.Variable, info *rsa.ParamInfo, setup string) error {
	v.SetGlobal(isGlobal(info.Flags))
	if err := v.Setup(setup); err != nil {
		return err
	}
	v.SetData(&paramBinding{
		id:      info.ID,
		setup:   setup,
		channel: info.Channel,
		flags:   info.Flags,
	})
	v.SetHandler(s.onVariable)
	if s.locked {
		s.applyLock(v)
	}
	return s.broker.AttachVariable(v, paramClass(info.Flags))
}

func (s *Server) destroyVariable(v *broker.Variable) {
	s.broker.DetachVariable(v)
	v.SetHandler(nil)
	for i, other := range s.vars {
		if other == v {
			s.vars = append(s.vars[:i], s.vars[i+1:]...)
			break
		}
	}
	log.V(2).Infof("server: %s: destroyed variable %s", s.cfg.ServerName, v.Name())
	v.SetData(nil)
}

// EvaluateResults brings the published results in line with the
// implementation's results. When only the flags field of a setup string
// differs the flags are updated in place and the data is kept.
func (s *Server) EvaluateResults() {
	defer metrics.Start("evaluate_results").End()
	ids := s.acq.EnumResultIDs()
	want := make(map[rsaid.ID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for i := len(s.results) - 1; i >= 0; i-- {
		if rb := resultOf(s.results[i]); rb != nil && !want[rb.id] {
			s.destroyResult(s.results[i])
			metrics.Reconciled(kindResult, metrics.ActionDestroy)
		}
	}
	for _, id := range ids {
		info, ok := s.acq.ResultInfo(id)
		if !ok {
			continue
		}
		setup := s.ResultSetup(&info)
		r := s.findResult(id)
		if r != nil {
			rb := resultOf(r)
			if rb.setup == setup {
				metrics.Reconciled(kindResult, metrics.ActionKeep)
				continue
			}
			if broker.CompareFields(setup, rb.setup)&^broker.ResultFlagsField == 0 {
				d, err := broker.ParseResultDefinition(setup)
				if err == nil && r.UpdateFlags(d.Flags) {
					rb.setup = setup
					rb.flags = info.Flags
				}
				metrics.Reconciled(kindResult, metrics.ActionUpdate)
				continue
			}
			if err := s.setupResult(r, &info, setup); err != nil {
				log.Errorf("server: %s: recreate result %s: %v", s.cfg.ServerName, id, err)
				s.destroyResult(r)
				continue
			}
			metrics.Reconciled(kindResult, metrics.ActionUpdate)
			continue
		}
		r = &broker.Result{}
		if err := s.setupResult(r, &info, setup); err != nil {
			log.Errorf("server: %s: create result %s: %v", s.cfg.ServerName, id, err)
			continue
		}
		s.results = append(s.results, r)
		metrics.Reconciled(kindResult, metrics.ActionCreate)
	}
}

func (s *Server) setupResult(r *broker.Result, info *rsa.ResultInfo, setup string) error {
	if err := r.Setup(setup); err != nil {
		return err
	}
	r.SetData(&resultBinding{
		id:      info.ID,
		setup:   setup,
		channel: info.Channel,
		flags:   info.Flags,
	})
	return s.broker.AttachResult(r)
}

func (s *Server) destroyResult(r *broker.Result) {
	s.broker.DetachResult(r)
	for i, other := range s.results {
		if other == r {
			s.results = append(s.results[:i], s.results[i+1:]...)
			break
		}
	}
	log.V(2).Infof("server: %s: destroyed result %s", s.cfg.ServerName, r.Name())
	r.SetData(nil)
}
