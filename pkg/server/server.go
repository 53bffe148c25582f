// Package server publishes an acquisition implementation on a broker. It
// turns parameters into variables and results into result streams, keeps
// them in step with the implementation's topology and forwards writes.
package server

import (
	"fmt"
	"strings"
	"time"

	log "github.com/golang/glog"

	"github.com/OpenTraceLab/OpenTraceRSA/pkg/broker"
	"github.com/OpenTraceLab/OpenTraceRSA/pkg/rsa"
	"github.com/OpenTraceLab/OpenTraceRSA/pkg/rsaid"
)

// paramBinding is attached to every published variable.
type paramBinding struct {
	id      rsaid.ID
	setup   string
	channel uint8
	flags   rsa.ParamFlags
}

// resultBinding is attached to every published result.
type resultBinding struct {
	id      rsaid.ID
	setup   string
	channel uint8
	flags   rsa.ResultFlags
}

// Server binds one acquisition implementation to a broker. It is driven from
// a single goroutine together with the implementation.
type Server struct {
	cfg      Config
	broker   *broker.Broker
	registry *rsa.Registry
	profile  rsa.Profile

	acq     rsa.Acquisition
	vars    []*broker.Variable
	results []*broker.Result

	selector       *broker.Variable // legacy implementation selector
	handledParamID rsaid.ID
	locked         bool
}

// New creates a server without an implementation.
func New(cfg *Config, b *broker.Broker, reg *rsa.Registry) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := *cfg
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if b == nil || reg == nil {
		return nil, fmt.Errorf("server: broker and registry are required")
	}
	s := &Server{
		cfg:      c,
		broker:   b,
		registry: reg,
	}
	b.OnStateChange(s.OnStateChange)
	if c.Legacy() && c.DeviceNumber == rsaid.DeviceUT {
		v, err := broker.NewVariable(s.selectorSetup())
		if err != nil {
			return nil, fmt.Errorf("server: implementation selector: %w", err)
		}
		v.SetHandler(s.onSelect)
		s.selector = v
	}
	return s, nil
}

// selectorSetup lists every registered implementation as a state, numbered
// from one; zero is "None".
func (s *Server) selectorSetup() string {
	var sb strings.Builder
	id := rsaid.Legacy(rsaid.DeviceUT, rsaid.NoChannel, rsaid.NoGate, 0)
	fmt.Fprintf(&sb, "0x%X,%s|Implementation,,S,Implementation of acquisition server,INTEGER,,1,0,0,%d,None=0,",
		id, s.cfg.ServerName, s.registry.Len())
	for i, impl := range s.registry.Implementations() {
		fmt.Fprintf(&sb, "%s=%d,", impl.Name, i+1)
	}
	return sb.String()
}

func (s *Server) onSelect(v *broker.Variable, self bool) {
	if err := s.CreateImplementationAt(int(v.Cur().Int()) - 1); err != nil {
		log.Errorf("server: select implementation: %v", err)
	}
}

func (s *Server) Config() Config                  { return s.cfg }
func (s *Server) Broker() *broker.Broker          { return s.broker }
func (s *Server) Acquisition() rsa.Acquisition    { return s.acq }
func (s *Server) Selector() *broker.Variable      { return s.selector }
func (s *Server) SetProfile(p rsa.Profile)        { s.profile = p }
func (s *Server) Locked() bool                    { return s.locked }
func (s *Server) HandledParamID() rsaid.ID        { return s.handledParamID }
func (s *Server) Variables() []*broker.Variable   { return append([]*broker.Variable(nil), s.vars...) }
func (s *Server) ResultStreams() []*broker.Result { return append([]*broker.Result(nil), s.results...) }

// CreateImplementation replaces the current implementation with the named
// registry entry.
func (s *Server) CreateImplementation(name string) error {
	s.destroyImplementation()
	acq, err := s.registry.Create(name)
	if err != nil {
		s.createBareInterface()
		return fmt.Errorf("server: %w", err)
	}
	s.install(acq)
	if s.selector != nil {
		for i, impl := range s.registry.Implementations() {
			if impl.Name == name {
				s.selector.SetCur(rsa.IntValue(int64(i+1)), true)
			}
		}
	}
	return nil
}

// CreateImplementationAt replaces the current implementation with registry
// entry i. A negative index only removes the current one.
func (s *Server) CreateImplementationAt(i int) error {
	if i < 0 {
		s.destroyImplementation()
		s.createBareInterface()
		return nil
	}
	impl, ok := s.registry.At(i)
	if !ok {
		return fmt.Errorf("server: no implementation at index %d", i)
	}
	return s.CreateImplementation(impl.Name)
}

func (s *Server) install(acq rsa.Acquisition) {
	s.acq = acq
	if s.profile != nil {
		acq.SetProfile(s.profile)
	}
	acq.SetParamHook(s.ParamNotify)
	acq.SetResultHook(s.ResultNotify)
	if !acq.Initialize() {
		log.Warningf("server: %s: implementation initialized with errors", s.cfg.ServerName)
	}
	s.createInterface()
	log.Infof("server: %s: implementation created with %d variables and %d results",
		s.cfg.ServerName, len(s.vars), len(s.results))
}

// destroyImplementation tears down the interface and the implementation.
func (s *Server) destroyImplementation() {
	if s.acq == nil {
		return
	}
	s.DestroyInterface()
	s.acq.Uninitialize()
	s.acq.SetParamHook(nil)
	s.acq.SetResultHook(nil)
	s.acq = nil
}

// stateID is the id of the broker state variable.
func (s *Server) stateID() uint32 {
	if s.cfg.Legacy() {
		return rsaid.Legacy(s.cfg.DeviceNumber, rsaid.NoChannel, rsaid.NoGate, 1)
	}
	return rsaid.Device(s.cfg.DeviceNumber)
}

// createBareInterface sets up the state variable and the selector.
func (s *Server) createBareInterface() {
	if err := s.broker.Setup("Server", s.cfg.ServerName, s.stateID(), rsaid.Device(s.cfg.DeviceNumber), 0); err != nil {
		log.Errorf("server: %s: state variable: %v", s.cfg.ServerName, err)
	}
	if s.selector != nil {
		// The implementation cannot change during measurements.
		if err := s.broker.AttachVariable(s.selector, broker.ClassC); err != nil {
			log.Errorf("server: %s: selector: %v", s.cfg.ServerName, err)
		}
	}
}

func (s *Server) createInterface() {
	s.createBareInterface()
	s.EvaluateParams()
	s.EvaluateResults()
}

// DestroyInterface stops the implementation and removes every binding.
func (s *Server) DestroyInterface() {
	if s.acq != nil {
		s.acq.SetRunMode(false, true)
	}
	s.broker.Flush()
	for i := len(s.vars) - 1; i >= 0; i-- {
		s.destroyVariable(s.vars[i])
	}
	for i := len(s.results) - 1; i >= 0; i-- {
		s.destroyResult(s.results[i])
	}
	if len(s.vars) != 0 || len(s.results) != 0 {
		log.Errorf("server: %s: %d variables and %d results survived teardown",
			s.cfg.ServerName, len(s.vars), len(s.results))
	}
}

// Close removes the implementation and all bindings.
func (s *Server) Close() {
	s.destroyImplementation()
	s.broker.Flush()
}

// Sustain forwards the periodic tick to the implementation.
func (s *Server) Sustain(now time.Time) {
	if s.acq != nil {
		s.acq.Sustain(now)
	}
}
