package broker

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	log "github.com/golang/glog"

	"github.com/OpenTraceLab/OpenTraceRSA/pkg/rsa"
)

// State is the run state of an information server.
type State int

const (
	StateOff State = iota
	StateRun
	StateRecord
	StatePause
	StateStop
	stateCount
)

var stateNames = [...]string{"OFF", "RUN", "RECORD", "PAUSE", "STOP"}

func (s State) String() string {
	if s < StateOff || s >= stateCount {
		return "<unknown>"
	}
	return stateNames[s]
}

// ParseState accepts a state name in any case.
func ParseState(s string) (State, error) {
	for i, name := range stateNames {
		if strings.EqualFold(s, name) {
			return State(i), nil
		}
	}
	return StateOff, fmt.Errorf("broker: unknown state %q", s)
}

// Class controls when a variable may be written.
type Class int

const (
	// ClassA variables are always writable.
	ClassA Class = iota
	// ClassB variables are readonly while recording.
	ClassB
	// ClassC variables change the result geometry and are readonly while
	// recording and until the server is stopped or switched off.
	ClassC
)

func (c Class) String() string {
	if c < ClassA || c > ClassC {
		return "?"
	}
	return string("ABC"[c])
}

// EventKind tells observers what happened.
type EventKind int

const (
	EventValue EventKind = iota
	EventFlags
	EventAttach
	EventDetach
	EventResult
	EventState
)

var eventKindNames = [...]string{"value", "flags", "attach", "detach", "result", "state"}

func (k EventKind) String() string {
	if k < EventValue || int(k) >= len(eventKindNames) {
		return "unknown"
	}
	return eventKindNames[k]
}

// Event is delivered to listeners on the goroutine that caused it.
type Event struct {
	Kind   EventKind
	ID     uint32
	Value  rsa.Value // EventValue
	Flags  uint32    // EventFlags
	Blocks uint64    // EventResult: blocks committed so far
	State  State     // EventState
}

// StateChangeFunc is called by SetState after the state variable has been
// updated and before the class and result flags are adjusted.
type StateChangeFunc func(prev, next State)

// Broker is an in-process information server. It owns the attached variables
// and results by id and drives the server state machine.
type Broker struct {
	mu        sync.RWMutex
	vars      map[uint32]*Variable
	classes   map[*Variable]Class
	results   map[uint32]*Result
	listeners []func(Event)

	state      *Variable
	prevState  State
	curState   State
	deviceMask uint32
	deviceID   uint32
	onState    StateChangeFunc
}

// New returns an empty broker in the OFF state.
func New() *Broker {
	return &Broker{
		vars:    make(map[uint32]*Variable),
		classes: make(map[*Variable]Class),
		results: make(map[uint32]*Result),
	}
}

// Listen registers fn for all future events.
func (b *Broker) Listen(fn func(Event)) {
	b.mu.Lock()
	b.listeners = append(b.listeners, fn)
	b.mu.Unlock()
}

func (b *Broker) emit(ev Event) {
	b.mu.RLock()
	listeners := b.listeners
	b.mu.RUnlock()
	for _, fn := range listeners {
		fn(ev)
	}
}

// OnStateChange sets the owner's state change callback.
func (b *Broker) OnStateChange(fn StateChangeFunc) {
	b.mu.Lock()
	b.onState = fn
	b.mu.Unlock()
}

// Setup drops everything attached and creates the state variable named
// "<prefix>|State" under id. Ids matching id under the combined masks belong
// to this server.
func (b *Broker) Setup(name, prefix string, id, deviceMask, serverMask uint32) error {
	b.Flush()
	var sb strings.Builder
	fmt.Fprintf(&sb, "0x%X,%s|State,,S,Generic information server state %s,", id, prefix, name)
	fmt.Fprintf(&sb, "INTEGER,,1,%d,%d,%d,", StateOff, StateOff, stateCount-1)
	for s := StateOff; s < stateCount; s++ {
		fmt.Fprintf(&sb, "%s=%d,", s, s)
	}
	v, err := NewVariable(sb.String())
	if err != nil {
		return err
	}
	v.SetGlobal(true)
	v.SetHandler(func(v *Variable, self bool) {
		b.SetState(State(v.Cur().Int()))
	})
	b.mu.Lock()
	b.deviceMask = deviceMask | serverMask
	b.deviceID = id & b.deviceMask
	b.state = v
	b.mu.Unlock()
	return b.AttachVariable(v, ClassA)
}

// StateVariable returns the state variable created by Setup.
func (b *Broker) StateVariable() *Variable {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// IsServerID reports whether id falls in the range claimed by Setup.
func (b *Broker) IsServerID(id uint32) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.deviceMask != 0 && id&b.deviceMask == b.deviceID
}

// Flush detaches everything, removes the state variable and returns to OFF.
func (b *Broker) Flush() {
	b.mu.Lock()
	var ids []uint32
	for id, v := range b.vars {
		ids = append(ids, id)
		v.mu.Lock()
		v.broker = nil
		v.mu.Unlock()
	}
	for id, r := range b.results {
		ids = append(ids, id)
		r.mu.Lock()
		r.broker = nil
		r.mu.Unlock()
	}
	b.vars = make(map[uint32]*Variable)
	b.classes = make(map[*Variable]Class)
	b.results = make(map[uint32]*Result)
	b.state = nil
	b.prevState, b.curState = StateOff, StateOff
	b.deviceMask, b.deviceID = 0, 0
	b.mu.Unlock()
	for _, id := range ids {
		b.emit(Event{Kind: EventDetach, ID: id})
	}
}

// AttachVariable adds v under class c, moving it if already attached.
func (b *Broker) AttachVariable(v *Variable, c Class) error {
	id := v.ID()
	b.mu.Lock()
	if other, ok := b.vars[id]; ok && other != v {
		b.mu.Unlock()
		return fmt.Errorf("broker: duplicate variable id 0x%X: %s and %s", id, other.Name(), v.Name())
	}
	for oid, other := range b.vars {
		if other == v && oid != id {
			delete(b.vars, oid)
		}
	}
	b.vars[id] = v
	b.classes[v] = c
	running := b.curState != StateOff
	b.mu.Unlock()

	v.mu.Lock()
	v.broker = b
	v.mu.Unlock()
	if v.Flags().Has(FlagArchive) {
		if running {
			v.SetFlag(FlagArchive)
		} else {
			v.UnsetFlag(FlagArchive)
		}
	}
	b.emit(Event{Kind: EventAttach, ID: id})
	return nil
}

// DetachVariable removes v. Unknown variables are ignored.
func (b *Broker) DetachVariable(v *Variable) {
	b.mu.Lock()
	var ids []uint32
	for id, other := range b.vars {
		if other == v {
			delete(b.vars, id)
			ids = append(ids, id)
		}
	}
	delete(b.classes, v)
	b.mu.Unlock()
	if len(ids) == 0 {
		return
	}
	v.mu.Lock()
	v.broker = nil
	v.mu.Unlock()
	for _, id := range ids {
		b.emit(Event{Kind: EventDetach, ID: id})
	}
}

// AttachResult adds r, moving it if already attached.
func (b *Broker) AttachResult(r *Result) error {
	id := r.ID()
	b.mu.Lock()
	if other, ok := b.results[id]; ok && other != r {
		b.mu.Unlock()
		return fmt.Errorf("broker: duplicate result id 0x%X: %s and %s", id, other.Name(), r.Name())
	}
	for oid, other := range b.results {
		if other == r && oid != id {
			delete(b.results, oid)
		}
	}
	b.results[id] = r
	running := b.curState != StateOff
	b.mu.Unlock()

	r.mu.Lock()
	r.broker = b
	r.mu.Unlock()
	if r.Flags().Has(ResultArchive) {
		if running {
			r.SetFlag(ResultArchive)
		} else {
			r.UnsetFlag(ResultArchive)
		}
	}
	b.emit(Event{Kind: EventAttach, ID: id})
	return nil
}

func (b *Broker) DetachResult(r *Result) {
	b.mu.Lock()
	var ids []uint32
	for id, other := range b.results {
		if other == r {
			delete(b.results, id)
			ids = append(ids, id)
		}
	}
	b.mu.Unlock()
	if len(ids) == 0 {
		return
	}
	r.mu.Lock()
	r.broker = nil
	r.mu.Unlock()
	for _, id := range ids {
		b.emit(Event{Kind: EventDetach, ID: id})
	}
}

func (b *Broker) Variable(id uint32) (*Variable, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.vars[id]
	return v, ok
}

// VariableByName looks a variable up by its full pipe separated name.
func (b *Broker) VariableByName(name string) (*Variable, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, v := range b.vars {
		if v.Name() == name {
			return v, true
		}
	}
	return nil, false
}

// Variables returns the attached variables ordered by id.
func (b *Broker) Variables() []*Variable {
	b.mu.RLock()
	out := make([]*Variable, 0, len(b.vars))
	for _, v := range b.vars {
		out = append(out, v)
	}
	b.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Class returns the class v was attached with.
func (b *Broker) Class(v *Variable) (Class, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.classes[v]
	return c, ok
}

func (b *Broker) Result(id uint32) (*Result, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.results[id]
	return r, ok
}

func (b *Broker) ResultByName(name string) (*Result, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, r := range b.results {
		if r.Name() == name {
			return r, true
		}
	}
	return nil, false
}

// Results returns the attached results ordered by id.
func (b *Broker) Results() []*Result {
	b.mu.RLock()
	out := make([]*Result, 0, len(b.results))
	for _, r := range b.results {
		out = append(out, r)
	}
	b.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// ClearValidations drops the data of every attached result.
func (b *Broker) ClearValidations() {
	results := b.Results()
	log.V(2).Infof("broker: clear validations of %d results", len(results))
	for _, r := range results {
		r.ClearValidations()
	}
}

// State returns the current run state.
func (b *Broker) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.curState
}

// IsGeneratingResults reports whether the state produces data.
func (b *Broker) IsGeneratingResults() bool {
	s := b.State()
	return s == StateRun || s == StateRecord
}

type transition func(*Broker)

var transitions = map[[2]State]transition{
	{StateOff, StateRun}:      (*Broker).offToRun,
	{StateStop, StateRun}:     (*Broker).stopToRun,
	{StateOff, StateRecord}:   (*Broker).runToRecord,
	{StateStop, StateRecord}:  (*Broker).runToRecord,
	{StateRecord, StateStop}:  (*Broker).pauseToStop,
	{StateRecord, StateRun}:   (*Broker).stopToRun,
	{StateRun, StateRecord}:   (*Broker).runToRecord,
	{StateRun, StateStop}:     nil,
	{StateRecord, StatePause}: nil,
	{StatePause, StateStop}:   (*Broker).pauseToStop,
	{StatePause, StateRecord}: nil,
}

// SetState moves the state machine to next. Transitions that are not allowed
// end in OFF.
func (b *Broker) SetState(next State) {
	b.mu.Lock()
	if next == b.curState {
		b.mu.Unlock()
		return
	}
	prev := b.curState
	fn, legal := transitions[[2]State{b.prevState, next}]
	if next == StateOff || !legal {
		if next != StateOff {
			log.Warningf("broker: illegal state change %s -> %s", prev, next)
		}
		next, fn = StateOff, (*Broker).anyToOff
	}
	b.curState = next
	state, onState := b.state, b.onState
	b.mu.Unlock()

	if state != nil {
		state.SetCur(rsa.IntValue(int64(next)), true)
	}
	b.setArchiveFlag(next != StateOff)
	if onState != nil {
		onState(prev, next)
	}
	if fn != nil {
		fn(b)
	}
	b.mu.Lock()
	b.prevState = next
	b.mu.Unlock()
	log.V(1).Infof("broker: state %s -> %s", prev, next)
	b.emit(Event{Kind: EventState, State: next})
}

func (b *Broker) anyToOff() {
	b.setWriteFlagForClass(ClassB, true)
	b.setWriteFlagForClass(ClassC, true)
	b.ClearValidations()
}

func (b *Broker) offToRun() {
	b.ClearValidations()
	b.setRecycleFlag(true)
}

func (b *Broker) stopToRun() {
	b.setWriteFlagForClass(ClassB, true)
	b.setWriteFlagForClass(ClassC, true)
	b.ClearValidations()
	b.setRecycleFlag(true)
}

func (b *Broker) runToRecord() {
	b.setWriteFlagForClass(ClassB, false)
	b.setWriteFlagForClass(ClassC, false)
	b.ClearValidations()
	b.setRecycleFlag(false)
}

func (b *Broker) pauseToStop() {
	b.setWriteFlagForClass(ClassB, true)
}

func (b *Broker) classMembers(c Class) []*Variable {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []*Variable
	for v, vc := range b.classes {
		if vc == c {
			out = append(out, v)
		}
	}
	return out
}

// setWriteFlagForClass toggles readonly on class c. Variables set up as
// readonly stay readonly.
func (b *Broker) setWriteFlagForClass(c Class, enable bool) {
	vars := b.classMembers(c)
	for _, v := range vars {
		if v.Flags().Has(FlagReadonly) {
			continue
		}
		if enable {
			v.UnsetFlag(FlagReadonly)
		} else {
			v.SetFlag(FlagReadonly)
		}
	}
	log.V(2).Infof("broker: %d variables of class %s write enabled=%v", len(vars), c, enable)
}

// setRecycleFlag toggles recycling of results set up as archived.
func (b *Broker) setRecycleFlag(enable bool) {
	for _, r := range b.Results() {
		if !r.Flags().Has(ResultArchive) {
			continue
		}
		if enable {
			r.SetFlag(ResultRecycle)
		} else {
			r.UnsetFlag(ResultRecycle)
		}
	}
}

func (b *Broker) setArchiveFlag(archive bool) {
	for _, v := range b.Variables() {
		if !v.Flags().Has(FlagArchive) {
			continue
		}
		if archive {
			v.SetFlag(FlagArchive)
		} else {
			v.UnsetFlag(FlagArchive)
		}
	}
	for _, r := range b.Results() {
		if !r.Flags().Has(ResultArchive) {
			continue
		}
		if archive {
			r.SetFlag(ResultArchive)
		} else {
			r.UnsetFlag(ResultArchive)
		}
	}
}
