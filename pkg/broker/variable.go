package broker

import (
	"errors"
	"fmt"
	"sync"

	"github.com/OpenTraceLab/OpenTraceRSA/pkg/rsa"
)

// ErrReadonly is returned when a client writes a readonly variable.
var ErrReadonly = errors.New("broker: variable is readonly")

// Handler receives value changes of a variable. self is true when the owner
// changed the value through SetCur and false for client writes.
type Handler func(v *Variable, self bool)

// Variable is a published parameter. The owner sets it up and updates it
// through SetCur; clients change it through Write.
type Variable struct {
	mu       sync.RWMutex
	def      Definition
	setup    string
	cur      rsa.Value
	curFlags VariableFlags
	global   bool
	handler  Handler
	data     any
	broker   *Broker
}

// NewVariable parses a setup string into a fresh variable.
func NewVariable(setup string) (*Variable, error) {
	v := &Variable{}
	if err := v.Setup(setup); err != nil {
		return nil, err
	}
	return v, nil
}

// Setup (re)defines the variable. The current value is reset to the default.
// On error the variable is left unchanged.
func (v *Variable) Setup(setup string) error {
	def, err := ParseDefinition(setup)
	if err != nil {
		return err
	}
	v.mu.Lock()
	v.def = def
	v.setup = setup
	v.cur = def.Default
	v.curFlags = def.Flags
	v.mu.Unlock()
	return nil
}

func (v *Variable) ID() uint32 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.def.ID
}

func (v *Variable) Name() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.def.Name
}

// Definition returns the parsed setup.
func (v *Variable) Definition() Definition {
	v.mu.RLock()
	defer v.mu.RUnlock()
	d := v.def
	d.States = append([]rsa.State(nil), v.def.States...)
	return d
}

// SetupString returns the setup string the variable was defined with.
func (v *Variable) SetupString() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.setup
}

// Flags returns the flags given at setup, CurFlags the current ones.
func (v *Variable) Flags() VariableFlags {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.def.Flags
}

func (v *Variable) CurFlags() VariableFlags {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.curFlags
}

func (v *Variable) SetFlag(f VariableFlags) {
	v.updateFlags(func(cur VariableFlags) VariableFlags { return cur | f })
}

func (v *Variable) UnsetFlag(f VariableFlags) {
	v.updateFlags(func(cur VariableFlags) VariableFlags { return cur &^ f })
}

func (v *Variable) updateFlags(fn func(VariableFlags) VariableFlags) {
	v.mu.Lock()
	before := v.curFlags
	v.curFlags = fn(before)
	after := v.curFlags
	id := v.def.ID
	b := v.broker
	v.mu.Unlock()
	if after != before && b != nil {
		b.emit(Event{Kind: EventFlags, ID: id, Flags: uint32(after)})
	}
}

// Global reports whether the variable is visible outside its owner.
func (v *Variable) Global() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.global
}

func (v *Variable) SetGlobal(global bool) {
	v.mu.Lock()
	v.global = global
	v.mu.Unlock()
}

func (v *Variable) SetHandler(h Handler) {
	v.mu.Lock()
	v.handler = h
	v.mu.Unlock()
}

// Data returns the owner's private attachment.
func (v *Variable) Data() any {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.data
}

func (v *Variable) SetData(data any) {
	v.mu.Lock()
	v.data = data
	v.mu.Unlock()
}

// Cur returns the current value.
func (v *Variable) Cur() rsa.Value {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.cur
}

// SetCur stores val as the owner. Numeric values are converted to the
// variable's type and clipped to its bounds. The handler is called on change
// unless skipSelf is set. It reports whether the value changed.
func (v *Variable) SetCur(val rsa.Value, skipSelf bool) bool {
	changed, h := v.store(val)
	if changed && h != nil && !skipSelf {
		h(v, true)
	}
	return changed
}

// Write stores val as a client. Readonly variables refuse.
func (v *Variable) Write(val rsa.Value) error {
	if v.CurFlags().Has(FlagReadonly) {
		return fmt.Errorf("%w: %s", ErrReadonly, v.Name())
	}
	changed, h := v.store(val)
	if changed && h != nil {
		h(v, false)
	}
	return nil
}

func (v *Variable) store(val rsa.Value) (bool, Handler) {
	v.mu.Lock()
	val = val.Convert(v.def.Type).Clip(v.def.Minimum, v.def.Maximum)
	changed := !val.Equal(v.cur)
	v.cur = val
	h, b, id := v.handler, v.broker, v.def.ID
	v.mu.Unlock()
	if changed && b != nil {
		b.emit(Event{Kind: EventValue, ID: id, Value: val})
	}
	return changed, h
}

// StateName returns the label of the current value, if it has one.
func (v *Variable) StateName() (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, st := range v.def.States {
		if st.Value.Equal(v.cur) {
			return st.Name, true
		}
	}
	return "", false
}

// ParseState resolves text against the state labels first and the value type
// second.
func (v *Variable) ParseState(s string) (rsa.Value, error) {
	v.mu.RLock()
	def := v.def
	v.mu.RUnlock()
	for _, st := range def.States {
		if st.Name == s {
			return st.Value, nil
		}
	}
	return rsa.ParseValue(def.Type, s)
}
