package rsa

import (
	"errors"
	"time"

	"github.com/OpenTraceLab/OpenTraceRSA/pkg/rsaid"
)

// Type distinguishes instrument families. It changes how channels are named
// when published.
type Type int

const (
	Ultrasonic Type = iota
	EddyCurrent
)

func (t Type) String() string {
	if t == EddyCurrent {
		return "eddy-current"
	}
	return "ultrasonic"
}

// PopManual is the state of the manual position-orientation pulse.
type PopManual int

const (
	PopManualDisabled PopManual = iota
	PopManualReady
	PopManualTrigger
)

// Handler is the multiplexed contract every acquisition implementation
// satisfies. HandleParam fills info when non-nil, applies set when non-nil
// and stores the current value in get when non-nil; it returns false and
// leaves the outputs untouched for unknown ids.
type Handler interface {
	HandleParam(id rsaid.ID, info *ParamInfo, set *Value, get *Value) bool
	HandleResult(id rsaid.ID, info *ResultInfo, buf *BufferInfo) bool
	// EnumParamIDs and EnumResultIDs return the complete current topology.
	EnumParamIDs() []rsaid.ID
	EnumResultIDs() []rsaid.ID
	ParamID(kind rsaid.Kind, gate, ch uint8) rsaid.ID
	ResultID(kind rsaid.ResultKind, gate, ch uint8) rsaid.ID
	DoInitialize(init bool) bool
	SetRunMode(run, clear bool) bool
	RunMode() bool
	// Sustain is the periodic tick. Calls arriving while a previous call is
	// still running return without effect.
	Sustain(now time.Time)
	Type() Type
}

// Acquisition is a Handler together with the helpers provided by Base.
type Acquisition interface {
	Handler

	SetParamHook(fn func(rsaid.ID))
	SetResultHook(fn func(rsaid.ID))
	SetProfile(p Profile)
	Initialize() bool
	Uninitialize() bool
	Initialized() bool

	ParamInfo(id rsaid.ID) (ParamInfo, bool)
	Param(id rsaid.ID) (Value, bool)
	SetParam(id rsaid.ID, v Value, skipEvent bool) bool
	SetGetParam(id rsaid.ID, v *Value, skipEvent bool) bool
	ResultInfo(id rsaid.ID) (ResultInfo, bool)
	ResultBuffer(id rsaid.ID) (BufferInfo, bool)

	Error() (int, error)
	ChannelCount() (int, error)
	GateCount(ch uint8) (int, error)
	GateName(gate, ch uint8) (string, error)
}

// Profile is the flat section/key store used for system parameters.
type Profile interface {
	String(section, key, def string) (string, error)
	SetString(section, key, value string) error
	Flush() error
}

var (
	// ErrNotImplemented is returned when an implementation lacks a parameter
	// a helper depends on.
	ErrNotImplemented = errors.New("rsa: not implemented")
	// ErrUnknownImplementation is returned by the registry for unregistered names.
	ErrUnknownImplementation = errors.New("rsa: unknown implementation")
	// ErrNotInitialized is returned for operations that need an initialized
	// implementation.
	ErrNotInitialized = errors.New("rsa: not initialized")
)
