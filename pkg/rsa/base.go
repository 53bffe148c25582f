package rsa

import (
	"fmt"

	log "github.com/golang/glog"

	"github.com/OpenTraceLab/OpenTraceRSA/pkg/rsaid"
)

// Base carries the hooks and typed helpers shared by implementations. An
// implementation embeds Base and calls Bind with itself from its constructor.
type Base struct {
	impl        Handler
	paramHook   func(rsaid.ID)
	resultHook  func(rsaid.ID)
	profile     Profile
	initialized bool
}

// Bind attaches the implementation the helpers dispatch to.
func (b *Base) Bind(h Handler) { b.impl = h }

func (b *Base) SetParamHook(fn func(rsaid.ID))  { b.paramHook = fn }
func (b *Base) SetResultHook(fn func(rsaid.ID)) { b.resultHook = fn }

// SetProfile sets the profile used by Initialize to read system parameters.
func (b *Base) SetProfile(p Profile) { b.profile = p }

func (b *Base) Initialized() bool { return b.initialized }

// Initialize brings the implementation up and reads the system parameters
// from the profile, if any. It fails when already initialized or when the
// implementation reports an error.
func (b *Base) Initialize() bool {
	if b.initialized {
		return false
	}
	if code, err := b.Error(); err != nil || code != 0 {
		log.Errorf("rsa: initialize refused: error=%d %v", code, err)
		return false
	}
	if !b.impl.DoInitialize(true) {
		return false
	}
	ok := true
	if b.profile != nil {
		ok = ReadWriteSettings(b.self(), b.profile, true)
	}
	b.initialized = true
	return ok
}

// Uninitialize shuts the implementation down.
func (b *Base) Uninitialize() bool {
	ok := b.impl.DoInitialize(false)
	b.initialized = false
	return ok
}

func (b *Base) self() Acquisition {
	if a, ok := b.impl.(Acquisition); ok {
		return a
	}
	panic("rsa: bound handler does not embed Base")
}

// CallParamHook reports a parameter change. It is silent until initialized.
func (b *Base) CallParamHook(id rsaid.ID) {
	if b.paramHook != nil && b.initialized {
		b.paramHook(id)
	}
}

// CallResultHook reports a ready result buffer.
func (b *Base) CallResultHook(id rsaid.ID) {
	if b.resultHook != nil {
		b.resultHook(id)
	}
}

func (b *Base) ParamInfo(id rsaid.ID) (ParamInfo, bool) {
	var info ParamInfo
	ok := b.impl.HandleParam(id, &info, nil, nil)
	return info, ok
}

func (b *Base) Param(id rsaid.ID) (Value, bool) {
	var v Value
	ok := b.impl.HandleParam(id, nil, nil, &v)
	return v, ok
}

// SetParam applies v. Unless skipEvent is set the parameter hook is called
// when the stored value changed.
func (b *Base) SetParam(id rsaid.ID, v Value, skipEvent bool) bool {
	before, _ := b.Param(id)
	if !b.impl.HandleParam(id, nil, &v, nil) {
		return false
	}
	if !skipEvent {
		if after, _ := b.Param(id); !after.Equal(before) {
			b.CallParamHook(id)
		}
	}
	return true
}

// SetGetParam applies v and stores the resulting value back into it. On
// failure v receives the current value and false is returned.
func (b *Base) SetGetParam(id rsaid.ID, v *Value, skipEvent bool) bool {
	before, _ := b.Param(id)
	in := *v
	if b.impl.HandleParam(id, nil, &in, v) {
		if !skipEvent && !v.Equal(before) {
			b.CallParamHook(id)
		}
		return true
	}
	log.Warningf("rsa: setting param %s failed", id)
	b.impl.HandleParam(id, nil, nil, v)
	return false
}

func (b *Base) ResultInfo(id rsaid.ID) (ResultInfo, bool) {
	var info ResultInfo
	ok := b.impl.HandleResult(id, &info, nil)
	return info, ok
}

func (b *Base) ResultBuffer(id rsaid.ID) (BufferInfo, bool) {
	var buf BufferInfo
	ok := b.impl.HandleResult(id, nil, &buf)
	return buf, ok
}

// ParamByKind reads a well-known parameter.
func (b *Base) ParamByKind(kind rsaid.Kind, gate, ch uint8) (Value, bool) {
	id := b.impl.ParamID(kind, gate, ch)
	if v, ok := b.Param(id); ok {
		return v, true
	}
	log.V(1).Infof("rsa: param %#x of channel %d gate %d is not present", uint16(kind), ch, gate)
	return Value{}, false
}

// SetParamByKind writes a well-known parameter.
func (b *Base) SetParamByKind(kind rsaid.Kind, gate, ch uint8, v Value, skipEvent bool) bool {
	id := b.impl.ParamID(kind, gate, ch)
	if b.SetParam(id, v, skipEvent) {
		return true
	}
	log.V(1).Infof("rsa: param %#x of channel %d gate %d is not present", uint16(kind), ch, gate)
	return false
}

// Error returns the implementation's error state.
func (b *Base) Error() (int, error) {
	v, ok := b.Param(b.impl.ParamID(rsaid.Error, rsaid.NoGate, rsaid.NoChannel))
	if !ok {
		return -1, fmt.Errorf("rsa: error parameter: %w", ErrNotImplemented)
	}
	return int(v.Int()), nil
}

func (b *Base) ChannelCount() (int, error) {
	v, ok := b.Param(b.impl.ParamID(rsaid.Channels, 0, 0))
	if !ok {
		return 0, fmt.Errorf("rsa: channel count parameter: %w", ErrNotImplemented)
	}
	return int(v.Int()), nil
}

func (b *Base) GateCount(ch uint8) (int, error) {
	v, ok := b.Param(b.impl.ParamID(rsaid.ChGates, 0, ch))
	if !ok {
		return 0, fmt.Errorf("rsa: gate count parameter: %w", ErrNotImplemented)
	}
	return int(v.Int()), nil
}

func (b *Base) GateName(gate, ch uint8) (string, error) {
	v, ok := b.Param(b.impl.ParamID(rsaid.GateName, gate, ch))
	if !ok {
		return "", fmt.Errorf("rsa: gate name parameter: %w", ErrNotImplemented)
	}
	return v.String(), nil
}

// SetPopManual writes the manual POP state of a channel and reports whether
// it was accepted as given.
func (b *Base) SetPopManual(ch uint8, pm PopManual) bool {
	if !b.initialized {
		return false
	}
	if !b.SetParamByKind(rsaid.ChPopManual, rsaid.NoGate, ch, IntValue(int64(pm)), false) {
		return false
	}
	v, ok := b.ParamByKind(rsaid.ChPopManual, rsaid.NoGate, ch)
	return ok && PopManual(v.Int()) == pm
}

func (b *Base) PopManual(ch uint8) PopManual {
	if !b.initialized {
		return PopManualDisabled
	}
	v, ok := b.ParamByKind(rsaid.ChPopManual, rsaid.NoGate, ch)
	if !ok {
		return PopManualDisabled
	}
	return PopManual(v.Int())
}
