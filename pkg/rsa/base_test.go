package rsa_test

import (
	"errors"
	"testing"
	"time"

	"github.com/OpenTraceLab/OpenTraceRSA/pkg/profile"
	"github.com/OpenTraceLab/OpenTraceRSA/pkg/rsa"
	"github.com/OpenTraceLab/OpenTraceRSA/pkg/rsaid"
)

type stubParam struct {
	info rsa.ParamInfo
	val  rsa.Value
}

// stub is a map backed implementation with one channel and one gate.
type stub struct {
	rsa.Base
	params  map[rsaid.ID]*stubParam
	order   []rsaid.ID
	inits   []bool
	panicOn rsaid.ID
}

var (
	idError      = rsaid.Encode(rsaid.NoChannel, rsaid.NoGate, uint16(rsaid.Error))
	idChannels   = rsaid.Encode(rsaid.NoChannel, rsaid.NoGate, uint16(rsaid.Channels))
	idUnnamed    = rsaid.Encode(rsaid.NoChannel, rsaid.NoGate, 0x30)
	idGates      = rsaid.Encode(0, rsaid.NoGate, 0x03)
	idPopManual  = rsaid.Encode(0, rsaid.NoGate, 0x0A)
	idGain       = rsaid.Encode(0, rsaid.NoGate, 0x20)
	idSingleGain = rsaid.Encode(0, rsaid.NoGate, 0x21)
	idGateName   = rsaid.Encode(0, 0, 0x01)
	idGateDelay  = rsaid.Encode(0, 0, 0x22)
)

func newStub() *stub {
	s := &stub{params: make(map[rsaid.ID]*stubParam)}
	s.Bind(s)
	s.add(idError, rsa.ParamInfo{Name: "Error", Default: rsa.IntValue(0)})
	s.add(idChannels, rsa.ParamInfo{
		Name: "Channels", Flags: rsa.ParamSystem,
		Default: rsa.IntValue(1), Minimum: rsa.IntValue(1), Maximum: rsa.IntValue(4),
	})
	s.add(idUnnamed, rsa.ParamInfo{Flags: rsa.ParamSystem, Default: rsa.IntValue(7)})
	s.add(idGates, rsa.ParamInfo{Name: "Gates", Default: rsa.IntValue(1)})
	s.add(idPopManual, rsa.ParamInfo{
		Name: "POP|Manual", Default: rsa.IntValue(0), Minimum: rsa.IntValue(0), Maximum: rsa.IntValue(2),
	})
	s.add(idGain, rsa.ParamInfo{
		Name: "Gain", Flags: rsa.ParamSystem,
		Default: rsa.FloatValue(10), Minimum: rsa.FloatValue(0), Maximum: rsa.FloatValue(40),
	})
	s.add(idSingleGain, rsa.ParamInfo{
		Name: "Trim", Flags: rsa.ParamSystem | rsa.ParamChannelSingle, Default: rsa.FloatValue(0),
	})
	s.add(idGateName, rsa.ParamInfo{Name: "Name", Flags: rsa.ParamGate, Default: rsa.StringValue("IF")})
	s.add(idGateDelay, rsa.ParamInfo{
		Name: "Delay", Flags: rsa.ParamSystem | rsa.ParamGate, Default: rsa.IntValue(100),
	})
	return s
}

func (s *stub) add(id rsaid.ID, info rsa.ParamInfo) {
	info.ID = id
	info.Channel, info.Gate, info.Index = rsaid.Decode(id)
	s.params[id] = &stubParam{info: info, val: info.Default}
	s.order = append(s.order, id)
}

func (s *stub) HandleParam(id rsaid.ID, info *rsa.ParamInfo, set *rsa.Value, get *rsa.Value) bool {
	p, ok := s.params[id]
	if !ok {
		return false
	}
	if set != nil {
		if id == s.panicOn {
			panic("stub: broken parameter")
		}
		p.val = set.Convert(p.info.Default.Type()).Clip(p.info.Minimum, p.info.Maximum)
	}
	if get != nil {
		*get = p.val
	}
	if info != nil {
		*info = p.info
	}
	return true
}

func (s *stub) HandleResult(id rsaid.ID, info *rsa.ResultInfo, buf *rsa.BufferInfo) bool {
	return false
}

func (s *stub) EnumParamIDs() []rsaid.ID  { return append([]rsaid.ID(nil), s.order...) }
func (s *stub) EnumResultIDs() []rsaid.ID { return nil }

func (s *stub) ParamID(kind rsaid.Kind, gate, ch uint8) rsaid.ID {
	switch {
	case kind&rsaid.KindGateMask != 0:
	case kind&rsaid.KindChannelMask != 0:
		gate = rsaid.NoGate
	default:
		ch, gate = rsaid.NoChannel, rsaid.NoGate
	}
	return rsaid.Encode(ch, gate, uint16(kind&^(rsaid.KindChannelMask|rsaid.KindGateMask)))
}

func (s *stub) ResultID(kind rsaid.ResultKind, gate, ch uint8) rsaid.ID { return 0 }

func (s *stub) DoInitialize(init bool) bool {
	s.inits = append(s.inits, init)
	return true
}

func (s *stub) SetRunMode(run, clear bool) bool { return false }
func (s *stub) RunMode() bool                   { return false }
func (s *stub) Sustain(now time.Time)           {}
func (s *stub) Type() rsa.Type                  { return rsa.Ultrasonic }

func TestInitializeReadsProfile(t *testing.T) {
	s := newStub()
	m := profile.NewMemory()
	m.SetString("General", "Channels", "3")
	m.SetString("General", "Channel 1|Gain", "55")
	s.SetProfile(m)

	if !s.Initialize() {
		t.Fatal("Initialize failed")
	}
	if !s.Initialized() {
		t.Fatal("not initialized after Initialize")
	}
	if v, _ := s.Param(idChannels); v.Int() != 3 {
		t.Errorf("Channels = %v, want 3", v)
	}
	if v, _ := s.Param(idGain); v.Type() != rsa.Float || v.Float() != 40 {
		t.Errorf("Gain = %v (%s), want clipped 40", v, v.Type())
	}
	if v, _ := s.Param(idGateDelay); v.Int() != 100 {
		t.Errorf("Delay = %v, want default 100", v)
	}
	if s.Initialize() {
		t.Error("second Initialize succeeded")
	}

	s.Uninitialize()
	if s.Initialized() {
		t.Error("still initialized")
	}
	if len(s.inits) != 2 || !s.inits[0] || s.inits[1] {
		t.Errorf("DoInitialize calls = %v", s.inits)
	}
}

func TestInitializeRefusesOnError(t *testing.T) {
	s := newStub()
	s.params[idError].val = rsa.IntValue(5)
	if s.Initialize() {
		t.Fatal("Initialize succeeded with an error set")
	}
	if s.Initialized() || len(s.inits) != 0 {
		t.Errorf("initialized=%v inits=%v", s.Initialized(), s.inits)
	}
}

func TestParamHook(t *testing.T) {
	s := newStub()
	var seen []rsaid.ID
	s.SetParamHook(func(id rsaid.ID) { seen = append(seen, id) })

	s.SetParam(idChannels, rsa.IntValue(2), false)
	if len(seen) != 0 {
		t.Fatalf("hook called before initialize: %v", seen)
	}

	if !s.Initialize() {
		t.Fatal("Initialize failed")
	}
	s.SetParam(idChannels, rsa.IntValue(3), false)
	s.SetParam(idChannels, rsa.IntValue(3), false)
	s.SetParam(idChannels, rsa.IntValue(4), true)
	if len(seen) != 1 || seen[0] != idChannels {
		t.Errorf("hook calls = %v, want one for Channels", seen)
	}

	if s.SetParam(rsaid.Encode(3, 3, 3), rsa.IntValue(1), false) {
		t.Error("SetParam of an unknown id succeeded")
	}
}

func TestSetGetParam(t *testing.T) {
	s := newStub()
	v := rsa.FloatValue(100)
	if !s.SetGetParam(idGain, &v, false) {
		t.Fatal("SetGetParam failed")
	}
	if v.Float() != 40 {
		t.Errorf("SetGetParam returned %v, want 40", v)
	}

	v = rsa.IntValue(1)
	if s.SetGetParam(rsaid.Encode(3, 3, 3), &v, false) {
		t.Error("SetGetParam of an unknown id succeeded")
	}
}

func TestHelpers(t *testing.T) {
	s := newStub()
	if n, err := s.ChannelCount(); err != nil || n != 1 {
		t.Errorf("ChannelCount = %d, %v", n, err)
	}
	if n, err := s.GateCount(0); err != nil || n != 1 {
		t.Errorf("GateCount(0) = %d, %v", n, err)
	}
	if _, err := s.GateCount(3); !errors.Is(err, rsa.ErrNotImplemented) {
		t.Errorf("GateCount(3) error = %v, want ErrNotImplemented", err)
	}
	if name, err := s.GateName(0, 0); err != nil || name != "IF" {
		t.Errorf("GateName(0, 0) = %q, %v", name, err)
	}
	if code, err := s.Error(); err != nil || code != 0 {
		t.Errorf("Error() = %d, %v", code, err)
	}

	if s.PopManual(0) != rsa.PopManualDisabled {
		t.Error("PopManual reported before initialize")
	}
	if s.SetPopManual(0, rsa.PopManualReady) {
		t.Error("SetPopManual accepted before initialize")
	}
	if !s.Initialize() {
		t.Fatal("Initialize failed")
	}
	if !s.SetPopManual(0, rsa.PopManualReady) {
		t.Error("SetPopManual(Ready) refused")
	}
	if got := s.PopManual(0); got != rsa.PopManualReady {
		t.Errorf("PopManual = %d, want ready", got)
	}
	if s.SetPopManual(0, rsa.PopManual(7)) {
		t.Error("out of range POP state reported as accepted")
	}
}

func TestSettingsKey(t *testing.T) {
	s := newStub()
	tests := []struct {
		id      rsaid.ID
		section string
		key     string
	}{
		{idChannels, "General", "Channels"},
		{idUnnamed, "General", "0xFFFF0030"},
		{idGain, "General", "Channel 1|Gain"},
		{idSingleGain, "General", "Trim"},
		{idGateDelay, "Gate 0", "Channel 1|IF|Delay"},
	}
	for _, tt := range tests {
		info, ok := s.ParamInfo(tt.id)
		if !ok {
			t.Fatalf("ParamInfo(%s) missing", tt.id)
		}
		section, key, err := rsa.SettingsKey(s, info)
		if err != nil {
			t.Errorf("SettingsKey(%s): %v", tt.id, err)
			continue
		}
		if section != tt.section || key != tt.key {
			t.Errorf("SettingsKey(%s) = [%s] %s, want [%s] %s", tt.id, section, key, tt.section, tt.key)
		}
	}
}

func TestReadWriteSettings(t *testing.T) {
	s := newStub()
	if !s.Initialize() {
		t.Fatal("Initialize failed")
	}
	s.SetParam(idChannels, rsa.IntValue(2), false)
	s.SetParam(idGateDelay, rsa.IntValue(250), false)

	m := profile.NewMemory()
	if !rsa.ReadWriteSettings(s, m, false) {
		t.Fatal("write failed")
	}
	want := []struct{ section, key, value string }{
		{"General", "Channels", "2"},
		{"General", "0xFFFF0030", "7"},
		{"General", "Channel 1|Gain", "10"},
		{"General", "Trim", "0"},
		{"Gate 0", "Channel 1|IF|Delay", "250"},
	}
	for _, w := range want {
		if got, _ := m.String(w.section, w.key, "missing"); got != w.value {
			t.Errorf("[%s] %s = %q, want %q", w.section, w.key, got, w.value)
		}
	}
	if got, _ := m.String("General", "Gates", "missing"); got != "missing" {
		t.Errorf("non-system parameter written: %q", got)
	}

	fresh := newStub()
	if !rsa.ReadWriteSettings(fresh, m, true) {
		t.Fatal("read failed")
	}
	if v, _ := fresh.Param(idGateDelay); v.Int() != 250 {
		t.Errorf("Delay after read = %v", v)
	}
}

func TestReadWriteSettingsRecoversPanic(t *testing.T) {
	s := newStub()
	s.panicOn = idChannels
	if rsa.ReadWriteSettings(s, profile.NewMemory(), true) {
		t.Error("read reported success despite a panicking parameter")
	}
}
