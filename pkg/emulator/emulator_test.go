package emulator

import (
	"testing"
	"time"

	"github.com/OpenTraceLab/OpenTraceRSA/pkg/rsa"
	"github.com/OpenTraceLab/OpenTraceRSA/pkg/rsaid"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) time.Time {
	c.t = c.t.Add(d)
	return c.t
}

func newTestEmulator(t *testing.T, fixed bool) (*Emulator, *fakeClock) {
	t.Helper()
	e, err := New(&Config{Seed: 1, FixedGates: fixed})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	clk := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	e.SetClock(clk.now)
	return e, clk
}

func mustSet(t *testing.T, e *Emulator, id rsaid.ID, v rsa.Value) {
	t.Helper()
	if !e.SetParam(id, v, true) {
		t.Fatalf("SetParam(%s, %v) failed", id, v)
	}
}

func mustGet(t *testing.T, e *Emulator, id rsaid.ID) rsa.Value {
	t.Helper()
	v, ok := e.Param(id)
	if !ok {
		t.Fatalf("Param(%s) not found", id)
	}
	return v
}

func contains(ids []rsaid.ID, id rsaid.ID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func TestDefaultsApplied(t *testing.T) {
	e, _ := newTestEmulator(t, false)

	tests := []struct {
		id   rsaid.ID
		want rsa.Value
	}{
		{IDChannels, rsa.IntValue(1)},
		{IDRepRate(0), rsa.FloatValue(5)},
		{IDGates(0), rsa.IntValue(0)},
		{IDPopDivider(0), rsa.IntValue(10)},
		{IDGain(0), rsa.FloatValue(35)},
		{IDOneShotDelay, rsa.IntValue(500)},
	}
	for _, tt := range tests {
		if got := mustGet(t, e, tt.id); !got.Equal(tt.want) {
			t.Errorf("Param(%s) = %v, want %v", tt.id, got, tt.want)
		}
	}
	if code, err := e.Error(); err != nil || code != 0 {
		t.Errorf("Error() = %d, %v; want 0, nil", code, err)
	}
}

func TestEveryEnumeratedParamHasDescriptor(t *testing.T) {
	e, _ := newTestEmulator(t, true)
	for _, id := range e.EnumParamIDs() {
		info, ok := e.ParamInfo(id)
		if !ok {
			t.Errorf("ParamInfo(%s) not found", id)
			continue
		}
		if info.ID != id || info.Name == "" {
			t.Errorf("ParamInfo(%s) = id %s name %q", id, info.ID, info.Name)
		}
		if info.Minimum.IsNumeric() && info.Maximum.IsNumeric() && info.Minimum.Compare(info.Maximum) > 0 {
			t.Errorf("ParamInfo(%s): min %v > max %v", id, info.Minimum, info.Maximum)
		}
	}
}

func TestClipIsIdempotent(t *testing.T) {
	e, _ := newTestEmulator(t, false)

	tests := []struct {
		id   rsaid.ID
		in   rsa.Value
		want rsa.Value
	}{
		{IDRepRate(0), rsa.FloatValue(5000), rsa.FloatValue(1000)},
		{IDRepRate(0), rsa.IntValue(0), rsa.FloatValue(1)},
		{IDGates(0), rsa.IntValue(9), rsa.IntValue(3)},
		{IDChannels, rsa.IntValue(100), rsa.IntValue(4)},
		{IDPopManual(0), rsa.IntValue(-3), rsa.IntValue(0)},
		{IDRectify(0), rsa.StringValue("2"), rsa.IntValue(2)},
	}
	for _, tt := range tests {
		mustSet(t, e, tt.id, tt.in)
		first := mustGet(t, e, tt.id)
		if !first.Equal(tt.want) {
			t.Errorf("set %s to %v: got %v, want %v", tt.id, tt.in, first, tt.want)
		}
		mustSet(t, e, tt.id, first)
		if second := mustGet(t, e, tt.id); !second.Equal(first) {
			t.Errorf("set %s twice: %v then %v", tt.id, first, second)
		}
	}
}

func TestUnknownIDs(t *testing.T) {
	e, _ := newTestEmulator(t, false)

	ids := []rsaid.ID{
		rsaid.Encode(rsaid.NoChannel, rsaid.NoGate, 0x3FFF),
		rsaid.Encode(200, rsaid.NoGate, pidRepRate),
		rsaid.Encode(0, 100, pidGateDelay),
	}
	for _, id := range ids {
		var v rsa.Value
		if e.HandleParam(id, nil, nil, &v) {
			t.Errorf("HandleParam(%s) found an unknown id", id)
		}
		if v.IsValid() {
			t.Errorf("HandleParam(%s) touched the output: %v", id, v)
		}
		if e.HandleResult(id, nil, nil) {
			t.Errorf("HandleResult(%s) found an unknown id", id)
		}
	}
}

func TestGateNameHasNoDescriptor(t *testing.T) {
	e, _ := newTestEmulator(t, true)

	name, err := e.GateName(1, 0)
	if err != nil {
		t.Fatalf("GateName failed: %v", err)
	}
	if name != "Gate 1" {
		t.Errorf("GateName(1, 0) = %q, want %q", name, "Gate 1")
	}
	if _, ok := e.ParamInfo(rsaid.Encode(0, 1, pidGateName)); ok {
		t.Errorf("gate name should not publish a descriptor")
	}

	var info rsa.ParamInfo
	get := rsa.StringValue("untouched")
	set := rsa.StringValue("Renamed")
	if e.HandleParam(rsaid.Encode(0, 0, pidGateName), &info, &set, &get) {
		t.Fatal("HandleParam with a descriptor request succeeded")
	}
	if got := get.String(); got != "untouched" {
		t.Errorf("failed HandleParam wrote get = %q", got)
	}
	if name, _ := e.GateName(0, 0); name != "IF Gate" {
		t.Errorf("failed HandleParam applied set: name = %q", name)
	}
}

func TestInactiveTopologyDoesNotResolve(t *testing.T) {
	e, _ := newTestEmulator(t, false)
	mustSet(t, e, IDGates(0), rsa.IntValue(1))

	for _, id := range e.EnumParamIDs() {
		if !e.HandleParam(id, nil, nil, nil) {
			t.Errorf("enumerated param %s does not resolve", id)
		}
	}
	for _, id := range e.EnumResultIDs() {
		if !e.HandleResult(id, nil, nil) {
			t.Errorf("enumerated result %s does not resolve", id)
		}
	}

	inactive := []rsaid.ID{
		IDGateDelay(0, 1),
		IDGateEnable(0, defaultMaxGates-1),
		IDGain(1),
		IDGates(1),
	}
	for _, id := range inactive {
		var v rsa.Value
		if e.HandleParam(id, nil, nil, &v) || v.IsValid() {
			t.Errorf("inactive param %s resolved to %v", id, v)
		}
	}
	for _, id := range []rsaid.ID{RIDGateCopy(0, 1), RIDCopyIndex(1)} {
		if _, ok := e.ResultInfo(id); ok {
			t.Errorf("inactive result %s resolved", id)
		}
	}

	mustSet(t, e, IDChannels, rsa.IntValue(2))
	mustSet(t, e, IDGates(0), rsa.IntValue(2))
	for _, id := range []rsaid.ID{IDGateDelay(0, 1), IDGain(1)} {
		if _, ok := e.Param(id); !ok {
			t.Errorf("param %s not resolved after growing", id)
		}
	}
	if _, ok := e.ResultInfo(RIDCopyIndex(1)); !ok {
		t.Errorf("result %s not resolved after growing", RIDCopyIndex(1))
	}
}

func TestTopologyFollowsGatesAndMethod(t *testing.T) {
	e, _ := newTestEmulator(t, false)

	if contains(e.EnumParamIDs(), IDGateDelay(0, 0)) {
		t.Fatalf("gate params enumerated with zero gates")
	}
	mustSet(t, e, IDGates(0), rsa.IntValue(2))

	params := e.EnumParamIDs()
	if !contains(params, IDGateDelay(0, 1)) {
		t.Errorf("gate 1 delay missing after Gates=2")
	}
	if contains(params, IDGateDelay(0, 2)) {
		t.Errorf("gate 2 delay present after Gates=2")
	}
	if contains(params, IDGateThreshold(0, 1)) {
		t.Errorf("copy gate enumerates a threshold")
	}
	if !contains(e.EnumResultIDs(), RIDGateCopy(0, 1)) {
		t.Errorf("copy gate result missing")
	}

	mustSet(t, e, IDGateMethod(0, 1), rsa.StringValue("Peak"))
	params = e.EnumParamIDs()
	for _, id := range []rsaid.ID{IDGateThreshold(0, 1), IDGatePolarity(0, 1), IDGateAmp(0, 1), IDGateTof(0, 1)} {
		if !contains(params, id) {
			t.Errorf("peak gate misses %s", id)
		}
	}
	results := e.EnumResultIDs()
	if !contains(results, RIDPeakAmp(0, 1)) || !contains(results, RIDPeakTof(0, 1)) {
		t.Errorf("peak gate results missing: %v", results)
	}
	if contains(results, RIDGateCopy(0, 1)) {
		t.Errorf("peak gate still has a copy result")
	}

	mustSet(t, e, IDChannels, rsa.IntValue(2))
	if !contains(e.EnumParamIDs(), IDRepRate(1)) {
		t.Errorf("channel 1 missing after Channels=2")
	}
	if contains(e.EnumParamIDs(), IDPopManual(1)) {
		t.Errorf("pop manual is only offered on channel 0")
	}
}

func TestFixedGatesAreReadonly(t *testing.T) {
	e, _ := newTestEmulator(t, true)

	info, ok := e.ParamInfo(IDGates(0))
	if !ok {
		t.Fatalf("Gates not found")
	}
	if !info.Flags.Has(rsa.ParamReadonly) {
		t.Errorf("Gates flags = %v, want readonly", info.Flags)
	}
	if got := mustGet(t, e, IDGates(0)).Int(); got != defaultMaxGates {
		t.Errorf("Gates = %d, want %d", got, defaultMaxGates)
	}
	if got := mustGet(t, e, IDGateMethod(0, 3)).String(); got != "Peak" {
		t.Errorf("fixed gate method = %q, want Peak", got)
	}
}

func TestSlaveDelays(t *testing.T) {
	e, _ := newTestEmulator(t, true)
	ch := &e.channels[0]

	mustSet(t, e, IDGateSlaveTo(0, 2), rsa.IntValue(5))
	if _, ok := e.EffectiveDelay(0, 2); ok {
		t.Errorf("gate slaved to a later gate must not resolve")
	}
	mustSet(t, e, IDGateSlaveTo(0, 4), rsa.IntValue(4))
	if _, ok := e.EffectiveDelay(0, 4); ok {
		t.Errorf("gate slaved to itself must not resolve")
	}

	mustSet(t, e, IDGateSlaveTo(0, 3), rsa.IntValue(1))
	ch.gates[1].peakTof = tofOffset + 40
	d, ok := e.EffectiveDelay(0, 3)
	if !ok || d != ch.gates[3].delay+40 {
		t.Errorf("EffectiveDelay(0, 3) = %d, %v; want %d, true", d, ok, ch.gates[3].delay+40)
	}

	mustSet(t, e, IDGateSlaveTo(0, 5), rsa.IntValue(-2))
	d, ok = e.EffectiveDelay(0, 5)
	if !ok || d != ch.gates[5].delay+ch.gates[0].delay {
		t.Errorf("artificial delay = %d, %v; want %d", d, ok, ch.gates[5].delay+ch.gates[0].delay)
	}
}

func TestSlaveStatesOfferOnlyEarlierPeakGates(t *testing.T) {
	e, _ := newTestEmulator(t, true)

	mustSet(t, e, IDGateMethod(0, 1), rsa.StringValue("Copy"))
	mustSet(t, e, IDGateSlaveTo(0, 2), rsa.IntValue(0))
	info, ok := e.ParamInfo(IDGateSlaveTo(0, 4))
	if !ok {
		t.Fatalf("SlaveTo not found")
	}
	var names []string
	for _, s := range info.States {
		names = append(names, s.Name)
	}
	want := []string{"Artificial", "Independent", "IF Gate", "Gate 3"}
	if len(names) != len(want) {
		t.Fatalf("states = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("state %d = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestActiveTcgCurve(t *testing.T) {
	e, _ := newTestEmulator(t, false)

	if got := len(e.ActiveTcgCurve()); got != 1 {
		t.Errorf("default curve has %d points, want 1", got)
	}
	mustSet(t, e, IDTcgTime(0), rsa.FloatValue(1e-6))
	mustSet(t, e, IDTcgTime(1), rsa.FloatValue(2e-6))
	mustSet(t, e, IDTcgTime(2), rsa.FloatValue(3e-6))
	mustSet(t, e, IDTcgTime(3), rsa.FloatValue(2e-6))
	mustSet(t, e, IDTcgTime(4), rsa.FloatValue(5e-6))

	curve := e.ActiveTcgCurve()
	if len(curve) != 3 {
		t.Fatalf("curve has %d points, want 3", len(curve))
	}
	if curve[2].Time != 3e-6 {
		t.Errorf("curve[2].Time = %g, want 3e-6", curve[2].Time)
	}
	if got := e.Tcg()[4].Time; got != 5e-6 {
		t.Errorf("table point 4 changed to %g", got)
	}
}

func TestErrorAcknowledge(t *testing.T) {
	e, _ := newTestEmulator(t, false)

	e.errorValue = 1
	if e.Initialize() {
		t.Fatalf("Initialize succeeded with a pending error")
	}
	mustSet(t, e, rsaid.Encode(rsaid.NoChannel, rsaid.NoGate, pidError), rsa.IntValue(0))
	if code, _ := e.Error(); code != 0 {
		t.Errorf("recoverable error not cleared: %d", code)
	}

	e.errorValue = -1
	mustSet(t, e, rsaid.Encode(rsaid.NoChannel, rsaid.NoGate, pidError), rsa.IntValue(0))
	if code, _ := e.Error(); code != -1 {
		t.Errorf("irrecoverable error cleared: %d", code)
	}
}

func TestRegister(t *testing.T) {
	r := rsa.NewRegistry()
	if err := Register(r); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	acq, err := r.Create("Emulator Fixed")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if n, err := acq.GateCount(0); err != nil || n != defaultMaxGates {
		t.Errorf("GateCount = %d, %v; want %d", n, err, defaultMaxGates)
	}
	if err := Register(r); err == nil {
		t.Errorf("second Register should fail")
	}
}

func TestRegisterConfig(t *testing.T) {
	r := rsa.NewRegistry()
	if err := RegisterConfig(r, &Config{MaxGates: 4, FixedGates: true}); err != nil {
		t.Fatalf("RegisterConfig failed: %v", err)
	}
	fixed, err := r.Create("Emulator Fixed")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if n, err := fixed.GateCount(0); err != nil || n != 4 {
		t.Errorf("fixed GateCount = %d, %v; want 4", n, err)
	}
	dynamic, err := r.Create("Emulator")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if n, err := dynamic.GateCount(0); err != nil || n != 0 {
		t.Errorf("dynamic GateCount = %d, %v; want 0", n, err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		cfg     Config
		wantErr bool
	}{
		{Config{}, false},
		{Config{Channels: 2, MaxGates: 3}, false},
		{Config{Channels: -1}, true},
		{Config{MaxGates: 300}, true},
	}
	for _, tt := range tests {
		cfg := tt.cfg
		err := cfg.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%+v) = %v, wantErr %v", tt.cfg, err, tt.wantErr)
		}
	}
}
