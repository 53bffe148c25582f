package emulator

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/OpenTraceLab/OpenTraceRSA/pkg/rsa"
	"github.com/OpenTraceLab/OpenTraceRSA/pkg/rsaid"
)

func countHook(e *Emulator) map[rsaid.ID]int {
	counts := make(map[rsaid.ID]int)
	e.SetResultHook(func(id rsaid.ID) { counts[id]++ })
	return counts
}

func TestSustainPopEvents(t *testing.T) {
	e, clk := newTestEmulator(t, false)
	mustSet(t, e, IDRepRate(0), rsa.FloatValue(1000))
	mustSet(t, e, IDPopDivider(0), rsa.IntValue(10))
	counts := countHook(e)

	t0 := clk.now()
	e.SetRunMode(true, true)

	e.Sustain(t0)
	if got := e.SyncCounter(0); got != 1 {
		t.Errorf("after first tick counter = %d, want 1", got)
	}
	if got := counts[RIDPopIndex(0)]; got != 0 {
		t.Errorf("POP emitted on event 0: %d", got)
	}

	e.Sustain(t0.Add(10 * time.Millisecond))
	if got := e.SyncCounter(0); got != 11 {
		t.Errorf("after 10ms counter = %d, want 11", got)
	}
	if got := counts[RIDPopIndex(0)]; got != 1 {
		t.Errorf("after 10ms POPs = %d, want 1", got)
	}

	e.Sustain(t0.Add(100 * time.Millisecond))
	if got := counts[RIDPopIndex(0)]; got != 10 {
		t.Errorf("after 100ms POPs = %d, want 10", got)
	}
	if got := counts[RIDCopyIndex(0)]; got != 101 {
		t.Errorf("copy index results = %d, want 101", got)
	}
	if got := counts[RIDCopyData(0)]; got != 101 {
		t.Errorf("copy data results = %d, want 101", got)
	}
	buf, ok := e.ResultBuffer(RIDPopIndex(0))
	if !ok || len(buf.Buffer) != 4 {
		t.Fatalf("ResultBuffer(pop) = %+v, %v", buf, ok)
	}
	if buf.Buffer[0] != 100 {
		t.Errorf("pop index = %d, want 100", buf.Buffer[0])
	}
}

func TestSustainStoppedDoesNothing(t *testing.T) {
	e, clk := newTestEmulator(t, false)
	counts := countHook(e)

	e.Sustain(clk.advance(time.Second))
	if len(counts) != 0 || e.SyncCounter(0) != 0 {
		t.Errorf("stopped emulator produced %v", counts)
	}
}

func TestSustainExternalSync(t *testing.T) {
	e, clk := newTestEmulator(t, false)
	mustSet(t, e, IDSyncMode(0), rsa.IntValue(1))
	e.SetRunMode(true, true)
	e.Sustain(clk.advance(time.Second))
	if got := e.SyncCounter(0); got != 0 {
		t.Errorf("external sync counter = %d, want 0", got)
	}
}

func TestSustainRejectsReentry(t *testing.T) {
	e, clk := newTestEmulator(t, false)
	mustSet(t, e, IDRepRate(0), rsa.FloatValue(100))
	t0 := clk.now()
	e.SetRunMode(true, true)

	nested := 0
	e.SetResultHook(func(id rsaid.ID) {
		if id != RIDCopyIndex(0) {
			return
		}
		nested++
		e.Sustain(t0.Add(time.Hour))
	})
	e.Sustain(t0.Add(50 * time.Millisecond))

	if got := e.SyncCounter(0); got != 6 {
		t.Errorf("counter = %d, want 6", got)
	}
	if nested != 6 {
		t.Errorf("hook ran %d times, want 6", nested)
	}
}

func TestResumeWithoutClearDoesNotBurst(t *testing.T) {
	e, clk := newTestEmulator(t, false)
	mustSet(t, e, IDRepRate(0), rsa.FloatValue(1000))
	t0 := clk.now()
	e.SetRunMode(true, true)
	e.Sustain(t0)

	clk.advance(5 * time.Millisecond)
	e.SetRunMode(false, false)
	clk.advance(time.Second)
	e.SetRunMode(true, false)
	e.Sustain(clk.now())

	if got := e.SyncCounter(0); got > 2 {
		t.Errorf("resume produced a burst: counter = %d", got)
	}

	e.Sustain(clk.advance(10 * time.Millisecond))
	if got := e.SyncCounter(0); got < 10 || got > 12 {
		t.Errorf("counter after resume = %d, want about 11", got)
	}

	e.SetRunMode(true, true)
	if got := e.SyncCounter(0); got != 0 {
		t.Errorf("clear kept counter %d", got)
	}
}

func TestManualPop(t *testing.T) {
	e, clk := newTestEmulator(t, false)
	if !e.Initialize() {
		t.Fatalf("Initialize failed")
	}
	counts := countHook(e)
	mustSet(t, e, IDRepRate(0), rsa.FloatValue(1000))
	e.SetRunMode(true, true)
	e.Sustain(clk.advance(3 * time.Millisecond))

	if !e.SetPopManual(0, rsa.PopManualReady) {
		t.Fatalf("SetPopManual(ready) failed")
	}
	mustSet(t, e, IDPopManual(0), rsa.IntValue(int64(rsa.PopManualTrigger)))
	if got := e.PopManual(0); got != rsa.PopManualReady {
		t.Errorf("PopManual after trigger = %v, want ready", got)
	}
	if got := counts[RIDPopIndex(0)]; got != 1 {
		t.Errorf("manual POP results = %d, want 1", got)
	}
	buf, _ := e.ResultBuffer(RIDPopIndex(0))
	if buf.Buffer[0] != byte(e.SyncCounter(0)) {
		t.Errorf("manual POP index = %d, want %d", buf.Buffer[0], e.SyncCounter(0))
	}
}

func TestSingleShot(t *testing.T) {
	e, clk := newTestEmulator(t, false)
	if !e.Initialize() {
		t.Fatalf("Initialize failed")
	}
	var notified []rsaid.ID
	e.SetParamHook(func(id rsaid.ID) { notified = append(notified, id) })

	mustSet(t, e, IDOneShotDelay, rsa.IntValue(100))
	mustSet(t, e, IDOneShotState, rsa.IntValue(1))
	e.SetRunMode(true, true)

	e.Sustain(clk.advance(50 * time.Millisecond))
	if !mustGet(t, e, IDOneShotState).Bool() {
		t.Fatalf("single shot finished early")
	}
	e.Sustain(clk.advance(60 * time.Millisecond))
	if mustGet(t, e, IDOneShotState).Bool() {
		t.Errorf("single shot still running")
	}
	if !contains(notified, IDOneShotState) {
		t.Errorf("one shot state not notified: %v", notified)
	}
}

func TestGateResults(t *testing.T) {
	e, clk := newTestEmulator(t, false)
	if !e.Initialize() {
		t.Fatalf("Initialize failed")
	}
	mustSet(t, e, IDGates(0), rsa.IntValue(3))
	mustSet(t, e, IDGateMethod(0, 1), rsa.StringValue("Peak"))
	mustSet(t, e, IDGateEnable(0, 2), rsa.IntValue(0))
	counts := countHook(e)
	params := make(map[rsaid.ID]int)
	e.SetParamHook(func(id rsaid.ID) { params[id]++ })

	e.SetRunMode(true, true)
	e.Sustain(clk.now())

	if counts[RIDGateCopy(0, 0)] != 1 {
		t.Errorf("copy gate 0 results = %d, want 1", counts[RIDGateCopy(0, 0)])
	}
	if counts[RIDPeakAmp(0, 1)] != 1 || counts[RIDPeakTof(0, 1)] != 1 {
		t.Errorf("peak gate 1 results = %d/%d, want 1/1", counts[RIDPeakAmp(0, 1)], counts[RIDPeakTof(0, 1)])
	}
	if counts[RIDGateCopy(0, 2)] != 0 {
		t.Errorf("disabled gate produced results")
	}
	if params[IDGateAmp(0, 1)] != 1 || params[IDGateTof(0, 1)] != 1 {
		t.Errorf("gate 1 amp/tof params not notified: %v", params)
	}

	info, ok := e.ResultInfo(RIDGateCopy(0, 0))
	if !ok {
		t.Fatalf("ResultInfo(copy) not found")
	}
	buf, _ := e.ResultBuffer(RIDGateCopy(0, 0))
	if len(buf.Buffer) != info.ArraySize || buf.BlockBufSize != info.ArraySize {
		t.Errorf("copy buffer %d bytes, block %d, want %d", len(buf.Buffer), buf.BlockBufSize, info.ArraySize)
	}
	if !info.Flags.Has(rsa.ResultGate) || !info.Flags.Has(rsa.ResultStored) {
		t.Errorf("copy result flags = %v", info.Flags)
	}
	if info, _ := e.ResultInfo(RIDPeakTof(0, 1)); info.Offset != tofOffset || info.WordSize != 4 {
		t.Errorf("tof result = %+v", info)
	}
}

func TestSlavedPeakTofUsesOwnDelay(t *testing.T) {
	e, clk := newTestEmulator(t, false)
	mustSet(t, e, IDGates(0), rsa.IntValue(3))
	mustSet(t, e, IDGateMethod(0, 1), rsa.StringValue("Peak"))
	mustSet(t, e, IDGateMethod(0, 2), rsa.StringValue("Peak"))
	mustSet(t, e, IDGateSlaveTo(0, 2), rsa.IntValue(1))
	ch := &e.channels[0]
	if ch.gates[2].slaveTo != 1 {
		t.Fatalf("gate 2 slaved to %d, want 1", ch.gates[2].slaveTo)
	}

	e.SetRunMode(true, true)
	e.Sustain(clk.now())

	master, slave := &ch.gates[1], &ch.gates[2]
	if master.peakTof-tofOffset < master.delay {
		t.Fatalf("master tof %d below its delay %d", master.peakTof-tofOffset, master.delay)
	}
	// The slave's window follows the master's echo, its time of flight does not.
	local := slave.peakTof - tofOffset - slave.delay
	if local < 0 || local >= slave.rng {
		t.Errorf("slave tof %d is not within its own window [%d, %d)",
			slave.peakTof-tofOffset, slave.delay, slave.delay+slave.rng)
	}
	want := ch.timeUnits * float64(slave.peakTof-tofOffset)
	if got := mustGet(t, e, IDGateTof(0, 2)).Float(); got != want {
		t.Errorf("Time Of Flight = %g, want %g", got, want)
	}
	buf, ok := e.ResultBuffer(RIDPeakTof(0, 2))
	if !ok || len(buf.Buffer) != 4 {
		t.Fatalf("peak tof buffer = %+v, %v", buf, ok)
	}
	if got := int64(binary.LittleEndian.Uint32(buf.Buffer)); got != slave.peakTof {
		t.Errorf("peak tof result = %d, want %d", got, slave.peakTof)
	}
}

func TestRectifiedCopyData(t *testing.T) {
	e, clk := newTestEmulator(t, false)
	mustSet(t, e, IDRectify(0), rsa.IntValue(RectifyFull))
	e.SetRunMode(true, true)
	e.Sustain(clk.now())

	info, _ := e.ResultInfo(RIDCopyData(0))
	if info.Bits != 7 || info.Offset != 0 {
		t.Errorf("rectified result bits/offset = %d/%d, want 7/0", info.Bits, info.Offset)
	}
	buf, _ := e.ResultBuffer(RIDCopyData(0))
	if len(buf.Buffer) != info.ArraySize {
		t.Fatalf("buffer %d bytes, want %d", len(buf.Buffer), info.ArraySize)
	}
	for i, s := range buf.Buffer {
		if s > 127 {
			t.Fatalf("sample %d = %d exceeds 7 bits", i, s)
		}
	}
}
