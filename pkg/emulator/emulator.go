package emulator

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	log "github.com/golang/glog"

	"github.com/OpenTraceLab/OpenTraceRSA/pkg/rsa"
	"github.com/OpenTraceLab/OpenTraceRSA/pkg/rsaid"
)

// Method is the analysis a gate runs on its window.
type Method int

const (
	MethodNone Method = iota
	MethodPeak
	MethodCopy
)

var methodNames = [...]string{"None", "Peak", "Copy"}

func (m Method) String() string {
	if m < MethodNone || int(m) >= len(methodNames) {
		return methodNames[MethodNone]
	}
	return methodNames[m]
}

func parseMethod(s string) Method {
	switch s {
	case "Peak":
		return MethodPeak
	case "Copy":
		return MethodCopy
	}
	return MethodNone
}

// Polarity selects which excursion peak detection looks for.
type Polarity int

const (
	PolarityNegative Polarity = -1
	PolarityFull     Polarity = 0
	PolarityPositive Polarity = 1
)

type gate struct {
	name           string
	method         Method
	delay          int64 // time units
	rng            int64 // time units
	slaveTo        int   // -2 artificial, -1 independent, else an earlier gate
	enabled        bool
	thresholdValue float64
	threshold      int // raw level compared against samples
	polarity       Polarity
	peakAmp        int
	peakTof        int64
	peakFound      bool
	buf            []byte
	ampBuf         [1]byte
	tofBuf         [4]byte
}

// calculateThreshold derives the raw level from the percentage and polarity.
func (g *gate) calculateThreshold() {
	v := g.thresholdValue
	if g.polarity != PolarityFull {
		v = v*float64(g.polarity) + 128
	}
	g.threshold = int(v)
}

type channel struct {
	gateCount      int
	repRate        float64
	timeUnits      float64
	gain           float64
	syncMode       int
	popDivider     int64
	popManual      int
	bidir          bool
	copyEnabled    bool
	copyDelay      int64
	copyRange      int64
	ifPos          int64
	rectify        int
	tcgEnabled     bool
	tcgSlaveTo     int
	tcgDelay       int64
	tcgRange       int64
	syncCounter    uint32
	syncTimeOffset float64
	copySyncIndex  uint32
	popIndex       uint32
	copyBuf        []byte
	sweep          [3]float64
	gates          []gate
	popBuf         [4]byte
	indexBuf       [4]byte
}

// toUnits converts seconds into the channel's time units.
func (c *channel) toUnits(v rsa.Value) int64 {
	return int64(math.Round(v.Float() / c.timeUnits))
}

// TcgPoint is one time/gain pair of the TCG table.
type TcgPoint struct {
	Time float64 // seconds
	Gain float64 // dB
}

// Emulator is a synthetic acquisition implementation. It is not safe for
// concurrent use; the host drives it from one goroutine.
type Emulator struct {
	rsa.Base

	cfg          Config
	channels     []channel
	channelCount int
	ampUnit      float64
	errorValue   int
	tcg          [maxTcgPoints]TcgPoint

	runMode   bool
	syncStart time.Time

	oneShotDelay    time.Duration
	oneShotDeadline time.Time
	oneShotArmed    bool

	sustaining bool

	now func() time.Time
	rng *rand.Rand
}

var _ rsa.Acquisition = (*Emulator)(nil)

// New builds an emulator and applies every enumerated parameter's default.
func New(cfg *Config) (*Emulator, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := *cfg
	if err := c.Validate(); err != nil {
		return nil, err
	}
	seed := c.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	e := &Emulator{
		cfg:          c,
		channels:     make([]channel, c.Channels),
		oneShotDelay: 500 * time.Millisecond,
		now:          time.Now,
		rng:          rand.New(rand.NewSource(seed)),
	}
	e.Bind(e)
	for i := range e.channels {
		ch := &e.channels[i]
		ch.timeUnits = 1e-7
		ch.gain = 30
		ch.repRate = 1000
		ch.popDivider = 1
		ch.copyEnabled = true
		ch.copyRange = 100
		ch.tcgSlaveTo = -1
		if c.FixedGates {
			ch.gateCount = c.MaxGates
		}
		ch.gates = make([]gate, c.MaxGates)
		for j := range ch.gates {
			g := &ch.gates[j]
			g.method = MethodCopy
			g.delay = int64(100 + j*100)
			g.rng = 100
			g.slaveTo = -1
			g.enabled = true
			g.thresholdValue = 70
			g.threshold = 70
			g.polarity = PolarityFull
			if j == 0 {
				g.name = "IF Gate"
			} else {
				g.name = fmt.Sprintf("Gate %d", j)
			}
		}
	}
	e.applyDefaults()
	log.V(1).Infof("emulator: created with %d channel slots, %d gates, fixed=%v", c.Channels, c.MaxGates, c.FixedGates)
	return e, nil
}

// applyDefaults writes descriptor defaults until the enumeration stops
// growing, so parameters exposed by earlier defaults get theirs too.
func (e *Emulator) applyDefaults() {
	done := make(map[rsaid.ID]bool)
	for {
		fresh := 0
		for _, id := range e.EnumParamIDs() {
			if done[id] {
				continue
			}
			done[id] = true
			fresh++
			var info rsa.ParamInfo
			if e.HandleParam(id, &info, nil, nil) {
				def := info.Default
				e.HandleParam(id, nil, &def, nil)
			}
		}
		if fresh == 0 {
			return
		}
	}
}

// SetClock replaces the wall clock used for run-mode anchoring and the single
// shot timer.
func (e *Emulator) SetClock(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	e.now = now
}

// Register adds the emulator variants to r.
func Register(r *rsa.Registry) error {
	return RegisterConfig(r, DefaultConfig())
}

// RegisterConfig adds the emulator variants built from base. The fixed
// variant overrides FixedGates.
func RegisterConfig(r *rsa.Registry, base *Config) error {
	if base == nil {
		base = DefaultConfig()
	}
	ctor := func(p rsa.Params) (rsa.Acquisition, error) {
		cfg := *base
		cfg.FixedGates = p.Mode == 1
		return New(&cfg)
	}
	if err := r.Register("Emulator", "synthetic ultrasonic instrument", rsa.Params{Mode: 0}, ctor); err != nil {
		return err
	}
	return r.Register("Emulator Fixed", "synthetic instrument with fixed gates", rsa.Params{Mode: 1}, ctor)
}

func (e *Emulator) DoInitialize(init bool) bool { return true }
func (e *Emulator) Type() rsa.Type              { return rsa.Ultrasonic }
func (e *Emulator) RunMode() bool               { return e.runMode }

// SetRunMode switches acquisition on or off. With clear the sync counters
// restart from zero at the current time; without it they are kept and the
// channels are re-anchored so no backlog of events builds up.
func (e *Emulator) SetRunMode(run, clear bool) bool {
	now := e.now()
	resumed := run && !e.runMode
	if e.runMode != run {
		log.V(1).Infof("emulator: run mode %v (clear=%v)", run, clear)
	}
	e.runMode = run
	switch {
	case clear:
		e.syncStart = now
		for i := range e.channels {
			e.channels[i].syncCounter = 0
			e.channels[i].syncTimeOffset = 0
		}
	case resumed:
		for i := range e.channels {
			e.reanchor(&e.channels[i], now)
		}
	}
	return true
}

// reanchor keeps the channel's sync counter continuous from now on.
func (e *Emulator) reanchor(ch *channel, now time.Time) {
	if ch.repRate <= 0 {
		return
	}
	if e.syncStart.IsZero() {
		e.syncStart = now
	}
	ch.syncTimeOffset = float64(ch.syncCounter)/ch.repRate - now.Sub(e.syncStart).Seconds()
}

func (e *Emulator) ParamID(kind rsaid.Kind, gate, ch uint8) rsaid.ID {
	return rsaid.ParamID(kind, gate, ch)
}

func (e *Emulator) ResultID(kind rsaid.ResultKind, gate, ch uint8) rsaid.ID {
	return rsaid.ResultID(kind, gate, ch)
}

// channelAt returns the channel of id, or nil when it is not active.
func (e *Emulator) channelAt(id rsaid.ID) *channel {
	ch := int(id.Channel())
	if ch >= e.activeChannels() {
		return nil
	}
	return &e.channels[ch]
}

// Tcg returns a copy of the configured TCG table.
func (e *Emulator) Tcg() []TcgPoint {
	out := make([]TcgPoint, len(e.tcg))
	copy(out, e.tcg[:])
	return out
}

// ActiveTcgCurve returns the longest prefix of the TCG table whose times are
// strictly increasing. The table itself is never modified.
func (e *Emulator) ActiveTcgCurve() []TcgPoint {
	return activeCurve(e.tcg[:])
}

func activeCurve(points []TcgPoint) []TcgPoint {
	if len(points) == 0 {
		return nil
	}
	n := 1
	for n < len(points) && points[n].Time > points[n-1].Time {
		n++
	}
	out := make([]TcgPoint, n)
	copy(out, points[:n])
	return out
}

// SyncCounter returns the number of sync events a channel has processed.
func (e *Emulator) SyncCounter(ch int) uint32 {
	if ch < 0 || ch >= len(e.channels) {
		return 0
	}
	return e.channels[ch].syncCounter
}

// EffectiveDelay is the delay, in time units, used to synthesize a gate's
// window. ok is false when the gate slaves to itself or a later gate; such a
// gate contributes no peak.
func (e *Emulator) EffectiveDelay(ch, g int) (delay int64, ok bool) {
	if ch < 0 || ch >= len(e.channels) || g < 0 || g >= len(e.channels[ch].gates) {
		return 0, false
	}
	c := &e.channels[ch]
	gi := &c.gates[g]
	delay = gi.delay
	switch {
	case gi.slaveTo >= 0:
		if gi.slaveTo >= g {
			return delay, false
		}
		delay += c.gates[gi.slaveTo].peakTof - tofOffset
	case gi.slaveTo == -2:
		delay += c.gates[0].delay
	}
	return delay, true
}
