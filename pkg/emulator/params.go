package emulator

import (
	"fmt"
	"time"

	log "github.com/golang/glog"

	"github.com/OpenTraceLab/OpenTraceRSA/pkg/rsa"
	"github.com/OpenTraceLab/OpenTraceRSA/pkg/rsaid"
)

// param binds the descriptor and accessors of one resolved id. describe is
// nil for get-only ids without a published descriptor; set is nil for
// read-only ids.
type param struct {
	describe func(d *rsa.ParamInfo)
	get      func() rsa.Value
	set      func(v rsa.Value)
}

func iv(n int64) rsa.Value   { return rsa.IntValue(n) }
func fv(f float64) rsa.Value { return rsa.FloatValue(f) }

func numeric(d *rsa.ParamInfo, def, round, lo, hi rsa.Value) {
	d.Default, d.Round, d.Minimum, d.Maximum = def, round, lo, hi
}

func onOff(d *rsa.ParamInfo, off, on string) {
	d.AddState(off, iv(0))
	d.AddState(on, iv(1))
}

// HandleParam implements rsa.Handler. The id is resolved once; a value being
// set is converted to the descriptor's type and clipped to its bounds.
func (e *Emulator) HandleParam(id rsaid.ID, info *rsa.ParamInfo, set *rsa.Value, get *rsa.Value) bool {
	p, ok := e.resolveParam(id)
	if !ok {
		log.V(2).Infof("emulator: param %s does not exist", id)
		return false
	}
	var d rsa.ParamInfo
	d.Reset(id)
	d.Flags = rsa.ParamArchive
	if id.HasChannel() && id.HasGate() {
		d.Flags |= rsa.ParamGate
	}
	if p.describe != nil {
		p.describe(&d)
		d.ID = id
	} else if info != nil {
		return false
	}
	if set != nil && p.set != nil {
		v := *set
		if d.Default.IsValid() {
			v = v.Convert(d.Default.Type())
		}
		p.set(v.Clip(d.Minimum, d.Maximum))
	}
	if get != nil {
		*get = p.get()
	}
	if info != nil {
		*info = d
	}
	return true
}

func (e *Emulator) resolveParam(id rsaid.ID) (param, bool) {
	if !id.HasChannel() {
		return e.deviceParam(id.Index())
	}
	ch := e.channelAt(id)
	if ch == nil {
		return param{}, false
	}
	if !id.HasGate() {
		return e.channelParam(ch, id.Channel(), id.Index())
	}
	g := int(id.Gate())
	if g >= e.activeGates(ch) {
		return param{}, false
	}
	return e.gateParam(ch, g, id.Index())
}

func (e *Emulator) deviceParam(idx uint16) (param, bool) {
	if idx >= pidTcgTime(0) && idx < pidTcgTime(maxTcgPoints) {
		n := int(idx - pidTcgTime(0))
		pt := &e.tcg[n]
		return param{
			describe: func(d *rsa.ParamInfo) {
				d.Name = fmt.Sprintf("Receiver|TCG|Point%3d|Time", n+1)
				d.Unit = "s"
				d.Description = fmt.Sprintf("TCG time point number %d.", n+1)
				numeric(d, fv(0), fv(0.01e-6), fv(0), fv(326e-6))
			},
			get: func() rsa.Value { return fv(pt.Time) },
			set: func(v rsa.Value) { pt.Time = v.Float() },
		}, true
	}
	if idx >= pidTcgGain(0) && idx < pidTcgGain(maxTcgPoints) {
		n := int(idx - pidTcgGain(0))
		pt := &e.tcg[n]
		return param{
			describe: func(d *rsa.ParamInfo) {
				d.Name = fmt.Sprintf("Receiver|TCG|Point%3d|Gain", n+1)
				d.Unit = "dB"
				d.Description = "Receiver TCG point gain."
				numeric(d, fv(0), fv(0.1), fv(0), fv(80))
			},
			get: func() rsa.Value { return fv(pt.Gain) },
			set: func(v rsa.Value) { pt.Gain = v.Float() },
		}, true
	}

	switch idx {
	case pidError:
		return param{
			describe: func(d *rsa.ParamInfo) {
				d.Name = "Error"
				d.Unit = "!"
				d.Description = "Error value."
				numeric(d, iv(0), iv(1), iv(-1), iv(1))
				d.AddState("Irrecoverable", iv(-1))
				d.AddState("Okay", iv(0))
				d.AddState("Recoverable", iv(1))
			},
			get: func() rsa.Value { return iv(int64(e.errorValue)) },
			set: func(v rsa.Value) {
				// Only a recoverable error can be acknowledged.
				if e.errorValue > 0 && v.Int() == 0 {
					e.errorValue = 0
				}
			},
		}, true

	case pidChannels:
		return param{
			describe: func(d *rsa.ParamInfo) {
				d.Name = "Channels"
				d.Unit = "!"
				d.Description = "Amount of available channels."
				numeric(d, iv(1), iv(1), iv(1), iv(int64(min(maxActiveChannels, len(e.channels)))))
				d.Flags = rsa.ParamSystem | rsa.ParamEffectsParameter | rsa.ParamEffectsResult
			},
			get: func() rsa.Value { return iv(int64(e.channelCount)) },
			set: func(v rsa.Value) { e.channelCount = int(v.Int()) },
		}, true

	case pidAmpUnit:
		return param{
			describe: func(d *rsa.ParamInfo) {
				d.Name = "Amplitude Unit"
				d.Unit = "V"
				d.Description = "Amplitude of a single digitizer step."
				numeric(d, fv(0.01), fv(0.001), fv(0.001), fv(0.05))
			},
			get: func() rsa.Value { return fv(e.ampUnit) },
			set: func(v rsa.Value) { e.ampUnit = v.Float() },
		}, true

	case pidOneShotDelay:
		return param{
			describe: func(d *rsa.ParamInfo) {
				d.Name = "One Shot|Delay"
				d.Unit = "ms"
				d.Description = "Time a single shot runs before it reports ready."
				numeric(d, iv(500), iv(1), iv(0), iv(5000))
			},
			get: func() rsa.Value { return iv(e.oneShotDelay.Milliseconds()) },
			set: func(v rsa.Value) {
				e.oneShotDelay = time.Duration(v.Int()) * time.Millisecond
				e.oneShotArmed = false
			},
		}, true

	case pidOneShotState:
		return param{
			describe: func(d *rsa.ParamInfo) {
				d.Name = "One Shot|State"
				d.Unit = "!"
				d.Description = "Starts a single shot."
				numeric(d, iv(0), iv(1), iv(0), iv(1))
				onOff(d, "Ready", "Running")
				d.Flags = 0
			},
			get: func() rsa.Value { return rsa.BoolValue(e.oneShotArmed) },
			set: func(v rsa.Value) {
				e.oneShotArmed = v.Bool()
				if e.oneShotArmed {
					e.oneShotDeadline = e.now().Add(e.oneShotDelay)
				}
			},
		}, true
	}
	return param{}, false
}

func (e *Emulator) channelParam(ch *channel, chn uint8, idx uint16) (param, bool) {
	switch idx {
	case pidRepRate:
		return param{
			describe: func(d *rsa.ParamInfo) {
				d.Name = "Rep.Rate"
				d.Unit = "Hz"
				d.Description = "Repetition rate when sync is set to internal."
				numeric(d, fv(5), fv(1), fv(1), fv(1000))
			},
			get: func() rsa.Value { return fv(ch.repRate) },
			set: func(v rsa.Value) {
				ch.repRate = v.Float()
				e.reanchor(ch, e.now())
			},
		}, true

	case pidSyncMode:
		return param{
			describe: func(d *rsa.ParamInfo) {
				d.Name = "Sync Mode"
				d.Unit = "!"
				d.Description = "Sync signal source selection."
				numeric(d, iv(0), iv(1), iv(0), iv(1))
				onOff(d, "Internal", "External")
			},
			get: func() rsa.Value { return iv(int64(ch.syncMode)) },
			set: func(v rsa.Value) { ch.syncMode = int(v.Int()) },
		}, true

	case pidGates:
		return param{
			describe: func(d *rsa.ParamInfo) {
				d.Name = "Gates"
				d.Unit = "!"
				d.Description = "Amount of gates selection."
				if e.cfg.FixedGates {
					n := iv(int64(ch.gateCount))
					numeric(d, n, iv(1), n, n)
					d.Flags |= rsa.ParamReadonly
				} else {
					numeric(d, iv(0), iv(1), iv(0), iv(int64(min(maxDynamicGates, len(ch.gates)))))
				}
				d.Flags |= rsa.ParamEffectsParameter | rsa.ParamEffectsResult
				d.AddState("None", iv(0))
				d.AddState("IF Gate Only", iv(1))
				d.AddState("1 Signal Gate", iv(2))
				d.AddState("2 Signal Gates", iv(3))
			},
			get: func() rsa.Value { return iv(int64(ch.gateCount)) },
			set: func(v rsa.Value) { ch.gateCount = int(v.Int()) },
		}, true

	case pidInputs:
		return param{
			describe: func(d *rsa.ParamInfo) {
				d.Name = "Inputs"
				d.Unit = "!"
				d.Description = "Amount of available synchronised inputs."
				numeric(d, iv(1), iv(1), iv(1), iv(1))
				d.Flags |= rsa.ParamReadonly
			},
			get: func() rsa.Value { return iv(1) },
		}, true

	case pidPopManual:
		return param{
			describe: func(d *rsa.ParamInfo) {
				d.Name = "Pop Manual"
				d.Unit = "!"
				d.Description = "Generates POP indices by hand instead of from the sync divider."
				numeric(d, iv(0), iv(1), iv(0), iv(2))
				d.Flags &^= rsa.ParamWriteAtOff | rsa.ParamArchive
				d.AddState("Disabled", iv(0))
				d.AddState("Ready", iv(1))
				d.AddState("Trigger", iv(2))
			},
			get: func() rsa.Value { return iv(int64(ch.popManual)) },
			set: func(v rsa.Value) {
				ch.popManual = int(v.Int())
				if ch.popManual > int(rsa.PopManualReady) {
					ch.popManual = int(rsa.PopManualReady)
					log.Infof("emulator: channel %d manual POP at %d", chn, ch.syncCounter)
					ch.popIndex = ch.syncCounter
					e.CallResultHook(RIDPopIndex(chn))
				}
			},
		}, true

	case pidBidirMode:
		return param{
			describe: func(d *rsa.ParamInfo) {
				d.Name = "Bidirectional Mode"
				d.Unit = "!"
				d.Description = "Reverses every other scan line when manual POP is used."
				numeric(d, iv(0), iv(1), iv(0), iv(1))
				d.Flags = rsa.ParamChannelSingle
				onOff(d, "Disabled", "Enabled")
			},
			get: func() rsa.Value { return rsa.BoolValue(ch.bidir) },
			set: func(v rsa.Value) { ch.bidir = v.Bool() },
		}, true

	case pidTimeUnits:
		return param{
			describe: func(d *rsa.ParamInfo) {
				d.Name = "Time Unit"
				d.Unit = "s"
				d.Description = "Seconds per time unit of time dependent results."
				numeric(d, fv(1e-6), fv(1e-8), fv(1e-8), fv(1e-6))
				d.Flags |= rsa.ParamReadonly
			},
			get: func() rsa.Value { return fv(ch.timeUnits) },
		}, true

	case pidCopyEnable:
		return param{
			describe: func(d *rsa.ParamInfo) {
				d.Name = "Enable"
				d.Unit = "!"
				d.Description = "Marks the A-scan data of this channel for storage."
				numeric(d, iv(1), iv(1), iv(0), iv(1))
				onOff(d, "Off", "On")
			},
			get: func() rsa.Value { return rsa.BoolValue(ch.copyEnabled) },
			set: func(v rsa.Value) { ch.copyEnabled = v.Bool() },
		}, true

	case pidCopyDelay:
		return param{
			describe: func(d *rsa.ParamInfo) {
				d.Name = "A-scan|Delay"
				d.Unit = "s"
				d.Description = "Delay of the A-scan result of this channel."
				tu := ch.timeUnits
				numeric(d, fv(0), fv(tu), fv(-5000*tu), fv(5000*tu))
			},
			get: func() rsa.Value { return fv(ch.timeUnits * float64(ch.copyDelay)) },
			set: func(v rsa.Value) { ch.copyDelay = ch.toUnits(v) },
		}, true

	case pidCopyRange:
		return param{
			describe: func(d *rsa.ParamInfo) {
				d.Name = "A-scan|Range"
				d.Unit = "s"
				d.Description = "Range of the A-scan result of this channel."
				tu := ch.timeUnits
				numeric(d, fv(400*tu), fv(tu), fv(10*tu), fv(5000*tu))
				d.Flags |= rsa.ParamEffectsResult
			},
			get: func() rsa.Value { return fv(ch.timeUnits * float64(ch.copyRange)) },
			set: func(v rsa.Value) { ch.copyRange = ch.toUnits(v) },
		}, true

	case pidGain:
		return param{
			describe: func(d *rsa.ParamInfo) {
				d.Name = "Receiver|Gain"
				d.Unit = "dB"
				d.Description = "Receiver gain of this channel."
				numeric(d, fv(35), fv(0.1), fv(-20), fv(80))
			},
			get: func() rsa.Value { return fv(ch.gain) },
			set: func(v rsa.Value) { ch.gain = v.Float() },
		}, true

	case pidPopDivider:
		return param{
			describe: func(d *rsa.ParamInfo) {
				d.Name = "POP Divider"
				d.Unit = "n"
				d.Description = "Position orientation sync pulse divider."
				numeric(d, iv(10), iv(1), iv(1), iv(1<<12))
			},
			get: func() rsa.Value { return iv(ch.popDivider) },
			set: func(v rsa.Value) { ch.popDivider = v.Int() },
		}, true

	case pidIfPosition:
		return param{
			describe: func(d *rsa.ParamInfo) {
				d.Name = "IF Position"
				d.Unit = "s"
				d.Description = "Interface echo position."
				tu := ch.timeUnits
				numeric(d, fv(203e-6), fv(tu), fv(-5000*tu), fv(5000*tu))
			},
			get: func() rsa.Value { return fv(ch.timeUnits * float64(ch.ifPos)) },
			set: func(v rsa.Value) { ch.ifPos = ch.toUnits(v) },
		}, true

	case pidAscanRectify:
		return param{
			describe: func(d *rsa.ParamInfo) {
				d.Name = "A-scan|Rectify"
				d.Description = "A-scan rectification mode."
				numeric(d, iv(0), iv(1), iv(0), iv(3))
				d.AddState("RF", iv(RectifyNone))
				d.AddState("Half Wave +", iv(RectifyPositive))
				d.AddState("Half Wave -", iv(RectifyNegative))
				d.AddState("Full Wave", iv(RectifyFull))
				d.Flags |= rsa.ParamEffectsResult
			},
			get: func() rsa.Value { return iv(int64(ch.rectify)) },
			set: func(v rsa.Value) { ch.rectify = int(v.Int()) },
		}, true

	case pidTcgEnable:
		return param{
			describe: func(d *rsa.ParamInfo) {
				d.Name = "Receiver|TCG|Enable"
				d.Unit = "!"
				d.Description = "Receiver TCG enable of this channel."
				numeric(d, iv(0), iv(1), iv(0), iv(1))
				onOff(d, "Off", "On")
			},
			get: func() rsa.Value { return rsa.BoolValue(ch.tcgEnabled) },
			set: func(v rsa.Value) { ch.tcgEnabled = v.Bool() },
		}, true

	case pidTcgSlaveTo:
		return param{
			describe: func(d *rsa.ParamInfo) {
				d.Name = "Receiver|TCG|Slaved"
				d.Unit = "!"
				d.Description = "Time origin of the TCG curve."
				numeric(d, iv(-1), iv(1), iv(-2), iv(0))
				d.AddState("Artificial", iv(-2))
				d.AddState("Initial Pulse", iv(-1))
				d.AddState("IF Gate", iv(0))
			},
			get: func() rsa.Value { return iv(int64(ch.tcgSlaveTo)) },
			set: func(v rsa.Value) { ch.tcgSlaveTo = int(v.Int()) },
		}, true

	case pidTcgDelay:
		return param{
			describe: func(d *rsa.ParamInfo) {
				d.Name = "Receiver|TCG|Delay"
				d.Unit = "s"
				d.Description = "Delay of the receiver time corrected gain window."
				numeric(d, fv(16e-6), fv(20e-9), fv(0), fv(655e-6))
			},
			get: func() rsa.Value { return fv(ch.timeUnits * float64(ch.tcgDelay)) },
			set: func(v rsa.Value) { ch.tcgDelay = ch.toUnits(v) },
		}, true

	case pidTcgRange:
		return param{
			describe: func(d *rsa.ParamInfo) {
				d.Name = "Receiver|TCG|Range"
				d.Unit = "s"
				d.Description = "Range of the receiver time corrected gain window."
				numeric(d, fv(16e-6), fv(20e-9), fv(0), fv(655e-6))
			},
			get: func() rsa.Value { return fv(ch.timeUnits * float64(ch.tcgRange)) },
			set: func(v rsa.Value) { ch.tcgRange = ch.toUnits(v) },
		}, true
	}
	return param{}, false
}

func (e *Emulator) gateParam(ch *channel, g int, idx uint16) (param, bool) {
	gi := &ch.gates[g]
	switch idx {
	case pidGateName:
		return param{
			get: func() rsa.Value { return rsa.StringValue(gi.name) },
		}, true

	case pidGateSlaveTo:
		return param{
			describe: func(d *rsa.ParamInfo) {
				d.Name = "Slaved"
				d.Unit = "!"
				d.Description = "Time origin of this gate."
				numeric(d, iv(-1), iv(1), iv(-2), iv(int64(ch.gateCount)))
				d.AddState("Artificial", iv(-2))
				d.AddState("Independent", iv(-1))
				// Only earlier peak gates that are not slaved themselves.
				for i := 0; i < g; i++ {
					if ch.gates[i].method != MethodCopy && ch.gates[i].slaveTo < 0 {
						d.AddState(ch.gates[i].name, iv(int64(i)))
					}
				}
				d.Flags |= rsa.ParamEffectsParameter
			},
			get: func() rsa.Value { return iv(int64(gi.slaveTo)) },
			set: func(v rsa.Value) { gi.slaveTo = int(v.Int()) },
		}, true

	case pidGateEnable:
		return param{
			describe: func(d *rsa.ParamInfo) {
				d.Name = "Enable"
				d.Unit = "!"
				d.Description = "Enables storing of % data."
				numeric(d, iv(1), iv(1), iv(0), iv(1))
				onOff(d, "Off", "On")
				d.Flags |= rsa.ParamEffectsResult
			},
			get: func() rsa.Value { return rsa.BoolValue(gi.enabled) },
			set: func(v rsa.Value) { gi.enabled = v.Bool() },
		}, true

	case pidGateMethod:
		return param{
			describe: func(d *rsa.ParamInfo) {
				d.Name = "Method"
				d.Unit = "!"
				d.Description = "Method selector."
				d.Default = rsa.StringValue(MethodPeak.String())
				d.AddState("Peak", rsa.StringValue(MethodPeak.String()))
				d.AddState("Copy", rsa.StringValue(MethodCopy.String()))
				d.Flags |= rsa.ParamEffectsParameter | rsa.ParamEffectsResult
				if e.cfg.FixedGates {
					d.Flags |= rsa.ParamReadonly
				}
			},
			get: func() rsa.Value { return rsa.StringValue(gi.method.String()) },
			set: func(v rsa.Value) { gi.method = parseMethod(v.String()) },
		}, true

	case pidGateDelay:
		return param{
			describe: func(d *rsa.ParamInfo) {
				d.Name = "Delay"
				d.Unit = "s"
				d.Description = "Delay."
				tu := ch.timeUnits
				numeric(d, fv(200*tu), fv(tu), fv(-3000*tu), fv(3000*tu))
			},
			get: func() rsa.Value { return fv(ch.timeUnits * float64(gi.delay)) },
			set: func(v rsa.Value) { gi.delay = ch.toUnits(v) },
		}, true

	case pidGateRange:
		return param{
			describe: func(d *rsa.ParamInfo) {
				d.Name = "Range"
				d.Unit = "s"
				d.Description = "Time range."
				tu := ch.timeUnits
				numeric(d, fv(400*tu), fv(tu), fv(10*tu), fv(5000*tu))
				// The range only sizes a result for copy gates.
				if gi.method == MethodCopy {
					d.Flags |= rsa.ParamEffectsResult
				}
			},
			get: func() rsa.Value { return fv(ch.timeUnits * float64(gi.rng)) },
			set: func(v rsa.Value) { gi.rng = ch.toUnits(v) },
		}, true

	case pidGateThreshold:
		return param{
			describe: func(d *rsa.ParamInfo) {
				d.Name = "Threshold"
				d.Unit = "%"
				d.Description = "Peak threshold level."
				numeric(d, fv(30), fv(0.5), fv(0), fv(128))
			},
			get: func() rsa.Value { return fv(gi.thresholdValue) },
			set: func(v rsa.Value) {
				gi.thresholdValue = v.Float()
				gi.calculateThreshold()
			},
		}, true

	case pidGatePolarity:
		return param{
			describe: func(d *rsa.ParamInfo) {
				d.Name = "Polarity"
				d.Unit = "!"
				d.Description = "Negative or positive peak detection."
				numeric(d, iv(int64(PolarityPositive)), iv(1), iv(-1), iv(1))
				d.AddState("Negative", iv(int64(PolarityNegative)))
				d.AddState("Positive", iv(int64(PolarityPositive)))
				d.AddState("Full", iv(int64(PolarityFull)))
			},
			get: func() rsa.Value { return iv(int64(gi.polarity)) },
			set: func(v rsa.Value) {
				gi.polarity = Polarity(v.Int())
				gi.calculateThreshold()
			},
		}, true

	case pidGateAmp:
		return param{
			describe: func(d *rsa.ParamInfo) {
				d.Name = "Amplitude"
				d.Unit = "%"
				d.Description = "Amplitude of the last detected peak."
				numeric(d, iv(0), iv(1), iv(0), iv(127))
				d.Flags |= rsa.ParamReadonly
				d.Flags &^= rsa.ParamArchive
			},
			get: func() rsa.Value {
				if !gi.peakFound {
					return iv(0)
				}
				return iv(int64(abs(gi.peakAmp - 127)))
			},
		}, true

	case pidGateTof:
		return param{
			describe: func(d *rsa.ParamInfo) {
				d.Name = "Time Of Flight"
				d.Unit = "s"
				d.Description = "Time of flight of the last detected peak."
				tu := ch.timeUnits
				numeric(d, fv(0), fv(tu), fv(0), fv(tu*0xFFFFFFF))
				d.Flags |= rsa.ParamReadonly
				d.Flags &^= rsa.ParamArchive
			},
			get: func() rsa.Value { return fv(ch.timeUnits * float64(gi.peakTof-tofOffset)) },
		}, true
	}
	return param{}, false
}

// EnumParamIDs implements rsa.Handler.
func (e *Emulator) EnumParamIDs() []rsaid.ID {
	dev := func(idx uint16) rsaid.ID { return rsaid.Encode(rsaid.NoChannel, rsaid.NoGate, idx) }
	ids := []rsaid.ID{
		dev(pidChannels),
		dev(pidError),
		dev(pidOneShotDelay),
		dev(pidOneShotState),
		dev(pidAmpUnit),
	}
	for i := 0; i < maxTcgPoints; i++ {
		ids = append(ids, dev(pidTcgTime(i)), dev(pidTcgGain(i)))
	}
	for c := 0; c < e.activeChannels(); c++ {
		ch := &e.channels[c]
		cn := uint8(c)
		at := func(idx uint16) rsaid.ID { return rsaid.Encode(cn, rsaid.NoGate, idx) }
		ids = append(ids,
			at(pidRepRate),
			at(pidSyncMode),
			at(pidGates),
			at(pidInputs),
			at(pidTimeUnits),
			at(pidCopyEnable),
			at(pidCopyDelay),
			at(pidCopyRange),
		)
		if c == 0 {
			ids = append(ids, at(pidPopManual), at(pidBidirMode))
		}
		ids = append(ids, at(pidGain), at(pidAscanRectify), at(pidPopDivider), at(pidIfPosition))
		for g := 0; g < e.activeGates(ch); g++ {
			gn := uint8(g)
			gid := func(idx uint16) rsaid.ID { return rsaid.Encode(cn, gn, idx) }
			ids = append(ids,
				gid(pidGateDelay),
				gid(pidGateRange),
				gid(pidGateSlaveTo),
				gid(pidGateEnable),
				gid(pidGateMethod),
			)
			if ch.gates[g].method != MethodCopy {
				ids = append(ids, gid(pidGateThreshold), gid(pidGatePolarity))
				if g > 0 {
					ids = append(ids, gid(pidGateAmp), gid(pidGateTof))
				}
			}
		}
		ids = append(ids, at(pidTcgEnable), at(pidTcgSlaveTo), at(pidTcgDelay), at(pidTcgRange))
	}
	return ids
}

func (e *Emulator) activeChannels() int {
	return max(0, min(e.channelCount, len(e.channels)))
}

func (e *Emulator) activeGates(ch *channel) int {
	return max(0, min(ch.gateCount, len(ch.gates)))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
