package emulator

import (
	"math"
	"time"

	log "github.com/golang/glog"

	"github.com/OpenTraceLab/OpenTraceRSA/internal/metrics"
	"github.com/OpenTraceLab/OpenTraceRSA/pkg/rsaid"
)

// Sustain implements rsa.Handler. Every sync event due at now is synthesized
// in order; hooks fire inline. A call made from within a hook returns
// immediately.
func (e *Emulator) Sustain(now time.Time) {
	if e.sustaining {
		metrics.SustainSkipped.Inc()
		return
	}
	e.sustaining = true
	defer func() { e.sustaining = false }()

	if !e.runMode {
		return
	}
	metrics.SustainTicks.Inc()
	runTime := now.Sub(e.syncStart).Seconds()
	for c := 0; c < e.activeChannels(); c++ {
		ch := &e.channels[c]
		if ch.syncMode != 0 || ch.repRate <= 0 {
			continue
		}
		due := math.Floor((runTime+ch.syncTimeOffset)*ch.repRate + 1e-9)
		if due < 0 {
			continue
		}
		for float64(ch.syncCounter) <= due {
			e.syncEvent(uint8(c), ch)
		}
	}
	if e.oneShotArmed && !now.Before(e.oneShotDeadline) {
		log.V(1).Infof("emulator: single shot done")
		e.oneShotArmed = false
		e.CallParamHook(IDOneShotState)
	}
}

// syncEvent synthesizes one acquisition on ch and advances its counter.
func (e *Emulator) syncEvent(c uint8, ch *channel) {
	metrics.SyncEvent(int(c))
	if ch.syncCounter != 0 && ch.popDivider > 0 && int64(ch.syncCounter)%ch.popDivider == 0 {
		ch.popIndex = ch.syncCounter
		e.CallResultHook(RIDPopIndex(c))
	}

	ch.copySyncIndex = ch.syncCounter
	e.CallResultHook(RIDCopyIndex(c))

	for i := range ch.sweep {
		ch.sweep[i] = e.rng.Float64() * 3
	}
	ch.copyBuf = resize(ch.copyBuf, int(ch.copyRange))
	fillDataBuffer(ch.copyBuf, 8, ch.gain, echoDelays(ch.sweep, ch.copyDelay, ch.ifPos), e.rng)
	rectify(ch.copyBuf, ch.rectify)
	e.CallResultHook(RIDCopyData(c))

	for g := 0; g < e.activeGates(ch); g++ {
		gi := &ch.gates[g]
		if !gi.enabled {
			continue
		}
		delay, ok := e.EffectiveDelay(int(c), g)
		if !ok {
			gi.peakFound = false
			continue
		}
		gi.buf = resize(gi.buf, int(gi.rng))
		fillDataBuffer(gi.buf, 8, ch.gain, echoDelays(ch.sweep, delay, ch.ifPos), e.rng)
		gn := uint8(g)
		switch gi.method {
		case MethodPeak:
			idx, amp, found := peakNormal(gi.polarity, gi.threshold, gi.buf)
			gi.peakFound, gi.peakAmp = found, amp
			gi.peakTof = int64(idx) + gi.delay + tofOffset
			e.CallResultHook(RIDPeakAmp(c, gn))
			e.CallResultHook(RIDPeakTof(c, gn))
			if g > 0 {
				e.CallParamHook(rsaid.Encode(c, gn, pidGateAmp))
				e.CallParamHook(rsaid.Encode(c, gn, pidGateTof))
			}
		case MethodCopy:
			e.CallResultHook(RIDGateCopy(c, gn))
		}
	}
	ch.syncCounter++
}
