package emulator

import (
	"encoding/binary"

	log "github.com/golang/glog"

	"github.com/OpenTraceLab/OpenTraceRSA/pkg/rsa"
	"github.com/OpenTraceLab/OpenTraceRSA/pkg/rsaid"
)

// HandleResult implements rsa.Handler. Buffers hand out the emulator's own
// storage and stay valid until the next Sustain.
func (e *Emulator) HandleResult(id rsaid.ID, info *rsa.ResultInfo, buf *rsa.BufferInfo) bool {
	var d rsa.ResultInfo
	d.Reset(id)
	if buf != nil {
		buf.Reset()
	}
	if !id.HasChannel() {
		log.V(2).Infof("emulator: result %s does not exist", id)
		return false
	}
	ch := e.channelAt(id)
	if ch == nil {
		log.V(2).Infof("emulator: result %s out of channel range", id)
		return false
	}
	var data []byte
	switch {
	case !id.HasGate():
		switch id.Index() {
		case ridPopIndex:
			d.Name = "Position Index"
			d.Flags = rsa.ResultAsync
			for i := 0; i < e.activeGates(ch); i++ {
				if ch.gates[i].enabled {
					d.Flags |= rsa.ResultStored
				}
			}
			d.Bits, d.WordSize, d.ArraySize = 24, 4, 1
			binary.LittleEndian.PutUint32(ch.popBuf[:], ch.popIndex)
			data = ch.popBuf[:]
		case ridCopyIndex:
			d.Name = "Copy|Index"
			d.Flags = rsa.ResultAsyncIndex
			d.Bits, d.WordSize, d.ArraySize = 24, 4, 1
			binary.LittleEndian.PutUint32(ch.indexBuf[:], ch.copySyncIndex)
			data = ch.indexBuf[:]
		case ridCopyData:
			d.Name = "Copy|Data"
			d.Flags = rsa.ResultAsync
			d.Bits, d.Offset = 8, 127
			if ch.rectify != RectifyNone {
				d.Bits, d.Offset = 7, 0
			}
			d.WordSize, d.ArraySize = 1, int(ch.copyRange)
			ch.copyBuf = resize(ch.copyBuf, d.ArraySize)
			data = ch.copyBuf
		default:
			log.V(2).Infof("emulator: channel result %s does not exist", id)
			return false
		}
	default:
		g := int(id.Gate())
		if g >= e.activeGates(ch) {
			log.V(2).Infof("emulator: result %s out of gate range", id)
			return false
		}
		gi := &ch.gates[g]
		d.Flags = rsa.ResultGate
		if gi.enabled {
			d.Flags |= rsa.ResultStored
		}
		switch id.Index() {
		case ridCopy:
			d.Name = "Copy|Amplitude Array"
			d.Description = "Amplitude array with length of the range."
			d.Bits, d.Offset, d.WordSize, d.ArraySize = 8, 127, 1, int(gi.rng)
			gi.buf = resize(gi.buf, d.ArraySize)
			data = gi.buf
		case ridPeakAmp:
			d.Name = "Peak|Amplitude"
			d.Description = "Amplitude of found peak."
			d.Bits, d.Offset, d.WordSize, d.ArraySize = 8, 127, 1, 1
			gi.ampBuf[0] = byte(gi.peakAmp)
			data = gi.ampBuf[:]
		case ridPeakTof:
			d.Name = "Peak|Time Of Flight"
			d.Description = "Time Of Flight (TOF) of found peak."
			d.Bits, d.Offset, d.WordSize, d.ArraySize = 24, tofOffset, 4, 1
			binary.LittleEndian.PutUint32(gi.tofBuf[:], uint32(gi.peakTof))
			data = gi.tofBuf[:]
		default:
			log.V(2).Infof("emulator: gate result %s does not exist", id)
			return false
		}
	}
	d.ID = id
	if info != nil {
		*info = d
	}
	if buf != nil {
		buf.Buffer = data
		buf.Counter = ch.syncCounter
		buf.Size = 1
		buf.Remain = 0
		buf.BlockBufSize = d.WordSize * d.ArraySize
	}
	return true
}

// EnumResultIDs implements rsa.Handler.
func (e *Emulator) EnumResultIDs() []rsaid.ID {
	var ids []rsaid.ID
	for c := 0; c < e.activeChannels(); c++ {
		cn := uint8(c)
		ids = append(ids, RIDPopIndex(cn), RIDCopyData(cn), RIDCopyIndex(cn))
		ch := &e.channels[c]
		for g := 0; g < e.activeGates(ch); g++ {
			gn := uint8(g)
			if ch.gates[g].method == MethodCopy {
				ids = append(ids, RIDGateCopy(cn, gn))
				continue
			}
			ids = append(ids, RIDPeakAmp(cn, gn), RIDPeakTof(cn, gn))
		}
	}
	return ids
}
