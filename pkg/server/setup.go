package server

import (
	"fmt"
	"strings"

	log "github.com/golang/glog"

	"github.com/OpenTraceLab/OpenTraceRSA/pkg/broker"
	"github.com/OpenTraceLab/OpenTraceRSA/pkg/rsa"
	"github.com/OpenTraceLab/OpenTraceRSA/pkg/rsaid"
)

// externalID maps a local id onto the broker id space. Legacy ids are only
// used for ultrasonic implementations.
func (s *Server) externalID(ch, gate uint8, index uint16) uint32 {
	if s.cfg.Legacy() && s.acq.Type() == rsa.Ultrasonic {
		return rsaid.Legacy(s.cfg.DeviceNumber, ch, gate, index)
	}
	return rsaid.Current(s.cfg.DeviceNumber, ch, gate, index)
}

func (s *Server) channelCount() int {
	n, err := s.acq.ChannelCount()
	if err != nil {
		return 0
	}
	return n
}

func (s *Server) gateName(gate, ch uint8) string {
	name, err := s.acq.GateName(gate, ch)
	if err != nil {
		log.V(1).Infof("server: gate name of channel %d gate %d: %v", ch, gate, err)
		return fmt.Sprintf("Gate %d", gate)
	}
	return name
}

// paramNameOffset is the path prefix of a parameter's published name.
func (s *Server) paramNameOffset(info *rsa.ParamInfo) string {
	ofs := s.cfg.ServerName + "|"
	if !info.HasChannel() || info.Flags.Has(rsa.ParamChannelSingle) {
		return ofs
	}
	switch s.acq.Type() {
	case rsa.Ultrasonic:
		if s.channelCount() > 1 {
			ofs += fmt.Sprintf("Channel %d|", int(info.Channel)+1)
		}
	case rsa.EddyCurrent:
		if s.channelCount() > 1 {
			ofs += fmt.Sprintf("Channel %d|", int(info.Channel)+1)
		} else {
			ofs += "Channel|"
		}
	}
	if info.HasGate() {
		ofs += s.gateName(info.Gate, info.Channel) + "|"
	}
	return ofs
}

func (s *Server) resultNameOffset(info *rsa.ResultInfo) string {
	ofs := s.cfg.ServerName + "|"
	if !info.HasChannel() {
		return ofs
	}
	if s.channelCount() > 1 {
		ofs += fmt.Sprintf("Channel %d|", int(info.Channel)+1)
	}
	if info.HasGate() {
		ofs += s.gateName(info.Gate, info.Channel) + "|"
	}
	return ofs
}

// describe places the owner path at the first '%' of desc, or in front of it.
func (s *Server) describe(desc string, scoped bool, ch, gate uint8) string {
	ofs := s.cfg.ServerName
	if scoped {
		if s.channelCount() > 1 {
			ofs += fmt.Sprintf(" Channel %d ", int(ch)+1)
		}
		if gate != rsaid.NoGate {
			ofs += " " + s.gateName(gate, ch)
		}
	}
	if i := strings.IndexByte(desc, '%'); i >= 0 {
		return desc[:i] + ofs + desc[i+1:]
	}
	return ofs + " " + desc
}

// variableFlags derives the broker flags of a parameter.
func variableFlags(f rsa.ParamFlags) broker.VariableFlags {
	flags := broker.FlagShare
	if f.Has(rsa.ParamArchive) {
		flags |= broker.FlagArchive
		if !f.Has(rsa.ParamAlias | rsa.ParamSystem) {
			flags |= broker.FlagParameter
		}
	}
	if f.Has(rsa.ParamReadonly) {
		flags |= broker.FlagReadonly
		flags &^= broker.FlagParameter
	}
	return flags
}

// isGlobal reports whether a parameter is published outside the server.
// System parameters stay private unless exported.
func isGlobal(f rsa.ParamFlags) bool {
	return f&(rsa.ParamSystem|rsa.ParamExport) != rsa.ParamSystem
}

// paramClass picks the broker class of a parameter.
func paramClass(f rsa.ParamFlags) broker.Class {
	switch {
	case f.Has(rsa.ParamEffectsResult | rsa.ParamWriteAtOff):
		return broker.ClassC
	case f.Has(rsa.ParamEffectsParameter):
		return broker.ClassB
	}
	return broker.ClassA
}

// ParamSetup returns the setup string the parameter is published with.
func (s *Server) ParamSetup(info *rsa.ParamInfo) string {
	scoped := info.HasChannel() && !info.Flags.Has(rsa.ParamChannelSingle)
	gate := rsaid.NoGate
	if info.HasGate() {
		gate = info.Gate
	}
	d := broker.Definition{
		ID:          s.externalID(info.Channel, gate, info.Index),
		Name:        s.paramNameOffset(info) + info.Name,
		Unit:        info.Unit,
		Flags:       variableFlags(info.Flags),
		Description: s.describe(info.Description, scoped, info.Channel, gate),
		Type:        info.Default.Type(),
		Round:       info.Round,
		Default:     info.Default,
		Minimum:     info.Minimum,
		Maximum:     info.Maximum,
		States:      info.States,
	}
	return d.String()
}

// segmentBlocks sizes a result's ring: one megabyte worth of blocks, ten for
// huge results.
func segmentBlocks(info *rsa.ResultInfo) int {
	const mb = 1024 * 1024
	if info.ArraySize == 0 {
		return mb
	}
	if info.Flags.Has(rsa.ResultHuge) {
		return 10 * mb / info.ArraySize
	}
	return mb / info.ArraySize
}

// ResultSetup returns the setup string the result is published with.
func (s *Server) ResultSetup(info *rsa.ResultInfo) string {
	gate := rsaid.NoGate
	if info.HasGate() {
		gate = info.Gate
	}
	flags := broker.ResultShare
	if info.Flags.Has(rsa.ResultStored) {
		flags |= broker.ResultArchive
	} else {
		flags |= broker.ResultRecycle
	}
	typ := broker.ResultTypeForSize(info.WordSize)
	if typ == broker.ResultInvalid {
		log.Errorf("server: %s: result %s has unsupported word size %d", s.cfg.ServerName, info.Name, info.WordSize)
	}
	d := broker.ResultDefinition{
		ID:          s.externalID(info.Channel, gate, info.Index),
		Name:        s.resultNameOffset(info) + info.Name,
		Flags:       flags,
		Description: s.describe(info.Description, info.HasChannel(), info.Channel, gate),
		Type:        typ,
		BlockSize:   info.ArraySize,
		SegmentSize: segmentBlocks(info),
		Bits:        info.Bits,
		Offset:      info.Offset,
	}
	return d.String()
}
