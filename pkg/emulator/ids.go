package emulator

import "github.com/OpenTraceLab/OpenTraceRSA/pkg/rsaid"

// Local indices. Well-known kinds lose their mask bits, emulator specific
// parameters are counted from the user-first markers.

func chanAdded(n uint16) uint16 {
	return uint16(rsaid.ChUserFirst&^rsaid.KindChannelMask) + n
}

func gateAdded(n uint16) uint16 {
	return uint16(rsaid.GateUserFirst&^rsaid.KindGateMask) + n
}

func added(n uint16) uint16 {
	return uint16(rsaid.UserFirst) + n
}

func local(k rsaid.Kind) uint16 {
	return uint16(k &^ (rsaid.KindChannelMask | rsaid.KindGateMask))
}

func localResult(k rsaid.ResultKind) uint16 {
	return uint16(k &^ (rsaid.ResultChannelMask | rsaid.ResultGateMask))
}

// Device level
var (
	pidChannels     = local(rsaid.Channels)
	pidError        = local(rsaid.Error)
	pidAmpUnit      = local(rsaid.AmpUnit)
	pidOneShotDelay = added(12)
	pidOneShotState = added(13)
	pidTcg          = added(16)
)

func pidTcgTime(n int) uint16 { return pidTcg + uint16(n) }
func pidTcgGain(n int) uint16 { return pidTcg + uint16(n) + maxTcgPoints }

// Channel level
var (
	pidRepRate      = local(rsaid.ChRepRate)
	pidSyncMode     = local(rsaid.ChSyncMode)
	pidGates        = local(rsaid.ChGates)
	pidInputs       = local(rsaid.ChInputs)
	pidTimeUnits    = local(rsaid.ChTimeUnits)
	pidCopyDelay    = local(rsaid.ChCopyDelay)
	pidCopyRange    = local(rsaid.ChCopyRange)
	pidCopyEnable   = local(rsaid.ChCopyEnable)
	pidPopManual    = local(rsaid.ChPopManual)
	pidBidirMode    = local(rsaid.ChBidirMode)
	pidGain         = chanAdded(1)
	pidPopDivider   = chanAdded(2)
	pidIfPosition   = chanAdded(3)
	pidTcgEnable    = chanAdded(6)
	pidAscanRectify = chanAdded(10)
	pidTcgSlaveTo   = chanAdded(16)
	pidTcgDelay     = chanAdded(17)
	pidTcgRange     = chanAdded(18)
)

// Gate level
var (
	pidGateName      = local(rsaid.GateName)
	pidGateDelay     = local(rsaid.GateDelay)
	pidGateRange     = local(rsaid.GateRange)
	pidGateSlaveTo   = local(rsaid.GateSlaveTo)
	pidGateEnable    = local(rsaid.GateEnable)
	pidGateMethod    = local(rsaid.GateMethod)
	pidGateThreshold = local(rsaid.GateThreshold)
	pidGateAmp       = local(rsaid.GateAmp)
	pidGateTof       = local(rsaid.GateTof)
	pidGatePolarity  = gateAdded(2)
)

// Results
var (
	ridPopIndex  = localResult(rsaid.ResultPopIndex)
	ridCopyData  = localResult(rsaid.ResultCopyData)
	ridCopyIndex = localResult(rsaid.ResultCopyIndex)
	ridPeakAmp   = uint16(rsaid.ResultChUserFirst&^rsaid.ResultChannelMask) + 1
	ridPeakTof   = uint16(rsaid.ResultChUserFirst&^rsaid.ResultChannelMask) + 2
	ridCopy      = uint16(rsaid.ResultChUserFirst&^rsaid.ResultChannelMask) + 3
)

// tofOffset biases time-of-flight values so "no peak" stays distinguishable
// from a peak at sample 0.
const tofOffset = 0x7FFFFF

// ParamID returns the id of a local parameter index.
func ParamID(ch, gate uint8, index uint16) rsaid.ID {
	return rsaid.Encode(ch, gate, index)
}

// Exported ids used by tools and tests.
var (
	IDChannels     = rsaid.Encode(rsaid.NoChannel, rsaid.NoGate, pidChannels)
	IDOneShotDelay = rsaid.Encode(rsaid.NoChannel, rsaid.NoGate, pidOneShotDelay)
	IDOneShotState = rsaid.Encode(rsaid.NoChannel, rsaid.NoGate, pidOneShotState)
)

func IDRepRate(ch uint8) rsaid.ID          { return rsaid.Encode(ch, rsaid.NoGate, pidRepRate) }
func IDGates(ch uint8) rsaid.ID            { return rsaid.Encode(ch, rsaid.NoGate, pidGates) }
func IDGain(ch uint8) rsaid.ID             { return rsaid.Encode(ch, rsaid.NoGate, pidGain) }
func IDPopDivider(ch uint8) rsaid.ID       { return rsaid.Encode(ch, rsaid.NoGate, pidPopDivider) }
func IDRectify(ch uint8) rsaid.ID          { return rsaid.Encode(ch, rsaid.NoGate, pidAscanRectify) }
func IDCopyRange(ch uint8) rsaid.ID        { return rsaid.Encode(ch, rsaid.NoGate, pidCopyRange) }
func IDSyncMode(ch uint8) rsaid.ID         { return rsaid.Encode(ch, rsaid.NoGate, pidSyncMode) }
func IDPopManual(ch uint8) rsaid.ID        { return rsaid.Encode(ch, rsaid.NoGate, pidPopManual) }
func IDTcgTime(n int) rsaid.ID             { return rsaid.Encode(rsaid.NoChannel, rsaid.NoGate, pidTcgTime(n)) }
func IDTcgGain(n int) rsaid.ID             { return rsaid.Encode(rsaid.NoChannel, rsaid.NoGate, pidTcgGain(n)) }
func IDGateDelay(ch, g uint8) rsaid.ID     { return rsaid.Encode(ch, g, pidGateDelay) }
func IDGateRange(ch, g uint8) rsaid.ID     { return rsaid.Encode(ch, g, pidGateRange) }
func IDGateSlaveTo(ch, g uint8) rsaid.ID   { return rsaid.Encode(ch, g, pidGateSlaveTo) }
func IDGateEnable(ch, g uint8) rsaid.ID    { return rsaid.Encode(ch, g, pidGateEnable) }
func IDGateMethod(ch, g uint8) rsaid.ID    { return rsaid.Encode(ch, g, pidGateMethod) }
func IDGateThreshold(ch, g uint8) rsaid.ID { return rsaid.Encode(ch, g, pidGateThreshold) }
func IDGatePolarity(ch, g uint8) rsaid.ID  { return rsaid.Encode(ch, g, pidGatePolarity) }
func IDGateAmp(ch, g uint8) rsaid.ID       { return rsaid.Encode(ch, g, pidGateAmp) }
func IDGateTof(ch, g uint8) rsaid.ID       { return rsaid.Encode(ch, g, pidGateTof) }

func RIDPopIndex(ch uint8) rsaid.ID    { return rsaid.Encode(ch, rsaid.NoGate, ridPopIndex) }
func RIDCopyData(ch uint8) rsaid.ID    { return rsaid.Encode(ch, rsaid.NoGate, ridCopyData) }
func RIDCopyIndex(ch uint8) rsaid.ID   { return rsaid.Encode(ch, rsaid.NoGate, ridCopyIndex) }
func RIDPeakAmp(ch, g uint8) rsaid.ID  { return rsaid.Encode(ch, g, ridPeakAmp) }
func RIDPeakTof(ch, g uint8) rsaid.ID  { return rsaid.Encode(ch, g, ridPeakTof) }
func RIDGateCopy(ch, g uint8) rsaid.ID { return rsaid.Encode(ch, g, ridCopy) }
