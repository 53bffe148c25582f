package rsaid

// ID is an internal parameter or result identifier.
// Layout: channel [31:24], gate [23:16], local index [15:0].
// Bits above 31 are ignored.
type ID uint64

const (
	NoChannel uint8 = 0xFF // channel field of a device-level id
	NoGate    uint8 = 0xFF // gate field of a channel-level id
)

// MaxChannel and MaxGate are the highest addressable values; 0xFF is reserved.
const (
	MaxChannel = NoChannel - 1
	MaxGate    = NoGate - 1
)

// Kind names a well-known parameter an implementation is expected to offer.
// The channel and gate mask bits tell which components of the id are kept.
type Kind uint16

const (
	KindChannelMask Kind = 0x4000
	KindGateMask    Kind = 0x8000
)

// Device level parameters
const (
	Channels     Kind = 0x0002
	Error        Kind = 0x0003
	ErrorMessage Kind = 0x0004
	AmpUnit      Kind = 0x0005
	UserFirst    Kind = 0x000F
)

// Channel parameters
const (
	ChRepRate    Kind = KindChannelMask | 0x01
	ChSyncMode   Kind = KindChannelMask | 0x02
	ChGates      Kind = KindChannelMask | 0x03
	ChInputs     Kind = KindChannelMask | 0x04
	ChTimeUnits  Kind = KindChannelMask | 0x05
	ChCopyDelay  Kind = KindChannelMask | 0x06
	ChCopyRange  Kind = KindChannelMask | 0x07
	ChSampleRate Kind = KindChannelMask | 0x08
	ChCopyEnable Kind = KindChannelMask | 0x09
	ChPopManual  Kind = KindChannelMask | 0x0A
	ChBidirMode  Kind = KindChannelMask | 0x0B
	ChUserFirst  Kind = KindChannelMask | 0x1F
)

// Gate parameters
const (
	GateName      Kind = KindGateMask | 0x01
	GateDelay     Kind = KindGateMask | 0x02
	GateRange     Kind = KindGateMask | 0x03
	GateSlaveTo   Kind = KindGateMask | 0x04
	GateEnable    Kind = KindGateMask | 0x05
	GateMethod    Kind = KindGateMask | 0x06
	GateThreshold Kind = KindGateMask | 0x07
	GateAmp       Kind = KindGateMask | 0x08
	GateTof       Kind = KindGateMask | 0x09
	GateUserFirst Kind = KindGateMask | 0x1F
)

// ResultKind names a well-known result.
type ResultKind uint16

const (
	ResultChannelMask ResultKind = 0x4000
	ResultGateMask    ResultKind = 0x8000
)

const (
	ResultLast          ResultKind = 0x0001
	ResultPopIndex      ResultKind = ResultChannelMask | 0x01
	ResultCopyData      ResultKind = ResultChannelMask | 0x02
	ResultCopyIndex     ResultKind = ResultChannelMask | 0x03
	ResultChUserFirst   ResultKind = ResultChannelMask | 0x1F
	ResultGateUserFirst ResultKind = ResultGateMask | 0x1F
)
