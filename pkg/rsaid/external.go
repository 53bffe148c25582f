package rsaid

// Broker-facing ids. Two addressing dialects exist: the legacy one packs
// channel and gate into one fixed 10-bit field, the current one keeps them
// apart. A server picks one at construction.

// DeviceUT is the device number of ultrasonic instruments.
const DeviceUT uint32 = 0x2

// legacyAllGates fills the gate slot of channel-only ids in the legacy dialect.
const legacyAllGates = 0xF

// Device returns the device-level base id.
func Device(dev uint32) uint32 {
	return dev << 16
}

// Legacy returns the legacy broker id. Channel-only parameters get the
// all-gates sentinel in the gate slot. NoChannel wraps to channel slot 0.
func Legacy(dev uint32, ch, gate uint8, index uint16) uint32 {
	g := uint32(legacyAllGates)
	if gate != NoGate {
		g = uint32(gate)
	}
	return dev<<16 | uint32(ch+1)<<10 | g<<6 | uint32(index)
}

// Current returns the current broker id: device level without a channel,
// channel level without a gate, fully qualified otherwise.
func Current(dev uint32, ch, gate uint8, index uint16) uint32 {
	switch {
	case ch == NoChannel && gate == NoGate:
		return dev<<16 | uint32(index)
	case gate == NoGate:
		return dev<<16 | (uint32(ch)+1)<<10 | uint32(index)
	default:
		return dev<<16 | (uint32(ch)+1)<<10 | (uint32(gate)+1)<<6 | uint32(index)
	}
}

// Encoder is the signature shared by Legacy and Current.
type Encoder func(dev uint32, ch, gate uint8, index uint16) uint32
