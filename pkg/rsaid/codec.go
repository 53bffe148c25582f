package rsaid

import (
	"fmt"
	"strconv"
)

// Encode packs a channel, gate and local index into an ID.
// Use NoChannel/NoGate for absent components.
func Encode(ch, gate uint8, index uint16) ID {
	return ID(uint32(ch)<<24 | uint32(gate)<<16 | uint32(index))
}

// Decode splits an ID into its components. Every value decodes.
func Decode(id ID) (ch, gate uint8, index uint16) {
	return id.Channel(), id.Gate(), id.Index()
}

func (id ID) Channel() uint8 { return uint8(id >> 24) }
func (id ID) Gate() uint8    { return uint8(id >> 16) }
func (id ID) Index() uint16  { return uint16(id) }

// HasChannel reports whether the channel component is set.
func (id ID) HasChannel() bool { return id.Channel() != NoChannel }

// HasGate reports whether the gate component is set.
func (id ID) HasGate() bool { return id.Gate() != NoGate }

func (id ID) String() string {
	return fmt.Sprintf("0x%08X", uint32(id))
}

// Parse reads an id written as decimal or 0x-prefixed hex.
func Parse(s string) (ID, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("rsaid: invalid id %q: %w", s, err)
	}
	return ID(v), nil
}

// ParamID maps a well-known kind onto a concrete id. The channel is kept for
// channel and gate kinds, the gate only for gate kinds.
func ParamID(kind Kind, gate, ch uint8) ID {
	if kind&(KindChannelMask|KindGateMask) == 0 {
		ch = NoChannel
	}
	if kind&KindGateMask == 0 {
		gate = NoGate
	}
	return Encode(ch, gate, uint16(kind&^(KindChannelMask|KindGateMask)))
}

// ResultID is ParamID for result kinds.
func ResultID(kind ResultKind, gate, ch uint8) ID {
	if kind&(ResultChannelMask|ResultGateMask) == 0 {
		ch = NoChannel
	}
	if kind&ResultGateMask == 0 {
		gate = NoGate
	}
	return Encode(ch, gate, uint16(kind&^(ResultChannelMask|ResultGateMask)))
}
