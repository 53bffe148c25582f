package emulator

import "fmt"

const (
	defaultChannels = 8
	defaultMaxGates = 8
	maxTcgPoints    = 16
	// Upper bounds offered by the Channels and Gates parameters.
	maxActiveChannels = 4
	maxDynamicGates   = 3
)

// Config controls the shape of the emulated instrument.
type Config struct {
	Channels   int   // channel slots allocated (default: 8)
	MaxGates   int   // gate slots per channel (default: 8)
	FixedGates bool  // every channel always runs MaxGates gates
	Seed       int64 // noise and sweep seed; 0 picks one from the clock
}

// DefaultConfig returns the configuration of the stock emulator.
func DefaultConfig() *Config {
	return &Config{
		Channels: defaultChannels,
		MaxGates: defaultMaxGates,
	}
}

// Validate checks the configuration and fills unset fields.
func (c *Config) Validate() error {
	if c.Channels == 0 {
		c.Channels = defaultChannels
	}
	if c.MaxGates == 0 {
		c.MaxGates = defaultMaxGates
	}
	if c.Channels < 1 || c.Channels > int(maxChannelSlots) {
		return fmt.Errorf("emulator: channels must be within 1..%d, got %d", maxChannelSlots, c.Channels)
	}
	if c.MaxGates < 1 || c.MaxGates > int(maxGateSlots) {
		return fmt.Errorf("emulator: gates must be within 1..%d, got %d", maxGateSlots, c.MaxGates)
	}
	return nil
}

const (
	maxChannelSlots = 254
	maxGateSlots    = 254
)
