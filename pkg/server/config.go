package server

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceRSA/pkg/rsaid"
)

const (
	defaultServerName = "Acquisition"
	maxDeviceNumber   = 0x3F
)

// Config selects how the server addresses the broker.
type Config struct {
	// Compatible 1 or 2 selects legacy ids, 0 the current scheme.
	Compatible   int
	DeviceNumber uint32 // device field of every published id (default: 0x2)
	ServerName   string // first component of published names (default: "Acquisition")
}

// DefaultConfig returns a current-id server for the ultrasonic device number.
func DefaultConfig() *Config {
	return &Config{
		DeviceNumber: rsaid.DeviceUT,
		ServerName:   defaultServerName,
	}
}

// Validate checks the configuration and fills unset fields.
func (c *Config) Validate() error {
	if c.ServerName == "" {
		c.ServerName = defaultServerName
	}
	if c.Compatible < 0 || c.Compatible > 2 {
		return fmt.Errorf("server: compatible must be 0, 1 or 2, got %d", c.Compatible)
	}
	if c.DeviceNumber == 0 || c.DeviceNumber > maxDeviceNumber {
		return fmt.Errorf("server: device number must be within 1..%d, got %d", maxDeviceNumber, c.DeviceNumber)
	}
	return nil
}

// Legacy reports whether legacy ids are published.
func (c *Config) Legacy() bool {
	return c.Compatible == 1 || c.Compatible == 2
}
