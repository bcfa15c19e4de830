// Package guest resolves the current IPv4 address of a named guest
// environment whose address changes across restarts.
package guest

import (
	"errors"
	"strings"
)

// DefaultName is the default guest distribution name.
const DefaultName = "Ubuntu"

// DefaultTool is the default launcher binary used to run commands inside the guest.
const DefaultTool = "wsl"

// DefaultInterface is the guest interface consulted by the fallback lookup.
const DefaultInterface = "eth0"

// Config holds the configuration for guest address resolution.
type Config struct {
	// Name is the guest distribution name.
	// Default: "Ubuntu"
	Name string

	// Tool is the launcher binary used to run commands inside the guest.
	// Default: "wsl"
	Tool string

	// Interface is the guest network interface consulted when the primary
	// address lookup yields nothing.
	// Default: "eth0"
	Interface string
}

// ApplyDefaults sets default values for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.Tool == "" {
		c.Tool = DefaultTool
	}
	if c.Interface == "" {
		c.Interface = DefaultInterface
	}
}

// Validate checks that configuration values are acceptable.
func (c *Config) Validate() error {
	if strings.ContainsAny(c.Name, " \t") {
		return errors.New("guest: config: Name must not contain whitespace")
	}
	if strings.ContainsAny(c.Interface, " \t") {
		return errors.New("guest: config: Interface must not contain whitespace")
	}
	return nil
}
