// Package portproxy manages the host's TCP forwarding entries that relay
// traffic to the guest.
package portproxy

import "fmt"

// DefaultPort is the default forwarded TCP port.
const DefaultPort = 3000

// Config holds the configuration for forwarding rule management.
type Config struct {
	// Port is the TCP port forwarded from the host into the guest.
	// Default: 3000
	Port int

	// IPv6 controls whether a v6-to-v4 listener is maintained alongside
	// the IPv4 one.
	IPv6 bool
}

// ApplyDefaults sets default values for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
}

// Validate checks that configuration values are acceptable.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("portproxy: config: invalid port %d", c.Port)
	}
	return nil
}
