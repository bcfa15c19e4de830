package reconcile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/plexsphere/guestport/internal/firewall"
	"github.com/plexsphere/guestport/internal/guest"
	"github.com/plexsphere/guestport/internal/portproxy"
)

const (
	// DefaultLogLevel is the default log level.
	DefaultLogLevel = "info"

	// DefaultBackend selects the store backend by host platform.
	DefaultBackend = "auto"
)

// Config is the top-level configuration for guestport. It aggregates all
// subsystem configurations and is populated from a YAML configuration file
// via ParseConfig, with command-line flags applied on top.
type Config struct {
	// LogLevel is the log level: "debug", "info", "warn", "error".
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// Backend selects the store implementations: "auto", "netsh", or
	// "nftables". Auto picks netsh on Windows and nftables elsewhere.
	// Default: "auto"
	Backend string `yaml:"backend"`

	Guest      guest.Config     `yaml:"guest"`
	Forwarding portproxy.Config `yaml:"forwarding"`
	Firewall   firewall.Config  `yaml:"firewall"`
}

// ApplyDefaults sets default values for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Backend == "" {
		c.Backend = DefaultBackend
	}
	c.Guest.ApplyDefaults()
	c.Forwarding.ApplyDefaults()
	c.Firewall.ApplyDefaults()
}

// Validate checks that required fields are set and values are acceptable.
func (c *Config) Validate() error {
	if c.Backend != "auto" && c.Backend != "netsh" && c.Backend != "nftables" {
		return fmt.Errorf("reconcile: config: invalid backend %q (must be \"auto\", \"netsh\", or \"nftables\")", c.Backend)
	}
	if err := c.Guest.Validate(); err != nil {
		return err
	}
	if err := c.Forwarding.Validate(); err != nil {
		return err
	}
	if err := c.Firewall.Validate(); err != nil {
		return err
	}
	return nil
}

// ParseConfig reads a YAML configuration file and returns a Config.
// It applies defaults and validates the configuration.
func ParseConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reconcile: config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("reconcile: config: parse %s: %w", path, err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
