// Package firewall keeps the host firewall's inbound allow rule in step
// with the forwarded port.
package firewall

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultRulePrefix is the prefix of managed firewall rule names.
const DefaultRulePrefix = "Guest Port Forward"

// DefaultProfiles are the firewall profiles a managed rule applies to.
var DefaultProfiles = []string{"Private", "Domain"}

// knownProfiles maps lower-cased profile names to their canonical form.
var knownProfiles = map[string]string{
	"private": "Private",
	"public":  "Public",
	"domain":  "Domain",
}

// Config holds the configuration for firewall rule synchronization.
type Config struct {
	// Enabled controls whether the inbound allow rule is managed.
	// nil means use default (true); explicit false disables rule management.
	Enabled *bool

	// RulePrefix is the prefix of the managed rule's name. The full rule
	// name is "<prefix> <port>".
	RulePrefix string

	// Profiles are the firewall profiles the rule applies to, matched
	// case-insensitively against Private, Public, and Domain.
	// Default: Private, Domain
	Profiles []string
}

// BoolPtr returns a pointer to the given bool value.
func BoolPtr(v bool) *bool { return &v }

// RuleEnabled returns the effective management setting: true unless
// explicitly set to false.
func (c *Config) RuleEnabled() bool {
	if c.Enabled == nil {
		return true
	}
	return *c.Enabled
}

// ApplyDefaults sets default values for zero-valued fields.
func (c *Config) ApplyDefaults() {
	// Enabled is read through RuleEnabled; nil means default true.
	if c.RulePrefix == "" {
		c.RulePrefix = DefaultRulePrefix
	}
	if c.Profiles == nil {
		c.Profiles = append([]string{}, DefaultProfiles...)
	}
}

// Validate checks that configuration values are acceptable.
func (c *Config) Validate() error {
	if c.RulePrefix == "" {
		return errors.New("firewall: config: RulePrefix must not be empty")
	}
	if len(c.Profiles) == 0 {
		return errors.New("firewall: config: Profiles must not be empty")
	}
	for _, profile := range c.Profiles {
		if _, ok := knownProfiles[strings.ToLower(profile)]; !ok {
			return fmt.Errorf("firewall: config: unknown profile %q", profile)
		}
	}
	return nil
}

// CanonicalProfiles returns the configured profiles in canonical
// capitalized form. The Config must have passed Validate.
func (c *Config) CanonicalProfiles() []string {
	profiles := make([]string, 0, len(c.Profiles))
	for _, profile := range c.Profiles {
		profiles = append(profiles, knownProfiles[strings.ToLower(profile)])
	}
	return profiles
}
