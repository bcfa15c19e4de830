// Package schedule manages the logon task that re-establishes forwarding
// after the host reboots.
package schedule

import "errors"

// DefaultTaskName is the name of the managed scheduled task.
const DefaultTaskName = "GuestPortForward"

// Config holds the configuration for scheduled task management.
type Config struct {
	// TaskName is the scheduled task's name.
	// Default: "GuestPortForward"
	TaskName string

	// Executable is the absolute path of the binary the task runs
	// (required).
	Executable string
}

// ApplyDefaults sets default values for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.TaskName == "" {
		c.TaskName = DefaultTaskName
	}
}

// Validate checks that required fields are set.
func (c *Config) Validate() error {
	if c.Executable == "" {
		return errors.New("schedule: config: Executable is required")
	}
	return nil
}
