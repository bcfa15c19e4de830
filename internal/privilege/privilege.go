// Package privilege checks whether the current process may modify host
// forwarding and firewall state.
package privilege

import "errors"

// ErrElevationRequired indicates the process lacks the administrative
// rights needed to modify forwarding or firewall state.
var ErrElevationRequired = errors.New("privilege: administrative rights required")

// Checker abstracts privilege checking for testability.
type Checker interface {
	// Elevated returns true if the current process has administrative rights.
	Elevated() bool
}

// ProcessChecker implements Checker against the real process.
type ProcessChecker struct{}

// NewChecker returns a Checker that inspects the current process.
func NewChecker() Checker {
	return &ProcessChecker{}
}

func (c *ProcessChecker) Elevated() bool {
	return processElevated()
}
