package firewall

import (
	"context"
	"fmt"
)

// RuleSpec describes the managed inbound TCP allow rule for one port.
type RuleSpec struct {
	Name     string
	Port     int
	Profiles []string
}

// RuleName derives the managed rule's name for a port. The name is
// deterministic so rules left behind by earlier runs can always be found
// and replaced.
func RuleName(prefix string, port int) string {
	return fmt.Sprintf("%s %d", prefix, port)
}

// Store abstracts the host firewall for testability.
type Store interface {
	// EnsureRule creates the inbound allow rule described by spec.
	EnsureRule(ctx context.Context, spec RuleSpec) error

	// DeleteRule removes the rule described by spec.
	// Implementations must be idempotent: deleting an absent rule must
	// return nil.
	DeleteRule(ctx context.Context, spec RuleSpec) error
}

// SyncError reports a failed firewall store operation.
type SyncError struct {
	Rule string
	Op   string // "delete" or "create"
	Err  error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("firewall: %s rule %q: %v", e.Op, e.Rule, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}
