package firewall

import (
	"context"
	"log/slog"
	"strings"
)

// Synchronizer maintains at most one managed inbound allow rule per
// forwarded port.
type Synchronizer struct {
	cfg    Config
	store  Store
	logger *slog.Logger
}

// NewSynchronizer creates a Synchronizer with the given configuration.
// Config defaults are applied automatically.
func NewSynchronizer(cfg Config, store Store, logger *slog.Logger) *Synchronizer {
	cfg.ApplyDefaults()
	return &Synchronizer{
		cfg:    cfg,
		store:  store,
		logger: logger.With("component", "firewall"),
	}
}

// Sync reconciles the managed rule for port. The deterministically named
// rule is always deleted first so stale duplicates cannot accumulate; when
// enabled is true a fresh allow rule is then created for the configured
// profiles. The managed rule name is returned even on failure.
func (s *Synchronizer) Sync(ctx context.Context, port int, enabled bool) (string, error) {
	name := RuleName(s.cfg.RulePrefix, port)
	spec := RuleSpec{
		Name:     name,
		Port:     port,
		Profiles: s.cfg.CanonicalProfiles(),
	}

	if err := s.store.DeleteRule(ctx, spec); err != nil {
		return name, &SyncError{Rule: name, Op: "delete", Err: err}
	}
	s.logger.Debug("firewall rule cleared", "rule", name)

	if !enabled {
		return name, nil
	}

	if err := s.store.EnsureRule(ctx, spec); err != nil {
		return name, &SyncError{Rule: name, Op: "create", Err: err}
	}
	s.logger.Info("firewall rule installed",
		"rule", name,
		"port", port,
		"profiles", strings.Join(spec.Profiles, ","),
	)
	return name, nil
}

// Enabled reports whether rule management is active in configuration.
func (s *Synchronizer) Enabled() bool {
	return s.cfg.RuleEnabled()
}
