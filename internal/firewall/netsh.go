package firewall

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"github.com/plexsphere/guestport/internal/cmdexec"
)

// NetshStore implements Store against Windows Defender Firewall via netsh.
type NetshStore struct {
	runner cmdexec.Runner
	logger *slog.Logger
}

// NewNetshStore returns a NetshStore backed by the given runner.
func NewNetshStore(runner cmdexec.Runner, logger *slog.Logger) *NetshStore {
	return &NetshStore{
		runner: runner,
		logger: logger.With("component", "firewall"),
	}
}

func (s *NetshStore) EnsureRule(ctx context.Context, spec RuleSpec) error {
	args := []string{
		"advfirewall", "firewall", "add", "rule",
		"name=" + spec.Name,
		"dir=in",
		"action=allow",
		"protocol=TCP",
		"localport=" + strconv.Itoa(spec.Port),
		"profile=" + strings.Join(spec.Profiles, ","),
	}
	if _, err := s.runner.Run(ctx, "netsh", args...); err != nil {
		return fmt.Errorf("firewall: netsh add rule: %w", err)
	}
	return nil
}

// DeleteRule removes the named rule. Existence is probed first through the
// show command's exit status, which is locale-safe where the delete
// command's error text is not; absent rules return nil.
func (s *NetshStore) DeleteRule(ctx context.Context, spec RuleSpec) error {
	exists, err := s.ruleExists(ctx, spec.Name)
	if err != nil {
		return fmt.Errorf("firewall: netsh delete rule: %w", err)
	}
	if !exists {
		s.logger.Debug("firewall rule not present, nothing to delete", "rule", spec.Name)
		return nil
	}

	args := []string{"advfirewall", "firewall", "delete", "rule", "name=" + spec.Name}
	if _, err := s.runner.Run(ctx, "netsh", args...); err != nil {
		return fmt.Errorf("firewall: netsh delete rule: %w", err)
	}
	return nil
}

// ruleExists probes for the named rule. netsh exits non-zero when no rule
// matches, so a clean exit means the rule exists; failures other than a
// non-zero exit propagate.
func (s *NetshStore) ruleExists(ctx context.Context, name string) (bool, error) {
	_, err := s.runner.Run(ctx, "netsh", "advfirewall", "firewall", "show", "rule", "name="+name)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
