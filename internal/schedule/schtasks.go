package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"

	"github.com/plexsphere/guestport/internal/cmdexec"
)

// SchtasksScheduler implements Scheduler against the Windows Task
// Scheduler via schtasks.
type SchtasksScheduler struct {
	runner cmdexec.Runner
	logger *slog.Logger
}

// NewSchtasksScheduler returns a SchtasksScheduler backed by the given
// runner.
func NewSchtasksScheduler(runner cmdexec.Runner, logger *slog.Logger) *SchtasksScheduler {
	return &SchtasksScheduler{
		runner: runner,
		logger: logger.With("component", "schedule"),
	}
}

func (s *SchtasksScheduler) Available() bool {
	_, err := exec.LookPath("schtasks")
	return err == nil
}

// Register creates the task, replacing an existing one of the same name.
// The task runs at logon with the highest available rights, since the
// forwarding rebuild needs elevation.
func (s *SchtasksScheduler) Register(ctx context.Context, task Task) error {
	args := []string{
		"/Create", "/F",
		"/TN", task.Name,
		"/TR", task.Command,
		"/SC", "ONLOGON",
		"/RL", "HIGHEST",
	}
	if _, err := s.runner.Run(ctx, "schtasks", args...); err != nil {
		return fmt.Errorf("schedule: schtasks create %s: %w", task.Name, err)
	}
	return nil
}

// Unregister removes the named task. Existence is probed first through
// the query command's exit status, which is locale-safe where the delete
// command's error text is not; absent tasks return nil.
func (s *SchtasksScheduler) Unregister(ctx context.Context, name string) error {
	exists, err := s.Registered(ctx, name)
	if err != nil {
		return fmt.Errorf("schedule: schtasks delete %s: %w", name, err)
	}
	if !exists {
		s.logger.Debug("task not present, nothing to delete", "task", name)
		return nil
	}
	if _, err := s.runner.Run(ctx, "schtasks", "/Delete", "/F", "/TN", name); err != nil {
		return fmt.Errorf("schedule: schtasks delete %s: %w", name, err)
	}
	return nil
}

// Registered probes for the named task. schtasks exits non-zero when no
// task matches, so a clean exit means the task exists; failures other
// than a non-zero exit propagate.
func (s *SchtasksScheduler) Registered(ctx context.Context, name string) (bool, error) {
	_, err := s.runner.Run(ctx, "schtasks", "/Query", "/TN", name)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
