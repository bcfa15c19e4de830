package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/plexsphere/guestport/internal/privilege"
)

// Installer registers and removes the logon task that re-establishes
// forwarding after a reboot.
type Installer struct {
	cfg     Config
	sched   Scheduler
	checker privilege.Checker
	logger  *slog.Logger
}

// NewInstaller creates an Installer with defaults applied.
func NewInstaller(cfg Config, sched Scheduler, checker privilege.Checker, logger *slog.Logger) *Installer {
	cfg.ApplyDefaults()
	return &Installer{
		cfg:     cfg,
		sched:   sched,
		checker: checker,
		logger:  logger.With("component", "schedule"),
	}
}

// Install registers the logon task running the configured executable with
// args. An existing task of the same name is replaced.
func (ins *Installer) Install(ctx context.Context, args []string) error {
	if !ins.checker.Elevated() {
		return privilege.ErrElevationRequired
	}
	if !ins.sched.Available() {
		return errors.New("schedule: task scheduler is not available")
	}
	if err := ins.cfg.Validate(); err != nil {
		return err
	}

	task := Task{
		Name:    ins.cfg.TaskName,
		Command: buildCommand(ins.cfg.Executable, args),
	}
	if err := ins.sched.Register(ctx, task); err != nil {
		return err
	}

	ins.logger.Info("logon task registered",
		"task", task.Name,
		"command", task.Command,
	)
	return nil
}

// Uninstall removes the logon task. A task that is already absent is not
// an error.
func (ins *Installer) Uninstall(ctx context.Context) error {
	if !ins.checker.Elevated() {
		return privilege.ErrElevationRequired
	}
	if !ins.sched.Available() {
		return errors.New("schedule: task scheduler is not available")
	}

	if err := ins.sched.Unregister(ctx, ins.cfg.TaskName); err != nil {
		return err
	}

	ins.logger.Info("logon task removed", "task", ins.cfg.TaskName)
	return nil
}

// TaskName returns the managed task's name.
func (ins *Installer) TaskName() string {
	return ins.cfg.TaskName
}

// WriteConfigFile writes data to path unless the file already exists.
func (ins *Installer) WriteConfigFile(path string, data []byte) error {
	if _, err := os.Stat(path); err == nil {
		ins.logger.Info("existing config preserved", "path", path)
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("schedule: stat config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("schedule: create config directory: %w", err)
	}
	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("schedule: write config: %w", err)
	}
	ins.logger.Info("default config written", "path", path)
	return nil
}

// buildCommand assembles the task's command line. The executable path is
// quoted; install locations commonly contain spaces.
func buildCommand(executable string, args []string) string {
	parts := append([]string{`"` + executable + `"`}, args...)
	return strings.Join(parts, " ")
}

// writeFileAtomic writes data to path using a temp file and rename.
// This ensures readers never observe a partially-written file.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir, name := filepath.Split(path)
	tmpPath := filepath.Join(dir, ".tmp-"+name)

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer os.Remove(tmpPath) // clean up on error

	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
