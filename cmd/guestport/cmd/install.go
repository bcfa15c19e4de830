package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/plexsphere/guestport/internal/cmdexec"
	"github.com/plexsphere/guestport/internal/firewall"
	"github.com/plexsphere/guestport/internal/privilege"
	"github.com/plexsphere/guestport/internal/reconcile"
	"github.com/plexsphere/guestport/internal/schedule"
)

var (
	installPort         int
	installGuest        string
	installProfiles     []string
	installIPv6         bool
	installSkipFirewall bool
	installTaskName     string
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Register a logon task that refreshes forwarding",
	Long: "Register a scheduled task that runs \"guestport refresh\" at logon, so\n" +
		"forwarding follows the guest's address across host reboots.\n" +
		"With --config the task replays the file; if the file does not exist yet\n" +
		"it is created from the given flags. Requires elevation.",
	RunE: runInstall,
}

func init() {
	installCmd.Flags().IntVarP(&installPort, "port", "p", 0, "forwarded TCP port (default 3000)")
	installCmd.Flags().StringVarP(&installGuest, "guest", "g", "", "guest VM name (default Ubuntu)")
	installCmd.Flags().StringSliceVar(&installProfiles, "profiles", nil, "firewall profiles for the allow rule (default Private,Domain)")
	installCmd.Flags().BoolVar(&installIPv6, "ipv6", false, "also forward the IPv6 any-address listener")
	installCmd.Flags().BoolVar(&installSkipFirewall, "skip-firewall", false, "do not install the firewall allow rule")
	installCmd.Flags().StringVar(&installTaskName, "task-name", "", "scheduled task name (default GuestPortForward)")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, _ []string) error {
	cfg, seed, err := installConfig(forwardOverrides{
		port:         installPort,
		guest:        installGuest,
		profiles:     installProfiles,
		ipv6:         installIPv6,
		skipFirewall: installSkipFirewall,
	})
	if err != nil {
		return fmt.Errorf("guestport install: %w", err)
	}

	logger := setupLogger(cfg.LogLevel)

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("guestport install: locate executable: %w", err)
	}

	runner := cmdexec.NewExecRunner(logger)
	installer := schedule.NewInstaller(
		schedule.Config{TaskName: installTaskName, Executable: exe},
		schedule.NewSchtasksScheduler(runner, logger),
		privilege.NewChecker(),
		logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if seed {
		// A nil Enabled would marshal as "enabled: null".
		cfg.Firewall.Enabled = firewall.BoolPtr(cfg.Firewall.RuleEnabled())
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("guestport install: encode config: %w", err)
		}
		if err := installer.WriteConfigFile(cfgFile, data); err != nil {
			return fmt.Errorf("guestport install: %w", err)
		}
	}

	if err := installer.Install(ctx, refreshArgs(cfg)); err != nil {
		return fmt.Errorf("guestport install: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Logon task %s registered\n", installer.TaskName())
	return nil
}

// installConfig resolves configuration like resolveConfig, except that a
// --config path that does not exist yet is not an error: the effective
// configuration is built from defaults and flags, and seed reports that
// install should write it to the file.
func installConfig(overrides forwardOverrides) (cfg *reconcile.Config, seed bool, err error) {
	if cfgFile != "" {
		_, statErr := os.Stat(cfgFile)
		switch {
		case errors.Is(statErr, os.ErrNotExist):
			seed = true
		case statErr != nil:
			return nil, false, fmt.Errorf("stat %s: %w", cfgFile, statErr)
		}
	}
	if !seed {
		cfg, err = resolveConfig(overrides)
		return cfg, false, err
	}

	cfg = &reconcile.Config{}
	cfg.ApplyDefaults()
	cfg, err = finishConfig(cfg, overrides)
	return cfg, true, err
}

// refreshArgs encodes the effective configuration as refresh arguments so
// the logon task re-establishes the same forward.
func refreshArgs(cfg *reconcile.Config) []string {
	if cfgFile != "" {
		return []string{"refresh", "--config", cfgFile}
	}

	args := []string{
		"refresh",
		"--port", strconv.Itoa(cfg.Forwarding.Port),
		"--guest", cfg.Guest.Name,
	}
	if cfg.Backend != reconcile.DefaultBackend {
		args = append(args, "--backend", cfg.Backend)
	}
	if cfg.Forwarding.IPv6 {
		args = append(args, "--ipv6")
	}
	if !cfg.Firewall.RuleEnabled() {
		args = append(args, "--skip-firewall")
	} else {
		args = append(args, "--profiles", strings.Join(cfg.Firewall.Profiles, ","))
	}
	return args
}
