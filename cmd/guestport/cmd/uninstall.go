package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/plexsphere/guestport/internal/cmdexec"
	"github.com/plexsphere/guestport/internal/privilege"
	"github.com/plexsphere/guestport/internal/schedule"
)

var uninstallTaskName string

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the logon refresh task",
	Long: "Remove the scheduled task registered by install. Forwarding entries and\n" +
		"firewall rules are left in place; use remove to tear those down.\n" +
		"Requires elevation.",
	RunE: runUninstall,
}

func init() {
	uninstallCmd.Flags().StringVar(&uninstallTaskName, "task-name", "", "scheduled task name (default GuestPortForward)")
	rootCmd.AddCommand(uninstallCmd)
}

func runUninstall(cmd *cobra.Command, _ []string) error {
	logger := setupLogger(logLevel)

	runner := cmdexec.NewExecRunner(logger)
	installer := schedule.NewInstaller(
		schedule.Config{TaskName: uninstallTaskName},
		schedule.NewSchtasksScheduler(runner, logger),
		privilege.NewChecker(),
		logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := installer.Uninstall(ctx); err != nil {
		return fmt.Errorf("guestport uninstall: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Logon task %s removed\n", installer.TaskName())
	return nil
}
