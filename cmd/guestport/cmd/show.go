package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current forwarding table",
	Long:  "List the active port forwarding entries without changing anything.\nDoes not require elevation.",
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(forwardOverrides{})
	if err != nil {
		return fmt.Errorf("guestport show: %w", err)
	}

	logger := setupLogger(cfg.LogLevel)
	rec, err := buildReconciler(cfg, logger)
	if err != nil {
		return fmt.Errorf("guestport show: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	res, err := rec.Inspect(ctx)
	renderResult(cmd.OutOrStdout(), res)
	if err != nil {
		return fmt.Errorf("guestport show: %w", err)
	}
	return nil
}
