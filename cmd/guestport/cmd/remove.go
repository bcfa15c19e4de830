package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	removePort int
	removeIPv6 bool
)

var removeCmd = &cobra.Command{
	Use:   "remove",
	Short: "Tear down forwarding and the firewall rule",
	Long: "Remove the port forwarding entries and the managed firewall allow rule.\n" +
		"The guest is not consulted, so this works while it is stopped.\nRequires elevation.",
	RunE: runRemove,
}

func init() {
	removeCmd.Flags().IntVarP(&removePort, "port", "p", 0, "forwarded TCP port (default 3000)")
	removeCmd.Flags().BoolVar(&removeIPv6, "ipv6", false, "also clear the IPv6 any-address listener")
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(forwardOverrides{
		port: removePort,
		ipv6: removeIPv6,
	})
	if err != nil {
		return fmt.Errorf("guestport remove: %w", err)
	}

	logger := setupLogger(cfg.LogLevel)
	rec, err := buildReconciler(cfg, logger)
	if err != nil {
		return fmt.Errorf("guestport remove: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	res, err := rec.TearDown(ctx)
	renderResult(cmd.OutOrStdout(), res)
	if err != nil {
		return fmt.Errorf("guestport remove: %w", err)
	}
	return nil
}
