package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	refreshPort         int
	refreshGuest        string
	refreshProfiles     []string
	refreshIPv6         bool
	refreshSkipFirewall bool
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Re-point forwarding at the guest's current address",
	Long: "Re-resolve the guest's IPv4 address and rebuild the forwarding entries.\n" +
		"Run after a guest restart, when its address may have changed.\nRequires elevation.",
	RunE: runRefresh,
}

func init() {
	refreshCmd.Flags().IntVarP(&refreshPort, "port", "p", 0, "forwarded TCP port (default 3000)")
	refreshCmd.Flags().StringVarP(&refreshGuest, "guest", "g", "", "guest VM name (default Ubuntu)")
	refreshCmd.Flags().StringSliceVar(&refreshProfiles, "profiles", nil, "firewall profiles for the allow rule (default Private,Domain)")
	refreshCmd.Flags().BoolVar(&refreshIPv6, "ipv6", false, "also forward the IPv6 any-address listener")
	refreshCmd.Flags().BoolVar(&refreshSkipFirewall, "skip-firewall", false, "do not install the firewall allow rule")
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(forwardOverrides{
		port:         refreshPort,
		guest:        refreshGuest,
		profiles:     refreshProfiles,
		ipv6:         refreshIPv6,
		skipFirewall: refreshSkipFirewall,
	})
	if err != nil {
		return fmt.Errorf("guestport refresh: %w", err)
	}

	logger := setupLogger(cfg.LogLevel)
	rec, err := buildReconciler(cfg, logger)
	if err != nil {
		return fmt.Errorf("guestport refresh: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	res, err := rec.Refresh(ctx)
	renderResult(cmd.OutOrStdout(), res)
	if err != nil {
		return fmt.Errorf("guestport refresh: %w", err)
	}
	return nil
}
