package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	addPort         int
	addGuest        string
	addProfiles     []string
	addIPv6         bool
	addSkipFirewall bool
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Establish forwarding to the guest",
	Long: "Resolve the guest's current IPv4 address, rebuild the port forwarding\n" +
		"entries against it, and install the firewall allow rule.\nRequires elevation.",
	RunE: runAdd,
}

func init() {
	addCmd.Flags().IntVarP(&addPort, "port", "p", 0, "forwarded TCP port (default 3000)")
	addCmd.Flags().StringVarP(&addGuest, "guest", "g", "", "guest VM name (default Ubuntu)")
	addCmd.Flags().StringSliceVar(&addProfiles, "profiles", nil, "firewall profiles for the allow rule (default Private,Domain)")
	addCmd.Flags().BoolVar(&addIPv6, "ipv6", false, "also forward the IPv6 any-address listener")
	addCmd.Flags().BoolVar(&addSkipFirewall, "skip-firewall", false, "do not install the firewall allow rule")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(forwardOverrides{
		port:         addPort,
		guest:        addGuest,
		profiles:     addProfiles,
		ipv6:         addIPv6,
		skipFirewall: addSkipFirewall,
	})
	if err != nil {
		return fmt.Errorf("guestport add: %w", err)
	}

	logger := setupLogger(cfg.LogLevel)
	rec, err := buildReconciler(cfg, logger)
	if err != nil {
		return fmt.Errorf("guestport add: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	res, err := rec.Establish(ctx)
	renderResult(cmd.OutOrStdout(), res)
	if err != nil {
		return fmt.Errorf("guestport add: %w", err)
	}
	return nil
}
