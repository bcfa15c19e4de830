package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/plexsphere/guestport/internal/cmdexec"
	"github.com/plexsphere/guestport/internal/firewall"
	"github.com/plexsphere/guestport/internal/guest"
	"github.com/plexsphere/guestport/internal/portproxy"
	"github.com/plexsphere/guestport/internal/privilege"
	"github.com/plexsphere/guestport/internal/reconcile"
)

// forwardOverrides carries per-command flag values onto the configuration.
// Zero values mean the flag was not given and the configured value stands.
type forwardOverrides struct {
	port         int
	guest        string
	profiles     []string
	ipv6         bool
	skipFirewall bool
}

func (o forwardOverrides) apply(cfg *reconcile.Config) {
	if o.port != 0 {
		cfg.Forwarding.Port = o.port
	}
	if o.guest != "" {
		cfg.Guest.Name = o.guest
	}
	if len(o.profiles) > 0 {
		cfg.Firewall.Profiles = o.profiles
	}
	if o.ipv6 {
		cfg.Forwarding.IPv6 = true
	}
	if o.skipFirewall {
		cfg.Firewall.Enabled = firewall.BoolPtr(false)
	}
}

// resolveConfig loads the configuration file when one was given, falls back
// to defaults otherwise, and validates the result after flag overrides.
func resolveConfig(overrides forwardOverrides) (*reconcile.Config, error) {
	var cfg *reconcile.Config
	if cfgFile != "" {
		parsed, err := reconcile.ParseConfig(cfgFile)
		if err != nil {
			return nil, err
		}
		cfg = parsed
	} else {
		cfg = &reconcile.Config{}
		cfg.ApplyDefaults()
	}
	return finishConfig(cfg, overrides)
}

// finishConfig applies persistent flag and per-command overrides to cfg
// and validates the result.
func finishConfig(cfg *reconcile.Config, overrides forwardOverrides) (*reconcile.Config, error) {
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if backend != "" {
		cfg.Backend = backend
	}
	overrides.apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// storeBackend resolves the "auto" backend to a concrete one by platform.
func storeBackend(backend string) string {
	if backend != "auto" {
		return backend
	}
	if runtime.GOOS == "windows" {
		return "netsh"
	}
	return "nftables"
}

// buildReconciler wires the resolver, stores, manager, and synchronizer
// for the configured backend.
func buildReconciler(cfg *reconcile.Config, logger *slog.Logger) (*reconcile.Reconciler, error) {
	runner := cmdexec.NewExecRunner(logger)
	query := guest.NewWSLQuery(cfg.Guest.Tool, runner)
	resolver := guest.NewResolver(cfg.Guest, query, logger)

	var (
		forwardStore  portproxy.Store
		firewallStore firewall.Store
	)
	switch storeBackend(cfg.Backend) {
	case "netsh":
		forwardStore = portproxy.NewNetshStore(runner, logger)
		firewallStore = firewall.NewNetshStore(runner, logger)
	case "nftables":
		fs, err := portproxy.NewNftablesStore(logger)
		if err != nil {
			return nil, err
		}
		forwardStore = fs
		ws, err := firewall.NewNftablesStore(logger)
		if err != nil {
			return nil, err
		}
		firewallStore = ws
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	manager := portproxy.NewManager(cfg.Forwarding, forwardStore, logger)
	synchronizer := firewall.NewSynchronizer(cfg.Firewall, firewallStore, logger)
	checker := privilege.NewChecker()

	return reconcile.NewReconciler(resolver, manager, synchronizer, checker, logger), nil
}

func setupLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
