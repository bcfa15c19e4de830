package cmd

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/plexsphere/guestport/internal/reconcile"
)

func TestForwardOverrides_Apply(t *testing.T) {
	cfg := &reconcile.Config{}
	cfg.ApplyDefaults()

	o := forwardOverrides{
		port:         8080,
		guest:        "Debian",
		profiles:     []string{"Public"},
		ipv6:         true,
		skipFirewall: true,
	}
	o.apply(cfg)

	if cfg.Forwarding.Port != 8080 {
		t.Errorf("Forwarding.Port = %d, want 8080", cfg.Forwarding.Port)
	}
	if cfg.Guest.Name != "Debian" {
		t.Errorf("Guest.Name = %q, want Debian", cfg.Guest.Name)
	}
	if len(cfg.Firewall.Profiles) != 1 || cfg.Firewall.Profiles[0] != "Public" {
		t.Errorf("Firewall.Profiles = %v, want [Public]", cfg.Firewall.Profiles)
	}
	if !cfg.Forwarding.IPv6 {
		t.Error("Forwarding.IPv6 = false, want true")
	}
	if cfg.Firewall.RuleEnabled() {
		t.Error("Firewall.RuleEnabled() = true, want false after skip-firewall")
	}
}

func TestForwardOverrides_ZeroValuesKeepConfig(t *testing.T) {
	cfg := &reconcile.Config{}
	cfg.ApplyDefaults()

	forwardOverrides{}.apply(cfg)

	if cfg.Forwarding.Port != 3000 {
		t.Errorf("Forwarding.Port = %d, want 3000", cfg.Forwarding.Port)
	}
	if cfg.Guest.Name != "Ubuntu" {
		t.Errorf("Guest.Name = %q, want Ubuntu", cfg.Guest.Name)
	}
	if !cfg.Firewall.RuleEnabled() {
		t.Error("Firewall.RuleEnabled() = false, want true")
	}
	if cfg.Forwarding.IPv6 {
		t.Error("Forwarding.IPv6 = true, want false")
	}
}

func TestStoreBackend(t *testing.T) {
	if got := storeBackend("netsh"); got != "netsh" {
		t.Errorf(`storeBackend("netsh") = %q, want netsh`, got)
	}
	if got := storeBackend("nftables"); got != "nftables" {
		t.Errorf(`storeBackend("nftables") = %q, want nftables`, got)
	}

	want := "nftables"
	if runtime.GOOS == "windows" {
		want = "netsh"
	}
	if got := storeBackend("auto"); got != want {
		t.Errorf(`storeBackend("auto") = %q, want %q on %s`, got, want, runtime.GOOS)
	}
}

func setFlags(t *testing.T, config, level, be string) {
	t.Helper()
	origConfig, origLevel, origBackend := cfgFile, logLevel, backend
	t.Cleanup(func() {
		cfgFile, logLevel, backend = origConfig, origLevel, origBackend
	})
	cfgFile, logLevel, backend = config, level, be
}

func TestResolveConfig_DefaultsWithoutFile(t *testing.T) {
	setFlags(t, "", "", "")

	cfg, err := resolveConfig(forwardOverrides{})
	if err != nil {
		t.Fatalf("resolveConfig() error = %v, want nil", err)
	}
	if cfg.Forwarding.Port != 3000 || cfg.Guest.Name != "Ubuntu" {
		t.Errorf("config = port %d guest %q, want defaults 3000 Ubuntu", cfg.Forwarding.Port, cfg.Guest.Name)
	}
	if cfg.LogLevel != "info" || cfg.Backend != "auto" {
		t.Errorf("config = level %q backend %q, want info auto", cfg.LogLevel, cfg.Backend)
	}
}

func TestResolveConfig_FileAndFlagOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guestport.yaml")
	if err := os.WriteFile(path, []byte("forwarding:\n  port: 8080\n"), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	setFlags(t, path, "debug", "netsh")

	cfg, err := resolveConfig(forwardOverrides{guest: "Debian"})
	if err != nil {
		t.Fatalf("resolveConfig() error = %v, want nil", err)
	}
	if cfg.Forwarding.Port != 8080 {
		t.Errorf("Forwarding.Port = %d, want 8080 from file", cfg.Forwarding.Port)
	}
	if cfg.LogLevel != "debug" || cfg.Backend != "netsh" {
		t.Errorf("config = level %q backend %q, want flag overrides debug netsh", cfg.LogLevel, cfg.Backend)
	}
	if cfg.Guest.Name != "Debian" {
		t.Errorf("Guest.Name = %q, want Debian from override", cfg.Guest.Name)
	}
}

func TestResolveConfig_RejectsInvalidOverride(t *testing.T) {
	setFlags(t, "", "", "")

	_, err := resolveConfig(forwardOverrides{port: 70000})
	if err == nil || !strings.Contains(err.Error(), "invalid port") {
		t.Errorf("resolveConfig() error = %v, want invalid port", err)
	}
}

func TestResolveConfig_RejectsInvalidBackendFlag(t *testing.T) {
	setFlags(t, "", "", "iptables")

	_, err := resolveConfig(forwardOverrides{})
	if err == nil || !strings.Contains(err.Error(), "invalid backend") {
		t.Errorf("resolveConfig() error = %v, want invalid backend", err)
	}
}
