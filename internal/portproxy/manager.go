package portproxy

import (
	"context"
	"log/slog"
)

// Manager sequences forwarding table mutations for the configured port.
type Manager struct {
	cfg    Config
	store  Store
	logger *slog.Logger
}

// NewManager creates a Manager with the given configuration.
// Config defaults are applied automatically.
func NewManager(cfg Config, store Store, logger *slog.Logger) *Manager {
	cfg.ApplyDefaults()
	return &Manager{
		cfg:    cfg,
		store:  store,
		logger: logger.With("component", "portproxy"),
	}
}

// Remove clears the forwarding entries for the configured port: the v4
// loopback listener, the v4 any-address listener, and, when IPv6 handling
// is enabled, the v6 any-address listener. Each deletion is attempted
// independently and absence is not an error; a real store failure aborts
// and surfaces as *OpError.
func (m *Manager) Remove(ctx context.Context) error {
	keys := []Key{
		{Family: FamilyV4, ListenAddress: ListenLoopback4, ListenPort: m.cfg.Port},
		{Family: FamilyV4, ListenAddress: ListenAny4, ListenPort: m.cfg.Port},
	}
	if m.cfg.IPv6 {
		keys = append(keys, Key{Family: FamilyV6, ListenAddress: ListenAny6, ListenPort: m.cfg.Port})
	}

	for _, key := range keys {
		if err := m.store.Delete(ctx, key); err != nil {
			return &OpError{Op: "delete", Family: key.Family, Port: key.ListenPort, Err: err}
		}
		m.logger.Debug("forwarding entry cleared",
			"family", key.Family,
			"listen_address", key.ListenAddress,
			"listen_port", key.ListenPort,
		)
	}
	return nil
}

// Add installs the forwarding entries for the configured port targeting the
// guest address: a v4 any-address listener and, when IPv6 handling is
// enabled, a v6 any-address listener relaying to the same IPv4 target.
// Add assumes a prior Remove; a colliding entry surfaces as *OpError.
func (m *Manager) Add(ctx context.Context, guestAddr string) error {
	entries := []Entry{{
		Family:         FamilyV4,
		ListenAddress:  ListenAny4,
		ListenPort:     m.cfg.Port,
		ConnectAddress: guestAddr,
		ConnectPort:    m.cfg.Port,
	}}
	if m.cfg.IPv6 {
		entries = append(entries, Entry{
			Family:         FamilyV6,
			ListenAddress:  ListenAny6,
			ListenPort:     m.cfg.Port,
			ConnectAddress: guestAddr,
			ConnectPort:    m.cfg.Port,
		})
	}

	for _, entry := range entries {
		if err := m.store.Add(ctx, entry); err != nil {
			return &OpError{Op: "add", Family: entry.Family, Port: entry.ListenPort, Err: err}
		}
		m.logger.Info("forwarding entry installed",
			"family", entry.Family,
			"listen_address", entry.ListenAddress,
			"listen_port", entry.ListenPort,
			"connect_address", entry.ConnectAddress,
			"connect_port", entry.ConnectPort,
		)
	}
	return nil
}

// Snapshot lists the current entries of both table families, v4 first.
// On a list failure the entries gathered so far are returned alongside
// the *OpError.
func (m *Manager) Snapshot(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	for _, family := range []string{FamilyV4, FamilyV6} {
		list, err := m.store.List(ctx, family)
		if err != nil {
			return entries, &OpError{Op: "list", Family: family, Err: err}
		}
		entries = append(entries, list...)
	}
	return entries, nil
}

// Port returns the configured forwarded port.
func (m *Manager) Port() int {
	return m.cfg.Port
}
