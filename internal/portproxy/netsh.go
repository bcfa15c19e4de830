package portproxy

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/plexsphere/guestport/internal/cmdexec"
)

// NetshStore implements Store against the Windows portproxy table via netsh.
type NetshStore struct {
	runner cmdexec.Runner
	logger *slog.Logger
}

// NewNetshStore returns a NetshStore backed by the given runner.
func NewNetshStore(runner cmdexec.Runner, logger *slog.Logger) *NetshStore {
	return &NetshStore{
		runner: runner,
		logger: logger.With("component", "portproxy"),
	}
}

func (s *NetshStore) Add(ctx context.Context, entry Entry) error {
	args := []string{
		"interface", "portproxy", "add", entry.Family,
		"listenport=" + strconv.Itoa(entry.ListenPort),
		"listenaddress=" + entry.ListenAddress,
		"connectport=" + strconv.Itoa(entry.ConnectPort),
		"connectaddress=" + entry.ConnectAddress,
	}
	if _, err := s.runner.Run(ctx, "netsh", args...); err != nil {
		return fmt.Errorf("portproxy: netsh add %s: %w", entry.Family, err)
	}
	return nil
}

// Delete removes the entry matching key. The table is re-queried first and
// absent keys return nil, keeping deletion idempotent without matching
// netsh's localized error text.
func (s *NetshStore) Delete(ctx context.Context, key Key) error {
	entries, err := s.List(ctx, key.Family)
	if err != nil {
		return fmt.Errorf("portproxy: netsh delete %s: %w", key.Family, err)
	}

	found := false
	for _, entry := range entries {
		if entry.ListenAddress == key.ListenAddress && entry.ListenPort == key.ListenPort {
			found = true
			break
		}
	}
	if !found {
		s.logger.Debug("forwarding entry not present, nothing to delete",
			"family", key.Family,
			"listen_address", key.ListenAddress,
			"listen_port", key.ListenPort,
		)
		return nil
	}

	args := []string{
		"interface", "portproxy", "delete", key.Family,
		"listenport=" + strconv.Itoa(key.ListenPort),
		"listenaddress=" + key.ListenAddress,
	}
	if _, err := s.runner.Run(ctx, "netsh", args...); err != nil {
		return fmt.Errorf("portproxy: netsh delete %s: %w", key.Family, err)
	}
	return nil
}

func (s *NetshStore) List(ctx context.Context, family string) ([]Entry, error) {
	out, err := s.runner.Run(ctx, "netsh", "interface", "portproxy", "show", family)
	if err != nil {
		return nil, fmt.Errorf("portproxy: netsh show %s: %w", family, err)
	}
	return parseShowOutput(out, family), nil
}

// parseShowOutput extracts entries from a portproxy show listing. Entry rows
// carry four columns (listen address, listen port, connect address, connect
// port); headers and separators fail the numeric column checks and are
// skipped.
func parseShowOutput(out []byte, family string) []Entry {
	var entries []Entry
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) != 4 {
			continue
		}
		listenPort, err := strconv.Atoi(fields[1])
		if err != nil {
			continue
		}
		connectPort, err := strconv.Atoi(fields[3])
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Family:         family,
			ListenAddress:  fields[0],
			ListenPort:     listenPort,
			ConnectAddress: fields[2],
			ConnectPort:    connectPort,
		})
	}
	return entries
}
