//go:build !linux

package firewall

import (
	"errors"
	"log/slog"
)

// NewNftablesStore is unavailable outside Linux.
func NewNftablesStore(_ *slog.Logger) (Store, error) {
	return nil, errors.New("firewall: nftables store requires linux")
}
