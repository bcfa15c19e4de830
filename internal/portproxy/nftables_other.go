//go:build !linux

package portproxy

import (
	"errors"
	"log/slog"
)

// NewNftablesStore is unavailable off Linux.
func NewNftablesStore(_ *slog.Logger) (Store, error) {
	return nil, errors.New("portproxy: nftables store requires linux")
}
