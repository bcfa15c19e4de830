//go:build !linux

package hostnet

import (
	"fmt"
	"net"
)

// Addresses returns the host's global unicast IPv4 addresses on interfaces
// that are up, loopback excluded.
func Addresses() ([]string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("hostnet: list interfaces: %w", err)
	}

	var addrs []string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		list, err := iface.Addrs()
		if err != nil {
			return nil, fmt.Errorf("hostnet: list addresses for %s: %w", iface.Name, err)
		}
		for _, addr := range list {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			if ip := usableIPv4(ipNet.IP); ip != "" {
				addrs = append(addrs, ip)
			}
		}
	}
	return addrs, nil
}
