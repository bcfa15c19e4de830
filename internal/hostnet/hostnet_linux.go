//go:build linux

package hostnet

import (
	"fmt"
	"net"

	"github.com/vishvananda/netlink"
)

// Addresses returns the host's global unicast IPv4 addresses on interfaces
// that are up, loopback excluded.
func Addresses() ([]string, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, fmt.Errorf("hostnet: list links: %w", err)
	}

	var addrs []string
	for _, link := range links {
		attrs := link.Attrs()
		if attrs.Flags&net.FlagUp == 0 || attrs.Flags&net.FlagLoopback != 0 {
			continue
		}
		list, err := netlink.AddrList(link, netlink.FAMILY_V4)
		if err != nil {
			return nil, fmt.Errorf("hostnet: list addresses for %s: %w", attrs.Name, err)
		}
		for _, addr := range list {
			if ip := usableIPv4(addr.IP); ip != "" {
				addrs = append(addrs, ip)
			}
		}
	}
	return addrs, nil
}
