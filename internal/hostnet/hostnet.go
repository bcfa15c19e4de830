// Package hostnet enumerates the host's LAN IPv4 addresses. Forwarded
// ports listen on every interface, so these are the addresses other
// machines on the network can reach a forward at.
package hostnet

import "net"

// usableIPv4 returns the dotted-quad form of ip when it is a global
// unicast IPv4 address, or "" otherwise. Loopback, link-local, and
// unspecified addresses are not reachable from the LAN and are skipped.
func usableIPv4(ip net.IP) string {
	v4 := ip.To4()
	if v4 == nil || !v4.IsGlobalUnicast() {
		return ""
	}
	return v4.String()
}
