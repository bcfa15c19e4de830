package cmd

import (
	"fmt"
	"io"
	"net"
	"strconv"

	"github.com/plexsphere/guestport/internal/hostnet"
	"github.com/plexsphere/guestport/internal/portproxy"
	"github.com/plexsphere/guestport/internal/reconcile"
)

// renderResult writes the operation summary and the forwarding table. It
// runs for failed operations too, reporting whatever state the result
// carries.
func renderResult(w io.Writer, res *reconcile.Result) {
	fmt.Fprintf(w, "Guest:         %s\n", res.Guest)
	fmt.Fprintf(w, "Port:          %d\n", res.Port)
	if res.GuestAddress != "" {
		fmt.Fprintf(w, "Guest address: %s\n", res.GuestAddress)
	}
	if res.FirewallRule != "" {
		state := "removed"
		if res.FirewallManaged {
			state = "active"
		}
		fmt.Fprintf(w, "Firewall rule: %s (%s)\n", res.FirewallRule, state)
	}

	fmt.Fprintln(w, "\nForwards:")
	if len(res.Entries) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	for _, entry := range res.Entries {
		fmt.Fprintf(w, "  %-8s %-22s -> %s\n",
			entry.Family,
			hostPort(entry.ListenAddress, entry.ListenPort),
			hostPort(entry.ConnectAddress, entry.ConnectPort),
		)
	}

	renderReachability(w, res)
}

func hostPort(addr string, port int) string {
	return net.JoinHostPort(addr, strconv.Itoa(port))
}

// renderReachability lists the host's LAN addresses when the port has an
// active any-address listener, so the forward can be handed out as a
// working URL. Enumeration failures just drop the hint.
func renderReachability(w io.Writer, res *reconcile.Result) {
	if !hasAnyListener(res.Entries, res.Port) {
		return
	}
	addrs, err := hostnet.Addresses()
	if err != nil || len(addrs) == 0 {
		return
	}
	fmt.Fprintln(w, "\nReachable on the LAN at:")
	for _, addr := range addrs {
		fmt.Fprintf(w, "  %s\n", hostPort(addr, res.Port))
	}
}

// hasAnyListener reports whether an any-address listener is active for the
// port.
func hasAnyListener(entries []portproxy.Entry, port int) bool {
	for _, entry := range entries {
		if entry.ListenPort != port {
			continue
		}
		if entry.ListenAddress == portproxy.ListenAny4 || entry.ListenAddress == portproxy.ListenAny6 {
			return true
		}
	}
	return false
}
