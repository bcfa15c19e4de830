package reconcile

import "github.com/plexsphere/guestport/internal/portproxy"

// Action labels for reconciliation results.
const (
	ActionAdd     = "add"
	ActionRefresh = "refresh"
	ActionRemove  = "remove"
	ActionShow    = "show"
)

// Result reports what a reconciliation operation did and the forwarding
// state observed afterwards. Results are returned best-effort: a failed
// operation still carries whatever fields were established before the
// failure, so callers can render the actual state.
type Result struct {
	// Action is the operation that produced this result.
	Action string

	// Port is the forwarded TCP port.
	Port int

	// Guest is the guest VM name the operation targeted.
	Guest string

	// GuestAddress is the resolved guest IPv4 address, set once
	// resolution has succeeded.
	GuestAddress string

	// FirewallRule is the managed firewall rule name, set once
	// synchronization has run.
	FirewallRule string

	// FirewallManaged reports whether the managed allow rule is
	// installed after the operation.
	FirewallManaged bool

	// Entries is the forwarding table observed after the operation.
	Entries []portproxy.Entry
}
