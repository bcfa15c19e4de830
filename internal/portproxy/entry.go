package portproxy

import (
	"context"
	"fmt"
)

// Forwarding table families.
const (
	// FamilyV4 is the IPv4-listener-to-IPv4-target table.
	FamilyV4 = "v4tov4"

	// FamilyV6 is the IPv6-listener-to-IPv4-target table.
	FamilyV6 = "v6tov4"
)

// Listener addresses managed by this package.
const (
	// ListenAny4 accepts IPv4 traffic on all host interfaces.
	ListenAny4 = "0.0.0.0"

	// ListenLoopback4 is targeted on removal to clear older manually
	// installed loopback entries.
	ListenLoopback4 = "127.0.0.1"

	// ListenAny6 accepts IPv6 traffic on all host interfaces.
	ListenAny6 = "::"
)

// Entry is one forwarding table row: traffic arriving on the listen side is
// relayed to the connect side.
type Entry struct {
	Family         string
	ListenAddress  string
	ListenPort     int
	ConnectAddress string
	ConnectPort    int
}

// Key selects an entry for deletion. The forwarding table is keyed by
// family, listen address, and listen port.
type Key struct {
	Family        string
	ListenAddress string
	ListenPort    int
}

// Store abstracts the host forwarding table for testability.
type Store interface {
	// Add installs a forwarding entry. Adding an entry that collides with
	// an existing key surfaces the store's error.
	Add(ctx context.Context, entry Entry) error

	// Delete removes the entry matching key.
	// Implementations must be idempotent: deleting an absent entry must
	// return nil.
	Delete(ctx context.Context, key Key) error

	// List returns the current entries of one table family.
	List(ctx context.Context, family string) ([]Entry, error)
}

// OpError reports a failed forwarding table operation.
type OpError struct {
	Op     string // "add", "delete", or "list"
	Family string
	Port   int // zero for list failures
	Err    error
}

func (e *OpError) Error() string {
	if e.Port == 0 {
		return fmt.Sprintf("portproxy: %s %s: %v", e.Op, e.Family, e.Err)
	}
	return fmt.Sprintf("portproxy: %s %s port %d: %v", e.Op, e.Family, e.Port, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}
