// Package reconcile drives the guest resolver, forwarding manager, and
// firewall synchronizer through the operations behind the guestport
// commands.
package reconcile

import (
	"context"
	"log/slog"

	"github.com/plexsphere/guestport/internal/portproxy"
	"github.com/plexsphere/guestport/internal/privilege"
)

// AddressResolver resolves the guest VM's current IPv4 address.
type AddressResolver interface {
	Resolve(ctx context.Context) (string, error)
	GuestName() string
}

// ForwardingManager maintains the forwarding entries for one port.
type ForwardingManager interface {
	Remove(ctx context.Context) error
	Add(ctx context.Context, guestAddr string) error
	Snapshot(ctx context.Context) ([]portproxy.Entry, error)
	Port() int
}

// FirewallSynchronizer keeps the inbound allow rule in step with the port.
type FirewallSynchronizer interface {
	Sync(ctx context.Context, port int, enabled bool) (string, error)
	Enabled() bool
}

// Reconciler rebuilds the host's forwarding state against the guest's
// current address. Mutating operations require elevation and are checked
// up front; Inspect reads without it.
type Reconciler struct {
	resolver AddressResolver
	forwards ForwardingManager
	firewall FirewallSynchronizer
	checker  privilege.Checker
	logger   *slog.Logger
}

// NewReconciler creates a Reconciler over the given collaborators.
func NewReconciler(resolver AddressResolver, forwards ForwardingManager, firewall FirewallSynchronizer, checker privilege.Checker, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		resolver: resolver,
		forwards: forwards,
		firewall: firewall,
		checker:  checker,
		logger:   logger.With("component", "reconcile"),
	}
}

// Establish points the forwarded port at the guest's current address:
// resolve, clear stale entries, install fresh ones, synchronize the
// firewall rule. Each run rebuilds the state from scratch, so repeating
// it is safe.
func (r *Reconciler) Establish(ctx context.Context) (*Result, error) {
	return r.apply(ctx, ActionAdd)
}

// Refresh re-points forwarding at the guest's current address. It is
// Establish under a distinct action label.
func (r *Reconciler) Refresh(ctx context.Context) (*Result, error) {
	return r.apply(ctx, ActionRefresh)
}

// TearDown removes the forwarding entries and the managed firewall rule.
// The guest is never consulted, so teardown works while it is stopped.
func (r *Reconciler) TearDown(ctx context.Context) (*Result, error) {
	res := r.newResult(ActionRemove)
	err := r.teardown(ctx, res)
	r.captureSnapshot(ctx, res)
	return res, err
}

// Inspect reports the current forwarding table without touching it.
// No elevation is required.
func (r *Reconciler) Inspect(ctx context.Context) (*Result, error) {
	res := r.newResult(ActionShow)
	entries, err := r.forwards.Snapshot(ctx)
	res.Entries = entries
	if err != nil {
		return res, err
	}
	return res, nil
}

// apply runs the establish sequence under the given action label and
// finishes with a snapshot of the resulting table regardless of outcome.
func (r *Reconciler) apply(ctx context.Context, action string) (*Result, error) {
	res := r.newResult(action)
	err := r.establish(ctx, res)
	r.captureSnapshot(ctx, res)
	return res, err
}

func (r *Reconciler) establish(ctx context.Context, res *Result) error {
	if !r.checker.Elevated() {
		return privilege.ErrElevationRequired
	}

	// Resolution runs before any mutation: when the guest's address
	// cannot be determined the existing forwarding state must survive
	// untouched.
	addr, err := r.resolver.Resolve(ctx)
	if err != nil {
		return err
	}
	res.GuestAddress = addr

	if err := r.forwards.Remove(ctx); err != nil {
		return err
	}
	if err := r.forwards.Add(ctx, addr); err != nil {
		return err
	}

	enabled := r.firewall.Enabled()
	name, err := r.firewall.Sync(ctx, res.Port, enabled)
	res.FirewallRule = name
	if err != nil {
		return err
	}
	res.FirewallManaged = enabled

	r.logger.Info("forwarding established",
		"action", res.Action,
		"port", res.Port,
		"guest", res.Guest,
		"guest_addr", addr,
		"firewall_rule", name,
		"firewall_managed", enabled,
	)
	return nil
}

func (r *Reconciler) teardown(ctx context.Context, res *Result) error {
	if !r.checker.Elevated() {
		return privilege.ErrElevationRequired
	}

	if err := r.forwards.Remove(ctx); err != nil {
		return err
	}

	// The managed rule comes out even when rule management is disabled:
	// teardown means nothing of ours is left behind.
	name, err := r.firewall.Sync(ctx, res.Port, false)
	res.FirewallRule = name
	if err != nil {
		return err
	}

	r.logger.Info("forwarding removed",
		"port", res.Port,
		"guest", res.Guest,
		"firewall_rule", name,
	)
	return nil
}

func (r *Reconciler) newResult(action string) *Result {
	return &Result{
		Action: action,
		Port:   r.forwards.Port(),
		Guest:  r.resolver.GuestName(),
	}
}

// captureSnapshot records the forwarding table on the result. The
// operation's outcome is already decided; a failed read only costs the
// rendered table, so it is logged and swallowed.
func (r *Reconciler) captureSnapshot(ctx context.Context, res *Result) {
	entries, err := r.forwards.Snapshot(ctx)
	res.Entries = entries
	if err != nil {
		r.logger.Warn("forwarding snapshot failed", "error", err)
	}
}
