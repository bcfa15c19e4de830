package schedule

import "context"

// Task describes one scheduled task: a command line run at user logon.
type Task struct {
	Name    string
	Command string
}

// Scheduler abstracts the host task scheduler for testability.
// All methods that modify state must be idempotent: repeating an operation
// that is already applied returns nil.
type Scheduler interface {
	// Available reports whether the task scheduler can be used on this
	// host.
	Available() bool

	// Register creates the named task, replacing an existing one.
	Register(ctx context.Context, task Task) error

	// Unregister removes the named task. Removing an absent task returns
	// nil.
	Unregister(ctx context.Context, name string) error

	// Registered reports whether the named task exists.
	Registered(ctx context.Context, name string) (bool, error)
}
