package guest

import (
	"context"

	"github.com/plexsphere/guestport/internal/cmdexec"
)

// Query runs a command inside the named guest environment.
type Query interface {
	// Run executes args inside the guest and returns the command's standard
	// output. An unknown guest name surfaces as the launcher's error.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// WSLQuery implements Query via the WSL launcher: wsl -d <name> -- <args>.
type WSLQuery struct {
	tool   string
	runner cmdexec.Runner
}

// NewWSLQuery returns a WSLQuery that invokes the given launcher binary.
func NewWSLQuery(tool string, runner cmdexec.Runner) *WSLQuery {
	return &WSLQuery{tool: tool, runner: runner}
}

func (q *WSLQuery) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	argv := append([]string{"-d", name, "--"}, args...)
	return q.runner.Run(ctx, q.tool, argv...)
}
