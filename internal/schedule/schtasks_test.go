package schedule

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"testing"
)

// scriptedRunner is a test double for cmdexec.Runner that records commands
// and answers from a response function.
type scriptedRunner struct {
	mu      sync.Mutex
	calls   []string
	respond func(args []string) ([]byte, error)
}

func (r *scriptedRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	r.calls = append(r.calls, name+" "+strings.Join(args, " "))
	r.mu.Unlock()
	if r.respond != nil {
		return r.respond(args)
	}
	return nil, nil
}

func (r *scriptedRunner) call(i int) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[i]
}

func (r *scriptedRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func TestSchtasksScheduler_RegisterBuildsArguments(t *testing.T) {
	runner := &scriptedRunner{}
	sched := NewSchtasksScheduler(runner, discardLogger())

	task := Task{
		Name:    "GuestPortForward",
		Command: `"C:\Tools\guestport.exe" refresh --port 3000`,
	}
	if err := sched.Register(context.Background(), task); err != nil {
		t.Fatalf("Register() error = %v, want nil", err)
	}

	want := `schtasks /Create /F /TN GuestPortForward /TR "C:\Tools\guestport.exe" refresh --port 3000 /SC ONLOGON /RL HIGHEST`
	if runner.callCount() != 1 {
		t.Fatalf("runner calls = %d, want 1", runner.callCount())
	}
	if runner.call(0) != want {
		t.Errorf("command = %q, want %q", runner.call(0), want)
	}
}

func TestSchtasksScheduler_UnregisterWhenPresent(t *testing.T) {
	runner := &scriptedRunner{}
	sched := NewSchtasksScheduler(runner, discardLogger())

	if err := sched.Unregister(context.Background(), "GuestPortForward"); err != nil {
		t.Fatalf("Unregister() error = %v, want nil", err)
	}

	if runner.callCount() != 2 {
		t.Fatalf("runner calls = %d, want 2 (query, delete)", runner.callCount())
	}
	if runner.call(0) != "schtasks /Query /TN GuestPortForward" {
		t.Errorf("first command = %q, want the existence probe", runner.call(0))
	}
	if runner.call(1) != "schtasks /Delete /F /TN GuestPortForward" {
		t.Errorf("second command = %q, want the delete", runner.call(1))
	}
}

func TestSchtasksScheduler_UnregisterAbsentIsNoOp(t *testing.T) {
	runner := &scriptedRunner{
		respond: func(args []string) ([]byte, error) {
			// schtasks exits non-zero when no task matches the name.
			return nil, fmt.Errorf("cmdexec: schtasks: not found: %w", &exec.ExitError{})
		},
	}
	sched := NewSchtasksScheduler(runner, discardLogger())

	if err := sched.Unregister(context.Background(), "GuestPortForward"); err != nil {
		t.Fatalf("Unregister() error = %v, want nil for absent task", err)
	}
	if runner.callCount() != 1 {
		t.Fatalf("runner calls = %d, want 1 (query only)", runner.callCount())
	}
}

func TestSchtasksScheduler_RegisteredPropagatesProbeFailure(t *testing.T) {
	cause := errors.New("executable not found")
	runner := &scriptedRunner{
		respond: func(args []string) ([]byte, error) { return nil, cause },
	}
	sched := NewSchtasksScheduler(runner, discardLogger())

	_, err := sched.Registered(context.Background(), "GuestPortForward")
	if !errors.Is(err, cause) {
		t.Fatalf("Registered() error = %v, want wrapping %v", err, cause)
	}
}
