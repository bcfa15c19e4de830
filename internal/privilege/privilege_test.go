package privilege

import (
	"errors"
	"testing"
)

func TestNewChecker_ReturnsUsableChecker(t *testing.T) {
	c := NewChecker()
	if c == nil {
		t.Fatal("NewChecker() = nil")
	}
	// The result depends on how the test process was started; the call
	// itself must not panic on any platform.
	_ = c.Elevated()
}

func TestErrElevationRequired_Matchable(t *testing.T) {
	wrapped := errors.Join(ErrElevationRequired)
	if !errors.Is(wrapped, ErrElevationRequired) {
		t.Error("errors.Is(wrapped, ErrElevationRequired) = false, want true")
	}
}
