package schedule

import (
	"strings"
	"testing"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{Executable: "guestport"}
	cfg.ApplyDefaults()

	if cfg.TaskName != DefaultTaskName {
		t.Errorf("TaskName = %q, want %q", cfg.TaskName, DefaultTaskName)
	}
	if cfg.Executable != "guestport" {
		t.Errorf("Executable = %q, want preserved", cfg.Executable)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{TaskName: "x"}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "Executable is required") {
		t.Errorf("Validate() error = %v, want Executable requirement", err)
	}

	cfg.Executable = "guestport"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}
