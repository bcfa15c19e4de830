// Package cmdexec runs the external system tools the stores and resolvers
// are built on (wsl, netsh) and normalizes their output to UTF-8.
package cmdexec

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// waitDelayAfterKill is the grace period for a process to exit after context
// cancellation before it is forcibly killed.
const waitDelayAfterKill = 500 * time.Millisecond

// maxErrorDetail is the maximum number of output bytes included in an error.
const maxErrorDetail = 512

// Runner abstracts external command execution for testability.
type Runner interface {
	// Run executes the named command and returns its standard output decoded
	// to UTF-8. A non-zero exit surfaces as an error carrying the trimmed
	// command output.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner implements Runner using os/exec.
type ExecRunner struct {
	logger *slog.Logger
}

// NewExecRunner returns an ExecRunner that logs every command at debug level.
func NewExecRunner(logger *slog.Logger) *ExecRunner {
	return &ExecRunner{logger: logger.With("component", "cmdexec")}
}

// Run executes the command and returns its decoded standard output.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = waitDelayAfterKill

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("running command",
		"name", name,
		"args", strings.Join(args, " "),
	)

	if err := cmd.Run(); err != nil {
		detail := errorDetail(stderr.Bytes())
		if detail == "" {
			detail = errorDetail(stdout.Bytes())
		}
		if detail != "" {
			return nil, fmt.Errorf("cmdexec: %s: %s: %w", commandLabel(name, args), detail, err)
		}
		return nil, fmt.Errorf("cmdexec: %s: %w", commandLabel(name, args), err)
	}

	return DecodeOutput(stdout.Bytes()), nil
}

// commandLabel identifies a command in errors by its name and leading verb.
func commandLabel(name string, args []string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + args[0]
}

// errorDetail decodes and trims command output for inclusion in an error,
// bounded to maxErrorDetail bytes.
func errorDetail(out []byte) string {
	detail := strings.TrimSpace(string(DecodeOutput(out)))
	if len(detail) > maxErrorDetail {
		detail = detail[:maxErrorDetail]
	}
	return detail
}

// DecodeOutput converts tool output to UTF-8. wsl.exe writes UTF-16LE to
// pipes; UTF-16 output is detected by BOM or by the NUL bytes UTF-16LE
// interleaves into ASCII text, and transcoded. Everything else passes
// through unchanged.
func DecodeOutput(out []byte) []byte {
	if !looksUTF16LE(out) {
		return out
	}
	decoder := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
	decoded, _, err := transform.Bytes(decoder, out)
	if err != nil {
		return out
	}
	return decoded
}

// looksUTF16LE reports whether the byte slice is plausibly UTF-16LE text:
// it starts with a little-endian BOM, or more than half of the odd-indexed
// bytes in the leading window are NUL.
func looksUTF16LE(out []byte) bool {
	if len(out) >= 2 && out[0] == 0xFF && out[1] == 0xFE {
		return true
	}
	if len(out) < 4 {
		return false
	}

	window := len(out)
	if window > 64 {
		window = 64
	}

	nuls := 0
	for i := 1; i < window; i += 2 {
		if out[i] == 0 {
			nuls++
		}
	}
	return nuls > window/4
}
