package system

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Host implements Commander and FS against the real operating system.
type Host struct{}

// NewHost returns a Host executor.
func NewHost() *Host {
	return &Host{}
}

// Run executes a command and waits for it to finish.
func (h *Host) Run(ctx context.Context, name string, args ...string) (Result, error) {
	return h.run(ctx, name, args...)
}

// RunTimeout executes a command under an additional deadline. A command
// killed by the deadline returns ErrTimeout.
func (h *Host) RunTimeout(ctx context.Context, timeout time.Duration, name string, args ...string) (Result, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return h.run(runCtx, name, args...)
}

func (h *Host) run(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		switch {
		// A command killed by the deadline surfaces as an ExitError
		// ("signal: killed"), so the deadline must be checked first.
		case ctx.Err() == context.DeadlineExceeded:
			return result, fmt.Errorf("%s: %w", name, ErrTimeout)
		case errors.As(err, &exitErr):
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		case errors.Is(err, exec.ErrNotFound):
			return result, fmt.Errorf("%s: %w", name, ErrToolMissing)
		default:
			return result, fmt.Errorf("run %s: %w", name, err)
		}
	}

	return result, nil
}

// LookPath reports whether a binary is resolvable on PATH.
func (h *Host) LookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// ReadFile returns the trimmed content of path.
func (h *Host) ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// WriteFile writes content to path without appending a newline. Sysfs
// attributes reject partial or padded writes, so the content is written
// in a single call.
func (h *Host) WriteFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

// Glob expands a filesystem pattern.
func (h *Host) Glob(pattern string) ([]string, error) {
	return filepath.Glob(pattern)
}

// Exists reports whether path is present.
func (h *Host) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Resolve follows symlinks to the physical path.
func (h *Host) Resolve(path string) (string, error) {
	return filepath.EvalSymlinks(path)
}
