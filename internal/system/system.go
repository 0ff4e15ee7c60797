// Package system provides the narrow interfaces through which the sentinel
// observes and mutates host state. Everything above this package consumes
// Commander and FS so tests can substitute scripted fixtures without
// spawning processes.
package system

import (
	"context"
	"errors"
	"time"
)

// ErrToolMissing reports that an external binary is not installed.
var ErrToolMissing = errors.New("tool not found")

// ErrTimeout reports that a command exceeded its deadline and was killed.
var ErrTimeout = errors.New("command timed out")

// ErrNeedRoot reports that a mutating operation requires privileges that
// are not available.
var ErrNeedRoot = errors.New("operation requires root or passwordless sudo")

// Result captures the outcome of one external command invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Succeeded reports whether the command exited zero.
func (r Result) Succeeded() bool {
	return r.ExitCode == 0
}

// Commander runs external commands. A non-zero exit is reported through
// Result, not as an error; errors are reserved for missing tools, timeouts
// and spawn failures.
type Commander interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
	RunTimeout(ctx context.Context, timeout time.Duration, name string, args ...string) (Result, error)
	LookPath(name string) bool
}

// FS reads and writes sysfs attributes and enumerates device directories.
// Resolve follows symlinks; sysfs class entries are links into the device
// tree and ancestry walks need the physical path.
type FS interface {
	ReadFile(path string) (string, error)
	WriteFile(path, content string) error
	Glob(pattern string) ([]string, error)
	Exists(path string) bool
	Resolve(path string) (string, error)
}
