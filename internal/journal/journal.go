// Package journal appends timestamped, severity-tagged lines to the three
// plain-text logs: a general event log, a per-cycle status log and a
// recovery action log.
package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Severity tags a journal line.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityError    Severity = "ERROR"
	SeverityRecovery Severity = "RECOVERY"
	SeverityVerbose  Severity = "VERBOSE"
)

const (
	eventFile    = "bt-sentinel.log"
	statusFile   = "bt-sentinel-status.log"
	recoveryFile = "bt-sentinel-recovery.log"
)

// Journal writes append-only log lines under a single directory.
type Journal struct {
	dir    string
	logger zerolog.Logger
	mu     sync.Mutex
	now    func() time.Time
}

// Open prepares the log directory and verifies it is writable. An
// unwritable directory is a fatal configuration error for the caller.
func Open(dir string, logger zerolog.Logger) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	probe, err := os.OpenFile(filepath.Join(dir, eventFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("log directory not writable: %w", err)
	}
	_ = probe.Close()

	return &Journal{
		dir:    dir,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Event appends a line to the general event log.
func (j *Journal) Event(severity Severity, message string) {
	j.append(eventFile, severity, message)
}

// Status appends a line to the per-cycle status log.
func (j *Journal) Status(severity Severity, message string) {
	j.append(statusFile, severity, message)
}

// Recovery appends a line to the recovery action log.
func (j *Journal) Recovery(severity Severity, message string) {
	j.append(recoveryFile, severity, message)
}

func (j *Journal) append(file string, severity Severity, message string) {
	if j == nil {
		return
	}
	line := fmt.Sprintf("%s [%s] %s\n", j.now().Format("2006-01-02 15:04:05"), severity, message)

	j.mu.Lock()
	defer j.mu.Unlock()

	handle, err := os.OpenFile(filepath.Join(j.dir, file), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		j.logger.Error().Err(err).Str("file", file).Msg("journal append failed")
		return
	}
	defer handle.Close()

	if _, err := handle.WriteString(line); err != nil {
		j.logger.Error().Err(err).Str("file", file).Msg("journal write failed")
	}
}
