package health

import (
	"fmt"
	"strings"
	"time"

	"github.com/nholik/bt-sentinel/internal/check"
)

// Report is the outcome of one evaluation pass over all diagnostics. It is
// produced fresh each cycle and carries no memory of prior cycles.
type Report struct {
	Checks         []check.Result
	RecoveryNeeded bool
	BroadcomReset  bool
	EvaluatedAt    time.Time
}

// Healthy reports whether no check found a hard failure.
func (r Report) Healthy() bool {
	return !r.RecoveryNeeded
}

// Failing returns the names of checks that failed hard.
func (r Report) Failing() []string {
	var names []string
	for _, result := range r.Checks {
		if result.Failed() {
			names = append(names, result.Name)
		}
	}
	return names
}

// Statuses returns the per-check verdicts keyed by check name.
func (r Report) Statuses() map[string]check.Status {
	statuses := make(map[string]check.Status, len(r.Checks))
	for _, result := range r.Checks {
		statuses[result.Name] = result.Status
	}
	return statuses
}

// Summary renders a one-line human-readable digest.
func (r Report) Summary() string {
	if r.Healthy() {
		return "bluetooth stack healthy"
	}
	line := fmt.Sprintf("bluetooth stack unhealthy: %s failing", strings.Join(r.Failing(), ", "))
	if r.BroadcomReset {
		line += " (Broadcom reset signature detected)"
	}
	return line
}
