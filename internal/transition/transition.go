// Package transition compares consecutive health cycles and reports
// per-check status changes.
package transition

import (
	"sort"

	"github.com/nholik/bt-sentinel/internal/check"
	"github.com/nholik/bt-sentinel/internal/health"
	"github.com/nholik/bt-sentinel/internal/state"
)

// CheckTransition captures one check changing status between cycles.
type CheckTransition struct {
	Name     string
	Previous check.Status
	Current  check.Status
	Detail   string
}

// Detect compares the previous snapshot with the current report and emits
// transitions. On the first run (no snapshot) only non-ok checks are
// reported, so a freshly started sentinel on a healthy host stays quiet.
func Detect(prev *state.Snapshot, current health.Report) []CheckTransition {
	firstRun := prev == nil || len(prev.Checks) == 0

	transitions := make([]CheckTransition, 0)
	for _, result := range current.Checks {
		if firstRun {
			if result.Status == check.StatusOK {
				continue
			}
			transitions = append(transitions, CheckTransition{
				Name:    result.Name,
				Current: result.Status,
				Detail:  result.Detail,
			})
			continue
		}

		previous, had := prev.Checks[result.Name]
		if had && previous == result.Status {
			continue
		}
		if !had && result.Status == check.StatusOK {
			continue
		}
		transitions = append(transitions, CheckTransition{
			Name:     result.Name,
			Previous: previous,
			Current:  result.Status,
			Detail:   result.Detail,
		})
	}

	sort.Slice(transitions, func(i, j int) bool {
		return transitions[i].Name < transitions[j].Name
	})

	return transitions
}
