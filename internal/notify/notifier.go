package notify

import (
	"context"
	"time"

	"github.com/nholik/bt-sentinel/internal/recovery"
	"github.com/nholik/bt-sentinel/internal/transition"
)

// Event describes one noteworthy health cycle: check transitions and, when
// the ladder ran, the recovery outcome.
type Event struct {
	Host        string
	Transitions []transition.CheckTransition
	Recovery    *recovery.Summary
	OccurredAt  time.Time
}

// Empty reports whether the event carries nothing worth delivering.
func (e Event) Empty() bool {
	return len(e.Transitions) == 0 && e.Recovery == nil
}

// Notifier delivers health events to external systems.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}
