package state

import (
	"context"
	"time"

	"github.com/nholik/bt-sentinel/internal/check"
)

// Snapshot captures the persisted outcome of the most recent health cycle.
// It is a cache for status display and transition detection, not an input
// to the checks themselves.
type Snapshot struct {
	Checks        map[string]check.Status `json:"checks"`
	Details       map[string]string       `json:"details,omitempty"`
	BroadcomReset bool                    `json:"broadcom_reset"`
	EvaluatedAt   time.Time               `json:"evaluated_at"`
}

// Store persists the last snapshot. Load returns nil when no snapshot has
// been written yet.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snapshot Snapshot) error
}
