package healthcheck

import (
	"sync"
	"time"
)

// Snapshot describes the latest evaluation cycle.
type Snapshot struct {
	LastCycleTime   *time.Time `json:"last_cycle_time"`
	CycleDurationMS int64      `json:"cycle_duration_ms"`
	ChecksFailed    int        `json:"checks_failed"`
	StackHealthy    bool       `json:"stack_healthy"`
}

// Tracker records cycle timing and the latest stack verdict for the
// health endpoints.
type Tracker struct {
	mu            sync.RWMutex
	lastCycle     time.Time
	cycleDuration time.Duration
	checksFailed  int
	stackHealthy  bool
	ready         bool
}

// NewTracker constructs a new Tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// RecordCycle updates cycle timing, the stack verdict and readiness.
func (t *Tracker) RecordCycle(duration time.Duration, checksFailed int, stackHealthy bool) {
	if t == nil {
		return
	}
	now := time.Now().UTC()
	t.mu.Lock()
	t.lastCycle = now
	t.cycleDuration = duration
	t.checksFailed = checksFailed
	t.stackHealthy = stackHealthy
	t.ready = true
	t.mu.Unlock()
}

// Snapshot returns the current tracker snapshot.
func (t *Tracker) Snapshot() Snapshot {
	if t == nil {
		return Snapshot{}
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	var last *time.Time
	if !t.lastCycle.IsZero() {
		value := t.lastCycle
		last = &value
	}
	return Snapshot{
		LastCycleTime:   last,
		CycleDurationMS: int64(t.cycleDuration / time.Millisecond),
		ChecksFailed:    t.checksFailed,
		StackHealthy:    t.stackHealthy,
	}
}

// Ready reports whether at least one cycle has completed.
func (t *Tracker) Ready() bool {
	if t == nil {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ready
}

// Healthy reports whether the last cycle completed within 2x the poll
// interval and found the stack healthy.
func (t *Tracker) Healthy(now time.Time, pollInterval time.Duration) bool {
	if t == nil {
		return false
	}
	if pollInterval <= 0 {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.lastCycle.IsZero() {
		return false
	}
	if now.Sub(t.lastCycle) > 2*pollInterval {
		return false
	}
	return t.stackHealthy
}
