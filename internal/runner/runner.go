// Package runner drives the periodic monitor loop: evaluate, detect
// transitions, persist state, recover, notify.
package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nholik/bt-sentinel/internal/check"
	"github.com/nholik/bt-sentinel/internal/health"
	"github.com/nholik/bt-sentinel/internal/healthcheck"
	"github.com/nholik/bt-sentinel/internal/metrics"
	"github.com/nholik/bt-sentinel/internal/notify"
	"github.com/nholik/bt-sentinel/internal/recovery"
	"github.com/nholik/bt-sentinel/internal/state"
	"github.com/nholik/bt-sentinel/internal/transition"
)

// Ticker is the minimal interface needed for driving the runner loop.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	ticker *time.Ticker
}

func (t timeTicker) C() <-chan time.Time {
	return t.ticker.C
}

func (t timeTicker) Stop() {
	t.ticker.Stop()
}

// Runner orchestrates the main execution loop.
type Runner struct {
	logger        zerolog.Logger
	pollInterval  time.Duration
	tickerFactory func(time.Duration) Ticker
	runOnce       func(context.Context) error

	evaluator   *health.Evaluator
	ladder      *recovery.Ladder
	autoRecover bool
	stateStore  state.Store
	stateMu     *sync.Mutex
	notifier    notify.Notifier
	collector   *metrics.Metrics
	tracker     *healthcheck.Tracker
	host        string
	confirm     func() bool
}

// Option customizes runner behavior.
type Option func(*Runner)

// WithTickerFactory overrides how tickers are created.
func WithTickerFactory(factory func(time.Duration) Ticker) Option {
	return func(r *Runner) {
		r.tickerFactory = factory
	}
}

// WithRunOnce overrides the single-cycle execution step.
func WithRunOnce(runOnce func(context.Context) error) Option {
	return func(r *Runner) {
		r.runOnce = runOnce
	}
}

// WithLadder enables automatic recovery through the given ladder.
func WithLadder(ladder *recovery.Ladder) Option {
	return func(r *Runner) {
		r.ladder = ladder
		r.autoRecover = ladder != nil
	}
}

// WithStateStore enables state persistence for transition detection.
func WithStateStore(store state.Store, lock *sync.Mutex) Option {
	return func(r *Runner) {
		r.stateStore = store
		r.stateMu = lock
	}
}

// WithNotifier sets the notifier invoked on transitions and recoveries.
func WithNotifier(notifier notify.Notifier) Option {
	return func(r *Runner) {
		r.notifier = notifier
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(collector *metrics.Metrics) Option {
	return func(r *Runner) {
		r.collector = collector
	}
}

// WithTracker sets the health endpoint tracker.
func WithTracker(tracker *healthcheck.Tracker) Option {
	return func(r *Runner) {
		r.tracker = tracker
	}
}

// WithHost sets the hostname attached to outgoing notifications.
func WithHost(host string) Option {
	return func(r *Runner) {
		r.host = host
	}
}

// WithConfirm gates recovery behind a confirmation hook. The hook is
// consulted once per cycle that needs recovery; returning false skips the
// ladder for that cycle.
func WithConfirm(confirm func() bool) Option {
	return func(r *Runner) {
		r.confirm = confirm
	}
}

// New constructs a Runner with the given logger, poll interval and evaluator.
func New(logger zerolog.Logger, pollInterval time.Duration, evaluator *health.Evaluator, opts ...Option) *Runner {
	r := &Runner{
		logger:       logger,
		pollInterval: pollInterval,
		evaluator:    evaluator,
		tickerFactory: func(d time.Duration) Ticker {
			return timeTicker{ticker: time.NewTicker(d)}
		},
	}
	r.runOnce = r.defaultRunOnce

	for _, opt := range opts {
		opt(r)
	}
	if r.stateStore != nil && r.stateMu == nil {
		r.stateMu = &sync.Mutex{}
	}

	return r
}

// Run starts the main loop and blocks until the context is canceled.
func (r *Runner) Run(ctx context.Context) error {
	if r.pollInterval <= 0 {
		return errors.New("poll interval must be greater than zero")
	}

	// Run immediately on startup
	if err := r.RunOnce(ctx); err != nil {
		r.logger.Error().Err(err).Msg("initial monitor cycle failed")
	}

	ticker := r.tickerFactory(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("runner stopped")
			return nil
		case <-ticker.C():
			if err := r.RunOnce(ctx); err != nil {
				r.logger.Error().Err(err).Msg("monitor cycle failed")
			}
		}
	}
}

// RunOnce executes a single monitor cycle.
func (r *Runner) RunOnce(ctx context.Context) error {
	return r.runOnce(ctx)
}

func (r *Runner) defaultRunOnce(ctx context.Context) error {
	started := time.Now()

	report, err := r.evaluator.Evaluate(ctx)
	if err != nil {
		return wrapRuntime("evaluate", err)
	}

	transitions, err := r.detectAndPersist(ctx, report)
	if err != nil {
		return wrapRuntime("persist state", err)
	}
	r.logTransitions(transitions)

	var summary *recovery.Summary
	if !report.Healthy() && r.autoRecover && r.ladder != nil {
		if r.confirm != nil && !r.confirm() {
			r.logger.Warn().Msg("recovery not confirmed, skipping ladder")
		} else {
			result := r.ladder.Run(ctx, report)
			summary = &result
			r.collector.ObserveRecovery(result)

			// One verification pass so the persisted snapshot and
			// endpoints reflect the post-recovery state.
			verified, verifyErr := r.evaluator.Evaluate(ctx)
			if verifyErr != nil {
				r.logger.Error().Err(verifyErr).Msg("post-recovery verification failed")
			} else {
				if verified.Healthy() {
					r.logger.Info().Msg("stack healthy after recovery")
				} else {
					r.logger.Warn().Strs("failing", verified.Failing()).Msg("stack still unhealthy after recovery")
				}
				if r.stateStore != nil {
					if err := r.withStateLock(func() error {
						return r.stateStore.Save(ctx, snapshotFromReport(verified))
					}); err != nil {
						r.logger.Error().Err(err).Msg("persisting post-recovery snapshot failed")
					}
				}
				report = verified
			}
		}
	}

	r.collector.ObserveCycle(time.Since(started), report)
	r.tracker.RecordCycle(time.Since(started), len(report.Failing()), report.Healthy())

	if r.notifier != nil && (len(transitions) > 0 || summary != nil) {
		event := notify.Event{
			Host:        r.host,
			Transitions: transitions,
			Recovery:    summary,
			OccurredAt:  report.EvaluatedAt,
		}
		if err := r.notifier.Notify(ctx, event); err != nil {
			// Delivery failures never fail the cycle.
			r.logger.Error().Err(err).Msg("notification failed")
		}
	}

	return nil
}

func (r *Runner) detectAndPersist(ctx context.Context, report health.Report) ([]transition.CheckTransition, error) {
	if r.stateStore == nil {
		return transition.Detect(nil, report), nil
	}

	var previous *state.Snapshot
	err := r.withStateLock(func() error {
		loaded, err := r.stateStore.Load(ctx)
		if err != nil {
			return err
		}
		previous = loaded
		return r.stateStore.Save(ctx, snapshotFromReport(report))
	})
	if err != nil {
		return nil, err
	}
	return transition.Detect(previous, report), nil
}

func (r *Runner) logTransitions(transitions []transition.CheckTransition) {
	for _, change := range transitions {
		event := r.logger.Info()
		switch change.Current {
		case check.StatusFail:
			event = r.logger.Error()
		case check.StatusUnknown:
			event = r.logger.Warn()
		}
		event.
			Str("check", change.Name).
			Str("previous_status", string(change.Previous)).
			Str("current_status", string(change.Current)).
			Str("detail", change.Detail).
			Msg("check transition detected")
	}
}

func (r *Runner) withStateLock(fn func() error) error {
	if r.stateMu == nil {
		return fn()
	}
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	return fn()
}

func snapshotFromReport(report health.Report) state.Snapshot {
	snapshot := state.Snapshot{
		Checks:        report.Statuses(),
		Details:       make(map[string]string, len(report.Checks)),
		BroadcomReset: report.BroadcomReset,
		EvaluatedAt:   report.EvaluatedAt,
	}
	for _, result := range report.Checks {
		snapshot.Details[result.Name] = result.Detail
	}
	return snapshot
}
