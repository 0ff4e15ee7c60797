// Package poll waits for a condition with a fixed probe interval and a
// bounded total wait, the pattern behind USB re-enumeration and service
// liveness checks.
package poll

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrTimeout reports that the condition did not hold within the bound.
var ErrTimeout = errors.New("condition not met within wait bound")

// Probe checks the condition once. A non-nil error aborts the wait.
type Probe func() (bool, error)

// Option customizes a wait.
type Option func(*settings)

type settings struct {
	progressEvery time.Duration
	onProgress    func(elapsed time.Duration)
	clock         func() time.Time
}

// WithProgress invokes fn roughly every interval while waiting.
func WithProgress(every time.Duration, fn func(elapsed time.Duration)) Option {
	return func(s *settings) {
		s.progressEvery = every
		s.onProgress = fn
	}
}

// withClock overrides time measurement for tests.
func withClock(clock func() time.Time) Option {
	return func(s *settings) {
		s.clock = clock
	}
}

// Until probes the condition every interval until it holds, maxWait
// elapses, or the context is canceled. The first probe runs immediately.
func Until(ctx context.Context, interval, maxWait time.Duration, probe Probe, opts ...Option) error {
	cfg := settings{clock: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}

	ticker := backoff.WithContext(backoff.NewConstantBackOff(interval), ctx)
	start := cfg.clock()
	lastProgress := start

	for {
		ok, err := probe()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		now := cfg.clock()
		elapsed := now.Sub(start)
		if elapsed >= maxWait {
			return ErrTimeout
		}
		if cfg.onProgress != nil && now.Sub(lastProgress) >= cfg.progressEvery {
			cfg.onProgress(elapsed)
			lastProgress = now
		}

		wait := ticker.NextBackOff()
		if wait == backoff.Stop {
			return ctx.Err()
		}
		if !sleep(ctx, wait) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, wait time.Duration) bool {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
