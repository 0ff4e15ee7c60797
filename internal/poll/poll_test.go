package poll

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestUntil_SucceedsOnLaterProbe(t *testing.T) {
	attempts := 0
	err := Until(context.Background(), time.Millisecond, time.Second, func() (bool, error) {
		attempts++
		return attempts >= 3, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestUntil_TimesOut(t *testing.T) {
	err := Until(context.Background(), time.Millisecond, 10*time.Millisecond, func() (bool, error) {
		return false, nil
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestUntil_ProbeErrorAborts(t *testing.T) {
	probeErr := errors.New("probe broke")
	attempts := 0
	err := Until(context.Background(), time.Millisecond, time.Second, func() (bool, error) {
		attempts++
		return false, probeErr
	})
	if !errors.Is(err, probeErr) {
		t.Fatalf("expected probe error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected single attempt, got %d", attempts)
	}
}

func TestUntil_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Until(ctx, 10*time.Millisecond, time.Minute, func() (bool, error) {
		return false, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestUntil_ProgressCallback(t *testing.T) {
	// Drive time with a fake clock so progress fires deterministically.
	current := time.Unix(0, 0)
	clock := func() time.Time { return current }

	var progress []time.Duration
	attempts := 0
	err := Until(context.Background(), time.Millisecond, time.Hour, func() (bool, error) {
		attempts++
		current = current.Add(3 * time.Second)
		return attempts >= 5, nil
	},
		WithProgress(5*time.Second, func(elapsed time.Duration) {
			progress = append(progress, elapsed)
		}),
		withClock(clock),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(progress) == 0 {
		t.Fatal("expected progress callbacks")
	}
	for _, elapsed := range progress {
		if elapsed < 3*time.Second {
			t.Fatalf("progress fired too early: %s", elapsed)
		}
	}
}
