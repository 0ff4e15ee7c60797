package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// DryRunNotifier logs events without sending notifications.
type DryRunNotifier struct {
	logger zerolog.Logger
	inner  Notifier
}

// NewDryRunNotifier returns a notifier that suppresses delivery and logs instead.
func NewDryRunNotifier(logger zerolog.Logger, inner Notifier) *DryRunNotifier {
	return &DryRunNotifier{logger: logger, inner: inner}
}

// Notify implements Notifier.
func (n *DryRunNotifier) Notify(_ context.Context, event Event) error {
	for _, change := range event.Transitions {
		n.logger.Info().
			Str("host", event.Host).
			Str("check", change.Name).
			Str("previous_status", string(change.Previous)).
			Str("current_status", string(change.Current)).
			Str("detail", change.Detail).
			Msg("[DRY-RUN] Would notify")
	}
	if event.Recovery != nil {
		n.logger.Info().
			Str("host", event.Host).
			Int("attempted", event.Recovery.Attempted).
			Int("succeeded", event.Recovery.Succeeded).
			Msg("[DRY-RUN] Would notify recovery outcome")
	}
	return nil
}
