package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nholik/bt-sentinel/internal/check"
	"github.com/nholik/bt-sentinel/internal/recovery"
	"github.com/nholik/bt-sentinel/internal/transition"
	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
)

const (
	slackMaxBlocks = 50
	// slackReservedBlocks accounts for header block + context block + optional recovery block
	slackReservedBlocks = 3
	slackMaxTransitions = slackMaxBlocks - slackReservedBlocks
)

type SlackNotifier struct {
	logger     zerolog.Logger
	webhookURL string
	timing     timingConfig
	poster     *httpPoster
}

// SlackOption customizes SlackNotifier behavior.
type SlackOption func(*SlackNotifier)

// WithSlackTiming overrides timing parameters (primarily for testing).
func WithSlackTiming(rateInterval time.Duration, rateBurst int, backoffInitial, backoffMax, backoffMaxElapsed time.Duration) SlackOption {
	return func(s *SlackNotifier) {
		s.timing.rateInterval = rateInterval
		s.timing.rateBurst = rateBurst
		s.timing.backoffInitial = backoffInitial
		s.timing.backoffMax = backoffMax
		s.timing.backoffMaxElapsed = backoffMaxElapsed
	}
}

// NewSlackNotifier creates a Slack notifier or a noop notifier when the webhook is empty.
func NewSlackNotifier(logger zerolog.Logger, webhookURL string, opts ...SlackOption) Notifier {
	if webhookURL == "" {
		return NewNoop(logger, "slack webhook not configured; notifications disabled")
	}

	notifier := &SlackNotifier{
		logger:     logger,
		webhookURL: webhookURL,
		timing:     defaultTiming,
	}

	for _, opt := range opts {
		opt(notifier)
	}

	notifier.poster = newHTTPPoster(logger, "slack", webhookURL, "application/json", notifier.timing)

	return notifier
}

// Notify implements Notifier.
func (n *SlackNotifier) Notify(ctx context.Context, event Event) error {
	if event.Empty() {
		return nil
	}
	host := event.Host
	if host == "" {
		host = "localhost"
	}
	if err := n.poster.waitForRateLimit(ctx); err != nil {
		return err
	}

	messages := buildSlackMessages(host, event)
	for _, message := range messages {
		payload, err := json.Marshal(message)
		if err != nil {
			return fmt.Errorf("marshal slack payload: %w", err)
		}
		if err := n.poster.postWithRetry(ctx, payload); err != nil {
			return err
		}
	}

	n.logger.Debug().
		Str("host", host).
		Int("transitions", len(event.Transitions)).
		Int("messages", len(messages)).
		Msg("slack notification sent")

	return nil
}

func (n *SlackNotifier) postOnce(ctx context.Context, payload []byte) error {
	return n.poster.postOnce(ctx, payload)
}

func buildSlackMessages(host string, event Event) []slack.WebhookMessage {
	transitions := event.Transitions
	if len(transitions) == 0 {
		return []slack.WebhookMessage{buildSlackMessage(host, event, nil, 0, 1, 1)}
	}

	total := len(transitions)
	chunkTotal := (total + slackMaxTransitions - 1) / slackMaxTransitions
	messages := make([]slack.WebhookMessage, 0, chunkTotal)

	for i := 0; i < total; i += slackMaxTransitions {
		end := i + slackMaxTransitions
		if end > total {
			end = total
		}
		partIndex := (i / slackMaxTransitions) + 1
		messages = append(messages, buildSlackMessage(host, event, transitions[i:end], total, partIndex, chunkTotal))
	}
	return messages
}

func buildSlackMessage(host string, event Event, transitions []transition.CheckTransition, total int, partIndex int, partTotal int) slack.WebhookMessage {
	summary := fmt.Sprintf("Bluetooth on %s: %d check transition(s)", host, total)
	if total == 0 && event.Recovery != nil {
		summary = fmt.Sprintf("Bluetooth on %s: recovery attempted", host)
	}
	if partTotal > 1 {
		summary = fmt.Sprintf("%s (part %d/%d)", summary, partIndex, partTotal)
	}
	header := slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text", summary, false, false))
	contextElements := []slack.MixedElement{
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("Host: *%s*", host), false, false),
	}
	if partTotal > 1 {
		contextElements = append(contextElements, slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("Batch: %d/%d", partIndex, partTotal), false, false))
	}
	context := slack.NewContextBlock("", contextElements...)

	blocks := []slack.Block{header, context}
	for _, change := range transitions {
		blocks = append(blocks, buildTransitionBlock(change))
	}
	if event.Recovery != nil && partIndex == partTotal {
		blocks = append(blocks, buildRecoveryBlock(event.Recovery))
	}

	blockSet := slack.Blocks{BlockSet: blocks}
	return slack.WebhookMessage{
		Text:   summary,
		Blocks: &blockSet,
	}
}

func buildTransitionBlock(change transition.CheckTransition) slack.Block {
	title := fmt.Sprintf("*%s*: `%s` → `%s`", change.Name, statusLabel(change.Previous), statusLabel(change.Current))
	text := slack.NewTextBlockObject("mrkdwn", title, false, false)

	var fields []*slack.TextBlockObject
	if change.Detail != "" {
		fields = append(fields, slack.NewTextBlockObject("mrkdwn", "*Detail:*\n"+change.Detail, false, false))
	}

	return slack.NewSectionBlock(text, fields, nil)
}

func buildRecoveryBlock(summary *recovery.Summary) slack.Block {
	lines := make([]string, 0, len(summary.Outcomes))
	for _, outcome := range summary.Outcomes {
		label := "succeeded"
		if !outcome.Succeeded {
			label = "failed"
			if outcome.Detail != "" {
				label = "failed: " + outcome.Detail
			}
		}
		lines = append(lines, fmt.Sprintf("%s %s", outcome.Action, label))
	}
	verdict := "recovered"
	if !summary.Recovered() {
		verdict = "not recovered"
	}
	title := slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Recovery (%s):*\n• %s", verdict, strings.Join(lines, "\n• ")), false, false)
	return slack.NewSectionBlock(title, nil, nil)
}

func statusLabel(status check.Status) string {
	if status == "" {
		return "UNKNOWN"
	}
	return strings.ToUpper(string(status))
}
