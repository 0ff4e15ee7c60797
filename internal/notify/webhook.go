package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/rs/zerolog"
)

const defaultWebhookTemplate = `{
  "host": {{ toJson .Host }},
  "occurred_at": {{ toJson (.OccurredAt.Format "2006-01-02T15:04:05Z07:00") }},
  "transitions": {{ toJson .Transitions }}{{ if .Recovery }},
  "recovery": {{ toJson .Recovery }}{{ end }}
}`

// WebhookNotifier posts events to a generic HTTP endpoint. The payload
// is rendered from a JSON template so receivers with fixed schemas can
// be accommodated without code changes.
type WebhookNotifier struct {
	poster   *httpPoster
	template *template.Template
}

// NewWebhookNotifier returns a notifier that posts JSON payloads to
// webhookURL. An empty templateText selects the default payload.
func NewWebhookNotifier(logger zerolog.Logger, webhookURL, templateText string) (*WebhookNotifier, error) {
	if templateText == "" {
		templateText = defaultWebhookTemplate
	}
	tmpl, err := template.New("webhook").Funcs(template.FuncMap{
		"toJson": func(v any) (string, error) {
			data, err := json.Marshal(v)
			if err != nil {
				return "", err
			}
			return string(data), nil
		},
	}).Parse(templateText)
	if err != nil {
		return nil, fmt.Errorf("parse webhook template: %w", err)
	}

	return &WebhookNotifier{
		poster:   newHTTPPoster(logger, "webhook", webhookURL, "application/json", defaultTiming),
		template: tmpl,
	}, nil
}

func (n *WebhookNotifier) Notify(ctx context.Context, event Event) error {
	if event.Empty() {
		return nil
	}
	if err := n.poster.waitForRateLimit(ctx); err != nil {
		return fmt.Errorf("webhook rate limit wait: %w", err)
	}

	var payload bytes.Buffer
	if err := n.template.Execute(&payload, event); err != nil {
		return fmt.Errorf("render webhook payload: %w", err)
	}
	if !json.Valid(payload.Bytes()) {
		return fmt.Errorf("webhook payload is not valid JSON")
	}

	if err := n.poster.postWithRetry(ctx, payload.Bytes()); err != nil {
		n.poster.logger.Error().Err(err).Msg("webhook notification failed")
		return err
	}
	n.poster.logger.Debug().Int("transitions", len(event.Transitions)).Msg("webhook notification sent")
	return nil
}
