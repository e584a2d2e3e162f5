package notify

import (
	"context"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-ingest/internal/config"
)

// Alerter posts a text alert to the outbound chat channel. Implementations
// must be soft-failing: a false return is the only signal of trouble, and no
// failure may propagate into the caller's transaction.
type Alerter interface {
	Alert(ctx context.Context, text string) bool
}

// SlackAlerter delivers alerts through an incoming-webhook URL.
type SlackAlerter struct {
	cfg    config.AlertConfig
	logger *zap.Logger
}

// NewSlackAlerter builds the alerter. An empty webhook URL disables delivery
// at call time rather than at startup.
func NewSlackAlerter(cfg config.AlertConfig, logger *zap.Logger) *SlackAlerter {
	return &SlackAlerter{cfg: cfg, logger: logger}
}

// Alert posts the text payload. Missing configuration, a non-success
// response and network errors are all logged and reported as false.
func (a *SlackAlerter) Alert(ctx context.Context, text string) bool {
	if a.cfg.WebhookURL == "" {
		a.logger.Warn("ALERT_WEBHOOK_URL not set; skipping alert")
		return false
	}

	err := slack.PostWebhookContext(ctx, a.cfg.WebhookURL, &slack.WebhookMessage{Text: text})
	if err != nil {
		a.logger.Error("post webhook alert", zap.Error(err))
		return false
	}
	return true
}
