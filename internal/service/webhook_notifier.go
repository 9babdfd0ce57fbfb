package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kubikportal/portal-service/internal/config"
	"github.com/kubikportal/portal-service/internal/events"
)

const webhookTimeout = 10 * time.Second

// WebhookNotifier forwards every domain event to a configured HTTP endpoint.
// Like email delivery it is best-effort: failures are logged and swallowed.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewWebhookNotifier builds the notifier; a nil is returned when no endpoint
// is configured so callers can skip registration.
func NewWebhookNotifier(cfg config.NotificationConfig, logger *zap.Logger) *WebhookNotifier {
	if cfg.WebhookURL == "" {
		return nil
	}
	return &WebhookNotifier{
		url:    cfg.WebhookURL,
		client: &http.Client{Timeout: webhookTimeout},
		logger: logger,
	}
}

// Register subscribes the notifier to every event type.
func (n *WebhookNotifier) Register(dispatcher events.Dispatcher) {
	if n == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventUserRegistered,
		events.EventUserApproved,
		events.EventUserRejected,
		events.EventTicketCreated,
		events.EventTicketStatusChanged,
		events.EventTicketMessageAdded,
		events.EventInvoiceCreated,
		events.EventInvoicePaid,
	} {
		dispatcher.Subscribe(eventType, n.forward)
	}
}

func (n *WebhookNotifier) forward(ctx context.Context, event events.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		n.logger.Warn("webhook payload marshal failed", zap.String("event", string(event.Type)), zap.Error(err))
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		n.logger.Warn("webhook request build failed", zap.Error(err))
		return nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("webhook delivery failed", zap.String("event", string(event.Type)), zap.Error(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		n.logger.Warn("webhook endpoint rejected event",
			zap.String("event", string(event.Type)),
			zap.Int("status", resp.StatusCode))
	}
	return nil
}
