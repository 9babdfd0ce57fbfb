package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kubikportal/portal-service/internal/config"
	"github.com/kubikportal/portal-service/internal/events"
)

func TestWebhookNotifierForwardsEvents(t *testing.T) {
	received := make(chan events.Event, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var event events.Event
		require.NoError(t, json.Unmarshal(body, &event))
		received <- event
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(config.NotificationConfig{WebhookURL: server.URL}, zap.NewNop())
	require.NotNil(t, notifier)
	dispatcher := events.NewInMemoryDispatcher()
	notifier.Register(dispatcher)

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{
		ID:       "evt-1",
		Type:     events.EventInvoicePaid,
		EntityID: "inv-1",
	}))

	select {
	case event := <-received:
		assert.Equal(t, events.EventInvoicePaid, event.Type)
		assert.Equal(t, "inv-1", event.EntityID)
	default:
		t.Fatal("webhook endpoint was not called")
	}
}

func TestWebhookNotifierDisabledWithoutURL(t *testing.T) {
	notifier := NewWebhookNotifier(config.NotificationConfig{}, zap.NewNop())
	assert.Nil(t, notifier)

	// registration on a nil notifier is a safe no-op
	notifier.Register(events.NewInMemoryDispatcher())
}
