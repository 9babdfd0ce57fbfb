package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kubikportal/portal-service/internal/domain"
	"github.com/kubikportal/portal-service/internal/events"
)

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = dispatcher.Publish(ctx, event)
}

func eventActor(u *domain.User) events.Actor {
	if u == nil {
		// system-triggered events (billing runs, sweeps) carry no actor
		return events.Actor{}
	}
	id := u.ID
	return events.Actor{Role: u.Role(), UserID: &id}
}

// stringPreview truncates to at most max runes, never splitting a
// multi-byte character.
func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
