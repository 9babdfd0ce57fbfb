package worker

import (
	"github.com/kubikportal/portal-service/internal/events"
	"github.com/kubikportal/portal-service/internal/service"
)

// StartNotificationWorker subscribes the notification service to the event
// dispatcher.
func StartNotificationWorker(notifications *service.NotificationService, dispatcher events.Dispatcher) {
	if notifications == nil || dispatcher == nil {
		return
	}
	notifications.Register(dispatcher)
}
