package worker

import (
	"github.com/spec-kit/ticket-billing/internal/service"
)

// StartNotificationWorker registers notification handlers for billing events.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
