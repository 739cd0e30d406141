package worker

import (
	"context"

	"github.com/spec-kit/listing-bot/internal/service"
)

// StartNotificationWorker subscribes the notification handlers, then starts the
// lanes they enqueue onto. The returned func drains the lanes.
func StartNotificationWorker(ctx context.Context, notificationService *service.NotificationService, lanes *Dispatcher) func() {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	lanes.Start(ctx)
	return lanes.Stop
}
