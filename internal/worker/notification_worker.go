package worker

import (
	"context"

	"github.com/spec-kit/attendance-service/internal/service"
)

// StartNotificationWorker subscribes the notification handlers and starts
// sink delivery in the background. The returned channel is closed once
// delivery has stopped and the outbox is flushed, which happens after ctx
// is cancelled.
func StartNotificationWorker(ctx context.Context, notificationService *service.NotificationService) <-chan struct{} {
	done := make(chan struct{})
	if notificationService == nil {
		close(done)
		return done
	}
	notificationService.RegisterHandlers()
	go func() {
		defer close(done)
		notificationService.Run(ctx)
	}()
	return done
}
