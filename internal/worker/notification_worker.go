package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/collipulli/helpdesk/internal/events"
	"github.com/collipulli/helpdesk/internal/service"
)

const bridgeRetryDelay = 2 * time.Second

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// StartEventBridge relays events from other instances until ctx ends,
// resubscribing after connection errors.
func StartEventBridge(ctx context.Context, bridge *events.RedisBridge, logger *zap.Logger) {
	if bridge == nil {
		return
	}
	go func() {
		for {
			err := bridge.Run(ctx)
			if ctx.Err() != nil {
				return
			}
			logger.Warn("event bridge stopped; retrying", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(bridgeRetryDelay):
			}
		}
	}()
}
