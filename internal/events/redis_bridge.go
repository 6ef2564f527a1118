package events

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisBridge fans events out to other API instances over a redis
// channel and relays theirs into the local dispatcher, so live queries
// refresh no matter which instance accepted the write.
type RedisBridge struct {
	client  *redis.Client
	channel string
	origin  string
	local   Dispatcher
	logger  *zap.Logger
}

// NewRedisBridge wires a bridge around an existing local dispatcher.
func NewRedisBridge(client *redis.Client, channel string, local Dispatcher, logger *zap.Logger) *RedisBridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBridge{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		local:   local,
		logger:  logger,
	}
}

// Publish delivers locally first, then forwards to redis. A failed
// forward is logged; local subscribers have already been served.
func (b *RedisBridge) Publish(ctx context.Context, event Event) error {
	event.Origin = b.origin
	if err := b.local.Publish(ctx, event); err != nil {
		return err
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		b.logger.Warn("redis publish failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
	return nil
}

// Subscribe registers on the local dispatcher.
func (b *RedisBridge) Subscribe(eventType EventType, handler EventHandler) {
	b.local.Subscribe(eventType, handler)
}

// Run relays remote events until ctx is cancelled.
func (b *RedisBridge) Run(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	b.logger.Info("redis event bridge subscribed", zap.String("channel", b.channel))

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.Warn("dropping malformed event", zap.Error(err))
				continue
			}
			if event.Origin == b.origin {
				continue
			}
			event.Remote = true
			_ = b.local.Publish(ctx, event)
		}
	}
}
