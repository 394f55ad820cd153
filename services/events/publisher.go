package events

import (
	"context"
	"encoding/json"
	"fmt"

	"wayfarer/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Publisher emits session events.
type Publisher interface {
	Publish(ctx context.Context, event models.Event) error
}

// Subscriber streams the events of one session.
type Subscriber interface {
	Subscribe(ctx context.Context, sessionID string) (<-chan models.Event, error)
}

// Channel returns the per-session channel name.
func Channel(namespace, sessionID string) string {
	return fmt.Sprintf("%s:poi:events:%s", namespace, sessionID)
}

// RedisBus publishes and subscribes over Redis pub/sub.
type RedisBus struct {
	client    *redis.Client
	namespace string
	logger    *zap.Logger
}

func NewRedisBus(client *redis.Client, namespace string, logger *zap.Logger) *RedisBus {
	return &RedisBus{client: client, namespace: namespace, logger: logger}
}

// Publish is fire-and-forget: Redis reports no delivery and the receiver
// count is ignored.
func (b *RedisBus) Publish(ctx context.Context, event models.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, Channel(b.namespace, event.SessionID), payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Subscribe returns once the subscription is confirmed. The returned channel
// is closed when ctx ends.
func (b *RedisBus) Subscribe(ctx context.Context, sessionID string) (<-chan models.Event, error) {
	channel := Channel(b.namespace, sessionID)
	sub := b.client.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	out := make(chan models.Event)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var event models.Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					b.logger.Warn("Dropping undecodable event", zap.String("channel", channel), zap.Error(err))
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
