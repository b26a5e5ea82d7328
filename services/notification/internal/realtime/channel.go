package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"telecare/pkg/logger"
	"telecare/services/notification/internal/entity"

	"github.com/redis/go-redis/v9"
)

const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
)

const (
	TableNotifications       = "notifications"
	TableNotificationActions = "notification_actions"
)

// ChangeEvent is the envelope delivered on a user's notification channel.
// Delivery is at least once and only loosely ordered relative to direct
// gateway calls; consumers must merge idempotently by row id.
type ChangeEvent struct {
	EventType   string          `json:"event_type"`
	EntityTable string          `json:"entity_table"`
	Row         json.RawMessage `json:"row"`
}

func (e ChangeEvent) Notification() (entity.Notification, error) {
	var n entity.Notification
	if err := json.Unmarshal(e.Row, &n); err != nil {
		return entity.Notification{}, fmt.Errorf("failed to decode notification row: %w", err)
	}
	return n, nil
}

func (e ChangeEvent) Action() (entity.NotificationAction, error) {
	var a entity.NotificationAction
	if err := json.Unmarshal(e.Row, &a); err != nil {
		return entity.NotificationAction{}, fmt.Errorf("failed to decode action row: %w", err)
	}
	return a, nil
}

// Publisher pushes change events onto a user's channel.
type Publisher interface {
	PublishChange(ctx context.Context, userID string, event ChangeEvent) error
}

// Channel delivers a user's change events. The returned cancel func closes
// the subscription and the events channel.
type Channel interface {
	Subscribe(ctx context.Context, userID string) (<-chan ChangeEvent, func(), error)
}

func channelKey(userID string) string {
	return fmt.Sprintf("notifications:%s", userID)
}

// RedisChannel implements Publisher and Channel over Redis pub/sub, one
// channel per user.
type RedisChannel struct {
	client *redis.Client
	logger *logger.Logger
}

func NewRedisChannel(client *redis.Client, log *logger.Logger) *RedisChannel {
	return &RedisChannel{client: client, logger: log}
}

func (r *RedisChannel) PublishChange(ctx context.Context, userID string, event ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}

	if err := r.client.Publish(ctx, channelKey(userID), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}

	return nil
}

func (r *RedisChannel) Subscribe(ctx context.Context, userID string) (<-chan ChangeEvent, func(), error) {
	pubsub := r.client.Subscribe(ctx, channelKey(userID))

	// Force the subscription to be established before we report success.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe to channel for user %s: %w", userID, err)
	}

	events := make(chan ChangeEvent, 16)
	done := make(chan struct{})

	go func() {
		defer close(events)
		redisChannel := pubsub.Channel()
		for {
			select {
			case <-done:
				return
			case msg, ok := <-redisChannel:
				if !ok {
					return
				}
				var event ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					r.logger.Warn("Dropping malformed change event for user %s: %v", userID, err)
					continue
				}
				select {
				case events <- event:
				case <-done:
					return
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			pubsub.Close()
		})
	}

	return events, cancel, nil
}
