package mq

import (
	"context"
	"encoding/json"
)

// notificationsChannel is the queue/topic notification events travel on.
const notificationsChannel = "notifications"

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID   string
	Data []byte
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker-agnostic operations used by the app. All
// payloads are JSON.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// NotificationEvent is the wire payload for an in-app notification.
// Producers (friend invites, group joins) publish events; the
// dispatcher consumes them and persists notification rows.
type NotificationEvent struct {
	UserID  int    `json:"user_id"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Bus carries notification events over the configured backend.
type Bus struct {
	backend Backend
}

// NewBus constructs a Bus for the provided backend.
func NewBus(backend Backend) *Bus {
	return &Bus{backend: backend}
}

// PublishNotification sends one notification event.
func (b *Bus) PublishNotification(ctx context.Context, event NotificationEvent) (string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", err
	}
	return b.backend.Publish(ctx, notificationsChannel, data)
}

// SubscribeNotifications consumes notification events until ctx is
// cancelled. Malformed payloads are acked and dropped; handler errors
// nack for redelivery.
func (b *Bus) SubscribeNotifications(ctx context.Context, handle func(ctx context.Context, event NotificationEvent) error) error {
	return b.backend.Subscribe(ctx, notificationsChannel, func(ctx context.Context, msg Message) error {
		var event NotificationEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return nil
		}
		return handle(ctx, event)
	})
}

// Close closes the underlying backend.
func (b *Bus) Close() error {
	return b.backend.Close()
}
