package services

import (
	"context"
	"log"

	"github.com/progress2win/apiserver/internal/mq"
	"github.com/progress2win/apiserver/types"
)

// NotificationRepository defines persistence operations for
// notifications.
type NotificationRepository interface {
	Create(ctx context.Context, notification types.Notification) (types.Notification, error)
	List(ctx context.Context, userID int, unreadOnly bool, limit, offset int) ([]types.Notification, error)
	MarkRead(ctx context.Context, userID, id int) error
	Delete(ctx context.Context, userID, id int) error
}

// NotificationService encapsulates notification use-cases. When a bus
// is configured, producer-side events travel through the broker and
// Run persists them; without one, Notify writes rows directly.
type NotificationService struct {
	repo NotificationRepository
	bus  *mq.Bus
}

func NewNotificationService(repo NotificationRepository, bus *mq.Bus) *NotificationService {
	return &NotificationService{repo: repo, bus: bus}
}

func (s *NotificationService) List(ctx context.Context, userID int, unreadOnly bool, limit, offset int) ([]types.Notification, error) {
	return s.repo.List(ctx, userID, unreadOnly, limit, offset)
}

func (s *NotificationService) Create(ctx context.Context, notification types.Notification) (types.Notification, error) {
	if notification.Title == "" || notification.Message == "" {
		return types.Notification{}, validationError("title and message are required")
	}
	if notification.Type == "" {
		notification.Type = types.NotificationTypeInfo
	}
	return s.repo.Create(ctx, notification)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id int) error {
	return s.repo.MarkRead(ctx, userID, id)
}

func (s *NotificationService) Delete(ctx context.Context, userID, id int) error {
	return s.repo.Delete(ctx, userID, id)
}

// Notify delivers an application-generated notification to a user,
// through the bus when one is configured.
func (s *NotificationService) Notify(ctx context.Context, event mq.NotificationEvent) error {
	if s.bus != nil {
		_, err := s.bus.PublishNotification(ctx, event)
		return err
	}
	_, err := s.repo.Create(ctx, types.Notification{
		UserID:  event.UserID,
		Title:   event.Title,
		Message: event.Message,
		Type:    event.Type,
	})
	return err
}

// Run consumes notification events from the bus and persists them.
// It blocks until ctx is cancelled. A nil bus makes Run a no-op.
func (s *NotificationService) Run(ctx context.Context) error {
	if s.bus == nil {
		return nil
	}
	return s.bus.SubscribeNotifications(ctx, func(ctx context.Context, event mq.NotificationEvent) error {
		if _, err := s.repo.Create(ctx, types.Notification{
			UserID:  event.UserID,
			Title:   event.Title,
			Message: event.Message,
			Type:    event.Type,
		}); err != nil {
			log.Printf("persist notification event: %v", err)
			return err
		}
		return nil
	})
}
