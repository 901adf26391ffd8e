package service

import (
	"context"

	"github.com/iliyamo/freelance-marketplace/internal/metrics"
	"github.com/iliyamo/freelance-marketplace/internal/model"
	"github.com/iliyamo/freelance-marketplace/internal/repository"
)

// NotificationService is the notification sink and the per-user inbox.
type NotificationService struct {
	notifications repository.NotificationRepository
}

// NewNotificationService returns the sink and inbox over notifications.
func NewNotificationService(notifications repository.NotificationRepository) *NotificationService {
	return &NotificationService{notifications: notifications}
}

// Record stores n.  Recording the same event id twice keeps one row.
func (s *NotificationService) Record(ctx context.Context, n model.Notification) error {
	if err := s.notifications.Create(ctx, &n); err != nil {
		return err
	}
	if n.ID != 0 {
		metrics.RecordNotification()
	}
	return nil
}

// List returns the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID uint64) ([]model.Notification, error) {
	return s.notifications.ListByUser(ctx, userID)
}

// UnreadCount counts the user's unread notifications.
func (s *NotificationService) UnreadCount(ctx context.Context, userID uint64) (int, error) {
	return s.notifications.CountUnread(ctx, userID)
}

// MarkRead flags one of the user's own notifications.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint64) error {
	return s.notifications.MarkRead(ctx, id, userID)
}

// MarkAllRead flags every notification of the user.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint64) error {
	return s.notifications.MarkAllRead(ctx, userID)
}
