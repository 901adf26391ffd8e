// Package queue moves notifications from the outbox to the notification
// sink through RabbitMQ.  Delivery is at least once; the sink drops
// duplicates by event id.
package queue

import (
	"time"

	"github.com/iliyamo/freelance-marketplace/internal/model"
)

// NotificationEvent is the message body published for one outbox row.
type NotificationEvent struct {
	EventID     string                 `json:"event_id"`
	RecipientID uint64                 `json:"recipient_id"`
	Message     string                 `json:"message"`
	Type        model.NotificationType `json:"type"`
	CreatedAt   time.Time              `json:"created_at"`
}

// EventFromOutbox converts an outbox row.
func EventFromOutbox(m model.OutboxMessage) NotificationEvent {
	return NotificationEvent{
		EventID:     m.EventID,
		RecipientID: m.RecipientID,
		Message:     m.Message,
		Type:        m.Type,
		CreatedAt:   m.CreatedAt,
	}
}

// Notification returns the row the sink stores for ev.
func (ev NotificationEvent) Notification() model.Notification {
	return model.Notification{
		EventID:   ev.EventID,
		UserID:    ev.RecipientID,
		Message:   ev.Message,
		Type:      ev.Type,
		CreatedAt: ev.CreatedAt,
	}
}
