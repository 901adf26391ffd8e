package model

import "time"

// NotificationType classifies a notification for the client UI.
type NotificationType string

const (
	NotificationApplicationReceived NotificationType = "APPLICATION_RECEIVED"
	NotificationApplicationAccepted NotificationType = "APPLICATION_ACCEPTED"
	NotificationApplicationRejected NotificationType = "APPLICATION_REJECTED"
	NotificationProjectCompleted    NotificationType = "PROJECT_COMPLETED"
	NotificationReportStatusChanged NotificationType = "REPORT_STATUS_CHANGED"
	NotificationNewMessage          NotificationType = "NEW_MESSAGE"
)

// Notification is a message shown to a single user.  Only Read ever changes
// after creation.
type Notification struct {
	ID        uint64           `json:"id"`
	EventID   string           `json:"-"`
	UserID    uint64           `json:"user_id"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"timestamp"`
}

// OutboxMessage is a notification waiting to be dispatched.  Rows are written
// in the same transaction as the state change that produced them and are
// marked published by the relay once the broker has accepted them.  A row
// that keeps failing is dead-lettered by setting FailedAt; it is then no
// longer pending.
type OutboxMessage struct {
	ID          uint64
	EventID     string
	RecipientID uint64
	Message     string
	Type        NotificationType
	Attempts    int
	CreatedAt   time.Time
	PublishedAt *time.Time
	FailedAt    *time.Time
}
