package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/freelance-marketplace/internal/model"
)

// NotificationRepo manages the 'notifications' table.
type NotificationRepo struct{ q DBTX }

// Create inserts n.  INSERT IGNORE on the unique event_id makes a
// redelivered event a no-op; n.ID stays zero in that case.
func (r *NotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	var eventID sql.NullString
	if n.EventID != "" {
		eventID = sql.NullString{String: n.EventID, Valid: true}
	}
	const q = `INSERT IGNORE INTO notifications (event_id, user_id, message, type) VALUES (?, ?, ?, ?)`
	res, err := r.q.ExecContext(ctx, q, eventID, n.UserID, n.Message, string(n.Type))
	if err != nil {
		return translate(err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = uint64(id)
	return nil
}

// ListByUser returns the user's notifications newest first.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Notification, error) {
	const q = `SELECT id, COALESCE(event_id, ''), user_id, message, type, is_read, created_at
  FROM notifications WHERE user_id = ? ORDER BY created_at DESC, id DESC`
	rows, err := r.q.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	var out []model.Notification
	for rows.Next() {
		var (
			n   model.Notification
			typ string
		)
		if err := rows.Scan(&n.ID, &n.EventID, &n.UserID, &n.Message, &typ, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Type = model.NotificationType(typ)
		out = append(out, n)
	}
	return out, rows.Err()
}

// CountUnread counts the user's notifications with is_read unset.
func (r *NotificationRepo) CountUnread(ctx context.Context, userID uint64) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = FALSE`, userID).Scan(&n)
	return n, translate(err)
}

// MarkRead flags one notification as read.  A notification owned by
// another user is reported as ErrNotFound.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, userID uint64) error {
	var owner uint64
	err := r.q.QueryRowContext(ctx, `SELECT user_id FROM notifications WHERE id = ?`, id).Scan(&owner)
	if err != nil {
		return notFound(err)
	}
	if owner != userID {
		return ErrNotFound
	}
	_, err = r.q.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = ?`, id)
	return translate(err)
}

// MarkAllRead flags every notification of the user.  A user with no
// notifications is not an error.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID uint64) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE user_id = ? AND is_read = FALSE`, userID)
	return translate(err)
}
