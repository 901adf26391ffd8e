package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/freelance-marketplace/internal/model"
)

// OutboxRepo stores notifications that still have to reach the broker.
type OutboxRepo struct{ q DBTX }

// Enqueue inserts a pending row with zero attempts.
func (r *OutboxRepo) Enqueue(ctx context.Context, m *model.OutboxMessage) error {
	const q = `INSERT INTO notification_outbox (event_id, recipient_id, message, type) VALUES (?, ?, ?, ?)`
	res, err := r.q.ExecContext(ctx, q, m.EventID, m.RecipientID, m.Message, string(m.Type))
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

// ListPending returns up to limit rows neither published nor dead-lettered,
// oldest first.
func (r *OutboxRepo) ListPending(ctx context.Context, limit int) ([]model.OutboxMessage, error) {
	const q = `SELECT id, event_id, recipient_id, message, type, attempts, created_at, published_at
  FROM notification_outbox WHERE published_at IS NULL AND failed_at IS NULL ORDER BY id LIMIT ?`
	rows, err := r.q.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	var out []model.OutboxMessage
	for rows.Next() {
		var (
			m         model.OutboxMessage
			typ       string
			published sql.NullTime
		)
		if err := rows.Scan(&m.ID, &m.EventID, &m.RecipientID, &m.Message, &typ, &m.Attempts, &m.CreatedAt, &published); err != nil {
			return nil, err
		}
		m.Type = model.NotificationType(typ)
		if published.Valid {
			t := published.Time
			m.PublishedAt = &t
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MarkPublished stamps published_at so the row leaves the pending set.
func (r *OutboxRepo) MarkPublished(ctx context.Context, id uint64, at time.Time) error {
	return affectedOrNotFound(r.q.ExecContext(ctx,
		`UPDATE notification_outbox SET published_at = ? WHERE id = ?`, at, id))
}

// MarkAttempt counts a failed publish.
func (r *OutboxRepo) MarkAttempt(ctx context.Context, id uint64) error {
	return affectedOrNotFound(r.q.ExecContext(ctx,
		`UPDATE notification_outbox SET attempts = attempts + 1 WHERE id = ?`, id))
}

// MarkFailed stamps failed_at.  ListPending skips such rows.
func (r *OutboxRepo) MarkFailed(ctx context.Context, id uint64, at time.Time) error {
	return updateRow(ctx, r.q, "notification_outbox", id,
		`UPDATE notification_outbox SET failed_at = ? WHERE id = ?`, at, id)
}
