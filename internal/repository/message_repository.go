package repository

import (
	"context"

	"github.com/iliyamo/freelance-marketplace/internal/model"
)

// MessageRepo stores project chat messages.
type MessageRepo struct{ q DBTX }

// Create stores m and fills in its ID.
func (r *MessageRepo) Create(ctx context.Context, m *model.Message) error {
	const q = `INSERT INTO messages (project_id, sender_id, content) VALUES (?, ?, ?)`
	res, err := r.q.ExecContext(ctx, q, m.ProjectID, m.SenderID, m.Content)
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

// ListByProject returns the conversation oldest first.
func (r *MessageRepo) ListByProject(ctx context.Context, projectID uint64) ([]model.Message, error) {
	const q = `SELECT m.id, m.project_id, m.sender_id, u.username, m.content, m.is_read, m.created_at
  FROM messages m JOIN users u ON u.id = m.sender_id
 WHERE m.project_id = ? ORDER BY m.created_at, m.id`
	rows, err := r.q.QueryContext(ctx, q, projectID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	var out []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.SenderID, &m.SenderName, &m.Content, &m.Read, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
