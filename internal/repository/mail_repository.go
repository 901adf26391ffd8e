package repository

import (
	"context"
	"strings"

	"github.com/iliyamo/freelance-marketplace/internal/model"
)

// MailRepo manages the 'mails' audit table.
type MailRepo struct{ q DBTX }

// Create appends m to the log and sets its ID.
func (r *MailRepo) Create(ctx context.Context, m *model.MailRecord) error {
	const q = `INSERT INTO mails (recipient, subject, content, mail_type, sent, sent_at) VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.q.ExecContext(ctx, q, m.Recipient, m.Subject, m.Content, string(m.Type), m.Sent, m.SentAt)
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

// List returns the records matching f, most recent first.
func (r *MailRepo) List(ctx context.Context, f MailFilter) ([]model.MailRecord, error) {
	var (
		where []string
		args  []any
	)
	if f.Sent != nil {
		where = append(where, "sent = ?")
		args = append(args, *f.Sent)
	}
	if f.Recipient != "" {
		where = append(where, "recipient = ?")
		args = append(args, f.Recipient)
	}
	q := `SELECT id, recipient, subject, content, mail_type, sent, sent_at FROM mails`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY sent_at DESC, id DESC"

	rows, err := r.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	var out []model.MailRecord
	for rows.Next() {
		var (
			m   model.MailRecord
			typ string
		)
		if err := rows.Scan(&m.ID, &m.Recipient, &m.Subject, &m.Content, &typ, &m.Sent, &m.SentAt); err != nil {
			return nil, err
		}
		m.Type = model.MailType(typ)
		out = append(out, m)
	}
	return out, rows.Err()
}
