package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/freelance-marketplace/internal/model"
)

// ApplicationRepo manages persistence for applications.
type ApplicationRepo struct{ q DBTX }

const applicationSelect = `SELECT a.id, a.project_id, p.title, a.freelancer_id, u.username,
       a.cover_letter, a.attachment_key, a.status, a.created_at
  FROM applications a
  JOIN projects p ON p.id = a.project_id
  JOIN users u ON u.id = a.freelancer_id`

// Create inserts a.  A second application by the same freelancer to the
// same project violates uq_app_project_freelancer and yields ErrConflict.
func (r *ApplicationRepo) Create(ctx context.Context, a *model.Application) error {
	if a.Status == "" {
		a.Status = model.ApplicationWaiting
	}
	const q = `INSERT INTO applications (project_id, freelancer_id, cover_letter, attachment_key, status) VALUES (?, ?, ?, ?, ?)`
	res, err := r.q.ExecContext(ctx, q, a.ProjectID, a.FreelancerID, a.CoverLetter, a.AttachmentKey, string(a.Status))
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

// GetByID returns ErrNotFound for an unknown id.
func (r *ApplicationRepo) GetByID(ctx context.Context, id uint64) (*model.Application, error) {
	return scanApplication(r.q.QueryRowContext(ctx, applicationSelect+" WHERE a.id = ?", id))
}

// GetByIDForUpdate locks the application row.  Joined columns are left
// empty.
func (r *ApplicationRepo) GetByIDForUpdate(ctx context.Context, id uint64) (*model.Application, error) {
	const q = `SELECT id, project_id, '', freelancer_id, '', cover_letter, attachment_key, status, created_at
  FROM applications WHERE id = ? FOR UPDATE`
	return scanApplication(r.q.QueryRowContext(ctx, q, id))
}

// UpdateStatus sets the status.  Rewriting the current status succeeds.
func (r *ApplicationRepo) UpdateStatus(ctx context.Context, id uint64, status model.ApplicationStatus) error {
	return updateRow(ctx, r.q, "applications", id,
		`UPDATE applications SET status = ? WHERE id = ?`, string(status), id)
}

// ListWaitingSiblingsForUpdate locks and returns the other WAITING
// applications of projectID in id order.
func (r *ApplicationRepo) ListWaitingSiblingsForUpdate(ctx context.Context, projectID, exceptID uint64) ([]model.Application, error) {
	const q = `SELECT id, project_id, '', freelancer_id, '', cover_letter, attachment_key, status, created_at
  FROM applications WHERE project_id = ? AND id <> ? AND status = ? ORDER BY id FOR UPDATE`
	return r.query(ctx, q, projectID, exceptID, string(model.ApplicationWaiting))
}

// Delete removes the application and returns ErrNotFound if it was absent.
func (r *ApplicationRepo) Delete(ctx context.Context, id uint64) error {
	return affectedOrNotFound(r.q.ExecContext(ctx, `DELETE FROM applications WHERE id = ?`, id))
}

// List returns applications matching f, newest first.
func (r *ApplicationRepo) List(ctx context.Context, f ApplicationFilter) ([]model.Application, error) {
	var (
		where []string
		args  []any
	)
	if f.ProjectID != 0 {
		where = append(where, "a.project_id = ?")
		args = append(args, f.ProjectID)
	}
	if f.FreelancerID != 0 {
		where = append(where, "a.freelancer_id = ?")
		args = append(args, f.FreelancerID)
	}
	if f.ClientID != 0 {
		where = append(where, "p.client_id = ?")
		args = append(args, f.ClientID)
	}
	if f.Status != "" {
		where = append(where, "a.status = ?")
		args = append(args, string(f.Status))
	}
	q := applicationSelect
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY a.created_at DESC, a.id DESC"
	return r.query(ctx, q, args...)
}

func (r *ApplicationRepo) query(ctx context.Context, q string, args ...any) ([]model.Application, error) {
	rows, err := r.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	var out []model.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func scanApplication(s scanner) (*model.Application, error) {
	var (
		a      model.Application
		key    sql.NullString
		status string
	)
	err := s.Scan(&a.ID, &a.ProjectID, &a.ProjectTitle, &a.FreelancerID, &a.FreelancerName,
		&a.CoverLetter, &key, &status, &a.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	if key.Valid {
		k := key.String
		a.AttachmentKey = &k
	}
	a.Status = model.ApplicationStatus(status)
	return &a, nil
}
