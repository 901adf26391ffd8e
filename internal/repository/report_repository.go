package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/freelance-marketplace/internal/model"
)

// ReportRepo manages the 'reports' table.
type ReportRepo struct{ q DBTX }

const reportSelect = `SELECT r.id, r.project_id, p.title, r.reporter_id, u.username, r.description,
       r.status, r.admin_response, r.created_at
  FROM reports r
  JOIN projects p ON p.id = r.project_id
  JOIN users u ON u.id = r.reporter_id`

// Create files rep.  Status defaults to PENDING.
func (r *ReportRepo) Create(ctx context.Context, rep *model.Report) error {
	if rep.Status == "" {
		rep.Status = model.ReportPending
	}
	const q = `INSERT INTO reports (project_id, reporter_id, description, status) VALUES (?, ?, ?, ?)`
	res, err := r.q.ExecContext(ctx, q, rep.ProjectID, rep.ReporterID, rep.Description, string(rep.Status))
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rep.ID = uint64(id)
	return nil
}

// GetByID returns ErrNotFound for an unknown id.
func (r *ReportRepo) GetByID(ctx context.Context, id uint64) (*model.Report, error) {
	return scanReport(r.q.QueryRowContext(ctx, reportSelect+" WHERE r.id = ?", id))
}

// List returns every report, newest first.
func (r *ReportRepo) List(ctx context.Context) ([]model.Report, error) {
	rows, err := r.q.QueryContext(ctx, reportSelect+" ORDER BY r.created_at DESC, r.id DESC")
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	var out []model.Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rep)
	}
	return out, rows.Err()
}

// UpdateStatus sets the status and, when adminResponse is non-nil, the
// administrator's answer.
func (r *ReportRepo) UpdateStatus(ctx context.Context, id uint64, status model.ReportStatus, adminResponse *string) error {
	if adminResponse == nil {
		return updateRow(ctx, r.q, "reports", id,
			`UPDATE reports SET status = ? WHERE id = ?`, string(status), id)
	}
	return updateRow(ctx, r.q, "reports", id,
		`UPDATE reports SET status = ?, admin_response = ? WHERE id = ?`, string(status), *adminResponse, id)
}

func scanReport(s scanner) (*model.Report, error) {
	var (
		rep    model.Report
		status string
		resp   sql.NullString
	)
	err := s.Scan(&rep.ID, &rep.ProjectID, &rep.ProjectTitle, &rep.ReporterID, &rep.ReporterUsername,
		&rep.Description, &status, &resp, &rep.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	rep.Status = model.ReportStatus(status)
	if resp.Valid {
		v := resp.String
		rep.AdminResponse = &v
	}
	return &rep, nil
}
