package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/freelance-marketplace/internal/model"
)

// ProjectRepo manages persistence for projects.
type ProjectRepo struct{ q DBTX }

const projectSelect = `SELECT p.id, p.title, p.description, p.budget, p.deadline, p.client_id, u.username,
       p.freelancer_id, p.status, p.created_at
  FROM projects p JOIN users u ON u.id = p.client_id`

// Create inserts p.  Status defaults to PENDING when empty.
func (r *ProjectRepo) Create(ctx context.Context, p *model.Project) error {
	if p.Status == "" {
		p.Status = model.ProjectPending
	}
	const q = `INSERT INTO projects (title, description, budget, deadline, client_id, status) VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.q.ExecContext(ctx, q, p.Title, p.Description, p.Budget, p.Deadline, p.ClientID, string(p.Status))
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// GetByID loads the project joined with its client and freelancer names.
func (r *ProjectRepo) GetByID(ctx context.Context, id uint64) (*model.Project, error) {
	return scanProject(r.q.QueryRowContext(ctx, projectSelect+" WHERE p.id = ?", id))
}

// GetByIDForUpdate locks the project row for the rest of the transaction.
// The join is left out because MySQL would lock the client row as well.
func (r *ProjectRepo) GetByIDForUpdate(ctx context.Context, id uint64) (*model.Project, error) {
	const q = `SELECT id, title, description, budget, deadline, client_id, '', freelancer_id, status, created_at
  FROM projects WHERE id = ? FOR UPDATE`
	return scanProject(r.q.QueryRowContext(ctx, q, id))
}

// Update rewrites the editable fields of p.
func (r *ProjectRepo) Update(ctx context.Context, p *model.Project) error {
	const q = `UPDATE projects SET title = ?, description = ?, budget = ?, deadline = ? WHERE id = ?`
	return updateRow(ctx, r.q, "projects", p.ID, q, p.Title, p.Description, p.Budget, p.Deadline, p.ID)
}

// UpdateStatus writes status without checking the transition table.
func (r *ProjectRepo) UpdateStatus(ctx context.Context, id uint64, status model.ProjectStatus) error {
	return updateRow(ctx, r.q, "projects", id,
		`UPDATE projects SET status = ? WHERE id = ?`, string(status), id)
}

// AssignFreelancer sets freelancer_id.
func (r *ProjectRepo) AssignFreelancer(ctx context.Context, id, freelancerID uint64) error {
	return updateRow(ctx, r.q, "projects", id,
		`UPDATE projects SET freelancer_id = ? WHERE id = ?`, freelancerID, id)
}

// Delete removes the project; its applications, reports and messages go
// with it through ON DELETE CASCADE.
func (r *ProjectRepo) Delete(ctx context.Context, id uint64) error {
	return affectedOrNotFound(r.q.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id))
}

// List returns projects matching f, newest first.
func (r *ProjectRepo) List(ctx context.Context, f ProjectFilter) ([]model.Project, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "p.status = ?")
		args = append(args, string(f.Status))
	}
	if f.ClientID != 0 {
		where = append(where, "p.client_id = ?")
		args = append(args, f.ClientID)
	}
	if f.FreelancerID != 0 {
		where = append(where, "p.freelancer_id = ?")
		args = append(args, f.FreelancerID)
	}
	if t := strings.TrimSpace(f.TitleLike); t != "" {
		where = append(where, "LOWER(p.title) LIKE ?")
		args = append(args, "%"+strings.ToLower(t)+"%")
	}
	q := projectSelect
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY p.created_at DESC, p.id DESC"

	rows, err := r.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	var out []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func scanProject(s scanner) (*model.Project, error) {
	var (
		p          model.Project
		freelancer sql.NullInt64
		status     string
	)
	err := s.Scan(&p.ID, &p.Title, &p.Description, &p.Budget, &p.Deadline, &p.ClientID, &p.ClientName,
		&freelancer, &status, &p.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	if freelancer.Valid {
		id := uint64(freelancer.Int64)
		p.FreelancerID = &id
	}
	p.Status = model.ProjectStatus(status)
	return &p, nil
}
