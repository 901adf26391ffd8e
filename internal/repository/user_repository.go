package repository

import (
	"context"
	"strings"

	"github.com/iliyamo/freelance-marketplace/internal/model"
)

// UserRepo reads and writes the 'users' table.
type UserRepo struct{ q DBTX }

const userColumns = "id,username,email,password_hash,role,verified,created_at"

// Create inserts u and sets its ID.  Username and email are normalized
// first; a duplicate of either yields ErrConflict.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Username = strings.TrimSpace(u.Username)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	res, err := r.q.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, role, verified) VALUES (?,?,?,?,?)",
		u.Username, u.Email, u.PasswordHash, string(u.Role), u.Verified)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	row := r.q.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return scanUser(row)
}

// GetByUsername fetches a user by exact username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	row := r.q.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1", strings.TrimSpace(username))
	return scanUser(row)
}

// List returns every account ordered by id.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.q.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// SetVerified sets the verified flag.
func (r *UserRepo) SetVerified(ctx context.Context, id uint64, verified bool) error {
	return updateRow(ctx, r.q, "users", id,
		"UPDATE users SET verified=? WHERE id=?", verified, id)
}

type scanner interface{ Scan(dest ...any) error }

func scanUser(s scanner) (*model.User, error) {
	var u model.User
	var role string
	if err := s.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role, &u.Verified, &u.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	u.Role = model.Role(role)
	return &u, nil
}
