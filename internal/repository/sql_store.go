package repository

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so every repository method
// can run either standalone or inside a caller's transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore is the MySQL implementation of Store.
type SQLStore struct {
	db   *sql.DB
	q    DBTX
	inTx bool
}

// NewSQLStore returns a Store bound to db.
func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db, q: db} }

// DB exposes the underlying sql.DB for health checks and schema setup.
func (s *SQLStore) DB() *sql.DB { return s.db }

// Repository accessors share the store's DBTX, so inside Atomic they run
// on the transaction.
func (s *SQLStore) Users() UserRepository                 { return &UserRepo{q: s.q} }
func (s *SQLStore) Projects() ProjectRepository           { return &ProjectRepo{q: s.q} }
func (s *SQLStore) Applications() ApplicationRepository   { return &ApplicationRepo{q: s.q} }
func (s *SQLStore) Notifications() NotificationRepository { return &NotificationRepo{q: s.q} }
func (s *SQLStore) Outbox() OutboxRepository              { return &OutboxRepo{q: s.q} }
func (s *SQLStore) Reports() ReportRepository             { return &ReportRepo{q: s.q} }
func (s *SQLStore) Messages() MessageRepository           { return &MessageRepo{q: s.q} }
func (s *SQLStore) Mails() MailRepository                 { return &MailRepo{q: s.q} }

// Atomic begins a transaction, runs fn against a tx-bound store and commits.
// Nested calls reuse the outer transaction.
func (s *SQLStore) Atomic(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return translate(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&SQLStore{db: s.db, q: tx, inTx: true}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return translate(err)
	}
	committed = true
	return nil
}

// notFound turns sql.ErrNoRows into ErrNotFound.
func notFound(err error) error {
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	return translate(err)
}

// affectedOrNotFound reports ErrNotFound when a DELETE touched no row.
func affectedOrNotFound(res sql.Result, err error) error {
	if err != nil {
		return translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// updateRow runs an UPDATE of the row id in table.  MySQL counts only rows
// whose values changed unless the connection sets CLIENT_FOUND_ROWS, so a
// zero count is checked against the table before it becomes ErrNotFound:
// writing the values a row already holds is a success.
func updateRow(ctx context.Context, q DBTX, table string, id uint64, query string, args ...any) error {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var one int
	return notFound(q.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id = ?", id).Scan(&one))
}
