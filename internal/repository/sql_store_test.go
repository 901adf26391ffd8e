package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/freelance-marketplace/internal/model"
)

func newMock(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLStore(db), mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

func TestAtomicCommits(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE projects SET status = ? WHERE id = ?")).
		WithArgs("APPROVED", 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.Atomic(context.Background(), func(tx Store) error {
		return tx.Projects().UpdateStatus(context.Background(), 7, model.ProjectApproved)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAtomicRollsBackAndReturnsCallbackError(t *testing.T) {
	store, mock := newMock(t)
	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()

	err := store.Atomic(context.Background(), func(Store) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAtomicTranslatesDeadlock(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM projects WHERE id = ? FOR UPDATE")).
		WithArgs(3).
		WillReturnError(&mysql.MySQLError{Number: 1213, Message: "Deadlock found"})
	mock.ExpectRollback()

	err := store.Atomic(context.Background(), func(tx Store) error {
		_, err := tx.Projects().GetByIDForUpdate(context.Background(), 3)
		return err
	})
	assert.ErrorIs(t, err, ErrTxConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAtomicNestedReusesTransaction(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE users SET verified=? WHERE id=?")).
		WithArgs(true, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.Atomic(context.Background(), func(tx Store) error {
		return tx.Atomic(context.Background(), func(inner Store) error {
			return inner.Users().SetVerified(context.Background(), 1, true)
		})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserCreateDuplicateIsConflict(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectExec(q("INSERT INTO users")).
		WithArgs("alice", "alice@example.com", "hash", "CLIENT", false).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := store.Users().Create(context.Background(), &model.User{
		Username: " alice ", Email: "Alice@Example.com", PasswordHash: "hash", Role: model.RoleClient,
	})
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserGetByIDNotFound(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery(q("FROM users WHERE id=?")).WithArgs(9).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.Users().GetByID(context.Background(), 9)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProjectListBuildsFilter(t *testing.T) {
	store, mock := newMock(t)
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	cols := []string{"id", "title", "description", "budget", "deadline", "client_id", "username",
		"freelancer_id", "status", "created_at"}
	mock.ExpectQuery(q("WHERE p.status = ? AND p.client_id = ? AND LOWER(p.title) LIKE ? ORDER BY p.created_at DESC")).
		WithArgs("APPROVED", 4, "%logo%").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(1, "Logo design", "d", 100.0, now, 4, "carol", nil, "APPROVED", now).
			AddRow(2, "New logo", "d", 50.0, now, 4, "carol", 8, "APPROVED", now))

	list, err := store.Projects().List(context.Background(), ProjectFilter{
		Status: model.ProjectApproved, ClientID: 4, TitleLike: " LOGO ",
	})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Nil(t, list[0].FreelancerID)
	require.NotNil(t, list[1].FreelancerID)
	assert.Equal(t, uint64(8), *list[1].FreelancerID)
	assert.Equal(t, "carol", list[0].ClientName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectUpdateStatusMissingRow(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectExec(q("UPDATE projects SET status = ? WHERE id = ?")).
		WithArgs("COMPLETED", 5).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("SELECT 1 FROM projects WHERE id = ?")).WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	err := store.Projects().UpdateStatus(context.Background(), 5, model.ProjectCompleted)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnchangedUpdateOfExistingRowSucceeds(t *testing.T) {
	ctx := context.Background()
	store, mock := newMock(t)
	deadline := time.Date(2030, 1, 31, 0, 0, 0, 0, time.UTC)
	exists := func(table string, id int) {
		mock.ExpectQuery(q("SELECT 1 FROM "+table+" WHERE id = ?")).WithArgs(id).
			WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	}

	mock.ExpectExec(q("UPDATE projects SET title = ?, description = ?, budget = ?, deadline = ? WHERE id = ?")).
		WithArgs("Logo", "svg", 100.0, deadline, 4).
		WillReturnResult(sqlmock.NewResult(0, 0))
	exists("projects", 4)
	mock.ExpectExec(q("UPDATE users SET verified=? WHERE id=?")).WithArgs(true, 9).
		WillReturnResult(sqlmock.NewResult(0, 0))
	exists("users", 9)
	mock.ExpectExec(q("UPDATE reports SET status = ? WHERE id = ?")).WithArgs("IN_REVIEW", 2).
		WillReturnResult(sqlmock.NewResult(0, 0))
	exists("reports", 2)

	require.NoError(t, store.Projects().Update(ctx, &model.Project{ID: 4, Title: "Logo", Description: "svg", Budget: 100, Deadline: deadline}))
	require.NoError(t, store.Users().SetVerified(ctx, 9, true))
	require.NoError(t, store.Reports().UpdateStatus(ctx, 2, model.ReportInReview, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationSiblingsAreLocked(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now()
	cols := []string{"id", "project_id", "title", "freelancer_id", "username", "cover_letter",
		"attachment_key", "status", "created_at"}
	mock.ExpectQuery(q("WHERE project_id = ? AND id <> ? AND status = ? ORDER BY id FOR UPDATE")).
		WithArgs(1, 10, "WAITING").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(11, 1, "", 21, "", "hi", nil, "WAITING", now).
			AddRow(12, 1, "", 22, "", "hey", "carol/1/x.pdf", "WAITING", now))

	sibs, err := store.Applications().ListWaitingSiblingsForUpdate(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, sibs, 2)
	assert.Nil(t, sibs[0].AttachmentKey)
	require.NotNil(t, sibs[1].AttachmentKey)
	assert.Equal(t, "carol/1/x.pdf", *sibs[1].AttachmentKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationDuplicateIsConflict(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectExec(q("INSERT INTO applications")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '1-2' for key 'uq_app_project_freelancer'"})

	err := store.Applications().Create(context.Background(), &model.Application{ProjectID: 1, FreelancerID: 2, CoverLetter: "x"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestNotificationDuplicateEventIgnored(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectExec(q("INSERT IGNORE INTO notifications")).
		WithArgs("evt-1", 3, "hello", "NEW_MESSAGE").
		WillReturnResult(sqlmock.NewResult(0, 0))

	n := &model.Notification{EventID: "evt-1", UserID: 3, Message: "hello", Type: model.NotificationNewMessage}
	require.NoError(t, store.Notifications().Create(context.Background(), n))
	assert.Zero(t, n.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationMarkReadOtherUser(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery(q("SELECT user_id FROM notifications WHERE id = ?")).WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(99))

	err := store.Notifications().MarkRead(context.Background(), 5, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxPendingAndPublish(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()
	mock.ExpectQuery(q("WHERE published_at IS NULL AND failed_at IS NULL ORDER BY id LIMIT ?")).WithArgs(50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_id", "recipient_id", "message", "type", "attempts", "created_at", "published_at"}).
			AddRow(1, "e1", 2, "m", "APPLICATION_ACCEPTED", 0, now, nil))
	mock.ExpectExec(q("UPDATE notification_outbox SET published_at = ? WHERE id = ?")).
		WithArgs(now, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rows, err := store.Outbox().ListPending(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, model.NotificationApplicationAccepted, rows[0].Type)
	assert.Nil(t, rows[0].PublishedAt)

	require.NoError(t, store.Outbox().MarkPublished(context.Background(), 1, now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxMarkFailed(t *testing.T) {
	store, mock := newMock(t)
	at := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectExec(q("UPDATE notification_outbox SET failed_at = ? WHERE id = ?")).
		WithArgs(at, 4).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Outbox().MarkFailed(context.Background(), 4, at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMailLogFilterAndOrder(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()
	mock.ExpectQuery(q("SELECT id, recipient, subject, content, mail_type, sent, sent_at FROM mails WHERE sent = ? AND recipient = ? ORDER BY sent_at DESC, id DESC")).
		WithArgs(false, "bob@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "recipient", "subject", "content", "mail_type", "sent", "sent_at"}).
			AddRow(3, "bob@example.com", "Account Verification", "Dear bob", "VERIFICATION", false, now))

	failed := false
	list, err := store.Mails().List(context.Background(), MailFilter{Sent: &failed, Recipient: "bob@example.com"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.MailVerification, list[0].Type)
	assert.False(t, list[0].Sent)
	assert.NoError(t, mock.ExpectationsWereMet())
}
