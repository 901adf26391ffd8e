package repository

import (
	"context"
	"time"

	"github.com/iliyamo/freelance-marketplace/internal/model"
)

// Store groups the repositories behind one persistence backend.  A Store
// handed to the callback of Atomic is bound to that transaction: every read
// and write made through it commits or rolls back together.
type Store interface {
	Users() UserRepository
	Projects() ProjectRepository
	Applications() ApplicationRepository
	Notifications() NotificationRepository
	Outbox() OutboxRepository
	Reports() ReportRepository
	Messages() MessageRepository
	Mails() MailRepository

	// Atomic runs fn as a single unit of work.  If fn returns an error the
	// unit is rolled back and the error is returned unchanged.  Aborts
	// caused by concurrent writers surface as ErrTxConflict.
	Atomic(ctx context.Context, fn func(tx Store) error) error
}

// UserRepository persists accounts.  Usernames are unique.
type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	SetVerified(ctx context.Context, id uint64, verified bool) error
}

// ProjectRepository persists projects.  Update, UpdateStatus and
// AssignFreelancer return ErrNotFound only when no row has the id.
type ProjectRepository interface {
	Create(ctx context.Context, p *model.Project) error
	GetByID(ctx context.Context, id uint64) (*model.Project, error)
	// GetByIDForUpdate reads the project and, inside a transaction, locks
	// the row until the transaction ends.
	GetByIDForUpdate(ctx context.Context, id uint64) (*model.Project, error)
	Update(ctx context.Context, p *model.Project) error
	UpdateStatus(ctx context.Context, id uint64, status model.ProjectStatus) error
	AssignFreelancer(ctx context.Context, id, freelancerID uint64) error
	Delete(ctx context.Context, id uint64) error
	List(ctx context.Context, f ProjectFilter) ([]model.Project, error)
}

// ProjectFilter narrows List.  Zero values mean "no constraint".
type ProjectFilter struct {
	Status       model.ProjectStatus
	ClientID     uint64
	FreelancerID uint64
	TitleLike    string
}

// ApplicationRepository persists applications.  Create returns ErrConflict
// when the freelancer already applied for the project.
type ApplicationRepository interface {
	Create(ctx context.Context, a *model.Application) error
	GetByID(ctx context.Context, id uint64) (*model.Application, error)
	GetByIDForUpdate(ctx context.Context, id uint64) (*model.Application, error)
	UpdateStatus(ctx context.Context, id uint64, status model.ApplicationStatus) error
	// ListWaitingSiblingsForUpdate returns the WAITING applications of a
	// project other than exceptID, locking them inside a transaction.
	ListWaitingSiblingsForUpdate(ctx context.Context, projectID, exceptID uint64) ([]model.Application, error)
	Delete(ctx context.Context, id uint64) error
	List(ctx context.Context, f ApplicationFilter) ([]model.Application, error)
}

// ApplicationFilter narrows List.  Zero values mean "no constraint".
type ApplicationFilter struct {
	ProjectID    uint64
	FreelancerID uint64
	ClientID     uint64
	Status       model.ApplicationStatus
}

// NotificationRepository is the per-user inbox.
type NotificationRepository interface {
	// Create stores n.  A second row with the same non-empty EventID is
	// silently ignored so that redelivered events are recorded once.
	Create(ctx context.Context, n *model.Notification) error
	ListByUser(ctx context.Context, userID uint64) ([]model.Notification, error)
	CountUnread(ctx context.Context, userID uint64) (int, error)
	MarkRead(ctx context.Context, id, userID uint64) error
	MarkAllRead(ctx context.Context, userID uint64) error
}

// OutboxRepository holds notification events written in the same
// transaction as the state change that produced them.
type OutboxRepository interface {
	Enqueue(ctx context.Context, m *model.OutboxMessage) error
	ListPending(ctx context.Context, limit int) ([]model.OutboxMessage, error)
	MarkPublished(ctx context.Context, id uint64, at time.Time) error
	MarkAttempt(ctx context.Context, id uint64) error
	// MarkFailed dead-letters the row: it keeps its attempts count but is
	// excluded from ListPending.
	MarkFailed(ctx context.Context, id uint64, at time.Time) error
}

// ReportRepository persists dispute reports.
type ReportRepository interface {
	Create(ctx context.Context, r *model.Report) error
	GetByID(ctx context.Context, id uint64) (*model.Report, error)
	List(ctx context.Context) ([]model.Report, error)
	UpdateStatus(ctx context.Context, id uint64, status model.ReportStatus, adminResponse *string) error
}

// MessageRepository persists project chat messages, oldest first.
type MessageRepository interface {
	Create(ctx context.Context, m *model.Message) error
	ListByProject(ctx context.Context, projectID uint64) ([]model.Message, error)
}

// MailRepository is the audit log of outgoing mail.
type MailRepository interface {
	Create(ctx context.Context, m *model.MailRecord) error
	List(ctx context.Context, f MailFilter) ([]model.MailRecord, error)
}

// MailFilter narrows List.  A nil Sent matches both outcomes.
type MailFilter struct {
	Sent      *bool
	Recipient string
}
