package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/freelance-marketplace/internal/model"
	"github.com/iliyamo/freelance-marketplace/internal/repository"
	"github.com/iliyamo/freelance-marketplace/internal/repository/memory"
	"github.com/iliyamo/freelance-marketplace/internal/storage"
)

type fixture struct {
	store    *memory.Store
	objects  *storage.MemoryStore
	log      logrus.FieldLogger
	projects *ProjectLifecycle
	apps     *ApplicationLifecycle

	carol, alice, bob, admin model.User
}

func newFixture(t *testing.T, opts ApplicationOptions) *fixture {
	t.Helper()
	log, _ := test.NewNullLogger()
	f := &fixture{store: memory.New(), objects: storage.NewMemoryStore(), log: log}
	f.projects = NewProjectLifecycle(f.store, log)
	f.apps = NewApplicationLifecycle(f.store, f.objects, log, opts)
	f.carol = f.user(t, "carol", model.RoleClient)
	f.alice = f.user(t, "alice", model.RoleFreelancer)
	f.bob = f.user(t, "bob", model.RoleFreelancer)
	f.admin = f.user(t, "root", model.RoleAdmin)
	return f
}

func (f *fixture) user(t *testing.T, name string, role model.Role) model.User {
	t.Helper()
	u := model.User{Username: name, Email: name + "@example.com", PasswordHash: "x", Role: role}
	require.NoError(t, f.store.Users().Create(context.Background(), &u))
	return u
}

func as(u model.User) Actor { return Actor{UserID: u.ID, Username: u.Username, Role: u.Role} }

// approvedProject posts a project as carol and approves it.
func (f *fixture) approvedProject(t *testing.T, title string) *model.Project {
	t.Helper()
	ctx := context.Background()
	p, err := f.projects.Post(ctx, as(f.carol), ProjectInput{
		Title: title, Description: "d", Budget: 100, Deadline: time.Now().AddDate(0, 1, 0),
	})
	require.NoError(t, err)
	p, err = f.projects.Approve(ctx, p.ID)
	require.NoError(t, err)
	return p
}

func (f *fixture) apply(t *testing.T, u model.User, projectID uint64) *model.Application {
	t.Helper()
	a, err := f.apps.Create(context.Background(), as(u), CreateApplication{
		ProjectID: projectID, Username: u.Username, CoverLetter: "pick me",
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) outbox(t *testing.T) []model.OutboxMessage {
	t.Helper()
	rows, err := f.store.Outbox().ListPending(context.Background(), 1000)
	require.NoError(t, err)
	return rows
}

func outboxFor(rows []model.OutboxMessage, to uint64, typ model.NotificationType) int {
	n := 0
	for _, r := range rows {
		if r.RecipientID == to && r.Type == typ {
			n++
		}
	}
	return n
}

// flakyStore fails the first failures units with ErrTxConflict.
type flakyStore struct {
	*memory.Store
	mu       sync.Mutex
	failures int
	calls    int
}

func (s *flakyStore) Atomic(ctx context.Context, fn func(tx repository.Store) error) error {
	s.mu.Lock()
	s.calls++
	fail := s.calls <= s.failures
	s.mu.Unlock()
	if fail {
		return repository.ErrTxConflict
	}
	return s.Store.Atomic(ctx, fn)
}

// brokenOutboxStore fails every outbox insert made inside a unit.
type brokenOutboxStore struct{ repository.Store }

type brokenOutbox struct{ repository.OutboxRepository }

func (brokenOutbox) Enqueue(context.Context, *model.OutboxMessage) error {
	return errors.New("outbox unavailable")
}

func (s brokenOutboxStore) Outbox() repository.OutboxRepository {
	return brokenOutbox{s.Store.Outbox()}
}

func (s brokenOutboxStore) Atomic(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.Store.Atomic(ctx, func(tx repository.Store) error {
		return fn(brokenOutboxStore{tx})
	})
}
