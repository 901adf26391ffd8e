// Package memory is an in-process repository.Store used by tests and by
// STORE_DRIVER=memory.  Atomic units run against a private copy of the data
// that replaces the shared copy only when the unit succeeds, so a failing
// unit leaves nothing behind.  Units are serialized by one mutex, which is
// also what makes Accept race free without row locks.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/freelance-marketplace/internal/model"
	"github.com/iliyamo/freelance-marketplace/internal/repository"
)

type data struct {
	users         map[uint64]model.User
	projects      map[uint64]model.Project
	applications  map[uint64]model.Application
	notifications map[uint64]model.Notification
	outbox        map[uint64]model.OutboxMessage
	reports       map[uint64]model.Report
	messages      map[uint64]model.Message
	mails         map[uint64]model.MailRecord
	seq           uint64
}

func newData() *data {
	return &data{
		users:         map[uint64]model.User{},
		projects:      map[uint64]model.Project{},
		applications:  map[uint64]model.Application{},
		notifications: map[uint64]model.Notification{},
		outbox:        map[uint64]model.OutboxMessage{},
		reports:       map[uint64]model.Report{},
		messages:      map[uint64]model.Message{},
		mails:         map[uint64]model.MailRecord{},
	}
}

func cloneMap[V any](m map[uint64]V) map[uint64]V {
	out := make(map[uint64]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (d *data) clone() *data {
	return &data{
		users:         cloneMap(d.users),
		projects:      cloneMap(d.projects),
		applications:  cloneMap(d.applications),
		notifications: cloneMap(d.notifications),
		outbox:        cloneMap(d.outbox),
		reports:       cloneMap(d.reports),
		messages:      cloneMap(d.messages),
		mails:         cloneMap(d.mails),
		seq:           d.seq,
	}
}

func (d *data) nextID() uint64 {
	d.seq++
	return d.seq
}

type shared struct {
	mu  sync.Mutex
	d   *data
	now func() time.Time
}

// Store implements repository.Store in memory.
type Store struct {
	s  *shared
	tx *data
}

// New returns an empty store.
func New() *Store {
	return &Store{s: &shared{d: newData(), now: time.Now}}
}

// WithClock replaces the timestamp source used for created_at columns.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.s.now = now
	return s
}

// view runs fn against the transaction copy when inside Atomic and against
// the shared data under the lock otherwise.
func (s *Store) view(fn func(d *data) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.s.mu.Lock()
	defer s.s.mu.Unlock()
	return fn(s.s.d)
}

// Atomic runs fn against a private copy of the data and swaps it in when
// fn returns nil.  Writers are serialized.
func (s *Store) Atomic(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.s.mu.Lock()
	defer s.s.mu.Unlock()
	work := s.s.d.clone()
	if err := fn(&Store{s: s.s, tx: work}); err != nil {
		return err
	}
	s.s.d = work
	return nil
}

// Accessors.
func (s *Store) Users() repository.UserRepository                 { return users{s} }
func (s *Store) Projects() repository.ProjectRepository           { return projects{s} }
func (s *Store) Applications() repository.ApplicationRepository   { return applications{s} }
func (s *Store) Notifications() repository.NotificationRepository { return notifications{s} }
func (s *Store) Outbox() repository.OutboxRepository              { return outbox{s} }
func (s *Store) Reports() repository.ReportRepository             { return reports{s} }
func (s *Store) Messages() repository.MessageRepository           { return messages{s} }
func (s *Store) Mails() repository.MailRepository                 { return mails{s} }

// newestFirst orders by creation time then id, both descending.
func newestFirst(at func(i int) (time.Time, uint64)) func(i, j int) bool {
	return func(i, j int) bool {
		ti, ii := at(i)
		tj, ij := at(j)
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return ii > ij
	}
}

// ---- users ----

type users struct{ s *Store }

func (r users) Create(_ context.Context, u *model.User) error {
	return r.s.view(func(d *data) error {
		u.Username = strings.TrimSpace(u.Username)
		u.Email = strings.ToLower(strings.TrimSpace(u.Email))
		for _, x := range d.users {
			if x.Username == u.Username || x.Email == u.Email {
				return repository.ErrConflict
			}
		}
		u.ID = d.nextID()
		u.CreatedAt = r.s.s.now()
		d.users[u.ID] = *u
		return nil
	})
}

func (r users) GetByID(_ context.Context, id uint64) (*model.User, error) {
	var out *model.User
	err := r.s.view(func(d *data) error {
		u, ok := d.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (r users) GetByUsername(_ context.Context, username string) (*model.User, error) {
	username = strings.TrimSpace(username)
	var out *model.User
	err := r.s.view(func(d *data) error {
		for _, u := range d.users {
			if u.Username == username {
				u := u
				out = &u
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r users) List(_ context.Context) ([]model.User, error) {
	var out []model.User
	err := r.s.view(func(d *data) error {
		for _, u := range d.users {
			out = append(out, u)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

func (r users) SetVerified(_ context.Context, id uint64, verified bool) error {
	return r.s.view(func(d *data) error {
		u, ok := d.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		u.Verified = verified
		d.users[id] = u
		return nil
	})
}

// ---- projects ----

type projects struct{ s *Store }

func (d *data) decorateProject(p model.Project) model.Project {
	p.ClientName = d.users[p.ClientID].Username
	return p
}

func (r projects) Create(_ context.Context, p *model.Project) error {
	return r.s.view(func(d *data) error {
		if _, ok := d.users[p.ClientID]; !ok {
			return repository.ErrNotFound
		}
		if p.Status == "" {
			p.Status = model.ProjectPending
		}
		p.ID = d.nextID()
		p.CreatedAt = r.s.s.now()
		d.projects[p.ID] = *p
		return nil
	})
}

func (r projects) GetByID(_ context.Context, id uint64) (*model.Project, error) {
	var out *model.Project
	err := r.s.view(func(d *data) error {
		p, ok := d.projects[id]
		if !ok {
			return repository.ErrNotFound
		}
		p = d.decorateProject(p)
		out = &p
		return nil
	})
	return out, err
}

func (r projects) GetByIDForUpdate(ctx context.Context, id uint64) (*model.Project, error) {
	return r.GetByID(ctx, id)
}

func (r projects) Update(_ context.Context, p *model.Project) error {
	return r.s.view(func(d *data) error {
		cur, ok := d.projects[p.ID]
		if !ok {
			return repository.ErrNotFound
		}
		cur.Title, cur.Description, cur.Budget, cur.Deadline = p.Title, p.Description, p.Budget, p.Deadline
		d.projects[p.ID] = cur
		return nil
	})
}

func (r projects) UpdateStatus(_ context.Context, id uint64, status model.ProjectStatus) error {
	return r.s.view(func(d *data) error {
		p, ok := d.projects[id]
		if !ok {
			return repository.ErrNotFound
		}
		p.Status = status
		d.projects[id] = p
		return nil
	})
}

func (r projects) AssignFreelancer(_ context.Context, id, freelancerID uint64) error {
	return r.s.view(func(d *data) error {
		p, ok := d.projects[id]
		if !ok {
			return repository.ErrNotFound
		}
		fid := freelancerID
		p.FreelancerID = &fid
		d.projects[id] = p
		return nil
	})
}

// Delete removes the project together with its applications, reports and
// messages.
func (r projects) Delete(_ context.Context, id uint64) error {
	return r.s.view(func(d *data) error {
		if _, ok := d.projects[id]; !ok {
			return repository.ErrNotFound
		}
		delete(d.projects, id)
		for k, a := range d.applications {
			if a.ProjectID == id {
				delete(d.applications, k)
			}
		}
		for k, rep := range d.reports {
			if rep.ProjectID == id {
				delete(d.reports, k)
			}
		}
		for k, m := range d.messages {
			if m.ProjectID == id {
				delete(d.messages, k)
			}
		}
		return nil
	})
}

func (r projects) List(_ context.Context, f repository.ProjectFilter) ([]model.Project, error) {
	title := strings.ToLower(strings.TrimSpace(f.TitleLike))
	var out []model.Project
	err := r.s.view(func(d *data) error {
		for _, p := range d.projects {
			if f.Status != "" && p.Status != f.Status {
				continue
			}
			if f.ClientID != 0 && p.ClientID != f.ClientID {
				continue
			}
			if f.FreelancerID != 0 && (p.FreelancerID == nil || *p.FreelancerID != f.FreelancerID) {
				continue
			}
			if title != "" && !strings.Contains(strings.ToLower(p.Title), title) {
				continue
			}
			out = append(out, d.decorateProject(p))
		}
		sort.Slice(out, newestFirst(func(i int) (time.Time, uint64) { return out[i].CreatedAt, out[i].ID }))
		return nil
	})
	return out, err
}

// ---- applications ----

type applications struct{ s *Store }

func (d *data) decorateApplication(a model.Application) model.Application {
	a.ProjectTitle = d.projects[a.ProjectID].Title
	a.FreelancerName = d.users[a.FreelancerID].Username
	return a
}

func (r applications) Create(_ context.Context, a *model.Application) error {
	return r.s.view(func(d *data) error {
		if _, ok := d.projects[a.ProjectID]; !ok {
			return repository.ErrNotFound
		}
		if _, ok := d.users[a.FreelancerID]; !ok {
			return repository.ErrNotFound
		}
		for _, x := range d.applications {
			if x.ProjectID == a.ProjectID && x.FreelancerID == a.FreelancerID {
				return repository.ErrConflict
			}
		}
		if a.Status == "" {
			a.Status = model.ApplicationWaiting
		}
		a.ID = d.nextID()
		a.CreatedAt = r.s.s.now()
		d.applications[a.ID] = *a
		return nil
	})
}

func (r applications) GetByID(_ context.Context, id uint64) (*model.Application, error) {
	var out *model.Application
	err := r.s.view(func(d *data) error {
		a, ok := d.applications[id]
		if !ok {
			return repository.ErrNotFound
		}
		a = d.decorateApplication(a)
		out = &a
		return nil
	})
	return out, err
}

func (r applications) GetByIDForUpdate(ctx context.Context, id uint64) (*model.Application, error) {
	return r.GetByID(ctx, id)
}

func (r applications) UpdateStatus(_ context.Context, id uint64, status model.ApplicationStatus) error {
	return r.s.view(func(d *data) error {
		a, ok := d.applications[id]
		if !ok {
			return repository.ErrNotFound
		}
		a.Status = status
		d.applications[id] = a
		return nil
	})
}

func (r applications) ListWaitingSiblingsForUpdate(_ context.Context, projectID, exceptID uint64) ([]model.Application, error) {
	var out []model.Application
	err := r.s.view(func(d *data) error {
		for _, a := range d.applications {
			if a.ProjectID == projectID && a.ID != exceptID && a.Status == model.ApplicationWaiting {
				out = append(out, a)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

func (r applications) Delete(_ context.Context, id uint64) error {
	return r.s.view(func(d *data) error {
		if _, ok := d.applications[id]; !ok {
			return repository.ErrNotFound
		}
		delete(d.applications, id)
		return nil
	})
}

func (r applications) List(_ context.Context, f repository.ApplicationFilter) ([]model.Application, error) {
	var out []model.Application
	err := r.s.view(func(d *data) error {
		for _, a := range d.applications {
			if f.ProjectID != 0 && a.ProjectID != f.ProjectID {
				continue
			}
			if f.FreelancerID != 0 && a.FreelancerID != f.FreelancerID {
				continue
			}
			if f.ClientID != 0 && d.projects[a.ProjectID].ClientID != f.ClientID {
				continue
			}
			if f.Status != "" && a.Status != f.Status {
				continue
			}
			out = append(out, d.decorateApplication(a))
		}
		sort.Slice(out, newestFirst(func(i int) (time.Time, uint64) { return out[i].CreatedAt, out[i].ID }))
		return nil
	})
	return out, err
}

// ---- notifications ----

type notifications struct{ s *Store }

func (r notifications) Create(_ context.Context, n *model.Notification) error {
	return r.s.view(func(d *data) error {
		if n.EventID != "" {
			for _, x := range d.notifications {
				if x.EventID == n.EventID {
					return nil
				}
			}
		}
		n.ID = d.nextID()
		if n.CreatedAt.IsZero() {
			n.CreatedAt = r.s.s.now()
		}
		d.notifications[n.ID] = *n
		return nil
	})
}

func (r notifications) ListByUser(_ context.Context, userID uint64) ([]model.Notification, error) {
	var out []model.Notification
	err := r.s.view(func(d *data) error {
		for _, n := range d.notifications {
			if n.UserID == userID {
				out = append(out, n)
			}
		}
		sort.Slice(out, newestFirst(func(i int) (time.Time, uint64) { return out[i].CreatedAt, out[i].ID }))
		return nil
	})
	return out, err
}

func (r notifications) CountUnread(_ context.Context, userID uint64) (int, error) {
	var n int
	err := r.s.view(func(d *data) error {
		for _, x := range d.notifications {
			if x.UserID == userID && !x.Read {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r notifications) MarkRead(_ context.Context, id, userID uint64) error {
	return r.s.view(func(d *data) error {
		n, ok := d.notifications[id]
		if !ok || n.UserID != userID {
			return repository.ErrNotFound
		}
		n.Read = true
		d.notifications[id] = n
		return nil
	})
}

func (r notifications) MarkAllRead(_ context.Context, userID uint64) error {
	return r.s.view(func(d *data) error {
		for id, n := range d.notifications {
			if n.UserID == userID && !n.Read {
				n.Read = true
				d.notifications[id] = n
			}
		}
		return nil
	})
}

// ---- outbox ----

type outbox struct{ s *Store }

func (r outbox) Enqueue(_ context.Context, m *model.OutboxMessage) error {
	return r.s.view(func(d *data) error {
		for _, x := range d.outbox {
			if x.EventID == m.EventID {
				return repository.ErrConflict
			}
		}
		m.ID = d.nextID()
		m.CreatedAt = r.s.s.now()
		d.outbox[m.ID] = *m
		return nil
	})
}

// ListPending skips published and dead-lettered rows.
func (r outbox) ListPending(_ context.Context, limit int) ([]model.OutboxMessage, error) {
	var out []model.OutboxMessage
	err := r.s.view(func(d *data) error {
		for _, m := range d.outbox {
			if m.PublishedAt == nil && m.FailedAt == nil {
				out = append(out, m)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		if limit > 0 && len(out) > limit {
			out = out[:limit]
		}
		return nil
	})
	return out, err
}

func (r outbox) MarkPublished(_ context.Context, id uint64, at time.Time) error {
	return r.s.view(func(d *data) error {
		m, ok := d.outbox[id]
		if !ok {
			return repository.ErrNotFound
		}
		t := at
		m.PublishedAt = &t
		d.outbox[id] = m
		return nil
	})
}

func (r outbox) MarkAttempt(_ context.Context, id uint64) error {
	return r.s.view(func(d *data) error {
		m, ok := d.outbox[id]
		if !ok {
			return repository.ErrNotFound
		}
		m.Attempts++
		d.outbox[id] = m
		return nil
	})
}

func (r outbox) MarkFailed(_ context.Context, id uint64, at time.Time) error {
	return r.s.view(func(d *data) error {
		m, ok := d.outbox[id]
		if !ok {
			return repository.ErrNotFound
		}
		t := at
		m.FailedAt = &t
		d.outbox[id] = m
		return nil
	})
}

// ---- reports ----

type reports struct{ s *Store }

func (d *data) decorateReport(rep model.Report) model.Report {
	rep.ProjectTitle = d.projects[rep.ProjectID].Title
	rep.ReporterUsername = d.users[rep.ReporterID].Username
	return rep
}

func (r reports) Create(_ context.Context, rep *model.Report) error {
	return r.s.view(func(d *data) error {
		if _, ok := d.projects[rep.ProjectID]; !ok {
			return repository.ErrNotFound
		}
		if rep.Status == "" {
			rep.Status = model.ReportPending
		}
		rep.ID = d.nextID()
		rep.CreatedAt = r.s.s.now()
		d.reports[rep.ID] = *rep
		return nil
	})
}

func (r reports) GetByID(_ context.Context, id uint64) (*model.Report, error) {
	var out *model.Report
	err := r.s.view(func(d *data) error {
		rep, ok := d.reports[id]
		if !ok {
			return repository.ErrNotFound
		}
		rep = d.decorateReport(rep)
		out = &rep
		return nil
	})
	return out, err
}

func (r reports) List(_ context.Context) ([]model.Report, error) {
	var out []model.Report
	err := r.s.view(func(d *data) error {
		for _, rep := range d.reports {
			out = append(out, d.decorateReport(rep))
		}
		sort.Slice(out, newestFirst(func(i int) (time.Time, uint64) { return out[i].CreatedAt, out[i].ID }))
		return nil
	})
	return out, err
}

func (r reports) UpdateStatus(_ context.Context, id uint64, status model.ReportStatus, adminResponse *string) error {
	return r.s.view(func(d *data) error {
		rep, ok := d.reports[id]
		if !ok {
			return repository.ErrNotFound
		}
		rep.Status = status
		if adminResponse != nil {
			v := *adminResponse
			rep.AdminResponse = &v
		}
		d.reports[id] = rep
		return nil
	})
}

// ---- messages ----

type messages struct{ s *Store }

func (r messages) Create(_ context.Context, m *model.Message) error {
	return r.s.view(func(d *data) error {
		if _, ok := d.projects[m.ProjectID]; !ok {
			return repository.ErrNotFound
		}
		m.ID = d.nextID()
		m.CreatedAt = r.s.s.now()
		d.messages[m.ID] = *m
		return nil
	})
}

func (r messages) ListByProject(_ context.Context, projectID uint64) ([]model.Message, error) {
	var out []model.Message
	err := r.s.view(func(d *data) error {
		for _, m := range d.messages {
			if m.ProjectID == projectID {
				m.SenderName = d.users[m.SenderID].Username
				out = append(out, m)
			}
		}
		sort.Slice(out, func(i, j int) bool {
			if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
				return out[i].CreatedAt.Before(out[j].CreatedAt)
			}
			return out[i].ID < out[j].ID
		})
		return nil
	})
	return out, err
}

var _ repository.Store = (*Store)(nil)

// ---- mails ----

type mails struct{ s *Store }

func (r mails) Create(_ context.Context, m *model.MailRecord) error {
	return r.s.view(func(d *data) error {
		m.ID = d.nextID()
		if m.SentAt.IsZero() {
			m.SentAt = r.s.s.now()
		}
		d.mails[m.ID] = *m
		return nil
	})
}

// List applies f and returns the newest mail first.
func (r mails) List(_ context.Context, f repository.MailFilter) ([]model.MailRecord, error) {
	var out []model.MailRecord
	err := r.s.view(func(d *data) error {
		for _, m := range d.mails {
			if f.Sent != nil && m.Sent != *f.Sent {
				continue
			}
			if f.Recipient != "" && m.Recipient != f.Recipient {
				continue
			}
			out = append(out, m)
		}
		sort.Slice(out, newestFirst(func(i int) (time.Time, uint64) { return out[i].SentAt, out[i].ID }))
		return nil
	})
	return out, err
}
