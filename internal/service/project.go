package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/freelance-marketplace/internal/metrics"
	"github.com/iliyamo/freelance-marketplace/internal/model"
	"github.com/iliyamo/freelance-marketplace/internal/repository"
)

// ProjectLifecycle owns project status transitions.  Every move goes
// through model.ProjectStatus.CanTransition; nothing writes a status
// without consulting it.
type ProjectLifecycle struct {
	store repository.Store
	log   logrus.FieldLogger
}

// NewProjectLifecycle returns the project service over store.
func NewProjectLifecycle(store repository.Store, log logrus.FieldLogger) *ProjectLifecycle {
	return &ProjectLifecycle{store: store, log: log}
}

// ProjectInput carries the editable fields of a project.
type ProjectInput struct {
	Title       string
	Description string
	Budget      float64
	Deadline    time.Time
}

func (in *ProjectInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	switch {
	case in.Title == "":
		return invalidInput("title is required")
	case in.Budget <= 0:
		return invalidInput("budget must be positive")
	case in.Deadline.IsZero():
		return invalidInput("deadline is required")
	}
	return nil
}

// transitionProject moves p to next inside tx.
func transitionProject(ctx context.Context, tx repository.Store, p *model.Project, next model.ProjectStatus) error {
	if !p.Status.CanTransition(next) {
		return invalidState("project %d cannot move from %s to %s", p.ID, p.Status, next)
	}
	if err := tx.Projects().UpdateStatus(ctx, p.ID, next); err != nil {
		return err
	}
	p.Status = next
	return nil
}

// Post creates a PENDING project owned by the actor.
func (s *ProjectLifecycle) Post(ctx context.Context, actor Actor, in ProjectInput) (*model.Project, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	p := &model.Project{
		Title:       in.Title,
		Description: in.Description,
		Budget:      in.Budget,
		Deadline:    in.Deadline,
		ClientID:    actor.UserID,
		Status:      model.ProjectPending,
	}
	if err := s.store.Projects().Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	s.log.WithFields(logrus.Fields{"project_id": p.ID, "client": actor.Username}).Info("project posted")
	return s.store.Projects().GetByID(ctx, p.ID)
}

// Get returns a project by id, or ErrNotFound.
func (s *ProjectLifecycle) Get(ctx context.Context, id uint64) (*model.Project, error) {
	return s.store.Projects().GetByID(ctx, id)
}

// Available lists the projects freelancers may apply to.
func (s *ProjectLifecycle) Available(ctx context.Context) ([]model.Project, error) {
	return s.store.Projects().List(ctx, repository.ProjectFilter{Status: model.ProjectApproved})
}

// ListAll lists every project in any status, newest first.
func (s *ProjectLifecycle) ListAll(ctx context.Context) ([]model.Project, error) {
	return s.store.Projects().List(ctx, repository.ProjectFilter{})
}

// ListByClient lists the projects clientID posted.
func (s *ProjectLifecycle) ListByClient(ctx context.Context, clientID uint64) ([]model.Project, error) {
	return s.store.Projects().List(ctx, repository.ProjectFilter{ClientID: clientID})
}

// ListByFreelancer lists the projects freelancerID was accepted on.
func (s *ProjectLifecycle) ListByFreelancer(ctx context.Context, freelancerID uint64) ([]model.Project, error) {
	return s.store.Projects().List(ctx, repository.ProjectFilter{FreelancerID: freelancerID})
}

// SearchByTitle does a case-insensitive substring match over the available
// projects.
func (s *ProjectLifecycle) SearchByTitle(ctx context.Context, title string) ([]model.Project, error) {
	if strings.TrimSpace(title) == "" {
		return nil, invalidInput("title is required")
	}
	return s.store.Projects().List(ctx, repository.ProjectFilter{Status: model.ProjectApproved, TitleLike: title})
}

// Update rewrites the editable fields.  Only the owner or an administrator
// may edit, and only before the project is closed.
func (s *ProjectLifecycle) Update(ctx context.Context, actor Actor, id uint64, in ProjectInput) (*model.Project, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		p, err := tx.Projects().GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !actor.owns(p.ClientID) {
			return repository.ErrForbidden
		}
		if p.Status == model.ProjectDenied || p.Status == model.ProjectCompleted {
			return invalidState("project %d is %s", p.ID, p.Status)
		}
		p.Title, p.Description, p.Budget, p.Deadline = in.Title, in.Description, in.Budget, in.Deadline
		return tx.Projects().Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return s.store.Projects().GetByID(ctx, id)
}

// Delete removes a project with everything attached to it.
func (s *ProjectLifecycle) Delete(ctx context.Context, actor Actor, id uint64) error {
	return s.store.Atomic(ctx, func(tx repository.Store) error {
		p, err := tx.Projects().GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !actor.owns(p.ClientID) {
			return repository.ErrForbidden
		}
		return tx.Projects().Delete(ctx, id)
	})
}

// Approve moves a PENDING project to APPROVED.  Approving an already
// approved project changes nothing.
func (s *ProjectLifecycle) Approve(ctx context.Context, id uint64) (*model.Project, error) {
	return s.moderate(ctx, id, model.ProjectApproved)
}

// Deny moves a PENDING project to DENIED.  Denying an already denied
// project changes nothing.
func (s *ProjectLifecycle) Deny(ctx context.Context, id uint64) (*model.Project, error) {
	return s.moderate(ctx, id, model.ProjectDenied)
}

func (s *ProjectLifecycle) moderate(ctx context.Context, id uint64, decision model.ProjectStatus) (*model.Project, error) {
	changed := false
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		p, err := tx.Projects().GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if p.Status == decision {
			return nil
		}
		changed = true
		return transitionProject(ctx, tx, p, decision)
	})
	if err != nil {
		return nil, err
	}
	if changed {
		metrics.RecordTransition("project", string(decision))
		s.log.WithFields(logrus.Fields{"project_id": id, "status": decision}).Info("project moderated")
	}
	return s.store.Projects().GetByID(ctx, id)
}

// Complete closes an IN_PROGRESS project and notifies its client.  A
// freelancer may only complete the project assigned to them.
func (s *ProjectLifecycle) Complete(ctx context.Context, actor Actor, id uint64) (*model.Project, error) {
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		p, err := tx.Projects().GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if actor.Role == model.RoleFreelancer && (p.FreelancerID == nil || *p.FreelancerID != actor.UserID) {
			return repository.ErrForbidden
		}
		if err := transitionProject(ctx, tx, p, model.ProjectCompleted); err != nil {
			return err
		}
		return enqueue(ctx, tx, projectCompleted(p.ClientID, p.Title))
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordTransition("project", string(model.ProjectCompleted))
	s.log.WithField("project_id", id).Info("project completed")
	return s.store.Projects().GetByID(ctx, id)
}

// UpdateStatus is the generic transition used by moderators.  Legality is
// checked here, not by the caller.  IN_PROGRESS is refused: a project only
// starts when Accept assigns its freelancer.  A move to COMPLETED notifies
// the client exactly as Complete does.
func (s *ProjectLifecycle) UpdateStatus(ctx context.Context, id uint64, next model.ProjectStatus) (*model.Project, error) {
	if !next.Valid() {
		return nil, invalidInput("unknown project status %q", next)
	}
	if next == model.ProjectInProgress {
		return nil, invalidState("project %d starts only by accepting an application", id)
	}
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		p, err := tx.Projects().GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := transitionProject(ctx, tx, p, next); err != nil {
			return err
		}
		if next == model.ProjectCompleted {
			return enqueue(ctx, tx, projectCompleted(p.ClientID, p.Title))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordTransition("project", string(next))
	s.log.WithFields(logrus.Fields{"project_id": id, "status": next}).Info("project status updated")
	return s.store.Projects().GetByID(ctx, id)
}

// ClientStats counts a client's open and completed projects and the
// applications still waiting on them.
func (s *ProjectLifecycle) ClientStats(ctx context.Context, clientID uint64) (model.ClientStats, error) {
	var st model.ClientStats
	projects, err := s.store.Projects().List(ctx, repository.ProjectFilter{ClientID: clientID})
	if err != nil {
		return st, err
	}
	for _, p := range projects {
		switch p.Status {
		case model.ProjectPending, model.ProjectApproved, model.ProjectInProgress:
			st.ActiveProjects++
		case model.ProjectCompleted:
			st.CompletedProjects++
		}
	}
	waiting, err := s.store.Applications().List(ctx, repository.ApplicationFilter{
		ClientID: clientID,
		Status:   model.ApplicationWaiting,
	})
	if err != nil {
		return st, err
	}
	st.PendingApplications = len(waiting)
	return st, nil
}
