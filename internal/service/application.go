package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/freelance-marketplace/internal/metrics"
	"github.com/iliyamo/freelance-marketplace/internal/model"
	"github.com/iliyamo/freelance-marketplace/internal/repository"
	"github.com/iliyamo/freelance-marketplace/internal/storage"
)

// DefaultAcceptAttempts bounds how often Accept re-runs its unit after a
// transaction conflict.
const DefaultAcceptAttempts = 3

// ApplicationOptions tunes ApplicationLifecycle.
type ApplicationOptions struct {
	// NotifyRejectedSiblings sends APPLICATION_REJECTED to every competitor
	// rejected by Accept.
	NotifyRejectedSiblings bool
	// MaxAttachmentBytes caps uploaded CVs; zero means no limit.
	MaxAttachmentBytes int64
	// AcceptAttempts defaults to DefaultAcceptAttempts.
	AcceptAttempts int
}

// ApplicationLifecycle owns application status transitions, including the
// accept-one-reject-the-rest protocol.
type ApplicationLifecycle struct {
	store   repository.Store
	objects storage.ObjectStore
	log     logrus.FieldLogger
	opts    ApplicationOptions
}

// NewApplicationLifecycle wires the manager.  objects may be nil, in which
// case attachments are refused.
func NewApplicationLifecycle(store repository.Store, objects storage.ObjectStore, log logrus.FieldLogger, opts ApplicationOptions) *ApplicationLifecycle {
	if opts.AcceptAttempts <= 0 {
		opts.AcceptAttempts = DefaultAcceptAttempts
	}
	return &ApplicationLifecycle{store: store, objects: objects, log: log, opts: opts}
}

// Attachment is an uploaded CV.
type Attachment struct {
	Filename string
	Size     int64
	Body     io.Reader
}

// CreateApplication is the input of Create.
type CreateApplication struct {
	ProjectID   uint64
	Username    string
	CoverLetter string
	Attachment  *Attachment
}

// Create files an application for the named freelancer.  The project must
// be APPROVED.  An attachment is stored before the row is written and
// removed again if the write fails.
func (s *ApplicationLifecycle) Create(ctx context.Context, actor Actor, in CreateApplication) (*model.Application, error) {
	in.CoverLetter = strings.TrimSpace(in.CoverLetter)
	if in.CoverLetter == "" {
		return nil, invalidInput("cover letter is required")
	}
	if !actor.IsAdmin() && actor.Username != in.Username {
		return nil, repository.ErrForbidden
	}
	freelancer, err := s.store.Users().GetByUsername(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if freelancer.Role != model.RoleFreelancer {
		return nil, invalidInput("%s is not a freelancer", in.Username)
	}
	project, err := s.store.Projects().GetByID(ctx, in.ProjectID)
	if err != nil {
		return nil, err
	}
	if !project.Status.AcceptsApplications() {
		return nil, invalidState("project %d is %s", project.ID, project.Status)
	}

	var key *string
	if in.Attachment != nil {
		k, err := s.storeAttachment(ctx, in.Username, in.ProjectID, in.Attachment)
		if err != nil {
			return nil, err
		}
		key = &k
	}

	app := &model.Application{
		ProjectID:     in.ProjectID,
		FreelancerID:  freelancer.ID,
		CoverLetter:   in.CoverLetter,
		AttachmentKey: key,
		Status:        model.ApplicationWaiting,
	}
	err = s.store.Atomic(ctx, func(tx repository.Store) error {
		p, err := tx.Projects().GetByIDForUpdate(ctx, in.ProjectID)
		if err != nil {
			return err
		}
		if !p.Status.AcceptsApplications() {
			return invalidState("project %d is %s", p.ID, p.Status)
		}
		if err := tx.Applications().Create(ctx, app); err != nil {
			return err
		}
		return enqueue(ctx, tx, applicationReceived(p.ClientID, p.Title))
	})
	if err != nil {
		if key != nil {
			s.removeAttachment(ctx, *key)
		}
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"application_id": app.ID,
		"project_id":     app.ProjectID,
		"freelancer":     in.Username,
	}).Info("application created")
	return s.store.Applications().GetByID(ctx, app.ID)
}

func (s *ApplicationLifecycle) storeAttachment(ctx context.Context, username string, projectID uint64, a *Attachment) (string, error) {
	if s.objects == nil {
		return "", invalidInput("attachments are not accepted")
	}
	if a.Size <= 0 {
		return "", invalidInput("attachment is empty")
	}
	if s.opts.MaxAttachmentBytes > 0 && a.Size > s.opts.MaxAttachmentBytes {
		return "", invalidInput("attachment exceeds %d bytes", s.opts.MaxAttachmentBytes)
	}
	key, err := storage.AttachmentKey(username, projectID, a.Filename)
	if err != nil {
		return "", invalidInput("%v", err)
	}
	if err := s.objects.Put(ctx, key, a.Body, a.Size, storage.ContentType(key)); err != nil {
		return "", fmt.Errorf("store attachment: %w", err)
	}
	return key, nil
}

func (s *ApplicationLifecycle) removeAttachment(ctx context.Context, key string) {
	if s.objects == nil {
		return
	}
	if err := s.objects.Delete(ctx, key); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("orphaned attachment")
	}
}

// acceptResult is what one committed Accept unit changed.
type acceptResult struct {
	projectID uint64
	rejected  int
}

// Accept approves application id, rejects every other WAITING application
// of the same project and moves the project to IN_PROGRESS, all in one
// unit.  A unit aborted by a concurrent writer is re-run from scratch so
// that the outcome reflects the state it finally committed against.
func (s *ApplicationLifecycle) Accept(ctx context.Context, actor Actor, id uint64) (*model.Application, error) {
	var (
		res acceptResult
		err error
	)
	for attempt := 1; ; attempt++ {
		res, err = s.acceptOnce(ctx, actor, id)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrTxConflict) || attempt >= s.opts.AcceptAttempts {
			return nil, err
		}
		metrics.RecordAcceptRetry()
		s.log.WithFields(logrus.Fields{"application_id": id, "attempt": attempt}).Warn("accept conflicted, retrying")
	}

	metrics.RecordTransition("application", string(model.ApplicationApproved))
	for i := 0; i < res.rejected; i++ {
		metrics.RecordTransition("application", string(model.ApplicationRejected))
	}
	metrics.RecordTransition("project", string(model.ProjectInProgress))
	s.log.WithFields(logrus.Fields{
		"application_id": id,
		"project_id":     res.projectID,
		"rejected":       res.rejected,
	}).Info("application accepted")
	return s.store.Applications().GetByID(ctx, id)
}

func (s *ApplicationLifecycle) acceptOnce(ctx context.Context, actor Actor, id uint64) (acceptResult, error) {
	var res acceptResult
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		// The project row is locked before any application row so that
		// concurrent accepts for one project queue up on the same lock.
		ref, err := tx.Applications().GetByID(ctx, id)
		if err != nil {
			return err
		}
		p, err := tx.Projects().GetByIDForUpdate(ctx, ref.ProjectID)
		if err != nil {
			return err
		}
		if actor.Role == model.RoleClient && p.ClientID != actor.UserID {
			return repository.ErrForbidden
		}
		app, err := tx.Applications().GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if app.Status != model.ApplicationWaiting {
			return invalidState("application %d is %s", app.ID, app.Status)
		}
		if !p.Status.CanTransition(model.ProjectInProgress) {
			return invalidState("project %d is %s", p.ID, p.Status)
		}

		if err := tx.Applications().UpdateStatus(ctx, app.ID, model.ApplicationApproved); err != nil {
			return err
		}
		siblings, err := tx.Applications().ListWaitingSiblingsForUpdate(ctx, p.ID, app.ID)
		if err != nil {
			return err
		}
		notices := []notice{applicationAccepted(app.FreelancerID, p.Title)}
		for _, sib := range siblings {
			if err := tx.Applications().UpdateStatus(ctx, sib.ID, model.ApplicationRejected); err != nil {
				return err
			}
			if s.opts.NotifyRejectedSiblings {
				notices = append(notices, applicationRejected(sib.FreelancerID, p.Title))
			}
		}
		if err := transitionProject(ctx, tx, p, model.ProjectInProgress); err != nil {
			return err
		}
		if err := tx.Projects().AssignFreelancer(ctx, p.ID, app.FreelancerID); err != nil {
			return err
		}
		res = acceptResult{projectID: p.ID, rejected: len(siblings)}
		return enqueue(ctx, tx, notices...)
	})
	return res, err
}

// Reject moves a single WAITING application to REJECTED.  Siblings are
// left alone.
func (s *ApplicationLifecycle) Reject(ctx context.Context, actor Actor, id uint64) (*model.Application, error) {
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		ref, err := tx.Applications().GetByID(ctx, id)
		if err != nil {
			return err
		}
		p, err := tx.Projects().GetByIDForUpdate(ctx, ref.ProjectID)
		if err != nil {
			return err
		}
		if actor.Role == model.RoleClient && p.ClientID != actor.UserID {
			return repository.ErrForbidden
		}
		app, err := tx.Applications().GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if app.Status != model.ApplicationWaiting {
			return invalidState("application %d is %s", app.ID, app.Status)
		}
		if err := tx.Applications().UpdateStatus(ctx, app.ID, model.ApplicationRejected); err != nil {
			return err
		}
		return enqueue(ctx, tx, applicationRejected(app.FreelancerID, p.Title))
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordTransition("application", string(model.ApplicationRejected))
	s.log.WithField("application_id", id).Info("application rejected")
	return s.store.Applications().GetByID(ctx, id)
}

// Delete removes the application and, best effort, its attachment.
func (s *ApplicationLifecycle) Delete(ctx context.Context, id uint64) error {
	app, err := s.store.Applications().GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Applications().Delete(ctx, id); err != nil {
		return err
	}
	if app.AttachmentKey != nil {
		s.removeAttachment(ctx, *app.AttachmentKey)
	}
	s.log.WithField("application_id", id).Info("application deleted")
	return nil
}

// Get returns an application by id, or ErrNotFound.
func (s *ApplicationLifecycle) Get(ctx context.Context, id uint64) (*model.Application, error) {
	return s.store.Applications().GetByID(ctx, id)
}

// ListByProject lists a project's applications for its client.
func (s *ApplicationLifecycle) ListByProject(ctx context.Context, actor Actor, projectID uint64) ([]model.Application, error) {
	p, err := s.store.Projects().GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !actor.owns(p.ClientID) {
		return nil, repository.ErrForbidden
	}
	return s.store.Applications().List(ctx, repository.ApplicationFilter{ProjectID: projectID})
}

// ListByFreelancer lists what username applied for.  Callers other than
// administrators may only list their own.
func (s *ApplicationLifecycle) ListByFreelancer(ctx context.Context, actor Actor, username string) ([]model.Application, error) {
	u, err := s.selfOrAdmin(ctx, actor, username)
	if err != nil {
		return nil, err
	}
	return s.store.Applications().List(ctx, repository.ApplicationFilter{FreelancerID: u.ID})
}

// ListByClient lists the applications received on username's projects.
func (s *ApplicationLifecycle) ListByClient(ctx context.Context, actor Actor, username string) ([]model.Application, error) {
	u, err := s.selfOrAdmin(ctx, actor, username)
	if err != nil {
		return nil, err
	}
	return s.store.Applications().List(ctx, repository.ApplicationFilter{ClientID: u.ID})
}

// ListByStatus lists applications in status.  An unknown status is
// ErrInvalidInput.
func (s *ApplicationLifecycle) ListByStatus(ctx context.Context, status model.ApplicationStatus) ([]model.Application, error) {
	if !status.Valid() {
		return nil, invalidInput("unknown application status %q", status)
	}
	return s.store.Applications().List(ctx, repository.ApplicationFilter{Status: status})
}

// FindByProjectAndFreelancer returns the single application a freelancer
// filed for a project.
func (s *ApplicationLifecycle) FindByProjectAndFreelancer(ctx context.Context, projectID, freelancerID uint64) (*model.Application, error) {
	apps, err := s.store.Applications().List(ctx, repository.ApplicationFilter{ProjectID: projectID, FreelancerID: freelancerID})
	if err != nil {
		return nil, err
	}
	if len(apps) == 0 {
		return nil, repository.ErrNotFound
	}
	return &apps[0], nil
}

// OpenAttachment streams the CV of an application.  The caller closes the
// reader.
func (s *ApplicationLifecycle) OpenAttachment(ctx context.Context, id uint64) (io.ReadCloser, string, error) {
	app, err := s.store.Applications().GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if app.AttachmentKey == nil || s.objects == nil {
		return nil, "", repository.ErrNotFound
	}
	rc, err := s.objects.Get(ctx, *app.AttachmentKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, "", repository.ErrNotFound
	}
	if err != nil {
		return nil, "", err
	}
	return rc, *app.AttachmentKey, nil
}

func (s *ApplicationLifecycle) selfOrAdmin(ctx context.Context, actor Actor, username string) (*model.User, error) {
	if !actor.IsAdmin() && actor.Username != username {
		return nil, repository.ErrForbidden
	}
	return s.store.Users().GetByUsername(ctx, username)
}
