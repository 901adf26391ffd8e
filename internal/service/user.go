package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/freelance-marketplace/internal/mail"
	"github.com/iliyamo/freelance-marketplace/internal/model"
	"github.com/iliyamo/freelance-marketplace/internal/repository"
)

// UserService covers the administrator's account management and the
// audit log of mail sent to account owners.
type UserService struct {
	users  repository.UserRepository
	mails  repository.MailRepository
	mailer mail.Mailer
	log    logrus.FieldLogger
	now    func() time.Time
}

// NewUserService returns the account service.  mails records every
// message handed to mailer.
func NewUserService(users repository.UserRepository, mails repository.MailRepository, mailer mail.Mailer, log logrus.FieldLogger) *UserService {
	return &UserService{users: users, mails: mails, mailer: mailer, log: log, now: time.Now}
}

// List returns every account.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	return s.users.List(ctx)
}

// Get returns the account with the given id or repository.ErrNotFound.
func (s *UserService) Get(ctx context.Context, id uint64) (*model.User, error) {
	return s.users.GetByID(ctx, id)
}

// Verify marks the account verified and mails the owner.  A failed mail is
// logged and does not fail the call; either way the attempt is written to
// the mail log.
func (s *UserService) Verify(ctx context.Context, id uint64) (*model.User, error) {
	if err := s.users.SetVerified(ctx, id, true); err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	subject, body := mail.VerificationMail(u.Username)
	s.send(ctx, u.Email, subject, body, model.MailVerification)
	return u, nil
}

// send delivers one mail and records the outcome.  Neither a failed send
// nor a failed audit write is returned to the caller.
func (s *UserService) send(ctx context.Context, to, subject, body string, typ model.MailType) {
	rec := &model.MailRecord{Recipient: to, Subject: subject, Content: body, Type: typ, SentAt: s.now().UTC()}
	if err := s.mailer.Send(ctx, to, subject, body); err != nil {
		s.log.WithError(err).WithField("to", to).Warn("mail not sent")
	} else {
		rec.Sent = true
	}
	if err := s.mails.Create(ctx, rec); err != nil {
		s.log.WithError(err).WithField("to", to).Warn("mail log not written")
	}
}

// MailLog lists recorded mail, most recent first.
func (s *UserService) MailLog(ctx context.Context, f repository.MailFilter) ([]model.MailRecord, error) {
	return s.mails.List(ctx, f)
}
