// Package mail sends transactional e-mail.  Delivery is best effort: the
// callers log a failed Send and carry on.
package mail

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	gomail "github.com/wneessen/go-mail"

	"github.com/iliyamo/freelance-marketplace/internal/config"
)

// Mailer delivers a plain text message to one recipient.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer sends through an SMTP relay.
type SMTPMailer struct {
	client *gomail.Client
	from   string
}

// NewSMTPMailer builds the client.  No connection is opened until Send.
func NewSMTPMailer(c config.MailConfig) (*SMTPMailer, error) {
	opts := []gomail.Option{
		gomail.WithPort(c.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if c.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(c.Username),
			gomail.WithPassword(c.Password),
		)
	}
	client, err := gomail.NewClient(c.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPMailer{client: client, from: c.From}, nil
}

// Send delivers a plain-text message through the configured relay.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)
	return m.client.DialAndSendWithContext(ctx, msg)
}

// LogMailer only logs what it would have sent.
type LogMailer struct{ Log logrus.FieldLogger }

// Send only logs the recipient and subject.
func (m LogMailer) Send(_ context.Context, to, subject, _ string) error {
	m.Log.WithFields(logrus.Fields{"to": to, "subject": subject}).Info("mail delivery disabled, message dropped")
	return nil
}

// VerificationMail returns the subject and body sent when an administrator
// verifies an account.
func VerificationMail(username string) (subject, body string) {
	subject = "Account Verification - Freelance Platform"
	body = "Dear " + username + ",\n\n" +
		"Congratulations! Your account has been verified by our administrators.\n\n" +
		"You can now log in to our platform and start using all the features.\n\n" +
		"Welcome to our Freelance Platform!\n\n" +
		"Best regards,\n" +
		"The Freelance Platform Team"
	return subject, body
}
