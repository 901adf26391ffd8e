package mail

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/freelance-marketplace/internal/config"
)

func TestVerificationMail(t *testing.T) {
	subject, body := VerificationMail("bob")
	assert.Equal(t, "Account Verification - Freelance Platform", subject)
	assert.Contains(t, body, "Dear bob,")
	assert.Contains(t, body, "verified by our administrators")
}

func TestLogMailerRecordsInsteadOfSending(t *testing.T) {
	logger, hook := test.NewNullLogger()
	require.NoError(t, LogMailer{Log: logger}.Send(context.Background(), "bob@example.com", "hi", "body"))
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, "bob@example.com", hook.LastEntry().Data["to"])
}

func TestSMTPMailerRejectsBadRecipient(t *testing.T) {
	m, err := NewSMTPMailer(config.MailConfig{Host: "localhost", Port: 2525, From: "no-reply@example.com"})
	require.NoError(t, err)
	err = m.Send(context.Background(), "not an address", "s", "b")
	assert.Error(t, err)
}
