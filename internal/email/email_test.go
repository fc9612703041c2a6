package email

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLogSenderNeverConfirms(t *testing.T) {
	s := NewLogSender(zap.NewNop())

	receipt, err := s.Send(context.Background(), OTPMessage("a@uni.edu", "Ana", "123456", 10*time.Minute))
	require.NoError(t, err)
	assert.False(t, receipt.Accepted)
	assert.True(t, strings.HasPrefix(receipt.TransportID, "log-"))

	_, err = s.Send(context.Background(), Message{Subject: "x"})
	assert.ErrorIs(t, err, ErrRecipientRequired)
}

func TestNewSMTPSenderValidation(t *testing.T) {
	_, err := NewSMTPSender("", 0, "", "", "from@x.y", "", false)
	assert.Error(t, err)

	_, err = NewSMTPSender("smtp.x.y", 0, "", "", " ", "", false)
	assert.Error(t, err)

	s, err := NewSMTPSender("smtp.x.y", 0, "", "", "from@x.y", "", false)
	require.NoError(t, err)
	assert.Equal(t, 587, s.port)
}

func TestBuildMessageHeaders(t *testing.T) {
	date := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	raw := buildMessage("no-reply@x.y", "Smart Projector Manager", "a@b.c", "Hi", "<id@x.y>", date, "body")

	head, body, ok := strings.Cut(raw, "\r\n\r\n")
	require.True(t, ok)
	assert.Equal(t, "body", body)
	assert.Contains(t, head, "From: Smart Projector Manager <no-reply@x.y>")
	assert.Contains(t, head, "Message-ID: <id@x.y>")
	assert.Contains(t, head, "Date: Thu, 02 Jan 2025 03:04:05 +0000")
}

func TestTemplates(t *testing.T) {
	otp := OTPMessage("a@b.c", "", "654321", 10*time.Minute)
	assert.Contains(t, otp.Body, "Hello User,")
	assert.Contains(t, otp.Body, "654321")
	assert.Contains(t, otp.Body, "10 minutes")

	link := VerificationLinkMessage("a@b.c", "Ana", "http://localhost/verify?token=t")
	assert.Contains(t, link.Subject, "Verify your")
	assert.Contains(t, link.Body, "http://localhost/verify?token=t")

	creds := CredentialsMessage("a@b.c", "Ana", "ana", "s3cret")
	assert.Contains(t, creds.Body, "Username: ana")
	assert.Contains(t, creds.Body, "Password: s3cret")
}
