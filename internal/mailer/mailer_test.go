package mailer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdouEl-Ghazali/link-builder/internal/logging"
	"github.com/AbdouEl-Ghazali/link-builder/internal/outreach"
)

func testSender() *Sender {
	return New(Config{Host: "smtp.example.com", Port: 587, FromEmail: "ava@build-a-dress.com", FromName: "Ava"}, logging.New("error"))
}

func TestValidateRejectsBadFormats(t *testing.T) {
	t.Parallel()

	s := testSender()
	for _, addr := range []string{"", "noat", "a@@b.com", "a@nodot", "spaces in@addr.com"} {
		err := s.Validate(context.Background(), addr)
		assert.ErrorIs(t, err, outreach.ErrInvalidAddress, "addr %q", addr)
	}
}

func TestSendWithoutCredentials(t *testing.T) {
	t.Parallel()

	err := testSender().Send(context.Background(), "a@b.com", "s", "b")
	require.ErrorIs(t, err, outreach.ErrSMTPNotConfigured)
}

func TestDomain(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "fashionblog.com", Domain("a@FashionBlog.com"))
	assert.Equal(t, "", Domain("no-at-sign"))
}

func TestIsDomainNotFound(t *testing.T) {
	t.Parallel()

	assert.True(t, isDomainNotFound(errors.New("550 the domain fashionblog.test was not found")))
	assert.True(t, isDomainNotFound(errors.New("address couldn't be found")))
	assert.False(t, isDomainNotFound(errors.New("mailbox full")))
}

func TestEncodeMessage(t *testing.T) {
	t.Parallel()

	b := string(testSender().encode("a@b.com", "Hello", "line one\nline two"))
	assert.Contains(t, b, "From: Ava <ava@build-a-dress.com>\r\n")
	assert.Contains(t, b, "To: a@b.com\r\n")
	assert.Contains(t, b, "Subject: Hello\r\n")
	assert.Contains(t, b, "line one\r\nline two")
}
