package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"ideaboard/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	addr string
	from string
	to   []string
	msg  string
}

func newTestMailer(perMinute int, send sendFunc) *SMTPMailer {
	m := NewSMTPMailer(Config{
		Host: "smtp.example.com", Port: "587",
		Username: "bot@example.com", Password: "pw",
		From: "bot@example.com", FromName: "IT Idea Board",
		RatePerMinute: perMinute,
	})
	m.send = send
	return m
}

func TestSMTPMailer_Send(t *testing.T) {
	var got captured
	m := newTestMailer(60, func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		got = captured{addr: addr, from: from, to: to, msg: string(msg)}
		return nil
	})

	err := m.Send(context.Background(), Message{
		To:      "user@uab.edu",
		Subject: "Reset\r\nBcc: evil@example.com",
		Body:    "link",
	})
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", got.addr)
	assert.Equal(t, "bot@example.com", got.from)
	assert.Equal(t, []string{"user@uab.edu"}, got.to)
	assert.Contains(t, got.msg, "From: IT Idea Board <bot@example.com>\r\n")
	assert.Contains(t, got.msg, "Subject: ResetBcc: evil@example.com\r\n")
	assert.True(t, strings.HasSuffix(got.msg, "\r\n\r\nlink"))
}

func TestSMTPMailer_SendError(t *testing.T) {
	m := newTestMailer(60, func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("relay refused")
	})
	err := m.Send(context.Background(), Message{To: "a@b.c"})
	assert.ErrorContains(t, err, "relay refused")
}

func TestSMTPMailer_Throttles(t *testing.T) {
	m := newTestMailer(1, func(string, smtp.Auth, string, []string, []byte) error { return nil })
	require.NoError(t, m.Send(context.Background(), Message{To: "a@b.c"}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := m.Send(ctx, Message{To: "a@b.c"})
	assert.ErrorContains(t, err, "mail throttled")
}

func TestSMTPMailer_CancelledDuringSend(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	m := newTestMailer(60, func(string, smtp.Auth, string, []string, []byte) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, m.Send(ctx, Message{To: "a@b.c"}), context.DeadlineExceeded)
}

func TestSplitServer(t *testing.T) {
	host, port := SplitServer("smtp.gmail.com")
	assert.Equal(t, "smtp.gmail.com", host)
	assert.Equal(t, DefaultSMTPPort, port)

	host, port = SplitServer("mail.uab.edu:465")
	assert.Equal(t, "mail.uab.edu", host)
	assert.Equal(t, "465", port)
}

func TestNew(t *testing.T) {
	_, isNoop := New(&config.Config{}).(Noop)
	assert.True(t, isNoop)

	m := New(&config.Config{MailerEmail: "bot@uab.edu", MailerPassword: "pw", MailerSMTPServer: "smtp.uab.edu"})
	_, isSMTP := m.(*SMTPMailer)
	assert.True(t, isSMTP)

	assert.ErrorIs(t, Noop{}.Send(context.Background(), Message{}), ErrNotConfigured)
}
