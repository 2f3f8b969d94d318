// Package mailer sends transactional email over SMTP.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"ideaboard/internal/config"
	"ideaboard/internal/middleware"
	"ideaboard/internal/observability"

	"golang.org/x/time/rate"
)

// DefaultSMTPPort is used when MAILER_SMTP_SERVER carries no port.
const DefaultSMTPPort = "587"

// ErrNotConfigured is returned by Noop for every send.
var ErrNotConfigured = errors.New("mailer not configured")

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers messages. Implementations must honor ctx cancellation.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Config holds SMTP settings.
type Config struct {
	Host          string
	Port          string
	Username      string
	Password      string
	From          string
	FromName      string
	RatePerMinute int
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends through an authenticated SMTP relay, throttled to
// RatePerMinute messages.
type SMTPMailer struct {
	cfg     Config
	auth    smtp.Auth
	limiter *rate.Limiter
	send    sendFunc
}

// NewSMTPMailer creates an SMTP mailer.
func NewSMTPMailer(cfg Config) *SMTPMailer {
	perMinute := cfg.RatePerMinute
	if perMinute <= 0 {
		perMinute = 30
	}
	return &SMTPMailer{
		cfg:     cfg,
		auth:    smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host),
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
		send:    smtp.SendMail,
	}
}

// New returns an SMTP mailer when MAILER_* settings are complete and a
// Noop mailer otherwise.
func New(cfg *config.Config) Mailer {
	if !cfg.MailerConfigured() {
		middleware.Logger.Warn("mailer not configured; password reset emails are disabled")
		return Noop{}
	}
	host, port := SplitServer(cfg.MailerSMTPServer)
	return NewSMTPMailer(Config{
		Host:          host,
		Port:          port,
		Username:      cfg.MailerEmail,
		Password:      cfg.MailerPassword,
		From:          cfg.MailerEmail,
		FromName:      "IT Idea Board",
		RatePerMinute: cfg.MailerRatePerMinute,
	})
}

// SplitServer splits host[:port], defaulting the port to 587.
func SplitServer(server string) (host, port string) {
	if h, p, err := net.SplitHostPort(server); err == nil {
		return h, p
	}
	return server, DefaultSMTPPort
}

// Send waits for the rate limiter, then delivers msg. A cancelled ctx
// abandons the wait; an in-flight SMTP exchange is not interrupted but its
// result is discarded.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := m.limiter.Wait(ctx); err != nil {
		observability.MailSendTotal.WithLabelValues("throttled").Inc()
		return fmt.Errorf("mail throttled: %w", err)
	}

	payload := m.render(msg)
	addr := net.JoinHostPort(m.cfg.Host, m.cfg.Port)

	done := make(chan error, 1)
	go func() {
		done <- m.send(addr, m.auth, m.cfg.From, []string{msg.To}, payload)
	}()

	select {
	case err := <-done:
		if err != nil {
			observability.MailSendTotal.WithLabelValues("error").Inc()
			return fmt.Errorf("smtp send: %w", err)
		}
		observability.MailSendTotal.WithLabelValues("sent").Inc()
		return nil
	case <-ctx.Done():
		observability.MailSendTotal.WithLabelValues("cancelled").Inc()
		return ctx.Err()
	}
}

func (m *SMTPMailer) render(msg Message) []byte {
	from := m.cfg.From
	if m.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", m.cfg.FromName, m.cfg.From)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "To: %s\r\n", stripCRLF(msg.To))
	fmt.Fprintf(&b, "From: %s\r\n", stripCRLF(from))
	fmt.Fprintf(&b, "Subject: %s\r\n", stripCRLF(msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return []byte(b.String())
}

func stripCRLF(s string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}

// Noop drops every message.
type Noop struct{}

// Send reports ErrNotConfigured.
func (Noop) Send(context.Context, Message) error {
	return ErrNotConfigured
}
