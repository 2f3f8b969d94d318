package service

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"ideaboard/internal/auth"
	"ideaboard/internal/mailer"
	"ideaboard/internal/models"
	"ideaboard/internal/repository"
	"ideaboard/internal/validation"
)

// Messages returned by the password reset flow.
const (
	ResetRequestedMessage = "Check your email"
	ResetSucceededMessage = "Password successfully reset, please, proceed to login"
	ResetFailedMessage    = "Something went wrong, try again later"
	ResetEmailSubject     = "Your password reset from IT Idea Board"
)

// errResetFailed is the single failure callers see for any bad confirm.
var errResetFailed = models.NewFieldValidationError("reset_failed", ResetFailedMessage)

// ResetService runs the two-step password reset flow.
type ResetService struct {
	users   repository.UserRepository
	hasher  auth.PasswordHasher
	signer  auth.TokenSigner
	mail    mailer.Mailer
	baseURL string
}

// NewResetService returns a new ResetService. Links in reset emails point at
// baseURL.
func NewResetService(users repository.UserRepository, hasher auth.PasswordHasher, signer auth.TokenSigner, mail mailer.Mailer, baseURL string) *ResetService {
	return &ResetService{
		users:   users,
		hasher:  hasher,
		signer:  signer,
		mail:    mail,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// RequestReset mails a one-hour reset link when email belongs to a user.
// The result is the same whether or not the account exists, and delivery
// failures are only logged.
func (s *ResetService) RequestReset(ctx context.Context, email string) string {
	email = validation.NormalizeEmail(email)
	if email == "" {
		return ResetRequestedMessage
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			slog.ErrorContext(ctx, "password reset lookup failed", slog.Any("error", err))
		}
		return ResetRequestedMessage
	}

	token, err := s.signer.Sign(user.Email, auth.ResetTokenTTL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create reset token", slog.Any("error", err))
		return ResetRequestedMessage
	}

	msg := mailer.Message{
		To:      user.Email,
		Subject: ResetEmailSubject,
		Body:    "You can reset your password accessing the following link: " + s.resetLink(token),
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		if errors.Is(err, mailer.ErrNotConfigured) {
			slog.WarnContext(ctx, "password reset email skipped, mailer not configured")
		} else {
			slog.ErrorContext(ctx, "failed to send password reset email", slog.Any("error", err))
		}
	}
	return ResetRequestedMessage
}

func (s *ResetService) resetLink(token string) string {
	return s.baseURL + "/reset_password?token=" + url.QueryEscape(token)
}

// ConfirmReset sets a new password for the account named by token.
func (s *ResetService) ConfirmReset(ctx context.Context, token, password, confirm string) (string, error) {
	if password != confirm {
		return "", errResetFailed
	}
	if err := validation.ValidatePassword(password); err != nil {
		return "", err
	}

	email, err := s.signer.Verify(token)
	if err != nil {
		slog.InfoContext(ctx, "invalid reset token provided")
		return "", errResetFailed
	}
	if _, err := s.users.GetByEmail(ctx, email); err != nil {
		slog.InfoContext(ctx, "reset token names a missing user")
		return "", errResetFailed
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash new password", slog.Any("error", err))
		return "", errResetFailed
	}
	if err := s.users.SetPasswordHash(ctx, email, hash); err != nil {
		slog.ErrorContext(ctx, "error while resetting the password", slog.Any("error", err))
		return "", errResetFailed
	}
	return ResetSucceededMessage, nil
}
