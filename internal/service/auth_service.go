package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"ideaboard/internal/auth"
	"ideaboard/internal/models"
	"ideaboard/internal/repository"
	"ideaboard/internal/validation"
)

// Account error messages. Login failures never say which part was wrong.
const (
	InvalidCredentialsMessage = "Invalid email or password"
	EmailTakenMessage         = "Email already registered"
)

// AuthService handles local accounts.
type AuthService struct {
	users  repository.UserRepository
	hasher auth.PasswordHasher

	decoyOnce sync.Once
	decoy     string
}

// NewAuthService returns a new AuthService.
func NewAuthService(users repository.UserRepository, hasher auth.PasswordHasher) *AuthService {
	return &AuthService{users: users, hasher: hasher}
}

// SignupInput is the signup form.
type SignupInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup creates a regular user account.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	email := validation.NormalizeEmail(in.Email)
	if err := validation.ValidateSignup(name, email, in.Password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user := &models.User{Email: email, Name: name, PasswordHash: hash, Role: models.RoleUser}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, models.NewConflictError(EmailTakenMessage)
		}
		return nil, translate(err, "User", email)
	}
	slog.InfoContext(ctx, "user signed up", slog.Uint64("new_user_id", uint64(user.ID)))
	return user, nil
}

// Login checks credentials and returns the matching user.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, validation.NormalizeEmail(email))
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			slog.ErrorContext(ctx, "login lookup failed", slog.Any("error", err))
		}
		// Unknown emails pay the same hash comparison as wrong passwords.
		s.hasher.Verify(password, s.decoyHash())
		return nil, models.NewUnauthenticatedError(InvalidCredentialsMessage)
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, models.NewUnauthenticatedError(InvalidCredentialsMessage)
	}
	return user, nil
}

// decoyHash lazily hashes a fixed string with the service's hasher.
func (s *AuthService) decoyHash() string {
	s.decoyOnce.Do(func() {
		h, err := s.hasher.Hash("ideaboard-login-decoy")
		if err != nil {
			slog.Error("login decoy hash failed", slog.Any("error", err))
			return
		}
		s.decoy = h
	})
	return s.decoy
}

// GetUser returns the caller's current profile, or nil for anonymous
// callers and sessions whose user no longer exists.
func (s *AuthService) GetUser(ctx context.Context, actor Actor) (*models.User, error) {
	if actor == nil {
		return nil, nil
	}
	user, err := s.users.GetByID(ctx, actor.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err, "User", actor.ID)
	}
	return user, nil
}
