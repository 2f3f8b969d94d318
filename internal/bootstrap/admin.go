package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"ideaboard/internal/auth"
	"ideaboard/internal/middleware"
	"ideaboard/internal/models"
	"ideaboard/internal/repository"
)

// Fallback credentials used when INITIAL_ADMIN_* are unset.
const (
	DefaultAdminEmail    = "admin"
	DefaultAdminPassword = "admin"
	adminName            = "Administrator"
)

// EnsureAdmin creates the first administrator when none exists and reports
// whether it did. Existing administrators are never touched.
func EnsureAdmin(ctx context.Context, users repository.UserRepository, hasher auth.PasswordHasher, email, password string) (bool, error) {
	n, err := users.CountByRole(ctx, models.RoleAdmin)
	if err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		email = DefaultAdminEmail
	}
	if password == "" {
		password = DefaultAdminPassword
	}
	if email == DefaultAdminEmail && password == DefaultAdminPassword {
		middleware.Logger.WarnContext(ctx, "WARNING: using default admin credentials (admin/admin); change them in production")
	}

	hash, err := hasher.Hash(password)
	if err != nil {
		return false, err
	}
	admin := &models.User{Email: email, Name: adminName, PasswordHash: hash}
	created, err := users.CreateAdminIfNone(ctx, admin)
	if err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}
	if created {
		middleware.Logger.InfoContext(ctx, "admin user created", "email", email)
	}
	return created, nil
}
