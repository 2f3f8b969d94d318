// Package service implements the board's business rules: idea and comment
// moderation, voting, flagging, ranking, administration and accounts.
// Services authorize the acting session user themselves and translate
// gateway errors into the models.AppError taxonomy.
package service

import (
	"context"
	"errors"

	"ideaboard/internal/auth"
	"ideaboard/internal/cache"
	"ideaboard/internal/models"
	"ideaboard/internal/repository"
)

// Actor is the authenticated caller, or nil for anonymous requests.
type Actor = *auth.SessionUser

func requireUser(actor Actor) error {
	if actor == nil || actor.ID == 0 {
		return models.ErrUnauthenticated
	}
	return nil
}

func requireRole(actor Actor, min models.Role) error {
	if err := requireUser(actor); err != nil {
		return err
	}
	if !actor.Role.AtLeast(min) {
		return models.ErrForbidden
	}
	return nil
}

func requireModerator(actor Actor) error { return requireRole(actor, models.RoleModerator) }

func requireAdmin(actor Actor) error { return requireRole(actor, models.RoleAdmin) }

// translate maps gateway errors onto the AppError taxonomy.
func translate(err error, resource string, id interface{}) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return models.NewNotFoundError(resource, id)
	case errors.Is(err, repository.ErrDuplicate):
		return models.NewConflictError(resource + " already exists")
	default:
		return models.NewInternalError(err)
	}
}

// statsChanged drops cached dashboard counters after a mutation that
// affects them.
func statsChanged(ctx context.Context) {
	cache.InvalidateAdminStats(ctx)
}
