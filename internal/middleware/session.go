package middleware

import (
	"context"
	"errors"

	"ideaboard/internal/auth"
	"ideaboard/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const sessionLocal = "session"

// SessionStore resolves the stored user behind a session.
type SessionStore interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
}

// Session decodes the user_session cookie into request locals. Invalid
// cookies are cleared and the request continues anonymously. On
// state-changing methods the profile is re-read from the store so role
// changes and deletions take effect immediately; a refreshed cookie is
// issued when the stored profile differs.
func Session(codec *auth.SessionCodec, store SessionStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		value := c.Cookies(auth.SessionCookieName)
		if value == "" {
			return c.Next()
		}

		user, err := codec.Decode(value)
		if err != nil {
			c.Cookie(codec.ExpiredCookie())
			return c.Next()
		}

		if isMutating(c.Method()) {
			stored, err := store.GetByID(c.UserContext(), user.ID)
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				c.Cookie(codec.ExpiredCookie())
				return c.Next()
			case err != nil:
				Logger.ErrorContext(c.UserContext(), "session revalidation failed", "error", err)
				return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
			}
			fresh := auth.NewSessionUser(stored)
			if fresh != user {
				if cookie, err := codec.Cookie(fresh); err == nil {
					c.Cookie(cookie)
				}
				user = fresh
			}
		}

		c.Locals(sessionLocal, &user)
		c.SetUserContext(WithUserID(c.UserContext(), user.ID))
		return c.Next()
	}
}

func isMutating(method string) bool {
	switch method {
	case fiber.MethodPost, fiber.MethodPut, fiber.MethodPatch, fiber.MethodDelete:
		return true
	}
	return false
}

// CurrentUser returns the session profile, or nil for anonymous requests.
func CurrentUser(c *fiber.Ctx) *auth.SessionUser {
	u, _ := c.Locals(sessionLocal).(*auth.SessionUser)
	return u
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth() fiber.Handler {
	return requireRole(models.RoleUser)
}

// RequireModerator rejects requests below the moderator role.
func RequireModerator() fiber.Handler {
	return requireRole(models.RoleModerator)
}

// RequireAdmin rejects requests below the admin role.
func RequireAdmin() fiber.Handler {
	return requireRole(models.RoleAdmin)
}

func requireRole(min models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u := CurrentUser(c)
		if u == nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.ErrUnauthenticated)
		}
		if !u.Role.AtLeast(min) {
			return models.RespondWithError(c, fiber.StatusForbidden, models.ErrForbidden)
		}
		return c.Next()
	}
}
