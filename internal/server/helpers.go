package server

import (
	"errors"

	"ideaboard/internal/auth"
	"ideaboard/internal/middleware"
	"ideaboard/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// authRefreshHeader tells the client to re-read /api/auth/me.
const authRefreshHeader = "X-Auth-Refresh"

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid ID"))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// parseBody decodes the JSON body or writes a 400.
func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
		return errResponseWritten
	}
	return nil
}

// respondError writes err with the status its code maps to. Server-side
// failures are logged with the request context.
func respondError(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			"method", c.Method(),
			"path", c.Path(),
			"error", err,
		)
	}
	return models.RespondWithError(c, status, err)
}

// startSession issues the session cookie for u.
func (s *Server) startSession(c *fiber.Ctx, u *models.User) error {
	cookie, err := s.sessions.Cookie(auth.NewSessionUser(u))
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}
	c.Cookie(cookie)
	c.Set(authRefreshHeader, "1")
	return nil
}

func (s *Server) endSession(c *fiber.Ctx) {
	c.Cookie(s.sessions.ExpiredCookie())
	c.Set(authRefreshHeader, "1")
}

// messageResponse is the body for operations that only report an outcome.
type messageResponse struct {
	Message string `json:"message"`
}
