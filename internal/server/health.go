package server

import (
	"context"
	"time"

	"ideaboard/internal/database"

	"github.com/gofiber/fiber/v2"
)

const (
	checkHealthy   = "healthy"
	checkUnhealthy = "unhealthy"
	checkDisabled  = "disabled"

	readinessTimeout = 5 * time.Second
)

type livenessResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

type readinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	Time   time.Time         `json:"time"`
}

func checkResult(err error) string {
	if err != nil {
		return checkUnhealthy
	}
	return checkHealthy
}

// LivenessCheck answers as long as the process serves requests.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(livenessResponse{Status: "up", Time: time.Now()})
}

// ReadinessCheck probes the database and, when configured, Redis. Only the
// database gates readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	resp := readinessResponse{
		Status: checkHealthy,
		Checks: map[string]string{
			"database": checkResult(database.Ping(ctx, s.db)),
			"redis":    checkDisabled,
		},
		Time: time.Now(),
	}
	if s.redis != nil {
		resp.Checks["redis"] = checkResult(s.redis.Ping(ctx).Err())
	}

	if resp.Checks["database"] != checkHealthy {
		resp.Status = checkUnhealthy
		return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
	}
	return c.JSON(resp)
}
