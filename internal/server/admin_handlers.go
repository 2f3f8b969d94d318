package server

import (
	"bytes"
	"context"
	"io"
	"strconv"

	"ideaboard/internal/middleware"
	"ideaboard/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ListUsers handles GET /api/admin/users
func (s *Server) ListUsers(c *fiber.Ctx) error {
	users, err := s.adminService.ListUsers(c.UserContext(), middleware.CurrentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

// UpdateUserRole handles PUT /api/admin/users/:id/role
func (s *Server) UpdateUserRole(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Role *int `json:"role"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if req.Role == nil {
		return respondError(c, models.NewFieldValidationError("invalid_role", "Role is required"))
	}
	if err := s.adminService.UpdateUserRole(c.UserContext(), middleware.CurrentUser(c), id, *req.Role); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"user_id": id, "role": *req.Role})
}

// DeleteUser handles DELETE /api/admin/users/:id
func (s *Server) DeleteUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.adminService.DeleteUser(c.UserContext(), middleware.CurrentUser(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetStats handles GET /api/admin/stats
func (s *Server) GetStats(c *fiber.Ctx) error {
	stats, err := s.adminService.GetStats(c.UserContext(), middleware.CurrentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

// DeleteIdeas handles DELETE /api/admin/ideas. With older_than_days it
// purges ideas past that age; without it the whole board is cleared.
func (s *Server) DeleteIdeas(c *fiber.Ctx) error {
	ctx := c.UserContext()
	actor := middleware.CurrentUser(c)

	var (
		deleted int64
		err     error
	)
	if raw := c.Query("older_than_days"); raw != "" {
		days, convErr := strconv.Atoi(raw)
		if convErr != nil {
			return respondError(c, models.NewFieldValidationError("invalid_days", "Days must be a positive number"))
		}
		deleted, err = s.adminService.DeleteOlderThan(ctx, actor, days)
	} else {
		deleted, err = s.adminService.DeleteAllIdeas(ctx, actor)
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"deleted": deleted})
}

// ExportIdeas handles GET /api/admin/export/ideas.csv
func (s *Server) ExportIdeas(c *fiber.Ctx) error {
	return s.sendCSV(c, "ideas.csv", func(ctx context.Context, w io.Writer) error {
		return s.exportService.ExportIdeasCSV(ctx, middleware.CurrentUser(c), w)
	})
}

// ExportComments handles GET /api/admin/export/comments.csv
func (s *Server) ExportComments(c *fiber.Ctx) error {
	return s.sendCSV(c, "comments.csv", func(ctx context.Context, w io.Writer) error {
		return s.exportService.ExportCommentsCSV(ctx, middleware.CurrentUser(c), w)
	})
}

// sendCSV renders into a buffer first so a failed export still gets a JSON
// error instead of a truncated file.
func (s *Server) sendCSV(c *fiber.Ctx, filename string, render func(context.Context, io.Writer) error) error {
	var buf bytes.Buffer
	if err := render(c.UserContext(), &buf); err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(buf.Bytes())
}
