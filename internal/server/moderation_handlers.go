package server

import (
	"ideaboard/internal/middleware"
	"ideaboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ModUpdateIdea handles PUT /api/mod/ideas/:id
func (s *Server) ModUpdateIdea(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req service.IdeaInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	idea, err := s.ideaService.UpdateIdeaMod(c.UserContext(), middleware.CurrentUser(c), id, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(idea)
}

// ModUpdateStage handles PUT /api/mod/ideas/:id/stage
func (s *Server) ModUpdateStage(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Stage string `json:"stage"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	stage, err := s.ideaService.UpdateStage(c.UserContext(), middleware.CurrentUser(c), id, req.Stage)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"idea_id": id, "stage": stage})
}

// ModTogglePin handles POST /api/mod/ideas/:id/pin
func (s *Server) ModTogglePin(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	pinned, err := s.ideaService.TogglePin(c.UserContext(), middleware.CurrentUser(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"idea_id": id, "pinned": pinned})
}

// ModSetOffTopic handles PUT /api/mod/ideas/:id/off-topic
func (s *Server) ModSetOffTopic(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		OffTopic bool `json:"is_off_topic"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	offTopic, err := s.ideaService.SetOffTopic(c.UserContext(), middleware.CurrentUser(c), id, req.OffTopic)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"idea_id": id, "is_off_topic": offTopic})
}

// ModToggleComments handles POST /api/mod/ideas/:id/comments-toggle
func (s *Server) ModToggleComments(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	enabled, err := s.ideaService.ToggleComments(c.UserContext(), middleware.CurrentUser(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"idea_id": id, "comments_enabled": enabled})
}

// ModDeleteIdea handles DELETE /api/mod/ideas/:id
func (s *Server) ModDeleteIdea(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.ideaService.DeleteIdea(c.UserContext(), middleware.CurrentUser(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListOffTopic handles GET /api/mod/off-topic
func (s *Server) ListOffTopic(c *fiber.Ctx) error {
	ideas, err := s.ideaService.ListOffTopic(c.UserContext(), middleware.CurrentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(ideas)
}

// ModUpdateComment handles PUT /api/mod/comments/:id
func (s *Server) ModUpdateComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req contentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	comment, err := s.commentService.UpdateCommentMod(c.UserContext(), middleware.CurrentUser(c), id, req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(comment)
}

// ModDeleteComment handles DELETE /api/mod/comments/:id
func (s *Server) ModDeleteComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.commentService.DeleteCommentMod(c.UserContext(), middleware.CurrentUser(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ModToggleCommentPin handles POST /api/mod/comments/:id/pin
func (s *Server) ModToggleCommentPin(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	pinned, err := s.commentService.ToggleCommentPin(c.UserContext(), middleware.CurrentUser(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"comment_id": id, "pinned": pinned})
}

// ListFlagged handles GET /api/mod/flagged
func (s *Server) ListFlagged(c *fiber.Ctx) error {
	items, err := s.flagService.ListFlagged(c.UserContext(), middleware.CurrentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(items)
}

// ClearFlags handles DELETE /api/mod/flags/:type/:id
func (s *Server) ClearFlags(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	cleared, err := s.flagService.ClearFlags(c.UserContext(), middleware.CurrentUser(c), c.Params("type"), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"cleared": cleared})
}
