package server

import (
	"ideaboard/internal/middleware"
	"ideaboard/internal/models"
	"ideaboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

type contentRequest struct {
	Content string `json:"content"`
}

type ideaDetailResponse struct {
	*models.IdeaWithAuthor
	HasVoted   bool `json:"has_voted"`
	HasFlagged bool `json:"has_flagged"`
}

// ListIdeas handles GET /api/ideas?sort=popular|recent&q=...
func (s *Server) ListIdeas(c *fiber.Ctx) error {
	listing, err := s.ideaService.ListIdeas(c.UserContext(), models.IdeaQuery{
		Sort:   models.ParseSortMode(c.Query("sort")),
		Search: c.Query("q"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(listing)
}

// GetIdea handles GET /api/ideas/:id
func (s *Server) GetIdea(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	ctx := c.UserContext()
	actor := middleware.CurrentUser(c)

	idea, err := s.ideaService.GetIdea(ctx, actor, id)
	if err != nil {
		return respondError(c, err)
	}
	resp := ideaDetailResponse{IdeaWithAuthor: idea}
	if actor != nil {
		if resp.HasVoted, err = s.voteService.HasVoted(ctx, actor, id); err != nil {
			return respondError(c, err)
		}
		if resp.HasFlagged, err = s.flagService.HasFlagged(ctx, actor, string(models.TargetIdea), id); err != nil {
			return respondError(c, err)
		}
	}
	return c.JSON(resp)
}

// CreateIdea handles POST /api/ideas
func (s *Server) CreateIdea(c *fiber.Ctx) error {
	var req service.IdeaInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	idea, err := s.ideaService.CreateIdea(c.UserContext(), middleware.CurrentUser(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(idea)
}

// UpdateOwnIdea handles PUT /api/ideas/:id for the idea's author.
func (s *Server) UpdateOwnIdea(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req service.IdeaInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	idea, err := s.ideaService.UpdateIdeaOwn(c.UserContext(), middleware.CurrentUser(c), id, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(idea)
}

// MyIdeas handles GET /api/me/ideas
func (s *Server) MyIdeas(c *fiber.Ctx) error {
	ideas, err := s.ideaService.ListUserIdeas(c.UserContext(), middleware.CurrentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	if ideas == nil {
		ideas = []models.Idea{}
	}
	return c.JSON(ideas)
}

// ToggleVote handles POST /api/ideas/:id/vote
func (s *Server) ToggleVote(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	voted, err := s.voteService.ToggleVote(c.UserContext(), middleware.CurrentUser(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"idea_id": id, "voted": voted})
}

// MyVotes handles GET /api/me/votes
func (s *Server) MyVotes(c *fiber.Ctx) error {
	ids, err := s.voteService.CheckUserVotes(c.UserContext(), middleware.CurrentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(ids)
}

// FlagIdea handles POST /api/ideas/:id/flag
func (s *Server) FlagIdea(c *fiber.Ctx) error {
	return s.flag(c, models.TargetIdea)
}

// FlagComment handles POST /api/comments/:id/flag
func (s *Server) FlagComment(c *fiber.Ctx) error {
	return s.flag(c, models.TargetComment)
}

func (s *Server) flag(c *fiber.Ctx, target models.TargetType) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	created, err := s.flagService.Flag(c.UserContext(), middleware.CurrentUser(c), string(target), id)
	if err != nil {
		return respondError(c, err)
	}
	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{
		"target_type": target,
		"target_id":   id,
		"flagged":     true,
		"created":     created,
	})
}

// ListComments handles GET /api/ideas/:id/comments
func (s *Server) ListComments(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	comments, err := s.commentService.ListComments(c.UserContext(), middleware.CurrentUser(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(comments)
}

// CreateComment handles POST /api/ideas/:id/comments
func (s *Server) CreateComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req contentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	comment, err := s.commentService.CreateComment(c.UserContext(), middleware.CurrentUser(c), id, req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// UpdateOwnComment handles PUT /api/comments/:id for the comment's author.
func (s *Server) UpdateOwnComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req contentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	comment, err := s.commentService.UpdateCommentOwn(c.UserContext(), middleware.CurrentUser(c), id, req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(comment)
}
