package service

import (
	"context"

	"ideaboard/internal/models"
	"ideaboard/internal/observability"
	"ideaboard/internal/repository"
)

// FlagService records user reports and serves the moderation queue.
type FlagService struct {
	flags    repository.FlagRepository
	ideas    *IdeaService
	comments repository.CommentRepository
}

// NewFlagService returns a new FlagService.
func NewFlagService(flags repository.FlagRepository, ideas *IdeaService, comments repository.CommentRepository) *FlagService {
	return &FlagService{flags: flags, ideas: ideas, comments: comments}
}

// targetVisible resolves the target as the actor would see it. Ideas
// follow board visibility and comments inherit their idea's.
func (s *FlagService) targetVisible(ctx context.Context, actor Actor, targetType models.TargetType, id uint) error {
	if targetType == models.TargetIdea {
		_, err := s.ideas.GetIdea(ctx, actor, id)
		return err
	}
	c, err := s.comments.GetByID(ctx, id)
	if err == nil && c.IsDeleted {
		err = repository.ErrNotFound
	}
	if err != nil {
		return translate(err, "Comment", id)
	}
	if _, err := s.ideas.GetIdea(ctx, actor, c.IdeaID); err != nil {
		return models.NewNotFoundError("Comment", id)
	}
	return nil
}

// Flag reports a target. Repeat flags by the same user are accepted and
// ignored; the result says whether a new flag was recorded.
func (s *FlagService) Flag(ctx context.Context, actor Actor, targetType string, targetID uint) (bool, error) {
	if err := requireUser(actor); err != nil {
		return false, err
	}
	tt, err := models.ParseTargetType(targetType)
	if err != nil {
		return false, err
	}
	if err := s.targetVisible(ctx, actor, tt, targetID); err != nil {
		return false, err
	}

	created, err := s.flags.Create(ctx, &models.Flag{UserID: actor.ID, TargetType: tt, TargetID: targetID})
	if err != nil {
		return false, translate(err, "Flag", targetID)
	}
	result := "duplicate"
	if created {
		result = "created"
		statsChanged(ctx)
	}
	observability.FlagsTotal.WithLabelValues(string(tt), result).Inc()
	return created, nil
}

// HasFlagged reports whether the caller already flagged the target.
func (s *FlagService) HasFlagged(ctx context.Context, actor Actor, targetType string, targetID uint) (bool, error) {
	if actor == nil {
		return false, nil
	}
	tt, err := models.ParseTargetType(targetType)
	if err != nil {
		return false, err
	}
	ok, err := s.flags.Exists(ctx, actor.ID, tt, targetID)
	return ok, translate(err, "Flag", targetID)
}

// ListFlagged returns the moderation queue, most flagged first.
func (s *FlagService) ListFlagged(ctx context.Context, actor Actor) ([]models.FlaggedItem, error) {
	if err := requireModerator(actor); err != nil {
		return nil, err
	}
	items, err := s.flags.ListFlagged(ctx)
	if err != nil {
		return nil, translate(err, "Flag", 0)
	}
	if items == nil {
		items = []models.FlaggedItem{}
	}
	return items, nil
}

// ClearFlags dismisses every flag on a target and returns how many were removed.
func (s *FlagService) ClearFlags(ctx context.Context, actor Actor, targetType string, targetID uint) (int64, error) {
	if err := requireModerator(actor); err != nil {
		return 0, err
	}
	tt, err := models.ParseTargetType(targetType)
	if err != nil {
		return 0, err
	}
	n, err := s.flags.Clear(ctx, tt, targetID)
	if err != nil {
		return 0, translate(err, "Flag", targetID)
	}
	observability.ModerationActions.WithLabelValues("flags_clear").Inc()
	statsChanged(ctx)
	return n, nil
}
