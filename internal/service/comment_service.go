package service

import (
	"context"
	"strings"

	"ideaboard/internal/models"
	"ideaboard/internal/observability"
	"ideaboard/internal/repository"
	"ideaboard/internal/validation"
)

// CommentService manages comments on ideas.
type CommentService struct {
	comments repository.CommentRepository
	ideas    *IdeaService
}

// NewCommentService returns a new CommentService. Idea visibility rules are
// taken from ideas.
func NewCommentService(comments repository.CommentRepository, ideas *IdeaService) *CommentService {
	return &CommentService{comments: comments, ideas: ideas}
}

// CreateComment adds a comment to a visible idea that accepts comments.
func (s *CommentService) CreateComment(ctx context.Context, actor Actor, ideaID uint, content string) (*models.Comment, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if err := validation.ValidateComment(content); err != nil {
		return nil, err
	}
	if _, err := s.ideas.GetIdea(ctx, actor, ideaID); err != nil {
		return nil, err
	}

	comment := &models.Comment{IdeaID: ideaID, UserID: actor.ID, Content: content}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, translate(err, "Idea", ideaID)
	}
	return comment, nil
}

// ListComments returns an idea's comments, pinned first then oldest first.
// Deleted comments stay in place as tombstones.
func (s *CommentService) ListComments(ctx context.Context, actor Actor, ideaID uint) ([]models.CommentWithAuthor, error) {
	if _, err := s.ideas.GetIdea(ctx, actor, ideaID); err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByIdea(ctx, ideaID)
	if err != nil {
		return nil, translate(err, "Comment", ideaID)
	}
	for i := range comments {
		comments[i].Tombstone()
	}
	if comments == nil {
		comments = []models.CommentWithAuthor{}
	}
	return comments, nil
}

// UpdateCommentOwn lets an author edit their own live comment.
func (s *CommentService) UpdateCommentOwn(ctx context.Context, actor Actor, id uint, content string) (*models.Comment, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if err := validation.ValidateComment(content); err != nil {
		return nil, err
	}
	current, err := s.comments.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "Comment", id)
	}
	if current.IsDeleted {
		return nil, models.NewNotFoundError("Comment", id)
	}
	if current.UserID != actor.ID {
		return nil, models.NewForbiddenError("You can only edit your own comments")
	}
	if err := s.comments.UpdateOwnContent(ctx, id, actor.ID, content); err != nil {
		return nil, translate(err, "Comment", id)
	}
	current.Content = content
	return current, nil
}

// UpdateCommentMod rewrites a comment's content.
func (s *CommentService) UpdateCommentMod(ctx context.Context, actor Actor, id uint, content string) (*models.Comment, error) {
	if err := requireModerator(actor); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if err := validation.ValidateComment(content); err != nil {
		return nil, err
	}
	if err := s.comments.UpdateContent(ctx, id, content); err != nil {
		return nil, translate(err, "Comment", id)
	}
	observability.ModerationActions.WithLabelValues("comment_edit").Inc()
	comment, err := s.comments.GetByID(ctx, id)
	return comment, translate(err, "Comment", id)
}

// DeleteCommentMod soft-deletes a comment.
func (s *CommentService) DeleteCommentMod(ctx context.Context, actor Actor, id uint) error {
	if err := requireModerator(actor); err != nil {
		return err
	}
	if err := s.comments.SoftDelete(ctx, id); err != nil {
		return translate(err, "Comment", id)
	}
	observability.ModerationActions.WithLabelValues("comment_delete").Inc()
	return nil
}

// ToggleCommentPin flips a comment's pinned state and returns it.
func (s *CommentService) ToggleCommentPin(ctx context.Context, actor Actor, id uint) (bool, error) {
	if err := requireModerator(actor); err != nil {
		return false, err
	}
	pinned, err := s.comments.TogglePin(ctx, id)
	if err != nil {
		return false, translate(err, "Comment", id)
	}
	observability.ModerationActions.WithLabelValues("comment_pin").Inc()
	return pinned, nil
}
