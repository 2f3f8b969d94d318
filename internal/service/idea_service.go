package service

import (
	"context"
	"strings"

	"ideaboard/internal/models"
	"ideaboard/internal/observability"
	"ideaboard/internal/repository"
	"ideaboard/internal/validation"
)

// IdeaService owns the idea lifecycle and the public board.
type IdeaService struct {
	ideas repository.IdeaRepository
}

// IdeaInput carries user-editable idea fields.
type IdeaInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Tags    string `json:"tags"`
}

func (in IdeaInput) clean() (IdeaInput, error) {
	out := IdeaInput{
		Title:   strings.TrimSpace(in.Title),
		Content: strings.TrimSpace(in.Content),
		Tags:    strings.TrimSpace(in.Tags),
	}
	if err := validation.ValidateIdea(out.Title, out.Content, out.Tags); err != nil {
		return IdeaInput{}, err
	}
	return out, nil
}

// NewIdeaService returns a new IdeaService.
func NewIdeaService(ideas repository.IdeaRepository) *IdeaService {
	return &IdeaService{ideas: ideas}
}

// CreateIdea validates and stores a new public idea in the Ideate stage.
func (s *IdeaService) CreateIdea(ctx context.Context, actor Actor, in IdeaInput) (*models.Idea, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	in, err := in.clean()
	if err != nil {
		return nil, err
	}

	idea := &models.Idea{
		UserID:          actor.ID,
		Title:           in.Title,
		Content:         in.Content,
		Tags:            in.Tags,
		Stage:           models.StageIdeate,
		IsPublic:        true,
		CommentsEnabled: true,
	}
	if err := s.ideas.Create(ctx, idea); err != nil {
		return nil, translate(err, "Idea", 0)
	}
	statsChanged(ctx)
	return idea, nil
}

// GetIdea returns an idea with its author. Off-topic and private ideas are
// visible only to moderators and their author.
func (s *IdeaService) GetIdea(ctx context.Context, actor Actor, id uint) (*models.IdeaWithAuthor, error) {
	idea, err := s.ideas.GetWithAuthor(ctx, id)
	if err != nil {
		return nil, translate(err, "Idea", id)
	}
	if idea.IsOffTopic || !idea.IsPublic {
		canSee := actor != nil && (actor.Role.AtLeast(models.RoleModerator) || actor.ID == idea.UserID)
		if !canSee {
			return nil, models.NewNotFoundError("Idea", id)
		}
	}
	return idea, nil
}

// ListUserIdeas returns the caller's own ideas, newest first, including
// hidden ones.
func (s *IdeaService) ListUserIdeas(ctx context.Context, actor Actor) ([]models.Idea, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	ideas, err := s.ideas.ListByUser(ctx, actor.ID)
	return ideas, translate(err, "Idea", actor.ID)
}

// UpdateIdeaOwn lets an author edit their own idea.
func (s *IdeaService) UpdateIdeaOwn(ctx context.Context, actor Actor, id uint, in IdeaInput) (*models.Idea, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	in, err := in.clean()
	if err != nil {
		return nil, err
	}
	current, err := s.ideas.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "Idea", id)
	}
	if current.UserID != actor.ID {
		return nil, models.NewForbiddenError("You can only edit your own ideas")
	}
	if err := s.ideas.UpdateOwnContent(ctx, id, actor.ID, in.Title, in.Content, in.Tags); err != nil {
		return nil, translate(err, "Idea", id)
	}
	return s.reload(ctx, id)
}

// UpdateIdeaMod rewrites an idea's title, content and tags.
func (s *IdeaService) UpdateIdeaMod(ctx context.Context, actor Actor, id uint, in IdeaInput) (*models.Idea, error) {
	if err := requireModerator(actor); err != nil {
		return nil, err
	}
	in, err := in.clean()
	if err != nil {
		return nil, err
	}
	if err := s.ideas.UpdateContent(ctx, id, in.Title, in.Content, in.Tags); err != nil {
		return nil, translate(err, "Idea", id)
	}
	observability.ModerationActions.WithLabelValues("idea_edit").Inc()
	return s.reload(ctx, id)
}

func (s *IdeaService) reload(ctx context.Context, id uint) (*models.Idea, error) {
	idea, err := s.ideas.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "Idea", id)
	}
	return idea, nil
}

// TogglePin flips the pinned state and returns it.
func (s *IdeaService) TogglePin(ctx context.Context, actor Actor, id uint) (bool, error) {
	if err := requireModerator(actor); err != nil {
		return false, err
	}
	pinned, err := s.ideas.TogglePin(ctx, id)
	if err != nil {
		return false, translate(err, "Idea", id)
	}
	observability.ModerationActions.WithLabelValues("idea_pin").Inc()
	return pinned, nil
}

// SetOffTopic sets the off-topic state to desired and returns it.
func (s *IdeaService) SetOffTopic(ctx context.Context, actor Actor, id uint, desired bool) (bool, error) {
	if err := requireModerator(actor); err != nil {
		return false, err
	}
	if err := s.ideas.SetOffTopic(ctx, id, desired); err != nil {
		return false, translate(err, "Idea", id)
	}
	observability.ModerationActions.WithLabelValues("idea_off_topic").Inc()
	statsChanged(ctx)
	return desired, nil
}

// ToggleComments flips comments_enabled and returns the new value.
func (s *IdeaService) ToggleComments(ctx context.Context, actor Actor, id uint) (bool, error) {
	if err := requireModerator(actor); err != nil {
		return false, err
	}
	enabled, err := s.ideas.ToggleComments(ctx, id)
	if err != nil {
		return false, translate(err, "Idea", id)
	}
	observability.ModerationActions.WithLabelValues("idea_comments_toggle").Inc()
	return enabled, nil
}

// UpdateStage moves an idea to another workflow stage.
func (s *IdeaService) UpdateStage(ctx context.Context, actor Actor, id uint, stage string) (models.Stage, error) {
	if err := requireModerator(actor); err != nil {
		return "", err
	}
	st, err := models.ParseStage(stage)
	if err != nil {
		return "", err
	}
	if err := s.ideas.UpdateStage(ctx, id, st); err != nil {
		return "", translate(err, "Idea", id)
	}
	observability.ModerationActions.WithLabelValues("idea_stage").Inc()
	return st, nil
}

// DeleteIdea removes an idea with its votes, comments and flags.
func (s *IdeaService) DeleteIdea(ctx context.Context, actor Actor, id uint) error {
	if err := requireModerator(actor); err != nil {
		return err
	}
	if err := s.ideas.Delete(ctx, id); err != nil {
		return translate(err, "Idea", id)
	}
	observability.ModerationActions.WithLabelValues("idea_delete").Inc()
	statsChanged(ctx)
	return nil
}

// ListOffTopic returns the ideas hidden from the board.
func (s *IdeaService) ListOffTopic(ctx context.Context, actor Actor) ([]models.IdeaWithAuthor, error) {
	if err := requireModerator(actor); err != nil {
		return nil, err
	}
	ideas, err := s.ideas.ListOffTopic(ctx)
	return ideas, translate(err, "Idea", 0)
}
