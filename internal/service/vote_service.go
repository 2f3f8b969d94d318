package service

import (
	"context"

	"ideaboard/internal/models"
	"ideaboard/internal/observability"
	"ideaboard/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// VoteService manages sparks. Each user holds at most one vote per idea.
type VoteService struct {
	votes repository.VoteRepository
	ideas *IdeaService
}

// NewVoteService returns a new VoteService.
func NewVoteService(votes repository.VoteRepository, ideas *IdeaService) *VoteService {
	return &VoteService{votes: votes, ideas: ideas}
}

// ToggleVote adds the caller's vote or removes it and reports whether the
// caller now votes for the idea. Hidden or missing ideas are NotFound.
func (s *VoteService) ToggleVote(ctx context.Context, actor Actor, ideaID uint) (voted bool, err error) {
	if err := requireUser(actor); err != nil {
		return false, err
	}
	ctx, finish := observability.StartSpan(ctx, "votes.toggle", attribute.Int64("idea.id", int64(ideaID)))
	defer func() { finish(err) }()

	idea, err := s.ideas.GetIdea(ctx, actor, ideaID)
	if err != nil {
		return false, err
	}
	if idea.IsOffTopic {
		return false, models.NewNotFoundError("Idea", ideaID)
	}

	voted, err = s.votes.Toggle(ctx, ideaID, actor.ID)
	if err != nil {
		return false, translate(err, "Idea", ideaID)
	}
	if voted {
		observability.VotesTotal.WithLabelValues("add").Inc()
	} else {
		observability.VotesTotal.WithLabelValues("remove").Inc()
	}
	statsChanged(ctx)
	return voted, nil
}

// CheckUserVotes returns the ids of every idea the caller voted on.
func (s *VoteService) CheckUserVotes(ctx context.Context, actor Actor) ([]uint, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	ids, err := s.votes.IdeaIDsByUser(ctx, actor.ID)
	if err != nil {
		return nil, translate(err, "Vote", actor.ID)
	}
	if ids == nil {
		ids = []uint{}
	}
	return ids, nil
}

// HasVoted reports whether the caller voted on ideaID. Anonymous callers
// never have.
func (s *VoteService) HasVoted(ctx context.Context, actor Actor, ideaID uint) (bool, error) {
	if actor == nil {
		return false, nil
	}
	ok, err := s.votes.Exists(ctx, ideaID, actor.ID)
	return ok, translate(err, "Vote", ideaID)
}
