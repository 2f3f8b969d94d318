package service

import (
	"context"

	"ideaboard/internal/models"
	"ideaboard/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// ListIdeas returns the public board in the requested order together with
// non-deleted comment counts for every listed idea.
func (s *IdeaService) ListIdeas(ctx context.Context, q models.IdeaQuery) (listing *models.IdeaListing, err error) {
	ctx, finish := observability.StartSpan(ctx, "ideas.list",
		attribute.String("sort", string(q.Sort)),
		attribute.Bool("search", q.Search != ""),
	)
	defer func() { finish(err) }()

	if q.Sort == "" {
		q.Sort = models.SortPopular
	}

	ideas, err := s.ideas.List(ctx, q)
	if err != nil {
		return nil, translate(err, "Idea", 0)
	}
	all, err := s.ideas.CommentCounts(ctx)
	if err != nil {
		return nil, translate(err, "Comment", 0)
	}

	counts := make(map[uint]int64, len(ideas))
	for _, idea := range ideas {
		counts[idea.ID] = all[idea.ID]
	}
	if ideas == nil {
		ideas = []models.IdeaWithAuthor{}
	}
	return &models.IdeaListing{Ideas: ideas, CommentCounts: counts}, nil
}
