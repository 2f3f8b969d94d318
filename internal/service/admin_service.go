package service

import (
	"context"
	"log/slog"
	"time"

	"ideaboard/internal/auth"
	"ideaboard/internal/cache"
	"ideaboard/internal/models"
	"ideaboard/internal/observability"
	"ideaboard/internal/repository"
)

// AdminService exposes the administrator dashboard and bulk operations.
type AdminService struct {
	users repository.UserRepository
	ideas repository.IdeaRepository
	flags repository.FlagRepository
	clock auth.Clock
}

// NewAdminService returns a new AdminService. A nil clock uses the system clock.
func NewAdminService(users repository.UserRepository, ideas repository.IdeaRepository, flags repository.FlagRepository, clock auth.Clock) *AdminService {
	if clock == nil {
		clock = auth.SystemClock{}
	}
	return &AdminService{users: users, ideas: ideas, flags: flags, clock: clock}
}

// GetStats returns board counters. Results are cached briefly when Redis is
// available and dropped on any mutation that changes them.
func (s *AdminService) GetStats(ctx context.Context, actor Actor) (*models.AdminStats, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	stats, err := cache.Remember(ctx, cache.AdminStatsKey, cache.AdminStatsTTL, s.loadStats)
	if err != nil {
		return nil, translate(err, "Stats", 0)
	}
	return &stats, nil
}

func (s *AdminService) loadStats(ctx context.Context) (models.AdminStats, error) {
	var stats models.AdminStats
	var err error
	if stats.TotalIdeas, stats.TotalVotes, err = s.ideas.Stats(ctx); err != nil {
		return stats, err
	}
	if stats.TotalUsers, err = s.users.Count(ctx); err != nil {
		return stats, err
	}
	if stats.FlaggedItems, err = s.flags.CountFlaggedTargets(ctx); err != nil {
		return stats, err
	}
	return stats, nil
}

// ListUsers returns every account, newest first.
func (s *AdminService) ListUsers(ctx context.Context, actor Actor) ([]models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, translate(err, "User", 0)
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

// UpdateUserRole changes a non-admin user's role.
func (s *AdminService) UpdateUserRole(ctx context.Context, actor Actor, id uint, role int) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	newRole, err := models.ParseRole(role)
	if err != nil {
		return err
	}
	if err := s.users.UpdateRole(ctx, id, newRole); err != nil {
		return translate(err, "User", id)
	}
	slog.InfoContext(ctx, "user role changed",
		slog.Uint64("target_user_id", uint64(id)),
		slog.String("role", newRole.String()),
	)
	observability.ModerationActions.WithLabelValues("role_update").Inc()
	return nil
}

// DeleteUser removes a non-admin user and everything they authored.
func (s *AdminService) DeleteUser(ctx context.Context, actor Actor, id uint) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return translate(err, "User", id)
	}
	slog.InfoContext(ctx, "user deleted", slog.Uint64("target_user_id", uint64(id)))
	observability.ModerationActions.WithLabelValues("user_delete").Inc()
	statsChanged(ctx)
	return nil
}

// DeleteOlderThan removes ideas created more than days ago.
func (s *AdminService) DeleteOlderThan(ctx context.Context, actor Actor, days int) (int64, error) {
	if err := requireAdmin(actor); err != nil {
		return 0, err
	}
	if days <= 0 {
		return 0, models.NewFieldValidationError("invalid_days", "Days must be a positive number")
	}
	cutoff := s.clock.Now().Add(-time.Duration(days) * 24 * time.Hour)
	n, err := s.ideas.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, translate(err, "Idea", 0)
	}
	slog.InfoContext(ctx, "old ideas purged", slog.Int("days", days), slog.Int64("deleted", n))
	statsChanged(ctx)
	return n, nil
}

// DeleteAllIdeas empties the board.
func (s *AdminService) DeleteAllIdeas(ctx context.Context, actor Actor) (int64, error) {
	if err := requireAdmin(actor); err != nil {
		return 0, err
	}
	n, err := s.ideas.DeleteAll(ctx)
	if err != nil {
		return 0, translate(err, "Idea", 0)
	}
	slog.WarnContext(ctx, "all ideas deleted", slog.Int64("deleted", n))
	statsChanged(ctx)
	return n, nil
}

// ReconcileVotes repairs ideas whose vote_count drifted from their vote rows
// and returns what was fixed. It is run by the scheduler and the admin CLI
// without an actor.
func (s *AdminService) ReconcileVotes(ctx context.Context) ([]repository.VoteDrift, error) {
	drift, err := s.ideas.ReconcileVoteCounts(ctx)
	if err != nil {
		return nil, translate(err, "Idea", 0)
	}
	for _, d := range drift {
		slog.WarnContext(ctx, "vote_count drift repaired",
			slog.Uint64("idea_id", uint64(d.IdeaID)),
			slog.Int64("stored", d.Stored),
			slog.Int64("actual", d.Actual),
		)
	}
	if len(drift) > 0 {
		observability.VoteDriftRepaired.Add(float64(len(drift)))
		statsChanged(ctx)
	}
	return drift, nil
}
