// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"ideaboard/internal/repository"

	"github.com/robfig/cron/v3"
)

const runTimeout = 2 * time.Minute

// Reconciler repairs denormalized vote counters.
type Reconciler interface {
	ReconcileVotes(ctx context.Context) ([]repository.VoteDrift, error)
}

// Scheduler runs the vote_count audit on a cron schedule.
type Scheduler struct {
	cron       *cron.Cron
	reconciler Reconciler
	logger     *slog.Logger
	spec       string
}

// New creates a scheduler. An empty spec disables the audit.
func New(spec string, reconciler Reconciler, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:       cron.New(),
		reconciler: reconciler,
		logger:     logger,
		spec:       spec,
	}
}

// Start registers the audit job and starts the cron loop.
func (s *Scheduler) Start() error {
	if s.spec == "" {
		s.logger.Info("vote reconciliation disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(s.spec, func() { s.RunOnce(context.Background()) }); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()), "spec", s.spec)
	return nil
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// RunOnce performs one audit pass and returns the number of repaired ideas.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	drift, err := s.reconciler.ReconcileVotes(ctx)
	if err != nil {
		s.logger.Error("vote reconciliation failed", "error", err)
		return 0
	}
	if len(drift) > 0 {
		s.logger.Warn("vote reconciliation repaired ideas", "count", len(drift))
	}
	return len(drift)
}
