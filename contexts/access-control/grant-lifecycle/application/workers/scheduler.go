package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	application "rolewarden/contexts/access-control/grant-lifecycle/application"
	domainerrors "rolewarden/contexts/access-control/grant-lifecycle/domain/errors"
)

// Scheduler drives periodic reconciliation passes on a fixed interval.
// A tick that fires while a pass is still in flight is skipped rather
// than queued.
type Scheduler struct {
	reconciler *Reconciler
	period     time.Duration
	cron       *cron.Cron
	logger     *slog.Logger
}

func NewScheduler(reconciler *Reconciler, period time.Duration, logger *slog.Logger) *Scheduler {
	if period <= 0 {
		period = 5 * time.Minute
	}
	return &Scheduler{
		reconciler: reconciler,
		period:     period,
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DiscardLogger),
		)),
		logger: application.ResolveLogger(logger),
	}
}

// Run blocks until ctx is cancelled, then waits for any in-flight pass to
// return before reporting the scheduler stopped.
func (s *Scheduler) Run(ctx context.Context) error {
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.period), func() {
		s.pass(ctx)
	}); err != nil {
		return fmt.Errorf("register reconciliation schedule: %w", err)
	}

	s.cron.Start()
	s.logger.Info("reconciliation scheduler started",
		"event", "grant_scheduler_started",
		"module", "access-control/grant-lifecycle",
		"layer", "worker",
		"period", s.period.String(),
	)

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("reconciliation scheduler stopped",
		"event", "grant_scheduler_stopped",
		"module", "access-control/grant-lifecycle",
		"layer", "worker",
	)
	return nil
}

// pass swallows pass-level errors: the loop has no synchronous caller, so
// failures are logged and the next tick retries from scratch.
func (s *Scheduler) pass(ctx context.Context) {
	revoked, err := s.reconciler.RunOnce(ctx)
	if errors.Is(err, domainerrors.ErrPassInFlight) {
		// A manual pass holds the reconciler; this tick is redundant.
		s.logger.Debug("reconciliation pass already in flight, tick skipped",
			"event", "grant_scheduler_tick_skipped",
			"module", "access-control/grant-lifecycle",
			"layer", "worker",
		)
		return
	}
	if err != nil {
		s.logger.Error("scheduled reconciliation pass failed",
			"event", "grant_scheduler_pass_failed",
			"module", "access-control/grant-lifecycle",
			"layer", "worker",
			"error", err.Error(),
		)
		return
	}
	if revoked > 0 {
		s.logger.Info("scheduled reconciliation pass revoked roles",
			"event", "grant_scheduler_pass_revoked",
			"module", "access-control/grant-lifecycle",
			"layer", "worker",
			"revoked_count", revoked,
		)
	}
}
