package license

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"seopilot/internal/infrastructure"
)

// Scheduler runs Cache.MaybeCheck on a cron schedule
type Scheduler struct {
	cron     *cron.Cron
	cache    *Cache
	schedule string
	logger   *slog.Logger
	timeout  time.Duration
}

// NewScheduler registers the periodic check. schedule uses cron syntax or
// descriptors such as @daily.
func NewScheduler(cache *Cache, schedule string, timeout time.Duration, logger *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:     cron.New(),
		cache:    cache,
		schedule: schedule,
		logger:   logger.With(slog.String("component", "license_scheduler")),
		timeout:  timeout,
	}
	if _, err := s.cron.AddFunc(schedule, s.tick); err != nil {
		return nil, fmt.Errorf("invalid license check schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Scheduler) tick() {
	// Each tick gets its own trace ID so its log lines can be correlated.
	ctx, cancel := context.WithTimeout(infrastructure.EnsureTraceID(context.Background()), s.timeout)
	defer cancel()

	outcome, err := s.cache.MaybeCheck(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Scheduled license check failed", slog.String("error", err.Error()))
		return
	}
	s.logger.InfoContext(ctx, "Scheduled license check",
		slog.Bool("checked", outcome.Checked),
		slog.String("status", string(outcome.Status)))
}

// Run starts the scheduler and blocks until ctx is done
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	s.logger.InfoContext(ctx, "License scheduler started", slog.String("schedule", s.schedule))

	<-ctx.Done()

	stopped := s.cron.Stop()
	<-stopped.Done()
	s.logger.Info("License scheduler stopped")
	return nil
}
