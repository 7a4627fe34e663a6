package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler recomputes the pipeline on a cron schedule. Each tick runs the
// job to completion; a failed tick is logged and the next tick starts
// fresh — there is no partial or incremental recomputation.
type Scheduler struct {
	spec string
	job  func(ctx context.Context) error
	cron *cron.Cron
}

// NewScheduler builds a scheduler around the given cron spec, e.g.
// "@every 1h" or "0 * * * *".
func NewScheduler(spec string, job func(ctx context.Context) error) *Scheduler {
	return &Scheduler{spec: spec, job: job, cron: cron.New()}
}

// Run executes the job once immediately, then on every tick until ctx is
// cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.tick(ctx)

	if _, err := s.cron.AddFunc(s.spec, func() { s.tick(ctx) }); err != nil {
		return fmt.Errorf("cron schedule %q: %w", s.spec, err)
	}

	s.cron.Start()
	<-ctx.Done()

	stop := s.cron.Stop()
	select {
	case <-stop.Done():
	case <-time.After(30 * time.Second):
		slog.Warn("scheduler: shutdown timed out waiting for running job")
	}
	return nil
}

func (s *Scheduler) tick(ctx context.Context) {
	start := time.Now()
	if err := s.job(ctx); err != nil {
		slog.Error("scheduled job failed", "error", err, "elapsed", time.Since(start))
		return
	}
	slog.Debug("scheduled job finished", "elapsed", time.Since(start))
}
