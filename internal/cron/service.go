package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

const defaultInterval = time.Hour

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
}

// Service runs every registered job once per interval while holding Lock.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.CronJobMetrics
	interval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: interval,
	}, nil
}

// Run executes a cycle immediately and then on every tick until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.logg.Error(ctx, "cron.cycle_failed", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce executes every job a single time. It is a no-op when another
// worker holds the lock. A failing job does not stop the ones after it.
func (s *Service) RunOnce(ctx context.Context) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.logg.Info(ctx, "cron.skipped_locked")
		return nil
	}
	defer func() {
		if err := s.lock.Release(ctx); err != nil {
			s.logg.Error(ctx, "cron.lock_release_failed", err)
		}
	}()

	for _, job := range s.registry.Jobs() {
		s.runJob(ctx, job)
	}
	return nil
}

func (s *Service) runJob(ctx context.Context, job Job) {
	jobCtx := s.logg.WithField(ctx, "job", job.Name())
	start := time.Now()
	rows, err := job.Run(jobCtx)
	elapsed := time.Since(start)

	s.metrics.ObserveRun(job.Name(), elapsed, err)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", elapsed.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "cron.job_failed", err)
		return
	}
	s.metrics.AddPurged(job.Name(), rows)
	s.logg.Info(s.logg.WithField(jobCtx, "rows_purged", rows), "cron.job_completed")
}
