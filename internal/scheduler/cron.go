package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gofrs/flock"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/amaumene/redman/internal/controllers"
	"github.com/amaumene/redman/internal/telemetry"
)

// ErrLocked is returned when another daemon holds the lock on the same pool
var ErrLocked = errors.New("another daemon is already running")

// WatchRunner performs one watch run
type WatchRunner interface {
	Watch(ctx context.Context, opts controllers.WatchOptions) (*controllers.WatchResult, error)
}

// Scheduler runs watch periodically on a cron schedule
type Scheduler struct {
	cron        *cron.Cron
	runner      WatchRunner
	schedule    string
	opts        controllers.WatchOptions
	lockPath    string
	lock        *flock.Flock
	metrics     *telemetry.Metrics
	metricsFile string
	logger      *zerolog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	initial sync.WaitGroup
}

// NewScheduler creates a new scheduler. lockPath guards against a second daemon on the same pool.
func NewScheduler(runner WatchRunner, schedule string, opts controllers.WatchOptions, lockPath string, metrics *telemetry.Metrics, metricsFile string, logger *zerolog.Logger) *Scheduler {
	return &Scheduler{
		// Overlapping runs would break the one-request-at-a-time rule
		cron:        cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		runner:      runner,
		schedule:    schedule,
		opts:        opts,
		lockPath:    lockPath,
		lock:        flock.New(lockPath),
		metrics:     metrics,
		metricsFile: metricsFile,
		logger:      logger,
	}
}

// Start acquires the daemon lock, registers the watch job and runs it once right away
func (s *Scheduler) Start(ctx context.Context) error {
	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w (lock %s)", ErrLocked, s.lockPath)
	}

	id, err := s.cron.AddFunc(s.schedule, s.runWatch)
	if err != nil {
		_ = s.lock.Unlock()
		return fmt.Errorf("failed to add watch job: %w", err)
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()

	s.logger.Info().
		Str("schedule", s.schedule).
		Str("lock", s.lockPath).
		Msg("Scheduler started")

	job := s.cron.Entry(id).WrappedJob
	s.initial.Add(1)
	go func() {
		defer s.initial.Done()
		job.Run()
	}()

	return nil
}

// Stop cancels a running watch, waits for it and releases the lock
func (s *Scheduler) Stop() {
	s.logger.Info().Msg("Stopping scheduler")

	if s.cancel != nil {
		s.cancel()
	}
	<-s.cron.Stop().Done()
	s.initial.Wait()

	if err := s.lock.Unlock(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to release daemon lock")
	}
}

// runWatch executes the watch job
func (s *Scheduler) runWatch() {
	s.logger.Info().Msg("Running scheduled watch")

	result, err := s.runner.Watch(s.ctx, s.opts)
	if err != nil {
		s.logger.Error().Err(err).Msg("Watch job failed")
	}
	if result != nil {
		s.logger.Info().
			Str("run_id", result.RunID).
			Int("downloaded", len(result.Downloaded)).
			Msg("Watch job completed")
	}

	if err := s.metrics.WriteTextfile(s.metricsFile); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to export metrics")
	}
}
