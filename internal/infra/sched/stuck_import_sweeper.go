package sched

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"sales-import/internal/domain"
	"sales-import/internal/domain/ports/repository"
	"sales-import/internal/infra/metrics"
	red "sales-import/internal/infra/redis"
)

const SweeperLockKey = "lock:import-sweeper"

// StuckImportSweeper periodically fails imports that stayed in processing longer
// than staleAfter. This covers jobs whose worker crashed or was shut down mid-run.
type StuckImportSweeper struct {
	jobs       repository.ImportJobRepository
	locker     red.Locker // optional; nil sweeps without coordination
	interval   time.Duration
	staleAfter time.Duration
	lockTTL    time.Duration
	pageSize   int
	log        *zerolog.Logger

	now func() time.Time
}

func NewStuckImportSweeper(
	jobs repository.ImportJobRepository,
	locker red.Locker,
	interval, staleAfter, lockTTL time.Duration,
	pageSize int,
	logger *zerolog.Logger,
) *StuckImportSweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	if staleAfter <= 0 {
		staleAfter = time.Hour
	}
	if lockTTL <= 0 {
		lockTTL = interval / 2
	}
	if pageSize <= 0 {
		pageSize = 200
	}
	l := logger.With().Str("component", "StuckImportSweeper").Logger()
	return &StuckImportSweeper{
		jobs:       jobs,
		locker:     locker,
		interval:   interval,
		staleAfter: staleAfter,
		lockTTL:    lockTTL,
		pageSize:   pageSize,
		log:        &l,
		now:        time.Now,
	}
}

func (s *StuckImportSweeper) Run(ctx context.Context) error {
	s.log.Info().Dur("interval", s.interval).Dur("stale_after", s.staleAfter).Msg("Starting stuck import sweeper")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// first pass at startup picks up jobs orphaned by the previous process
	s.sweepOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Stopping stuck import sweeper")
			return ctx.Err()
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *StuckImportSweeper) sweepOnce(ctx context.Context) {
	if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
		s.log.Error().Err(err).Msg("sweep failed")
	}
}

// TimeoutReason is the message appended to a job the sweeper fails.
func (s *StuckImportSweeper) TimeoutReason() string {
	return fmt.Sprintf("%v: no completion within %s, marked as failed by the system", domain.ErrJobTimedOut, s.staleAfter)
}

// Sweep runs one pass and returns how many jobs it timed out. A pass that
// cannot take the lock is skipped without error.
func (s *StuckImportSweeper) Sweep(ctx context.Context) (int, error) {
	if s.locker != nil {
		token, err := s.locker.TryLock(ctx, SweeperLockKey, s.lockTTL)
		if errors.Is(err, domain.ErrLockNotAcquired) {
			s.log.Debug().Msg("another instance holds the sweeper lock, skipping")
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
		defer func() {
			if err := s.locker.Unlock(context.WithoutCancel(ctx), SweeperLockKey, token); err != nil {
				s.log.Warn().Err(err).Msg("failed to release sweeper lock")
			}
		}()
	}

	cutoff := s.now().Add(-s.staleAfter)
	stuck, err := s.jobs.ListStuck(ctx, repository.NoTX, cutoff, s.pageSize)
	if err != nil {
		return 0, fmt.Errorf("list stuck imports: %w", err)
	}

	reason := s.TimeoutReason()
	n := 0
	for _, job := range stuck {
		updated, err := s.jobs.MarkTimedOut(ctx, repository.NoTX, job.ID, reason)
		if err != nil {
			s.log.Error().Err(err).Str("import_id", job.ID).Msg("failed to time out import")
			continue
		}
		if !updated {
			continue
		}
		n++
		s.log.Warn().
			Str("import_id", job.ID).
			Str("file_name", job.FileName).
			Time("started_at", job.StartedAt).
			Msg("import timed out")
	}
	if n > 0 {
		metrics.AddSweeperTimeouts(n)
		s.log.Info().Int("count", n).Msg("stuck imports timed out")
	}
	return n, nil
}
