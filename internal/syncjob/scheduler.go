package syncjob

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aevon-lab/project-dimsync/internal/core/storage"
)

const maxConsecutiveBatches = 100

// Scheduler drains the staging area on a fixed interval.
// Each tick independently resumes from the stored checkpoint.
type Scheduler struct {
	interval time.Duration
	staging  storage.StagingStore
	runner   Runner
	params   BatchJobParameter
}

// NewScheduler creates a scheduler over one staging checkpoint.
func NewScheduler(interval time.Duration, staging storage.StagingStore, runner Runner, params BatchJobParameter) *Scheduler {
	if staging == nil {
		panic("syncjob: nil staging store")
	}
	if runner == nil {
		panic("syncjob: nil runner")
	}
	return &Scheduler{
		interval: interval,
		staging:  staging,
		runner:   runner,
		params:   params.normalized(),
	}
}

// Start drains once, then on every tick, until ctx is cancelled. A final
// drain runs on shutdown with its own deadline.
func (s *Scheduler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("[Scheduler] Starting sync scheduler",
		"interval", s.interval,
		"checkpoint", s.params.CheckpointName,
		"batch_size", s.params.BatchSize,
	)

	s.drainBacklog(ctx)

	for {
		select {
		case <-ticker.C:
			s.drainBacklog(ctx)
		case <-ctx.Done():
			slog.Info("[Scheduler] Stopping (context cancelled)")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			slog.Info("[Scheduler] Running final drain before shutdown...")
			s.drainBacklog(shutdownCtx)
			slog.Info("[Scheduler] Final drain complete")
			return nil
		}
	}
}

// Drain processes staged batches until the backlog is empty and returns the
// number of staged records read.
func (s *Scheduler) Drain(ctx context.Context) (int, error) {
	return s.drain(ctx, 0)
}

func (s *Scheduler) drainBacklog(ctx context.Context) {
	total, err := s.drain(ctx, maxConsecutiveBatches)
	switch {
	case errors.Is(err, errBatchLimit):
		slog.Warn("[Scheduler] Max consecutive batches reached, pausing drain",
			"max_batches", maxConsecutiveBatches,
			"records", total,
			"note", "Will resume on next tick",
		)
	case errors.Is(err, ErrCheckpointHeld):
		slog.Warn("[Scheduler] Drain paused on retryable failures", "records", total)
	case err != nil && ctx.Err() != nil:
		slog.Info("[Scheduler] Drain interrupted by context cancellation", "records", total)
	case err != nil:
		slog.Error("[Scheduler] Sync batch failed", "error", err, "records", total)
	}
}

var errBatchLimit = errors.New("batch limit reached")

// drain runs batches until one comes back short. maxBatches 0 means no limit.
func (s *Scheduler) drain(ctx context.Context, maxBatches int) (int, error) {
	total := 0
	for batches := 0; maxBatches == 0 || batches < maxBatches; batches++ {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		n, err := RunSyncBatch(ctx, s.staging, s.runner, s.params)
		total += n
		if err != nil {
			return total, err
		}
		if n < s.params.BatchSize {
			if batches > 0 {
				slog.Info("[Scheduler] Backlog drained", "total_batches", batches+1, "records", total)
			}
			return total, nil
		}

		slog.Info("[Scheduler] Backlog detected, continuing to drain", "batches_so_far", batches+1)
	}
	return total, errBatchLimit
}
