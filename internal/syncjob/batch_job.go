package syncjob

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aevon-lab/project-dimsync/internal/core/storage"
	"github.com/aevon-lab/project-dimsync/internal/load"
)

const (
	defaultBatchSize      = 5000
	defaultCheckpointName = "staging"
)

// ErrCheckpointHeld is returned when a batch left retryable failures behind.
// The checkpoint stays put so the next run replays the same records.
var ErrCheckpointHeld = errors.New("checkpoint held: batch has retryable failures")

// Runner applies one batch of canonical records.
type Runner interface {
	Run(ctx context.Context, batch load.Batch) (*load.RunReport, error)
}

// BatchJobParameter controls one sync batch.
type BatchJobParameter struct {
	BatchSize      int
	CheckpointName string
}

// DefaultBatchJobParameter returns the defaults used by the scheduler.
func DefaultBatchJobParameter() BatchJobParameter {
	return BatchJobParameter{
		BatchSize:      defaultBatchSize,
		CheckpointName: defaultCheckpointName,
	}
}

func (p BatchJobParameter) normalized() BatchJobParameter {
	n := p
	if n.BatchSize <= 0 {
		n.BatchSize = defaultBatchSize
	}
	if n.CheckpointName == "" {
		n.CheckpointName = defaultCheckpointName
	}
	return n
}

// RunSyncBatch loads the staged records after the checkpoint and advances the
// checkpoint past them. It returns the number of staged records read.
//
// Replaying a batch is safe: unchanged dimension rows are no-ops and fact
// natural keys are skipped once present.
func RunSyncBatch(ctx context.Context, staging storage.StagingStore, runner Runner, p BatchJobParameter) (int, error) {
	p = p.normalized()

	cursor, err := staging.ReadCheckpoint(ctx, p.CheckpointName)
	if err != nil {
		return 0, fmt.Errorf("read checkpoint: %w", err)
	}

	staged, err := staging.RetrieveAfterCursor(ctx, cursor, p.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("retrieve staged records: %w", err)
	}
	if len(staged) == 0 {
		slog.Debug("[SyncJob] No staged records", "checkpoint", p.CheckpointName, "cursor", cursor)
		return 0, nil
	}

	batch := toBatch(staged)
	slog.Info("[SyncJob] Processing staged records",
		"count", len(staged),
		"entities", len(batch),
		"from_cursor", cursor,
	)

	report, err := runner.Run(ctx, batch)
	if err != nil {
		return len(staged), fmt.Errorf("load run: %w", err)
	}
	if report.HasRetryableFailures() {
		slog.Warn("[SyncJob] Retryable failures, checkpoint not advanced",
			"run_id", report.RunID,
			"cursor", cursor,
		)
		return len(staged), ErrCheckpointHeld
	}

	newCursor := staged[len(staged)-1].Seq
	if err := staging.WriteCheckpoint(ctx, p.CheckpointName, newCursor); err != nil {
		return len(staged), fmt.Errorf("write checkpoint: %w", err)
	}

	totals := report.Totals()
	slog.Info("[SyncJob] Batch complete",
		"run_id", report.RunID,
		"records_processed", len(staged),
		"applied", totals.Applied,
		"invalid", totals.Invalid,
		"failed", totals.Failed,
		"cursor_advanced", fmt.Sprintf("%d -> %d", cursor, newCursor),
	)
	return len(staged), nil
}

// toBatch groups staged records by entity, keeping sequence order per entity.
func toBatch(staged []*storage.StagedRecord) load.Batch {
	batch := make(load.Batch)
	for _, sr := range staged {
		batch[sr.Entity] = append(batch[sr.Entity], sr.Record)
	}
	return batch
}
