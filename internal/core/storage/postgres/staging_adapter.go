package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	v1 "github.com/aevon-lab/project-dimsync/internal/api/v1"
	"github.com/aevon-lab/project-dimsync/internal/core/storage"
	"github.com/google/uuid"
)

var _ storage.StagingStore = (*StagingAdapter)(nil)

// stagingLockID is the advisory lock key held by every staging transaction.
const stagingLockID int64 = 0x64696d73796e63 // "dimsync"

// StagingAdapter implements storage.StagingStore using PostgreSQL.
// A batch is staged in one transaction so it is drained all or nothing.
type StagingAdapter struct {
	db  *sql.DB
	now func() time.Time
}

// NewStagingAdapter creates a StagingAdapter sharing the given connection.
func NewStagingAdapter(db *sql.DB) *StagingAdapter {
	return &StagingAdapter{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Stage persists records for one entity under a fresh batch ID.
func (a *StagingAdapter) Stage(ctx context.Context, entity string, records []v1.Record) (*storage.StageReceipt, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("stage %s: no records", entity)
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, mapError("stage: begin tx", entity, "", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, queryLockStaging, stagingLockID); err != nil {
		return nil, mapError("stage: lock", entity, "", err)
	}

	stmt, err := tx.PrepareContext(ctx, queryStageRecord)
	if err != nil {
		return nil, mapError("stage: prepare", entity, "", err)
	}
	defer stmt.Close()

	receipt := &storage.StageReceipt{BatchID: uuid.NewString()}
	stagedAt := a.now()
	for i, rec := range records {
		payload, err := marshalAttributes(rec)
		if err != nil {
			return nil, fmt.Errorf("stage: record %d: %w", i, err)
		}
		var seq int64
		if err := stmt.QueryRowContext(ctx, receipt.BatchID, entity, payload, stagedAt).Scan(&seq); err != nil {
			return nil, mapError("stage: insert", entity, "", err)
		}
		if receipt.FirstSeq == 0 {
			receipt.FirstSeq = seq
		}
		receipt.LastSeq = seq
	}

	if err := tx.Commit(); err != nil {
		return nil, mapError("stage: commit", entity, "", err)
	}

	slog.Debug("[StagingAdapter] Staged batch",
		"entity", entity,
		"batch_id", receipt.BatchID,
		"records", len(records),
		"last_seq", receipt.LastSeq)
	return receipt, nil
}

// RetrieveAfterCursor fetches staged records after a cursor in strict
// ingest_seq order. cursor=0 means "from the beginning".
func (a *StagingAdapter) RetrieveAfterCursor(ctx context.Context, cursor int64, limit int) ([]*storage.StagedRecord, error) {
	rows, err := a.db.QueryContext(ctx, queryRetrieveStagedAfterCursor, cursor, limit)
	if err != nil {
		return nil, mapError("retrieve staged", "", "", err)
	}
	defer rows.Close()

	var out []*storage.StagedRecord
	for rows.Next() {
		var (
			sr      storage.StagedRecord
			payload []byte
		)
		if err := rows.Scan(&sr.Seq, &sr.BatchID, &sr.Entity, &payload, &sr.StagedAt); err != nil {
			return nil, fmt.Errorf("failed to scan staged row: %w", err)
		}
		attrs, err := unmarshalAttributes(payload)
		if err != nil {
			return nil, fmt.Errorf("staged record %d: %w", sr.Seq, err)
		}
		sr.Record = v1.Record(attrs)
		out = append(out, &sr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating staged rows: %w", err)
	}
	return out, nil
}

// ReadCheckpoint returns the named cursor, 0 if none exists yet.
func (a *StagingAdapter) ReadCheckpoint(ctx context.Context, name string) (int64, error) {
	var cursor int64
	err := a.db.QueryRowContext(ctx, queryReadSyncCheckpoint, name).Scan(&cursor)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, mapError("read checkpoint", "", name, err)
	}
	return cursor, nil
}

// WriteCheckpoint advances the named cursor. Stale writes are ignored by the
// upsert's WHERE clause.
func (a *StagingAdapter) WriteCheckpoint(ctx context.Context, name string, cursor int64) error {
	res, err := a.db.ExecContext(ctx, queryWriteSyncCheckpoint, name, cursor, a.now())
	if err != nil {
		return mapError("write checkpoint", "", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		slog.Warn("[StagingAdapter] Skipping stale checkpoint write", "name", name, "cursor", cursor)
	}
	return nil
}
