package storage

import (
	"context"
	"time"

	v1 "github.com/aevon-lab/project-dimsync/internal/api/v1"
)

// Store opens explicit transaction handles. Every dimension or fact mutation
// goes through a Tx; there is no implicit shared session.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is one unit of work against the dimensional store. All operations on a
// business key inside one Tx commit together or not at all, and no reader
// outside the Tx observes an intermediate state.
type Tx interface {
	// GetCurrent returns the current version for a business key, or nil if the
	// key has never been seen (or has no current version).
	GetCurrent(ctx context.Context, entity, businessKey string) (*DimensionRecord, error)

	// GetHistory returns all versions for a business key ordered by version
	// ascending (oldest first).
	GetHistory(ctx context.Context, entity, businessKey string) ([]*DimensionRecord, error)

	// InsertVersion stores rec, assigning its surrogate key and the next
	// version number for the business key. Returns an IntegrityError if rec is
	// current and a current version already exists.
	InsertVersion(ctx context.Context, rec *DimensionRecord) error

	// MutateCurrent updates attributes of the current version in place.
	// Returns a NotFoundError if the key has no current version.
	MutateCurrent(ctx context.Context, entity, businessKey string, updates map[string]interface{}, updatedAt time.Time) error

	// CloseCurrent marks the current version historical with the given end.
	// Returns a NotFoundError if the key has no current version.
	CloseCurrent(ctx context.Context, entity, businessKey string, endAt time.Time) error

	// CountFacts returns the number of loaded facts for a fact entity.
	CountFacts(ctx context.Context, entity string) (int64, error)

	// ExistingNaturalKeys returns the subset of keys already loaded.
	ExistingNaturalKeys(ctx context.Context, entity string, keys []string) (map[string]struct{}, error)

	// InsertFacts appends facts, skipping natural keys that already exist.
	// Returns the number of rows actually inserted.
	InsertFacts(ctx context.Context, facts []*FactRecord) (int, error)

	Commit() error
	// Rollback discards the Tx. Calling it after Commit is a no-op.
	Rollback() error
}

// Reader is the downstream query contract: the current view and the history
// view of a dimension, plus fact lookup. Reads only observe committed state.
type Reader interface {
	CurrentView(ctx context.Context, entity string) ([]*DimensionRecord, error)
	History(ctx context.Context, entity, businessKey string) ([]*DimensionRecord, error)
	LookupCurrent(ctx context.Context, entity, businessKey string) (*DimensionRecord, error)
	FactByNaturalKey(ctx context.Context, entity, naturalKey string) (*FactRecord, error)
}

// StagingStore buffers canonical records received from upstream until the
// sync job applies them. Sequence numbers give a strict total order.
type StagingStore interface {
	// Stage persists records for one entity as a single batch.
	Stage(ctx context.Context, entity string, records []v1.Record) (*StageReceipt, error)

	// RetrieveAfterCursor fetches staged records with seq > cursor in seq order.
	// cursor=0 means "from the beginning".
	RetrieveAfterCursor(ctx context.Context, cursor int64, limit int) ([]*StagedRecord, error)

	// ReadCheckpoint returns the named checkpoint, 0 if none was written.
	ReadCheckpoint(ctx context.Context, name string) (int64, error)

	// WriteCheckpoint advances the named checkpoint. Writes that would move
	// it backwards are ignored.
	WriteCheckpoint(ctx context.Context, name string, cursor int64) error
}
