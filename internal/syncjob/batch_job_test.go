package syncjob

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	v1 "github.com/aevon-lab/project-dimsync/internal/api/v1"
	"github.com/aevon-lab/project-dimsync/internal/core/entity"
	dserr "github.com/aevon-lab/project-dimsync/internal/core/errors"
	"github.com/aevon-lab/project-dimsync/internal/core/storage"
	"github.com/aevon-lab/project-dimsync/internal/core/storage/memory"
	"github.com/aevon-lab/project-dimsync/internal/load"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrchestrator(t *testing.T, store storage.Store) *load.Orchestrator {
	t.Helper()
	reg, err := entity.NewRegistry([]*entity.Definition{
		{
			Name:        "product",
			Kind:        entity.KindDimension,
			BusinessKey: "product_id",
			Policy:      entity.PolicyVersioning,
			Tracked:     []string{"price"},
			Untracked:   []string{"title"},
		},
		{
			Name:       "sale",
			Kind:       entity.KindFact,
			NaturalKey: "sale_id",
			References: []entity.Reference{{Column: "product_id", Entity: "product"}},
			Measures:   []string{"quantity"},
		},
	})
	require.NoError(t, err)

	opts := load.DefaultOptions()
	opts.Retry = load.RetryPolicy{MaxAttempts: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
	return load.NewOrchestrator(reg, store, opts)
}

func stage(t *testing.T, s *memory.Store, entityName string, records ...v1.Record) {
	t.Helper()
	_, err := s.Stage(context.Background(), entityName, records)
	require.NoError(t, err)
}

func TestRunSyncBatch_NoRecords(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	n, err := RunSyncBatch(ctx, store, newOrchestrator(t, store), DefaultBatchJobParameter())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	cursor, err := store.ReadCheckpoint(ctx, defaultCheckpointName)
	require.NoError(t, err)
	assert.Equal(t, int64(0), cursor)
}

func TestRunSyncBatch_AppliesAndAdvances(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	// Facts staged before their dimension still resolve: a batch loads
	// dimensions first.
	stage(t, store, "sale", v1.Record{"sale_id": "S1", "product_id": "P1", "quantity": 2})
	stage(t, store, "product",
		v1.Record{"product_id": "P1", "price": 10, "title": "Widget"},
		v1.Record{"product_id": "P1", "price": 12, "title": "Widget"},
	)

	n, err := RunSyncBatch(ctx, store, newOrchestrator(t, store), DefaultBatchJobParameter())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	cursor, err := store.ReadCheckpoint(ctx, defaultCheckpointName)
	require.NoError(t, err)
	assert.Equal(t, int64(3), cursor)

	history, err := store.History(ctx, "product", "P1")
	require.NoError(t, err)
	require.Len(t, history, 2)

	sale, err := store.FactByNaturalKey(ctx, "sale", "S1")
	require.NoError(t, err)
	assert.Equal(t, history[1].SurrogateKey, sale.DimensionKeys["product_key"])

	// Nothing left after the checkpoint.
	n, err = RunSyncBatch(ctx, store, newOrchestrator(t, store), DefaultBatchJobParameter())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRunSyncBatch_RespectsBatchSize(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	for i := 0; i < 5; i++ {
		stage(t, store, "product", v1.Record{"product_id": fmt.Sprintf("P%d", i), "price": i})
	}

	p := BatchJobParameter{BatchSize: 2, CheckpointName: "test"}
	n, err := RunSyncBatch(ctx, store, newOrchestrator(t, store), p)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	cursor, err := store.ReadCheckpoint(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, int64(2), cursor)
}

func TestRunSyncBatch_HoldsCheckpointOnRetryableFailure(t *testing.T) {
	ctx := context.Background()
	store := &failingCommitStore{Store: memory.NewStore()}
	stage(t, store.Store, "product", v1.Record{"product_id": "P1", "price": 1})

	n, err := RunSyncBatch(ctx, store, newOrchestrator(t, store), DefaultBatchJobParameter())
	require.ErrorIs(t, err, ErrCheckpointHeld)
	assert.Equal(t, 1, n)

	cursor, err := store.ReadCheckpoint(ctx, defaultCheckpointName)
	require.NoError(t, err)
	assert.Equal(t, int64(0), cursor, "records are replayed on the next run")

	// Once storage recovers the same records go through.
	store.healthy.Store(true)
	n, err = RunSyncBatch(ctx, store, newOrchestrator(t, store), DefaultBatchJobParameter())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = store.LookupCurrent(ctx, "product", "P1")
	require.NoError(t, err)
}

func TestRunSyncBatch_InvalidRecordsDoNotHoldCheckpoint(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	stage(t, store, "product", v1.Record{"price": 1})
	stage(t, store, "unknown", v1.Record{"id": "x"})

	n, err := RunSyncBatch(ctx, store, newOrchestrator(t, store), DefaultBatchJobParameter())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	cursor, err := store.ReadCheckpoint(ctx, defaultCheckpointName)
	require.NoError(t, err)
	assert.Equal(t, int64(2), cursor)
}

func TestScheduler_DrainEmptiesBacklog(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	for i := 0; i < 7; i++ {
		stage(t, store, "product", v1.Record{"product_id": fmt.Sprintf("P%d", i), "price": i})
	}

	s := NewScheduler(time.Hour, store, newOrchestrator(t, store), BatchJobParameter{BatchSize: 3})
	n, err := s.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	view, err := store.CurrentView(ctx, "product")
	require.NoError(t, err)
	assert.Len(t, view, 7)
}

func TestScheduler_StartDrainsUntilCancelled(t *testing.T) {
	store := memory.NewStore()
	stage(t, store, "product", v1.Record{"product_id": "P1", "price": 1})

	ctx, cancel := context.WithCancel(context.Background())
	s := NewScheduler(10*time.Millisecond, store, newOrchestrator(t, store), DefaultBatchJobParameter())

	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool {
		cursor, _ := store.ReadCheckpoint(context.Background(), defaultCheckpointName)
		return cursor == 1
	}, time.Second, 5*time.Millisecond)

	// Staged after the initial drain; picked up by a tick or the final drain.
	stage(t, store, "product", v1.Record{"product_id": "P2", "price": 2})
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	_, err := store.LookupCurrent(context.Background(), "product", "P2")
	require.NoError(t, err)
}

func TestNewScheduler_PanicsOnNilDeps(t *testing.T) {
	store := memory.NewStore()
	assert.Panics(t, func() { NewScheduler(time.Second, nil, newOrchestrator(t, store), DefaultBatchJobParameter()) })
	assert.Panics(t, func() { NewScheduler(time.Second, store, nil, DefaultBatchJobParameter()) })
}

// failingCommitStore fails every commit with a storage error until healthy.
type failingCommitStore struct {
	*memory.Store
	healthy atomic.Bool
}

func (s *failingCommitStore) Begin(ctx context.Context) (storage.Tx, error) {
	tx, err := s.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &failingCommitTx{Tx: tx, store: s}, nil
}

type failingCommitTx struct {
	storage.Tx
	store *failingCommitStore
}

func (t *failingCommitTx) Commit() error {
	if !t.store.healthy.Load() {
		_ = t.Tx.Rollback()
		return dserr.Storage("commit", errors.New("server closed the connection"))
	}
	return t.Tx.Commit()
}
