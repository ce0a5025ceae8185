// Package memory is an in-process implementation of the storage contracts.
// Transactions work on private copies of the keys they touch and publish
// them under a single write lock at commit, so readers only ever see
// committed state.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	v1 "github.com/aevon-lab/project-dimsync/internal/api/v1"
	dserr "github.com/aevon-lab/project-dimsync/internal/core/errors"
	"github.com/aevon-lab/project-dimsync/internal/core/storage"
	"github.com/google/uuid"
)

type dimKey struct {
	entity string
	key    string
}

// Store holds every table in memory.
type Store struct {
	mu sync.RWMutex

	dims  map[dimKey][]*storage.DimensionRecord // versions ascending
	revs  map[dimKey]uint64
	facts map[string]map[string]*storage.FactRecord

	staged      []*storage.StagedRecord
	checkpoints map[string]int64

	nextDimSK  int64
	nextFactSK int64
	nextSeq    int64

	now func() time.Time
}

var (
	_ storage.Store        = (*Store)(nil)
	_ storage.Reader       = (*Store)(nil)
	_ storage.StagingStore = (*Store)(nil)
)

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		dims:        make(map[dimKey][]*storage.DimensionRecord),
		revs:        make(map[dimKey]uint64),
		facts:       make(map[string]map[string]*storage.FactRecord),
		checkpoints: make(map[string]int64),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Begin opens a transaction. It never fails.
func (s *Store) Begin(_ context.Context) (storage.Tx, error) {
	return &tx{
		store: s,
		keys:  make(map[dimKey]*txKey),
		known: make(map[string]map[string]struct{}),
	}, nil
}

// Close is a no-op kept for symmetry with the postgres adapter.
func (s *Store) Close() error { return nil }

// --- Reader ---

func (s *Store) CurrentView(_ context.Context, entity string) ([]*storage.DimensionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*storage.DimensionRecord
	for k, versions := range s.dims {
		if k.entity != entity {
			continue
		}
		if cur := currentOf(versions); cur != nil {
			out = append(out, cur.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BusinessKey < out[j].BusinessKey })
	return out, nil
}

func (s *Store) History(_ context.Context, entity, businessKey string) ([]*storage.DimensionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.dims[dimKey{entity, businessKey}]), nil
}

func (s *Store) LookupCurrent(_ context.Context, entity, businessKey string) (*storage.DimensionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cur := currentOf(s.dims[dimKey{entity, businessKey}])
	if cur == nil {
		return nil, &dserr.NotFoundError{Entity: entity, Key: businessKey}
	}
	return cur.Clone(), nil
}

func (s *Store) FactByNaturalKey(_ context.Context, entity, naturalKey string) (*storage.FactRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.facts[entity][naturalKey]
	if !ok {
		return nil, &dserr.NotFoundError{Entity: entity, Key: naturalKey}
	}
	cp := *f
	return &cp, nil
}

// --- StagingStore ---

func (s *Store) Stage(_ context.Context, entity string, records []v1.Record) (*storage.StageReceipt, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("stage %s: no records", entity)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	receipt := &storage.StageReceipt{BatchID: uuid.NewString()}
	now := s.now()
	for _, rec := range records {
		s.nextSeq++
		s.staged = append(s.staged, &storage.StagedRecord{
			Seq:      s.nextSeq,
			BatchID:  receipt.BatchID,
			Entity:   entity,
			Record:   rec.Clone(),
			StagedAt: now,
		})
		if receipt.FirstSeq == 0 {
			receipt.FirstSeq = s.nextSeq
		}
		receipt.LastSeq = s.nextSeq
	}
	return receipt, nil
}

func (s *Store) RetrieveAfterCursor(_ context.Context, cursor int64, limit int) ([]*storage.StagedRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// staged is append-only in seq order.
	start := sort.Search(len(s.staged), func(i int) bool { return s.staged[i].Seq > cursor })
	end := len(s.staged)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	out := make([]*storage.StagedRecord, 0, end-start)
	for _, sr := range s.staged[start:end] {
		cp := *sr
		cp.Record = sr.Record.Clone()
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) ReadCheckpoint(_ context.Context, name string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkpoints[name], nil
}

func (s *Store) WriteCheckpoint(_ context.Context, name string, cursor int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cursor > s.checkpoints[name] {
		s.checkpoints[name] = cursor
	}
	return nil
}

func currentOf(versions []*storage.DimensionRecord) *storage.DimensionRecord {
	for i := len(versions) - 1; i >= 0; i-- {
		if versions[i].IsCurrent {
			return versions[i]
		}
	}
	return nil
}

func cloneAll(versions []*storage.DimensionRecord) []*storage.DimensionRecord {
	out := make([]*storage.DimensionRecord, len(versions))
	for i, v := range versions {
		out[i] = v.Clone()
	}
	return out
}
