package memory

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	dserr "github.com/aevon-lab/project-dimsync/internal/core/errors"
	"github.com/aevon-lab/project-dimsync/internal/core/storage"
)

var errTxDone = errors.New("transaction already committed or rolled back")

// txKey is a private copy of one business key's versions.
type txKey struct {
	rev      uint64
	versions []*storage.DimensionRecord
	dirty    bool
}

type tx struct {
	store *Store
	keys  map[dimKey]*txKey
	facts []*storage.FactRecord
	known map[string]map[string]struct{} // natural keys inserted in this tx
	done  bool
}

func (t *tx) load(k dimKey) *txKey {
	if tk, ok := t.keys[k]; ok {
		return tk
	}
	t.store.mu.RLock()
	tk := &txKey{rev: t.store.revs[k], versions: cloneAll(t.store.dims[k])}
	t.store.mu.RUnlock()
	t.keys[k] = tk
	return tk
}

func (t *tx) check() error {
	if t.done {
		return &dserr.StorageError{Op: "tx", Err: errTxDone}
	}
	return nil
}

func (t *tx) GetCurrent(_ context.Context, entity, businessKey string) (*storage.DimensionRecord, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	cur := currentOf(t.load(dimKey{entity, businessKey}).versions)
	if cur == nil {
		return nil, nil
	}
	return cur.Clone(), nil
}

func (t *tx) GetHistory(_ context.Context, entity, businessKey string) ([]*storage.DimensionRecord, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	return cloneAll(t.load(dimKey{entity, businessKey}).versions), nil
}

func (t *tx) InsertVersion(_ context.Context, rec *storage.DimensionRecord) error {
	if err := t.check(); err != nil {
		return err
	}
	tk := t.load(dimKey{rec.Entity, rec.BusinessKey})
	if rec.IsCurrent && currentOf(tk.versions) != nil {
		return &dserr.IntegrityError{Entity: rec.Entity, Key: rec.BusinessKey, Message: "a current version already exists"}
	}

	next := 1
	if n := len(tk.versions); n > 0 {
		next = tk.versions[n-1].Version + 1
	}
	rec.Version = next
	rec.SurrogateKey = atomic.AddInt64(&t.store.nextDimSK, 1)

	tk.versions = append(tk.versions, rec.Clone())
	tk.dirty = true
	return nil
}

func (t *tx) MutateCurrent(_ context.Context, entity, businessKey string, updates map[string]interface{}, updatedAt time.Time) error {
	if err := t.check(); err != nil {
		return err
	}
	tk := t.load(dimKey{entity, businessKey})
	cur := currentOf(tk.versions)
	if cur == nil {
		return &dserr.NotFoundError{Entity: entity, Key: businessKey}
	}
	for k, v := range updates {
		cur.Attributes[k] = v
	}
	cur.UpdatedAt = updatedAt
	tk.dirty = true
	return nil
}

func (t *tx) CloseCurrent(_ context.Context, entity, businessKey string, endAt time.Time) error {
	if err := t.check(); err != nil {
		return err
	}
	tk := t.load(dimKey{entity, businessKey})
	cur := currentOf(tk.versions)
	if cur == nil {
		return &dserr.NotFoundError{Entity: entity, Key: businessKey}
	}
	end := endAt
	cur.IsCurrent = false
	cur.EndAt = &end
	cur.UpdatedAt = endAt
	tk.dirty = true
	return nil
}

func (t *tx) CountFacts(_ context.Context, entity string) (int64, error) {
	if err := t.check(); err != nil {
		return 0, err
	}
	t.store.mu.RLock()
	n := int64(len(t.store.facts[entity]))
	t.store.mu.RUnlock()
	return n + int64(len(t.known[entity])), nil
}

func (t *tx) ExistingNaturalKeys(_ context.Context, entity string, keys []string) (map[string]struct{}, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	out := make(map[string]struct{})
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	for _, k := range keys {
		if _, ok := t.store.facts[entity][k]; ok {
			out[k] = struct{}{}
		} else if _, ok := t.known[entity][k]; ok {
			out[k] = struct{}{}
		}
	}
	return out, nil
}

func (t *tx) InsertFacts(_ context.Context, facts []*storage.FactRecord) (int, error) {
	if err := t.check(); err != nil {
		return 0, err
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	inserted := 0
	for _, f := range facts {
		if _, ok := t.store.facts[f.Entity][f.NaturalKey]; ok {
			continue
		}
		if _, ok := t.known[f.Entity][f.NaturalKey]; ok {
			continue
		}
		if t.known[f.Entity] == nil {
			t.known[f.Entity] = make(map[string]struct{})
		}
		t.known[f.Entity][f.NaturalKey] = struct{}{}

		cp := *f
		cp.SurrogateKey = atomic.AddInt64(&t.store.nextFactSK, 1)
		if cp.CreatedAt.IsZero() {
			cp.CreatedAt = t.store.now()
		}
		f.SurrogateKey = cp.SurrogateKey
		t.facts = append(t.facts, &cp)
		inserted++
	}
	return inserted, nil
}

// Commit publishes every touched key and fact atomically. A key changed by
// another commit since this tx first read it fails with a retryable
// StorageError; a broken version chain fails with an IntegrityError.
func (t *tx) Commit() error {
	if err := t.check(); err != nil {
		return err
	}
	t.done = true

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, tk := range t.keys {
		if !tk.dirty {
			continue
		}
		if s.revs[k] != tk.rev {
			return &dserr.StorageError{Op: "commit", Err: fmt.Errorf("concurrent update of %s %q", k.entity, k.key)}
		}
		if err := checkChain(k, tk.versions); err != nil {
			return err
		}
	}
	for _, f := range t.facts {
		if _, ok := s.facts[f.Entity][f.NaturalKey]; ok {
			return &dserr.StorageError{Op: "commit", Err: fmt.Errorf("concurrent insert of %s %q", f.Entity, f.NaturalKey)}
		}
	}

	for k, tk := range t.keys {
		if !tk.dirty {
			continue
		}
		s.dims[k] = tk.versions
		s.revs[k]++
	}
	for _, f := range t.facts {
		if s.facts[f.Entity] == nil {
			s.facts[f.Entity] = make(map[string]*storage.FactRecord)
		}
		s.facts[f.Entity][f.NaturalKey] = f
	}
	return nil
}

func (t *tx) Rollback() error {
	t.done = true
	return nil
}

// checkChain enforces the per-key invariants: versions 1..N without gaps,
// exactly the last one current and open, every other one closed.
func checkChain(k dimKey, versions []*storage.DimensionRecord) error {
	fail := func(msg string, args ...interface{}) error {
		return &dserr.IntegrityError{Entity: k.entity, Key: k.key, Message: fmt.Sprintf(msg, args...)}
	}
	for i, v := range versions {
		if v.Version != i+1 {
			return fail("version %d at position %d", v.Version, i+1)
		}
		last := i == len(versions)-1
		switch {
		case last && !v.IsCurrent:
			return fail("no current version after commit")
		case last && v.EndAt != nil:
			return fail("current version %d has an end timestamp", v.Version)
		case !last && v.IsCurrent:
			return fail("version %d is current but not latest", v.Version)
		case !last && v.EndAt == nil:
			return fail("historical version %d has no end timestamp", v.Version)
		}
	}
	return nil
}
