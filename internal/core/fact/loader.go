package fact

import (
	"context"
	"errors"
	"fmt"
	"time"

	v1 "github.com/aevon-lab/project-dimsync/internal/api/v1"
	"github.com/aevon-lab/project-dimsync/internal/core/entity"
	dserr "github.com/aevon-lab/project-dimsync/internal/core/errors"
	"github.com/aevon-lab/project-dimsync/internal/core/storage"
	"github.com/shopspring/decimal"
)

// Resolver maps a referenced business key to the surrogate key of its
// current dimension version. It returns a NotFoundError when no current
// version exists.
type Resolver func(ctx context.Context, tx storage.Tx, dimension, businessKey string) (int64, error)

// ResolveCurrent is the default Resolver: a current-version lookup inside
// the loading transaction.
func ResolveCurrent(ctx context.Context, tx storage.Tx, dimension, businessKey string) (int64, error) {
	cur, err := tx.GetCurrent(ctx, dimension, businessKey)
	if err != nil {
		return 0, err
	}
	if cur == nil {
		return 0, &dserr.NotFoundError{Entity: dimension, Key: businessKey}
	}
	return cur.SurrogateKey, nil
}

// Failure is a record that was not loaded.
type Failure struct {
	Index      int
	NaturalKey string
	Err        error
}

// Result summarizes one Append call.
type Result struct {
	Inserted        int
	SkippedExisting int // already loaded, or repeated within the batch
	Dropped         int // unresolvable dimension reference
	Invalid         int
	FullLoad        bool
	Failures        []Failure
}

// Loader appends immutable fact rows.
type Loader struct {
	now func() time.Time
}

// NewLoader creates a fact loader.
func NewLoader() *Loader {
	return &Loader{now: func() time.Time { return time.Now().UTC() }}
}

// WithClock overrides the created_at source.
func (l *Loader) WithClock(now func() time.Time) *Loader {
	l.now = now
	return l
}

// Append loads records for one fact entity inside tx. When the fact table is
// empty the existing-key lookup is skipped (full load). Records whose natural
// key is already loaded are skipped, references are resolved to surrogate
// keys frozen at this point, and records with an unresolvable reference are
// dropped and counted. The caller commits tx.
func (l *Loader) Append(ctx context.Context, tx storage.Tx, def *entity.Definition, records []v1.Record, resolve Resolver) (*Result, error) {
	if def.IsDimension() {
		return nil, fmt.Errorf("append: %s is not a fact", def.Name)
	}
	if resolve == nil {
		resolve = ResolveCurrent
	}
	res := &Result{}

	count, err := tx.CountFacts(ctx, def.Name)
	if err != nil {
		return nil, fmt.Errorf("count facts %s: %w", def.Name, err)
	}
	res.FullLoad = count == 0

	type candidate struct {
		index int
		key   string
		rec   v1.Record
	}
	var (
		candidates []candidate
		keys       []string
		seen       = make(map[string]struct{}, len(records))
	)
	for i, rec := range records {
		if err := def.Validate(rec); err != nil {
			res.Invalid++
			res.Failures = append(res.Failures, Failure{Index: i, Err: err})
			continue
		}
		key, _ := rec.Key(def.NaturalKey)
		if _, dup := seen[key]; dup {
			res.SkippedExisting++
			continue
		}
		seen[key] = struct{}{}
		candidates = append(candidates, candidate{index: i, key: key, rec: rec})
		keys = append(keys, key)
	}

	existing := map[string]struct{}{}
	if !res.FullLoad && len(keys) > 0 {
		existing, err = tx.ExistingNaturalKeys(ctx, def.Name, keys)
		if err != nil {
			return nil, fmt.Errorf("existing natural keys %s: %w", def.Name, err)
		}
	}

	now := l.now()
	rows := make([]*storage.FactRecord, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := existing[c.key]; ok {
			res.SkippedExisting++
			continue
		}

		dimKeys, err := l.resolveReferences(ctx, tx, def, c.rec, resolve)
		if err != nil {
			if errors.Is(err, dserr.ErrNotFound) {
				res.Dropped++
				res.Failures = append(res.Failures, Failure{Index: c.index, NaturalKey: c.key, Err: err})
				continue
			}
			return nil, fmt.Errorf("resolve %s %q: %w", def.Name, c.key, err)
		}

		measures, err := computeMeasures(def, c.rec)
		if err != nil {
			res.Invalid++
			res.Failures = append(res.Failures, Failure{Index: c.index, NaturalKey: c.key, Err: err})
			continue
		}

		rows = append(rows, &storage.FactRecord{
			Entity:        def.Name,
			NaturalKey:    c.key,
			DimensionKeys: dimKeys,
			Measures:      measures,
			Attributes:    def.Project(c.rec),
			CreatedAt:     now,
		})
	}

	if len(rows) == 0 {
		return res, nil
	}
	inserted, err := tx.InsertFacts(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("insert facts %s: %w", def.Name, err)
	}
	res.Inserted = inserted
	res.SkippedExisting += len(rows) - inserted
	return res, nil
}

func (l *Loader) resolveReferences(ctx context.Context, tx storage.Tx, def *entity.Definition, rec v1.Record, resolve Resolver) (map[string]int64, error) {
	keys := make(map[string]int64, len(def.References))
	for _, ref := range def.References {
		bk, err := rec.Key(ref.Column)
		if err != nil {
			return nil, &dserr.ValidationError{Entity: def.Name, Fields: []string{ref.Column}, Message: err.Error()}
		}
		sk, err := resolve(ctx, tx, ref.Entity, bk)
		if err != nil {
			return nil, err
		}
		keys[ref.ReferenceName()] = sk
	}
	return keys, nil
}

// computeMeasures extracts declared measures, then evaluates derived
// measures in declaration order so later ones may use earlier results.
func computeMeasures(def *entity.Definition, rec v1.Record) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(def.Measures)+len(def.Derived))
	for _, m := range def.Measures {
		v, ok := ExtractDecimal(rec, m)
		if !ok {
			return nil, &dserr.ValidationError{Entity: def.Name, Fields: []string{m}, Message: "measure is not numeric"}
		}
		out[m] = v
	}
	for _, dm := range def.Derived {
		args := make([]decimal.Decimal, len(dm.Args))
		for i, a := range dm.Args {
			args[i] = out[a]
		}
		factor := decimal.Zero
		if dm.Factor != "" {
			factor, _ = decimal.NewFromString(dm.Factor)
		}
		out[dm.Name] = entity.DerivedOperators[dm.Op].Compute(args, factor)
	}
	return out, nil
}
