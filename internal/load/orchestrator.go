package load

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	v1 "github.com/aevon-lab/project-dimsync/internal/api/v1"
	"github.com/aevon-lab/project-dimsync/internal/core/dimension"
	"github.com/aevon-lab/project-dimsync/internal/core/entity"
	dserr "github.com/aevon-lab/project-dimsync/internal/core/errors"
	"github.com/aevon-lab/project-dimsync/internal/core/fact"
	"github.com/aevon-lab/project-dimsync/internal/core/storage"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Batch maps entity names to canonical records in input order.
type Batch map[string][]v1.Record

// item is a validated record with its position in the caller's input.
type item struct {
	index int
	key   string
	rec   v1.Record
}

type keyGroup struct {
	key   string
	items []item
}

// Orchestrator sequences dimension loads before fact loads and owns the
// transaction boundaries of a run.
type Orchestrator struct {
	registry *entity.Registry
	store    storage.Store
	versions *dimension.VersionManager
	facts    *fact.Loader
	locks    *dimension.KeyLocks
	opts     Options
	now      func() time.Time

	// runMu serializes all-or-nothing runs.
	runMu sync.Mutex
}

// NewOrchestrator wires an orchestrator over the entity registry and store.
func NewOrchestrator(registry *entity.Registry, store storage.Store, opts Options) *Orchestrator {
	if registry == nil {
		panic("load: nil entity registry")
	}
	if store == nil {
		panic("load: nil store")
	}
	opts = opts.normalized()
	return &Orchestrator{
		registry: registry,
		store:    store,
		versions: dimension.NewVersionManager(dimension.ChangeDetector{NullSafe: opts.NullSafe}),
		facts:    fact.NewLoader(),
		locks:    &dimension.KeyLocks{},
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the timestamp source of every transition.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	o.versions.WithClock(now)
	o.facts.WithClock(now)
	return o
}

// Registry returns the entity registry the orchestrator loads against.
func (o *Orchestrator) Registry() *entity.Registry { return o.registry }

// Run validates and loads one batch: all dimensions in registry order, then
// all facts. Record-level failures are counted in the report; the returned
// error is non-nil only when the run was aborted (fatal integrity error,
// fail-fast, or context cancellation).
func (o *Orchestrator) Run(ctx context.Context, batch Batch) (*RunReport, error) {
	started := time.Now()
	report := newRunReport(uuid.NewString(), o.opts.BatchMode, o.now())

	slog.Info("[Orchestrator] Starting run",
		"run_id", report.RunID,
		"mode", o.opts.BatchMode,
		"entities", len(batch),
		"workers", o.opts.WorkerCount,
	)

	err := o.run(ctx, batch, report)
	report.Duration = time.Since(started)

	if err != nil {
		report.Aborted = true
		slog.Error("[Orchestrator] Run aborted",
			"run_id", report.RunID,
			"error", err,
			"duration", report.Duration,
		)
		return report, err
	}

	totals := report.Totals()
	slog.Info("[Orchestrator] Run complete",
		"run_id", report.RunID,
		"applied", totals.Applied,
		"versioned", totals.Versioned,
		"no_op", totals.NoOp,
		"invalid", totals.Invalid,
		"failed", totals.Failed,
		"dropped", totals.Dropped,
		"duration", report.Duration,
	)
	return report, nil
}

func (o *Orchestrator) run(ctx context.Context, batch Batch, report *RunReport) error {
	valid, err := o.validate(batch, report)
	if err != nil {
		return err
	}
	if o.opts.BatchMode == AllOrNothing {
		return o.runAllOrNothing(ctx, valid, report)
	}
	return o.runPerRecord(ctx, valid, report)
}

// validate checks every record against its entity definition. Invalid
// records are counted and skipped; with FailFast the first one aborts.
func (o *Orchestrator) validate(batch Batch, report *RunReport) (map[string][]item, error) {
	names := make([]string, 0, len(batch))
	for name := range batch {
		names = append(names, name)
	}
	sort.Strings(names)

	valid := make(map[string][]item, len(batch))
	for _, name := range names {
		er := report.Entity(name)
		def, ok := o.registry.Get(name)
		for i, rec := range batch[name] {
			var err error
			if !ok {
				err = &dserr.ValidationError{Entity: name, Message: "unknown entity"}
			} else {
				err = def.Validate(rec)
			}
			if err != nil {
				er.invalid(i, "", err)
				if o.opts.FailFast {
					return nil, fmt.Errorf("fail-fast: %s record %d: %w", name, i, err)
				}
				continue
			}
			key, _ := rec.Key(def.KeyColumn())
			valid[name] = append(valid[name], item{index: i, key: key, rec: rec})
		}
	}
	return valid, nil
}

func (o *Orchestrator) runPerRecord(ctx context.Context, valid map[string][]item, report *RunReport) error {
	for _, def := range o.registry.Dimensions() {
		items := valid[def.Name]
		if len(items) == 0 {
			continue
		}
		if err := o.loadDimension(ctx, def, items, report.Entity(def.Name)); err != nil {
			return err
		}
	}
	for _, def := range o.registry.Facts() {
		items := valid[def.Name]
		if len(items) == 0 {
			continue
		}
		if err := o.loadFacts(ctx, def, items, report.Entity(def.Name)); err != nil {
			return err
		}
	}
	return nil
}

// loadDimension fans key groups out over the worker pool. Rows of one key
// stay in one group and are applied strictly in input order.
func (o *Orchestrator) loadDimension(ctx context.Context, def *entity.Definition, items []item, er *EntityReport) error {
	groups := groupByKey(items)

	slog.Debug("[Orchestrator] Loading dimension",
		"entity", def.Name,
		"policy", def.Policy,
		"records", len(items),
		"keys", len(groups),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.WorkerCount)
	for _, grp := range groups {
		grp := grp
		g.Go(func() error {
			for _, it := range grp.items {
				if err := o.applyOne(gctx, def, it, er); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// applyOne runs one key transition as lock, begin, apply, commit, retried on
// storage failures. It returns an error only when the run must stop.
func (o *Orchestrator) applyOne(ctx context.Context, def *entity.Definition, it item, er *EntityReport) error {
	unlock := o.locks.Lock(def.Name, it.key)
	defer unlock()

	var outcome dimension.Outcome
	err := withRetry(ctx, o.opts.Retry, func() error {
		tx, err := o.store.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback() //nolint:errcheck

		out, err := o.versions.Apply(ctx, tx, def, it.rec)
		if err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		outcome = out
		return nil
	})
	if err == nil {
		er.outcome(outcome)
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	er.failed(it.index, it.key, err)
	if dserr.IsFatal(err) {
		return fmt.Errorf("%s %q: %w", def.Name, it.key, err)
	}
	slog.Warn("[Orchestrator] Record failed",
		"entity", def.Name,
		"business_key", it.key,
		"index", it.index,
		"retryable", dserr.IsRetryable(err),
		"error", err,
	)
	if o.opts.FailFast {
		return fmt.Errorf("fail-fast: %s %q: %w", def.Name, it.key, err)
	}
	return nil
}

// loadFacts appends one fact entity in a single transaction.
func (o *Orchestrator) loadFacts(ctx context.Context, def *entity.Definition, items []item, er *EntityReport) error {
	records, indexes := unzip(items)

	var res *fact.Result
	err := withRetry(ctx, o.opts.Retry, func() error {
		tx, err := o.store.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback() //nolint:errcheck

		r, err := o.facts.Append(ctx, tx, def, records, nil)
		if err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		er.failAll(len(items), err)
		slog.Warn("[Orchestrator] Fact append failed", "entity", def.Name, "records", len(items), "error", err)
		if o.opts.FailFast || dserr.IsFatal(err) {
			return fmt.Errorf("%s append: %w", def.Name, err)
		}
		return nil
	}

	er.facts(res, indexes)
	slog.Debug("[Orchestrator] Loaded facts",
		"entity", def.Name,
		"full_load", res.FullLoad,
		"inserted", res.Inserted,
		"skipped_existing", res.SkippedExisting,
		"dropped", res.Dropped,
	)
	return nil
}

// runAllOrNothing applies every transition and append in one transaction.
// Counts are published only after commit; on rollback every valid record
// is reported failed.
func (o *Orchestrator) runAllOrNothing(ctx context.Context, valid map[string][]item, report *RunReport) error {
	o.runMu.Lock()
	defer o.runMu.Unlock()

	var pending map[string]*EntityReport
	err := withRetry(ctx, o.opts.Retry, func() error {
		pending = make(map[string]*EntityReport)
		held := o.locks.HoldAll(dimensionKeys(o.registry.Dimensions(), valid))
		defer held.Release()

		tx, err := o.store.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback() //nolint:errcheck

		for _, def := range o.registry.Dimensions() {
			er := &EntityReport{Entity: def.Name}
			pending[def.Name] = er
			for _, it := range valid[def.Name] {
				out, err := o.versions.Apply(ctx, tx, def, it.rec)
				if err != nil {
					return fmt.Errorf("%s %q: %w", def.Name, it.key, err)
				}
				er.outcome(out)
			}
		}
		for _, def := range o.registry.Facts() {
			items := valid[def.Name]
			if len(items) == 0 {
				continue
			}
			records, indexes := unzip(items)
			res, err := o.facts.Append(ctx, tx, def, records, nil)
			if err != nil {
				return fmt.Errorf("%s append: %w", def.Name, err)
			}
			er := &EntityReport{Entity: def.Name}
			er.facts(res, indexes)
			pending[def.Name] = er
		}
		return tx.Commit()
	})

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		for name, items := range valid {
			if len(items) > 0 {
				report.Entity(name).failAll(len(items), err)
			}
		}
		slog.Error("[Orchestrator] All-or-nothing run rolled back", "run_id", report.RunID, "error", err)
		if o.opts.FailFast || dserr.IsFatal(err) {
			return fmt.Errorf("all-or-nothing run rolled back: %w", err)
		}
		return nil
	}

	for name, er := range pending {
		report.Entity(name).merge(er)
	}
	return nil
}

// dimensionKeys lists the business keys an all-or-nothing run transitions.
func dimensionKeys(dims []*entity.Definition, valid map[string][]item) []dimension.Key {
	var keys []dimension.Key
	for _, def := range dims {
		for _, it := range valid[def.Name] {
			keys = append(keys, dimension.Key{Entity: def.Name, Key: it.key})
		}
	}
	return keys
}

// groupByKey groups items by key preserving first-seen order of keys and
// input order within each key.
func groupByKey(items []item) []*keyGroup {
	var groups []*keyGroup
	byKey := make(map[string]*keyGroup)
	for _, it := range items {
		grp, ok := byKey[it.key]
		if !ok {
			grp = &keyGroup{key: it.key}
			byKey[it.key] = grp
			groups = append(groups, grp)
		}
		grp.items = append(grp.items, it)
	}
	return groups
}

func unzip(items []item) ([]v1.Record, []int) {
	records := make([]v1.Record, len(items))
	indexes := make([]int, len(items))
	for i, it := range items {
		records[i] = it.rec
		indexes[i] = it.index
	}
	return records, indexes
}
