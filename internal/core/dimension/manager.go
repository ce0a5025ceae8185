package dimension

import (
	"context"
	"fmt"
	"time"

	v1 "github.com/aevon-lab/project-dimsync/internal/api/v1"
	"github.com/aevon-lab/project-dimsync/internal/core/entity"
	dserr "github.com/aevon-lab/project-dimsync/internal/core/errors"
	"github.com/aevon-lab/project-dimsync/internal/core/storage"
)

// Outcome is the state transition a record caused.
type Outcome int

const (
	Unchanged Outcome = iota
	Inserted
	Updated
	Versioned
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	case Versioned:
		return "versioned"
	default:
		return "unchanged"
	}
}

// VersionManager decides and executes dimension state transitions. It never
// opens or commits transactions: every call runs inside the caller's Tx, so a
// close and its replacement insert commit together or not at all.
type VersionManager struct {
	detector ChangeDetector
	now      func() time.Time
}

// NewVersionManager creates a manager using detector for change detection.
func NewVersionManager(detector ChangeDetector) *VersionManager {
	return &VersionManager{detector: detector, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock overrides the transition timestamp source.
func (m *VersionManager) WithClock(now func() time.Time) *VersionManager {
	m.now = now
	return m
}

// Apply validates nothing; callers run Definition.Validate first. It extracts
// the business key, projects the record onto the declared attributes and
// dispatches on the entity's policy.
func (m *VersionManager) Apply(ctx context.Context, tx storage.Tx, def *entity.Definition, rec v1.Record) (Outcome, error) {
	if !def.IsDimension() {
		return Unchanged, fmt.Errorf("apply: %s is not a dimension", def.Name)
	}
	key, err := rec.Key(def.BusinessKey)
	if err != nil {
		return Unchanged, &dserr.ValidationError{Entity: def.Name, Fields: []string{def.BusinessKey}, Message: err.Error()}
	}
	attrs := def.Project(rec)

	switch def.Policy {
	case entity.PolicyOverwrite:
		return m.ApplyOverwrite(ctx, tx, def.Name, key, def.ChangeColumns(), attrs)
	case entity.PolicyVersioning:
		return m.ApplyVersioned(ctx, tx, def.Name, key, def.ChangeColumns(), attrs)
	default:
		return Unchanged, fmt.Errorf("apply: unknown policy %q for %s", def.Policy, def.Name)
	}
}

// ApplyOverwrite inserts version 1 for an unseen key, or mutates the current
// version in place when any of columns differs. Stored columns outside
// columns are ignored. No history is ever created.
func (m *VersionManager) ApplyOverwrite(ctx context.Context, tx storage.Tx, table, businessKey string, columns []string, incoming map[string]interface{}) (Outcome, error) {
	cur, err := m.current(ctx, tx, table, businessKey)
	if err != nil {
		return Unchanged, err
	}
	now := m.now()
	if cur == nil {
		return m.insertFirst(ctx, tx, table, businessKey, incoming, now)
	}

	change := m.detector.Detect(cur.Attributes, incoming, columns)
	if !change.Changed {
		return Unchanged, nil
	}
	if err := tx.MutateCurrent(ctx, table, businessKey, incoming, now); err != nil {
		return Unchanged, fmt.Errorf("overwrite %s %q: %w", table, businessKey, err)
	}
	return Updated, nil
}

// ApplyVersioned inserts version 1 for an unseen key. When a tracked column
// differs it closes the current version and inserts the next one carrying the
// full incoming attribute set. Untracked-only differences are ignored.
func (m *VersionManager) ApplyVersioned(ctx context.Context, tx storage.Tx, table, businessKey string, tracked []string, incoming map[string]interface{}) (Outcome, error) {
	cur, err := m.current(ctx, tx, table, businessKey)
	if err != nil {
		return Unchanged, err
	}
	now := m.now()
	if cur == nil {
		return m.insertFirst(ctx, tx, table, businessKey, incoming, now)
	}

	change := m.detector.Detect(cur.Attributes, incoming, tracked)
	if !change.Changed {
		return Unchanged, nil
	}

	if err := tx.CloseCurrent(ctx, table, businessKey, now); err != nil {
		return Unchanged, fmt.Errorf("close %s %q: %w", table, businessKey, err)
	}
	next := &storage.DimensionRecord{
		Entity:      table,
		BusinessKey: businessKey,
		Attributes:  copyAttrs(incoming),
		EffectiveAt: now,
		IsCurrent:   true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.InsertVersion(ctx, next); err != nil {
		return Unchanged, fmt.Errorf("insert %s %q v%d: %w", table, businessKey, cur.Version+1, err)
	}
	if next.Version != cur.Version+1 {
		return Unchanged, &dserr.IntegrityError{
			Entity:  table,
			Key:     businessKey,
			Message: fmt.Sprintf("assigned version %d after %d", next.Version, cur.Version),
		}
	}
	return Versioned, nil
}

// current returns the current version, nil for an unseen key. Closed history
// with no current version means a previous close committed without its
// replacement; that is fatal.
func (m *VersionManager) current(ctx context.Context, tx storage.Tx, table, businessKey string) (*storage.DimensionRecord, error) {
	cur, err := tx.GetCurrent(ctx, table, businessKey)
	if err != nil {
		return nil, fmt.Errorf("get current %s %q: %w", table, businessKey, err)
	}
	if cur != nil {
		return cur, nil
	}
	history, err := tx.GetHistory(ctx, table, businessKey)
	if err != nil {
		return nil, fmt.Errorf("get history %s %q: %w", table, businessKey, err)
	}
	if len(history) > 0 {
		return nil, &dserr.IntegrityError{
			Entity:  table,
			Key:     businessKey,
			Message: fmt.Sprintf("%d closed versions without a current version", len(history)),
			Fatal:   true,
		}
	}
	return nil, nil
}

func (m *VersionManager) insertFirst(ctx context.Context, tx storage.Tx, table, businessKey string, incoming map[string]interface{}, now time.Time) (Outcome, error) {
	rec := &storage.DimensionRecord{
		Entity:      table,
		BusinessKey: businessKey,
		Attributes:  copyAttrs(incoming),
		EffectiveAt: now,
		IsCurrent:   true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.InsertVersion(ctx, rec); err != nil {
		return Unchanged, fmt.Errorf("insert %s %q: %w", table, businessKey, err)
	}
	if rec.Version != 1 {
		return Unchanged, &dserr.IntegrityError{
			Entity:  table,
			Key:     businessKey,
			Message: fmt.Sprintf("first sighting assigned version %d", rec.Version),
		}
	}
	return Inserted, nil
}

func copyAttrs(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
