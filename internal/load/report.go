package load

import (
	"sort"
	"sync"
	"time"

	"github.com/aevon-lab/project-dimsync/internal/core/dimension"
	dserr "github.com/aevon-lab/project-dimsync/internal/core/errors"
	"github.com/aevon-lab/project-dimsync/internal/core/fact"
)

// RecordFailure describes one record that was not applied.
type RecordFailure struct {
	Entity    string `json:"entity"`
	Index     int    `json:"index"`
	Key       string `json:"key,omitempty"`
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

// Counts are the per-entity outcome counters. Applied is the number of
// records that changed stored state (inserted, updated or versioned).
type Counts struct {
	Applied         int `json:"applied"`
	Inserted        int `json:"inserted"`
	Updated         int `json:"updated"`
	Versioned       int `json:"versioned"`
	NoOp            int `json:"no_op"`
	Invalid         int `json:"invalid"`
	Failed          int `json:"failed"`
	Dropped         int `json:"dropped"`
	SkippedExisting int `json:"skipped_existing"`
}

func (c *Counts) add(o Counts) {
	c.Applied += o.Applied
	c.Inserted += o.Inserted
	c.Updated += o.Updated
	c.Versioned += o.Versioned
	c.NoOp += o.NoOp
	c.Invalid += o.Invalid
	c.Failed += o.Failed
	c.Dropped += o.Dropped
	c.SkippedExisting += o.SkippedExisting
}

// EntityReport holds the counts for one entity. Safe for concurrent use.
type EntityReport struct {
	mu sync.Mutex

	Entity string `json:"entity"`
	Counts
	Failures []RecordFailure `json:"failures,omitempty"`
}

// Snapshot returns a copy of the counters.
func (r *EntityReport) Snapshot() Counts {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Counts
}

func (r *EntityReport) outcome(o dimension.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch o {
	case dimension.Inserted:
		r.Inserted++
		r.Applied++
	case dimension.Updated:
		r.Updated++
		r.Applied++
	case dimension.Versioned:
		r.Versioned++
		r.Applied++
	default:
		r.NoOp++
	}
}

func (r *EntityReport) invalid(index int, key string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Invalid++
	r.Failures = append(r.Failures, RecordFailure{Entity: r.Entity, Index: index, Key: key, Error: err.Error()})
}

func (r *EntityReport) failed(index int, key string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Failed++
	r.Failures = append(r.Failures, RecordFailure{
		Entity:    r.Entity,
		Index:     index,
		Key:       key,
		Error:     err.Error(),
		Retryable: dserr.IsRetryable(err),
	})
}

// failAll marks n records failed by one shared error, e.g. a rolled back
// transaction covering all of them.
func (r *EntityReport) failAll(n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Failed += n
	r.Failures = append(r.Failures, RecordFailure{
		Entity:    r.Entity,
		Index:     -1,
		Error:     err.Error(),
		Retryable: dserr.IsRetryable(err),
	})
}

// facts folds a fact append result in. indexes maps positions in the
// appended slice back to positions in the caller's input.
func (r *EntityReport) facts(res *fact.Result, indexes []int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Inserted += res.Inserted
	r.Applied += res.Inserted
	r.SkippedExisting += res.SkippedExisting
	r.Dropped += res.Dropped
	r.Invalid += res.Invalid
	for _, f := range res.Failures {
		idx := f.Index
		if idx >= 0 && idx < len(indexes) {
			idx = indexes[idx]
		}
		r.Failures = append(r.Failures, RecordFailure{Entity: r.Entity, Index: idx, Key: f.NaturalKey, Error: f.Err.Error()})
	}
}

func (r *EntityReport) merge(o *EntityReport) {
	o.mu.Lock()
	counts, failures := o.Counts, o.Failures
	o.mu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.Counts.add(counts)
	r.Failures = append(r.Failures, failures...)
}

// RunReport is the user-visible outcome of one orchestrator run.
type RunReport struct {
	mu sync.Mutex

	RunID     string                   `json:"run_id"`
	Mode      BatchMode                `json:"mode"`
	StartedAt time.Time                `json:"started_at"`
	Duration  time.Duration            `json:"duration"`
	Aborted   bool                     `json:"aborted"`
	Entities  map[string]*EntityReport `json:"entities"`
}

func newRunReport(runID string, mode BatchMode, startedAt time.Time) *RunReport {
	return &RunReport{
		RunID:     runID,
		Mode:      mode,
		StartedAt: startedAt,
		Entities:  make(map[string]*EntityReport),
	}
}

// Entity returns the report for name, creating it on first use.
func (r *RunReport) Entity(name string) *EntityReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	er, ok := r.Entities[name]
	if !ok {
		er = &EntityReport{Entity: name}
		r.Entities[name] = er
	}
	return er
}

// EntityNames returns the reported entities sorted by name.
func (r *RunReport) EntityNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.Entities))
	for name := range r.Entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasRetryableFailures reports whether any record failed with a storage
// error that a later run could get past.
func (r *RunReport) HasRetryableFailures() bool {
	for _, name := range r.EntityNames() {
		er := r.Entity(name)
		er.mu.Lock()
		for _, f := range er.Failures {
			if f.Retryable {
				er.mu.Unlock()
				return true
			}
		}
		er.mu.Unlock()
	}
	return false
}

// Totals sums the counters over all entities.
func (r *RunReport) Totals() Counts {
	var t Counts
	for _, name := range r.EntityNames() {
		t.add(r.Entity(name).Snapshot())
	}
	return t
}
