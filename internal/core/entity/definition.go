package entity

import (
	"errors"
	"sort"

	v1 "github.com/aevon-lab/project-dimsync/internal/api/v1"
	dserr "github.com/aevon-lab/project-dimsync/internal/core/errors"
)

// Kind separates versioned dimensions from append-only facts.
type Kind string

const (
	KindDimension Kind = "dimension"
	KindFact      Kind = "fact"
)

// Policy selects the history semantics of a dimension.
type Policy string

const (
	// PolicyOverwrite mutates the current record in place (SCD type 1).
	PolicyOverwrite Policy = "overwrite"
	// PolicyVersioning closes the current record and opens a new version when
	// a tracked column changes (SCD type 2).
	PolicyVersioning Policy = "versioning"
)

// Reference binds a fact column holding a business key to a dimension entity.
// The resolved surrogate key is stored under Name (defaults to "<entity>_key").
type Reference struct {
	Column string `yaml:"column"`
	Entity string `yaml:"entity"`
	Name   string `yaml:"name"`
}

// DerivedMeasure computes an aggregate from measures or earlier derived
// measures, e.g. total_amount = quantity * unit_price.
type DerivedMeasure struct {
	Name   string   `yaml:"name"`
	Op     string   `yaml:"op"`
	Args   []string `yaml:"args"`
	Factor string   `yaml:"factor"`
}

// Definition is the fixed, configuration-time schema of one entity type.
type Definition struct {
	Name  string
	Kind  Kind
	Order int

	// Dimension fields.
	BusinessKey string
	Policy      Policy
	Tracked     []string
	Untracked   []string

	// Fact fields.
	NaturalKey string
	References []Reference
	Measures   []string
	Derived    []DerivedMeasure
	Attributes []string

	// Strict rejects records carrying undeclared columns.
	Strict      bool
	Fingerprint string
}

// IsDimension reports whether the entity is a dimension.
func (d *Definition) IsDimension() bool { return d.Kind == KindDimension }

// AttributeColumns returns every declared non-key attribute of a dimension,
// tracked first.
func (d *Definition) AttributeColumns() []string {
	cols := make([]string, 0, len(d.Tracked)+len(d.Untracked))
	cols = append(cols, d.Tracked...)
	return append(cols, d.Untracked...)
}

// ChangeColumns returns the columns whose change triggers a transition under
// the entity's policy: all attributes for overwrite, tracked for versioning.
func (d *Definition) ChangeColumns() []string {
	if d.Policy == PolicyOverwrite {
		return d.AttributeColumns()
	}
	return d.Tracked
}

// KeyColumn returns the business key (dimension) or natural key (fact).
func (d *Definition) KeyColumn() string {
	if d.IsDimension() {
		return d.BusinessKey
	}
	return d.NaturalKey
}

func (d *Definition) requiredColumns() []string {
	if d.IsDimension() {
		req := []string{d.BusinessKey}
		return append(req, d.Tracked...)
	}
	req := []string{d.NaturalKey}
	for _, ref := range d.References {
		req = append(req, ref.Column)
	}
	return append(req, d.Measures...)
}

func (d *Definition) declaredColumns() map[string]struct{} {
	declared := make(map[string]struct{})
	add := func(cols ...string) {
		for _, c := range cols {
			declared[c] = struct{}{}
		}
	}
	if d.IsDimension() {
		add(d.BusinessKey)
		add(d.AttributeColumns()...)
		return declared
	}
	add(d.NaturalKey)
	for _, ref := range d.References {
		add(ref.Column)
	}
	add(d.Measures...)
	add(d.Attributes...)
	return declared
}

// Validate checks a canonical record against the definition. Required columns
// must be present; key columns must also be non-empty. In strict mode
// undeclared columns are rejected.
func (d *Definition) Validate(rec v1.Record) error {
	var missing []string
	for _, col := range d.requiredColumns() {
		if _, ok := rec[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return &dserr.ValidationError{Entity: d.Name, Fields: missing, Message: "missing required columns"}
	}

	if _, err := rec.Key(d.KeyColumn()); err != nil {
		return &dserr.ValidationError{Entity: d.Name, Fields: []string{d.KeyColumn()}, Message: err.Error()}
	}
	if !d.IsDimension() {
		for _, ref := range d.References {
			if _, err := rec.Key(ref.Column); err != nil {
				return &dserr.ValidationError{Entity: d.Name, Fields: []string{ref.Column}, Message: err.Error()}
			}
		}
	}

	if d.Strict {
		declared := d.declaredColumns()
		var unknown []string
		for col := range rec {
			if _, ok := declared[col]; !ok {
				unknown = append(unknown, col)
			}
		}
		if len(unknown) > 0 {
			sort.Strings(unknown)
			return &dserr.ValidationError{Entity: d.Name, Fields: unknown, Message: "undeclared columns"}
		}
	}
	return nil
}

// Rejection describes a record refused by Validate at the given request
// index. Validation failures carry their failing fields.
func Rejection(index int, err error) v1.RejectedRecord {
	rej := v1.RejectedRecord{Index: index, Error: err.Error()}
	var verr *dserr.ValidationError
	if errors.As(err, &verr) {
		rej.Details = verr.Details()
	}
	return rej
}

// Project restricts a dimension record to its declared attributes. Declared
// columns missing from the record are carried as nil so the stored attribute
// set is always complete.
func (d *Definition) Project(rec v1.Record) map[string]interface{} {
	cols := d.AttributeColumns()
	if !d.IsDimension() {
		cols = d.Attributes
	}
	out := make(map[string]interface{}, len(cols))
	for _, col := range cols {
		out[col] = rec[col]
	}
	return out
}

// ReferenceName returns the stored name of a resolved dimension key.
func (r Reference) ReferenceName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Entity + "_key"
}
