package entity

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// rawDefinition is the on-disk YAML shape. One definition per file.
type rawDefinition struct {
	Name        string           `yaml:"name"`
	Kind        string           `yaml:"kind"`
	Order       int              `yaml:"order"`
	BusinessKey string           `yaml:"business_key"`
	Policy      string           `yaml:"policy"`
	Tracked     []string         `yaml:"tracked"`
	Untracked   []string         `yaml:"untracked"`
	NaturalKey  string           `yaml:"natural_key"`
	References  []Reference      `yaml:"references"`
	Measures    []string         `yaml:"measures"`
	Derived     []DerivedMeasure `yaml:"derived"`
	Attributes  []string         `yaml:"attributes"`
	Strict      bool             `yaml:"strict"`
}

// LoadDir reads every *.yaml / *.yml file in dir and returns a validated
// registry. A missing directory yields an empty registry.
func LoadDir(dir string) (*Registry, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return NewRegistry(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("entity config dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("entity config path %q is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading entity config dir: %w", err)
	}

	var defs []*Definition
	for _, e := range entries {
		if e.IsDir() || (!strings.HasSuffix(e.Name(), ".yaml") && !strings.HasSuffix(e.Name(), ".yml")) {
			continue
		}

		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading entity file %s: %w", path, err)
		}

		def, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parsing entity file %s: %w", path, err)
		}
		if def == nil {
			continue // empty / comment-only file
		}
		defs = append(defs, def)
	}

	return NewRegistry(defs)
}

// Parse decodes and validates one YAML definition. Returns nil, nil for a
// document without a name.
func Parse(data []byte) (*Definition, error) {
	var raw rawDefinition
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw.Name == "" {
		return nil, nil
	}

	def := &Definition{
		Name:        raw.Name,
		Kind:        Kind(raw.Kind),
		Order:       raw.Order,
		BusinessKey: raw.BusinessKey,
		Policy:      Policy(raw.Policy),
		Tracked:     raw.Tracked,
		Untracked:   raw.Untracked,
		NaturalKey:  raw.NaturalKey,
		References:  raw.References,
		Measures:    raw.Measures,
		Derived:     raw.Derived,
		Attributes:  raw.Attributes,
		Strict:      raw.Strict,
		Fingerprint: fmt.Sprintf("%x", sha256.Sum256(data)),
	}
	if def.Kind == "" {
		def.Kind = KindDimension
	}
	if def.IsDimension() && def.Policy == "" {
		def.Policy = PolicyVersioning
	}
	if err := def.validate(); err != nil {
		return nil, err
	}
	return def, nil
}

// validate checks everything that can be checked without other entities.
func (d *Definition) validate() error {
	switch d.Kind {
	case KindDimension:
		return d.validateDimension()
	case KindFact:
		return d.validateFact()
	default:
		return fmt.Errorf("entity %q: unsupported kind %q", d.Name, d.Kind)
	}
}

func (d *Definition) validateDimension() error {
	if d.BusinessKey == "" {
		return fmt.Errorf("entity %q: business_key must not be empty", d.Name)
	}
	if d.Policy != PolicyOverwrite && d.Policy != PolicyVersioning {
		return fmt.Errorf("entity %q: unsupported policy %q", d.Name, d.Policy)
	}
	if d.Policy == PolicyVersioning && len(d.Tracked) == 0 {
		return fmt.Errorf("entity %q: versioning policy requires at least one tracked column", d.Name)
	}
	seen := map[string]struct{}{d.BusinessKey: {}}
	for _, col := range d.AttributeColumns() {
		if col == "" {
			return fmt.Errorf("entity %q: empty column name", d.Name)
		}
		if _, dup := seen[col]; dup {
			return fmt.Errorf("entity %q: column %q declared twice (or collides with the business key)", d.Name, col)
		}
		seen[col] = struct{}{}
	}
	if len(d.References) > 0 || d.NaturalKey != "" || len(d.Measures) > 0 {
		return fmt.Errorf("entity %q: fact fields are not allowed on a dimension", d.Name)
	}
	return nil
}

func (d *Definition) validateFact() error {
	if d.NaturalKey == "" {
		return fmt.Errorf("entity %q: natural_key must not be empty", d.Name)
	}
	if d.BusinessKey != "" || d.Policy != "" || len(d.Tracked) > 0 || len(d.Untracked) > 0 {
		return fmt.Errorf("entity %q: dimension fields are not allowed on a fact", d.Name)
	}

	known := make(map[string]struct{})
	for _, m := range d.Measures {
		if m == "" {
			return fmt.Errorf("entity %q: empty measure name", d.Name)
		}
		known[m] = struct{}{}
	}
	names := make(map[string]struct{})
	for _, ref := range d.References {
		if ref.Column == "" || ref.Entity == "" {
			return fmt.Errorf("entity %q: reference needs column and entity", d.Name)
		}
		if _, dup := names[ref.ReferenceName()]; dup {
			return fmt.Errorf("entity %q: duplicate reference name %q", d.Name, ref.ReferenceName())
		}
		names[ref.ReferenceName()] = struct{}{}
	}
	for _, dm := range d.Derived {
		if err := validateDerived(d.Name, known, dm); err != nil {
			return err
		}
		if _, dup := known[dm.Name]; dup {
			return fmt.Errorf("entity %q: derived measure %q shadows a measure", d.Name, dm.Name)
		}
		known[dm.Name] = struct{}{}
	}
	return nil
}

// Registry holds all entity definitions and the policy map.
type Registry struct {
	defs       map[string]*Definition
	dimensions []*Definition
	facts      []*Definition
}

// NewRegistry validates cross-entity constraints and orders entities by
// Order, then name.
func NewRegistry(defs []*Definition) (*Registry, error) {
	r := &Registry{defs: make(map[string]*Definition, len(defs))}
	for _, def := range defs {
		if _, exists := r.defs[def.Name]; exists {
			return nil, fmt.Errorf("entity %q: duplicate entity name (check multiple YAML files)", def.Name)
		}
		r.defs[def.Name] = def
		if def.IsDimension() {
			r.dimensions = append(r.dimensions, def)
		} else {
			r.facts = append(r.facts, def)
		}
	}

	for _, fact := range r.facts {
		for _, ref := range fact.References {
			target, ok := r.defs[ref.Entity]
			if !ok {
				return nil, fmt.Errorf("entity %q: reference to unknown entity %q", fact.Name, ref.Entity)
			}
			if !target.IsDimension() {
				return nil, fmt.Errorf("entity %q: reference to %q which is not a dimension", fact.Name, ref.Entity)
			}
		}
	}

	byOrder := func(list []*Definition) {
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].Order != list[j].Order {
				return list[i].Order < list[j].Order
			}
			return list[i].Name < list[j].Name
		})
	}
	byOrder(r.dimensions)
	byOrder(r.facts)
	return r, nil
}

// Get returns the definition for name.
func (r *Registry) Get(name string) (*Definition, bool) {
	def, ok := r.defs[name]
	return def, ok
}

// Dimensions returns dimension definitions in load order.
func (r *Registry) Dimensions() []*Definition { return r.dimensions }

// Facts returns fact definitions in load order.
func (r *Registry) Facts() []*Definition { return r.facts }

// Len returns the number of entities.
func (r *Registry) Len() int { return len(r.defs) }

// Policies returns the entity type → policy map.
func (r *Registry) Policies() map[string]Policy {
	out := make(map[string]Policy, len(r.dimensions))
	for _, def := range r.dimensions {
		out[def.Name] = def.Policy
	}
	return out
}
