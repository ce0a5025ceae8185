package storage

import (
	"time"

	v1 "github.com/aevon-lab/project-dimsync/internal/api/v1"
	"github.com/shopspring/decimal"
)

// DimensionRecord is one stored version of a dimension entity.
type DimensionRecord struct {
	SurrogateKey int64
	Entity       string
	BusinessKey  string
	Attributes   map[string]interface{}
	Version      int
	EffectiveAt  time.Time
	EndAt        *time.Time // nil iff current
	IsCurrent    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Clone returns a deep copy; attribute values are scalars.
func (r *DimensionRecord) Clone() *DimensionRecord {
	out := *r
	out.Attributes = make(map[string]interface{}, len(r.Attributes))
	for k, v := range r.Attributes {
		out.Attributes[k] = v
	}
	if r.EndAt != nil {
		end := *r.EndAt
		out.EndAt = &end
	}
	return &out
}

// View converts the record to the reporting shape with derived status.
func (r *DimensionRecord) View() v1.DimensionView {
	return v1.DimensionView{
		SurrogateKey: r.SurrogateKey,
		BusinessKey:  r.BusinessKey,
		Version:      r.Version,
		Attributes:   r.Attributes,
		EffectiveAt:  r.EffectiveAt,
		EndAt:        r.EndAt,
		IsCurrent:    r.IsCurrent,
		Status:       v1.StatusFor(r.EndAt),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// FactRecord is one immutable measurement row.
type FactRecord struct {
	SurrogateKey  int64
	Entity        string
	NaturalKey    string
	DimensionKeys map[string]int64 // frozen at load time
	Measures      map[string]decimal.Decimal
	Attributes    map[string]interface{}
	CreatedAt     time.Time
}

// View converts the fact to the reporting shape.
func (f *FactRecord) View() v1.FactView {
	return v1.FactView{
		SurrogateKey:  f.SurrogateKey,
		NaturalKey:    f.NaturalKey,
		DimensionKeys: f.DimensionKeys,
		Measures:      f.Measures,
		Attributes:    f.Attributes,
		CreatedAt:     f.CreatedAt,
	}
}

// StagedRecord is a canonical record waiting to be applied.
type StagedRecord struct {
	Seq      int64
	BatchID  string
	Entity   string
	Record   v1.Record
	StagedAt time.Time
}

// StageReceipt identifies a staged batch and its sequence range.
type StageReceipt struct {
	BatchID  string
	FirstSeq int64
	LastSeq  int64
}
