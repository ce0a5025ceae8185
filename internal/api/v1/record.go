package v1

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Record is the canonical shape handed over by upstream extractors and
// normalizers: attribute name to scalar value. It MUST contain the entity's
// business key (dimensions) or natural key (facts).
type Record map[string]interface{}

// Key renders a key attribute as a string. Identifiers arrive as strings from
// CSV and as float64 from JSON; both must resolve to the same business key.
func (r Record) Key(column string) (string, error) {
	v, ok := r[column]
	if !ok || v == nil {
		return "", fmt.Errorf("%s is required", column)
	}
	s := KeyString(v)
	if s == "" {
		return "", fmt.Errorf("%s must not be empty", column)
	}
	return s, nil
}

// Clone returns a shallow copy. Values are scalars so a shallow copy is enough.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// KeyString formats a scalar key value canonically.
func KeyString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case decimal.Decimal:
		return val.String()
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// Status is the derived lifecycle status exposed by the history view.
type Status string

const (
	StatusCurrent    Status = "Current"
	StatusHistorical Status = "Historical"
)

// StatusFor derives Current/Historical from the end timestamp.
func StatusFor(endAt *time.Time) Status {
	if endAt == nil {
		return StatusCurrent
	}
	return StatusHistorical
}

// StageRequest is the request body of the staging endpoint.
type StageRequest struct {
	Records []Record `json:"records" binding:"required"`
}

// RejectedRecord reports a record refused at staging time.
type RejectedRecord struct {
	Index   int                    `json:"index"`
	Error   string                 `json:"error"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// StageResponse is returned once valid records are durably staged.
type StageResponse struct {
	BatchID  string           `json:"batch_id,omitempty"`
	Entity   string           `json:"entity"`
	Accepted int              `json:"accepted"`
	Rejected []RejectedRecord `json:"rejected,omitempty"`
}

// DimensionView is one dimension version as seen by reporting consumers.
type DimensionView struct {
	SurrogateKey int64                  `json:"surrogate_key"`
	BusinessKey  string                 `json:"business_key"`
	Version      int                    `json:"version"`
	Attributes   map[string]interface{} `json:"attributes"`
	EffectiveAt  time.Time              `json:"effective_at"`
	EndAt        *time.Time             `json:"end_at,omitempty"`
	IsCurrent    bool                   `json:"is_current"`
	Status       Status                 `json:"status"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// FactView is one loaded fact row.
type FactView struct {
	SurrogateKey  int64                      `json:"surrogate_key"`
	NaturalKey    string                     `json:"natural_key"`
	DimensionKeys map[string]int64           `json:"dimension_keys"`
	Measures      map[string]decimal.Decimal `json:"measures"`
	Attributes    map[string]interface{}     `json:"attributes,omitempty"`
	CreatedAt     time.Time                  `json:"created_at"`
}
