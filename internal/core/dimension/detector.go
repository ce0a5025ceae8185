package dimension

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/shopspring/decimal"
)

// Change is the result of comparing a stored version with an incoming record.
type Change struct {
	Changed bool
	// Columns lists differing columns in the order they were requested.
	Columns []string
}

// ChangeDetector compares attribute maps column by column.
//
// With NullSafe set, an absent column, a nil value and an empty string are
// all treated as "no value" and compare equal to each other. Without it only
// absent and nil are interchangeable.
//
// Numeric values compare by decimal value regardless of Go type, so 1 (int),
// 1.0 (float64) and json.Number("1") are equal. Strings are never coerced to
// numbers. Times compare by instant; a stored RFC 3339 string is parsed when
// compared against a time.Time.
type ChangeDetector struct {
	NullSafe bool
}

// Detect reports which of columns differ between stored and incoming.
func (d ChangeDetector) Detect(stored, incoming map[string]interface{}, columns []string) Change {
	var diff []string
	for _, col := range columns {
		if !d.Equal(stored[col], incoming[col]) {
			diff = append(diff, col)
		}
	}
	return Change{Changed: len(diff) > 0, Columns: diff}
}

// Equal compares two scalar attribute values.
func (d ChangeDetector) Equal(a, b interface{}) bool {
	aNull, bNull := d.isNull(a), d.isNull(b)
	if aNull || bNull {
		return aNull && bNull
	}

	if ad, ok := asDecimal(a); ok {
		bd, ok := asDecimal(b)
		return ok && ad.Equal(bd)
	}
	if at, ok := a.(time.Time); ok {
		bt, ok := asTime(b)
		return ok && at.Equal(bt)
	}
	if bt, ok := b.(time.Time); ok {
		at, ok := asTime(a)
		return ok && at.Equal(bt)
	}
	return reflect.DeepEqual(a, b)
}

func (d ChangeDetector) isNull(v interface{}) bool {
	if v == nil {
		return true
	}
	if d.NullSafe {
		if s, ok := v.(string); ok && s == "" {
			return true
		}
	}
	return false
}

func asDecimal(v interface{}) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case *decimal.Decimal:
		if n == nil {
			return decimal.Zero, false
		}
		return *n, true
	case float64:
		return decimal.NewFromFloat(n), true
	case float32:
		return decimal.NewFromFloat32(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case int32:
		return decimal.NewFromInt32(n), true
	case uint:
		return decimal.NewFromUint64(uint64(n)), true
	case uint64:
		return decimal.NewFromUint64(n), true
	case uint32:
		return decimal.NewFromUint64(uint64(n)), true
	case json.Number:
		dec, err := decimal.NewFromString(n.String())
		return dec, err == nil
	}
	return decimal.Zero, false
}

func asTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		return parsed, err == nil
	}
	return time.Time{}, false
}
