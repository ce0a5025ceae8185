package fact

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// ExtractDecimal pulls a numeric measure from a record by column name.
// JSON numbers arrive as float64; CSV values arrive as strings. ok is false
// when the column is absent, nil, or not numeric.
func ExtractDecimal(data map[string]interface{}, field string) (decimal.Decimal, bool) {
	v, present := data[field]
	if !present || v == nil {
		return decimal.Zero, false
	}
	switch val := v.(type) {
	case decimal.Decimal:
		return val, true
	case float64:
		return decimal.NewFromFloat(val), true
	case float32:
		return decimal.NewFromFloat32(val), true
	case int:
		return decimal.NewFromInt(int64(val)), true
	case int64:
		return decimal.NewFromInt(val), true
	case int32:
		return decimal.NewFromInt32(val), true
	case json.Number:
		d, err := decimal.NewFromString(val.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(val)
		return d, err == nil
	}
	return decimal.Zero, false
}
