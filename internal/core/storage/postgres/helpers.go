package postgres

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	dserr "github.com/aevon-lab/project-dimsync/internal/core/errors"
	"github.com/aevon-lab/project-dimsync/internal/core/storage"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

// marshalAttributes encodes attribute values as a JSON object. Decimals are
// written as JSON numbers so they read back as numbers, not strings.
func marshalAttributes(attrs map[string]interface{}) ([]byte, error) {
	if attrs == nil {
		return []byte(`{}`), nil
	}
	out := make(map[string]interface{}, len(attrs))
	for k, v := range attrs {
		switch d := v.(type) {
		case decimal.Decimal:
			out[k] = json.Number(d.String())
		default:
			out[k] = v
		}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal attributes: %w", err)
	}
	return data, nil
}

// unmarshalAttributes decodes a JSON object keeping numbers as json.Number.
func unmarshalAttributes(data []byte) (map[string]interface{}, error) {
	attrs := make(map[string]interface{})
	if len(data) == 0 {
		return attrs, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&attrs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal attributes: %w", err)
	}
	return attrs, nil
}

func marshalMeasures(measures map[string]decimal.Decimal) ([]byte, error) {
	out := make(map[string]string, len(measures))
	for k, v := range measures {
		out[k] = v.String()
	}
	return json.Marshal(out)
}

func unmarshalMeasures(data []byte) (map[string]decimal.Decimal, error) {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal measures: %w", err)
	}
	out := make(map[string]decimal.Decimal, len(raw))
	for k, v := range raw {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("parse measure %s=%q: %w", k, v, err)
		}
		out[k] = d
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanDimensionRow scans the dimensionColumns projection.
func scanDimensionRow(row scanner) (*storage.DimensionRecord, error) {
	var (
		rec      storage.DimensionRecord
		attrJSON []byte
		endAt    sql.NullTime
	)
	err := row.Scan(
		&rec.SurrogateKey,
		&rec.Entity,
		&rec.BusinessKey,
		&attrJSON,
		&rec.Version,
		&rec.EffectiveAt,
		&endAt,
		&rec.IsCurrent,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if endAt.Valid {
		end := endAt.Time
		rec.EndAt = &end
	}
	if rec.Attributes, err = unmarshalAttributes(attrJSON); err != nil {
		return nil, err
	}
	return &rec, nil
}

func scanDimensionRows(rows *sql.Rows) ([]*storage.DimensionRecord, error) {
	var out []*storage.DimensionRecord
	for rows.Next() {
		rec, err := scanDimensionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dimension row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dimension rows: %w", err)
	}
	return out, nil
}

// scanFactRow scans the factColumns projection.
func scanFactRow(row scanner) (*storage.FactRecord, error) {
	var (
		f                             storage.FactRecord
		keysJSON, measJSON, attrsJSON []byte
	)
	if err := row.Scan(
		&f.SurrogateKey,
		&f.Entity,
		&f.NaturalKey,
		&keysJSON,
		&measJSON,
		&attrsJSON,
		&f.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(keysJSON, &f.DimensionKeys); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dimension keys: %w", err)
	}
	var err error
	if f.Measures, err = unmarshalMeasures(measJSON); err != nil {
		return nil, err
	}
	if f.Attributes, err = unmarshalAttributes(attrsJSON); err != nil {
		return nil, err
	}
	return &f, nil
}

// mapError classifies a driver error: unique violations become integrity
// errors, everything else a retryable storage error.
func mapError(op, entity, key string, err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return &dserr.IntegrityError{
			Entity:  entity,
			Key:     key,
			Message: "unique constraint " + pqErr.Constraint,
			Err:     err,
		}
	}
	return dserr.Storage(op, err)
}
