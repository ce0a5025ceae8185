package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	dserr "github.com/aevon-lab/project-dimsync/internal/core/errors"
	"github.com/aevon-lab/project-dimsync/internal/core/storage"
	"github.com/lib/pq"
)

type lockKey struct {
	entity string
	key    string
}

// pgTx implements storage.Tx on a database transaction.
type pgTx struct {
	tx     *sql.Tx
	locked map[lockKey]struct{}
}

// lock takes the advisory lock for a business key once per transaction.
func (t *pgTx) lock(ctx context.Context, entity, businessKey string) error {
	k := lockKey{entity, businessKey}
	if _, ok := t.locked[k]; ok {
		return nil
	}
	if _, err := t.tx.ExecContext(ctx, queryLockKey, entity, businessKey); err != nil {
		return mapError("lock key", entity, businessKey, err)
	}
	t.locked[k] = struct{}{}
	return nil
}

func (t *pgTx) GetCurrent(ctx context.Context, entity, businessKey string) (*storage.DimensionRecord, error) {
	if err := t.lock(ctx, entity, businessKey); err != nil {
		return nil, err
	}
	rec, err := scanDimensionRow(t.tx.QueryRowContext(ctx, queryCurrent, entity, businessKey))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapError("get current", entity, businessKey, err)
	}
	return rec, nil
}

func (t *pgTx) GetHistory(ctx context.Context, entity, businessKey string) ([]*storage.DimensionRecord, error) {
	if err := t.lock(ctx, entity, businessKey); err != nil {
		return nil, err
	}
	rows, err := t.tx.QueryContext(ctx, queryHistory, entity, businessKey)
	if err != nil {
		return nil, mapError("get history", entity, businessKey, err)
	}
	defer rows.Close()
	return scanDimensionRows(rows)
}

func (t *pgTx) InsertVersion(ctx context.Context, rec *storage.DimensionRecord) error {
	if err := t.lock(ctx, rec.Entity, rec.BusinessKey); err != nil {
		return err
	}
	attrs, err := marshalAttributes(rec.Attributes)
	if err != nil {
		return err
	}
	var endAt interface{}
	if rec.EndAt != nil {
		endAt = *rec.EndAt
	}
	err = t.tx.QueryRowContext(ctx, queryInsertVersion,
		rec.Entity,
		rec.BusinessKey,
		attrs,
		rec.EffectiveAt,
		endAt,
		rec.IsCurrent,
		rec.CreatedAt,
		rec.UpdatedAt,
	).Scan(&rec.SurrogateKey, &rec.Version)
	if err != nil {
		return mapError("insert version", rec.Entity, rec.BusinessKey, err)
	}
	return nil
}

func (t *pgTx) MutateCurrent(ctx context.Context, entity, businessKey string, updates map[string]interface{}, updatedAt time.Time) error {
	attrs, err := marshalAttributes(updates)
	if err != nil {
		return err
	}
	return t.execCurrent(ctx, "mutate current", queryMutateCurrent, entity, businessKey, attrs, updatedAt)
}

func (t *pgTx) CloseCurrent(ctx context.Context, entity, businessKey string, endAt time.Time) error {
	return t.execCurrent(ctx, "close current", queryCloseCurrent, entity, businessKey, endAt)
}

// execCurrent runs an update against the current row, which must exist.
func (t *pgTx) execCurrent(ctx context.Context, op, query, entity, businessKey string, args ...interface{}) error {
	if err := t.lock(ctx, entity, businessKey); err != nil {
		return err
	}
	res, err := t.tx.ExecContext(ctx, query, append([]interface{}{entity, businessKey}, args...)...)
	if err != nil {
		return mapError(op, entity, businessKey, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(op, entity, businessKey, err)
	}
	if n == 0 {
		return &dserr.NotFoundError{Entity: entity, Key: businessKey}
	}
	return nil
}

func (t *pgTx) CountFacts(ctx context.Context, entity string) (int64, error) {
	var n int64
	if err := t.tx.QueryRowContext(ctx, queryCountFacts, entity).Scan(&n); err != nil {
		return 0, mapError("count facts", entity, "", err)
	}
	return n, nil
}

func (t *pgTx) ExistingNaturalKeys(ctx context.Context, entity string, keys []string) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	if len(keys) == 0 {
		return out, nil
	}
	rows, err := t.tx.QueryContext(ctx, queryExistingNaturalKeys, entity, pq.Array(keys))
	if err != nil {
		return nil, mapError("existing natural keys", entity, "", err)
	}
	defer rows.Close()
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, mapError("existing natural keys", entity, "", err)
		}
		out[k] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("existing natural keys", entity, "", err)
	}
	return out, nil
}

func (t *pgTx) InsertFacts(ctx context.Context, facts []*storage.FactRecord) (int, error) {
	if len(facts) == 0 {
		return 0, nil
	}
	stmt, err := t.tx.PrepareContext(ctx, queryInsertFact)
	if err != nil {
		return 0, mapError("prepare insert fact", facts[0].Entity, "", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, f := range facts {
		dimKeys := f.DimensionKeys
		if dimKeys == nil {
			dimKeys = map[string]int64{}
		}
		keysJSON, err := json.Marshal(dimKeys)
		if err != nil {
			return inserted, fmt.Errorf("failed to marshal dimension keys: %w", err)
		}
		measJSON, err := marshalMeasures(f.Measures)
		if err != nil {
			return inserted, fmt.Errorf("failed to marshal measures: %w", err)
		}
		attrsJSON, err := marshalAttributes(f.Attributes)
		if err != nil {
			return inserted, err
		}

		var sk int64
		err = stmt.QueryRowContext(ctx, f.Entity, f.NaturalKey, keysJSON, measJSON, attrsJSON, f.CreatedAt).Scan(&sk)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return inserted, mapError("insert fact", f.Entity, f.NaturalKey, err)
		}
		f.SurrogateKey = sk
		inserted++
	}
	return inserted, nil
}

func (t *pgTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return mapError("commit", "", "", err)
	}
	return nil
}

func (t *pgTx) Rollback() error {
	err := t.tx.Rollback()
	if err == nil || errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return &dserr.StorageError{Op: "rollback", Err: err}
}
