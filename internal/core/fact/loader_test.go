package fact

import (
	"context"
	"testing"
	"time"

	v1 "github.com/aevon-lab/project-dimsync/internal/api/v1"
	"github.com/aevon-lab/project-dimsync/internal/core/entity"
	dserr "github.com/aevon-lab/project-dimsync/internal/core/errors"
	"github.com/aevon-lab/project-dimsync/internal/core/storage"
	"github.com/aevon-lab/project-dimsync/internal/core/storage/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderDef = &entity.Definition{
	Name:       "order",
	Kind:       entity.KindFact,
	NaturalKey: "order_id",
	References: []entity.Reference{
		{Column: "customer_id", Entity: "customer"},
		{Column: "product_id", Entity: "product"},
	},
	Measures:   []string{"quantity", "unit_price"},
	Attributes: []string{"order_status"},
	Derived: []entity.DerivedMeasure{
		{Name: "total_amount", Op: entity.OpProduct, Args: []string{"quantity", "unit_price"}},
		{Name: "tax_amount", Op: entity.OpScale, Args: []string{"total_amount"}, Factor: "0.1"},
		{Name: "shipping_amount", Op: entity.OpConstant, Factor: "5.0"},
	},
}

var fixedNow = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

// seed commits current versions for the given dimension keys.
func seed(t *testing.T, s *memory.Store, entityName string, keys ...string) map[string]int64 {
	t.Helper()
	ctx := context.Background()
	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	sks := make(map[string]int64, len(keys))
	for _, k := range keys {
		rec := &storage.DimensionRecord{Entity: entityName, BusinessKey: k, Attributes: map[string]interface{}{}, IsCurrent: true}
		require.NoError(t, tx.InsertVersion(ctx, rec))
		sks[k] = rec.SurrogateKey
	}
	require.NoError(t, tx.Commit())
	return sks
}

func appendCommit(t *testing.T, s *memory.Store, records []v1.Record) *Result {
	t.Helper()
	ctx := context.Background()
	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback() //nolint:errcheck

	res, err := NewLoader().WithClock(func() time.Time { return fixedNow }).Append(ctx, tx, orderDef, records, nil)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	return res
}

func order(id, customer, product string, qty, price float64) v1.Record {
	return v1.Record{
		"order_id": id, "customer_id": customer, "product_id": product,
		"quantity": qty, "unit_price": price, "order_status": "shipped",
	}
}

func TestAppend_ResolvesAndComputesMeasures(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	customers := seed(t, s, "customer", "C1")
	products := seed(t, s, "product", "P1")

	res := appendCommit(t, s, []v1.Record{order("O1", "C1", "P1", 2, 19.99)})
	assert.True(t, res.FullLoad)
	assert.Equal(t, 1, res.Inserted)

	f, err := s.FactByNaturalKey(ctx, "order", "O1")
	require.NoError(t, err)
	assert.Equal(t, customers["C1"], f.DimensionKeys["customer_key"])
	assert.Equal(t, products["P1"], f.DimensionKeys["product_key"])
	assert.True(t, f.Measures["total_amount"].Equal(decimal.RequireFromString("39.98")))
	assert.True(t, f.Measures["tax_amount"].Equal(decimal.RequireFromString("3.998")))
	assert.True(t, f.Measures["shipping_amount"].Equal(decimal.NewFromInt(5)))
	assert.Equal(t, "shipped", f.Attributes["order_status"])
	assert.Equal(t, fixedNow, f.CreatedAt)
}

func TestAppend_ScenarioB_UnresolvableReferenceDropped(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	seed(t, s, "customer", "C1")
	seed(t, s, "product", "P1")

	res := appendCommit(t, s, []v1.Record{
		order("O1", "C1", "P1", 1, 10),
		order("O2", "C1", "P9", 1, 10),
	})
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 1, res.Dropped)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "O2", res.Failures[0].NaturalKey)
	assert.ErrorIs(t, res.Failures[0].Err, dserr.ErrNotFound)

	_, err := s.FactByNaturalKey(ctx, "order", "O2")
	require.ErrorIs(t, err, dserr.ErrNotFound)
}

func TestAppend_IncrementalSkipsLoadedKeys(t *testing.T) {
	s := memory.NewStore()
	seed(t, s, "customer", "C1")
	seed(t, s, "product", "P1")

	first := appendCommit(t, s, []v1.Record{order("O1", "C1", "P1", 1, 1), order("O2", "C1", "P1", 1, 1)})
	assert.True(t, first.FullLoad)
	assert.Equal(t, 2, first.Inserted)

	second := appendCommit(t, s, []v1.Record{
		order("O2", "C1", "P1", 5, 5),
		order("O3", "C1", "P1", 1, 1),
		order("O3", "C1", "P1", 9, 9),
	})
	assert.False(t, second.FullLoad)
	assert.Equal(t, 1, second.Inserted)
	assert.Equal(t, 2, second.SkippedExisting)

	again := appendCommit(t, s, []v1.Record{order("O1", "C1", "P1", 1, 1), order("O3", "C1", "P1", 1, 1)})
	assert.Zero(t, again.Inserted)
	assert.Equal(t, 2, again.SkippedExisting)
}

func TestAppend_SurrogateKeysFrozenAtLoad(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	customers := seed(t, s, "customer", "C1")
	seed(t, s, "product", "P1")
	appendCommit(t, s, []v1.Record{order("O1", "C1", "P1", 1, 1)})

	tx, _ := s.Begin(ctx)
	require.NoError(t, tx.CloseCurrent(ctx, "customer", "C1", fixedNow))
	v2 := &storage.DimensionRecord{Entity: "customer", BusinessKey: "C1", Attributes: map[string]interface{}{}, IsCurrent: true}
	require.NoError(t, tx.InsertVersion(ctx, v2))
	require.NoError(t, tx.Commit())

	f, err := s.FactByNaturalKey(ctx, "order", "O1")
	require.NoError(t, err)
	assert.Equal(t, customers["C1"], f.DimensionKeys["customer_key"])
	assert.NotEqual(t, v2.SurrogateKey, f.DimensionKeys["customer_key"])
}

func TestAppend_InvalidRecordsCounted(t *testing.T) {
	s := memory.NewStore()
	seed(t, s, "customer", "C1")
	seed(t, s, "product", "P1")

	bad := order("O2", "C1", "P1", 1, 1)
	bad["quantity"] = "lots"
	missing := v1.Record{"order_id": "O3"}

	res := appendCommit(t, s, []v1.Record{order("O1", "C1", "P1", 1, 1), bad, missing})
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 2, res.Invalid)
	for _, f := range res.Failures {
		assert.ErrorIs(t, f.Err, dserr.ErrValidation)
	}
}

func TestAppend_CustomResolverErrorAborts(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	tx, _ := s.Begin(ctx)
	defer tx.Rollback() //nolint:errcheck

	failing := func(context.Context, storage.Tx, string, string) (int64, error) {
		return 0, &dserr.StorageError{Op: "lookup", Err: assert.AnError}
	}
	_, err := NewLoader().Append(ctx, tx, orderDef, []v1.Record{order("O1", "C1", "P1", 1, 1)}, failing)
	require.ErrorIs(t, err, dserr.ErrStorage)
}

func TestAppend_RejectsDimension(t *testing.T) {
	ctx := context.Background()
	tx, _ := memory.NewStore().Begin(ctx)
	_, err := NewLoader().Append(ctx, tx, &entity.Definition{Name: "customer", Kind: entity.KindDimension}, nil, nil)
	require.Error(t, err)
}
