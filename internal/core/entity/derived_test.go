package entity

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestDerivedOperators(t *testing.T) {
	d := decimal.RequireFromString
	args := []decimal.Decimal{d("3"), d("2.5")}

	require.True(t, d("7.5").Equal(DerivedOperators[OpProduct].Compute(args, decimal.Zero)))
	require.True(t, d("5.5").Equal(DerivedOperators[OpSum].Compute(args, decimal.Zero)))
	require.True(t, d("0.5").Equal(DerivedOperators[OpDifference].Compute(args, decimal.Zero)))
	require.True(t, d("0.3").Equal(DerivedOperators[OpScale].Compute(args[:1], d("0.1"))))
	require.True(t, d("5").Equal(DerivedOperators[OpConstant].Compute(nil, d("5.0"))))
}
