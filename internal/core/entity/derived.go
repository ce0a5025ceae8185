package entity

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Derived measure operators.
const (
	OpProduct    = "product"
	OpSum        = "sum"
	OpDifference = "difference"
	OpScale      = "scale"
	OpConstant   = "constant"
)

// DerivedOperator folds argument values into one derived measure.
type DerivedOperator interface {
	// Arity returns the accepted argument count bounds; max < 0 means unbounded.
	Arity() (min, max int)
	Compute(args []decimal.Decimal, factor decimal.Decimal) decimal.Decimal
}

// DerivedOperators is the registry of supported derived measure operators.
var DerivedOperators = map[string]DerivedOperator{
	OpProduct:    productOp{},
	OpSum:        sumOp{},
	OpDifference: differenceOp{},
	OpScale:      scaleOp{},
	OpConstant:   constantOp{},
}

type productOp struct{}

func (productOp) Arity() (int, int) { return 1, -1 }
func (productOp) Compute(args []decimal.Decimal, _ decimal.Decimal) decimal.Decimal {
	out := decimal.NewFromInt(1)
	for _, a := range args {
		out = out.Mul(a)
	}
	return out
}

type sumOp struct{}

func (sumOp) Arity() (int, int) { return 1, -1 }
func (sumOp) Compute(args []decimal.Decimal, _ decimal.Decimal) decimal.Decimal {
	return decimal.Sum(decimal.Zero, args...)
}

// differenceOp subtracts every following argument from the first.
type differenceOp struct{}

func (differenceOp) Arity() (int, int) { return 2, -1 }
func (differenceOp) Compute(args []decimal.Decimal, _ decimal.Decimal) decimal.Decimal {
	out := args[0]
	for _, a := range args[1:] {
		out = out.Sub(a)
	}
	return out
}

type scaleOp struct{}

func (scaleOp) Arity() (int, int) { return 1, 1 }
func (scaleOp) Compute(args []decimal.Decimal, factor decimal.Decimal) decimal.Decimal {
	return args[0].Mul(factor)
}

type constantOp struct{}

func (constantOp) Arity() (int, int) { return 0, 0 }
func (constantOp) Compute(_ []decimal.Decimal, factor decimal.Decimal) decimal.Decimal {
	return factor
}

func validateDerived(entity string, known map[string]struct{}, dm DerivedMeasure) error {
	if dm.Name == "" {
		return fmt.Errorf("entity %q: derived measure name must not be empty", entity)
	}
	op, ok := DerivedOperators[dm.Op]
	if !ok {
		return fmt.Errorf("entity %q: derived measure %q: unsupported op %q", entity, dm.Name, dm.Op)
	}
	lo, hi := op.Arity()
	if len(dm.Args) < lo || (hi >= 0 && len(dm.Args) > hi) {
		return fmt.Errorf("entity %q: derived measure %q: op %s takes %d..%d args, got %d", entity, dm.Name, dm.Op, lo, hi, len(dm.Args))
	}
	for _, arg := range dm.Args {
		if _, ok := known[arg]; !ok {
			return fmt.Errorf("entity %q: derived measure %q: unknown argument %q", entity, dm.Name, arg)
		}
	}
	if dm.Op == OpScale || dm.Op == OpConstant {
		if _, err := decimal.NewFromString(dm.Factor); err != nil {
			return fmt.Errorf("entity %q: derived measure %q: invalid factor %q: %w", entity, dm.Name, dm.Factor, err)
		}
	}
	return nil
}
