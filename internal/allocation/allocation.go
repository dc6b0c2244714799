// Package allocation turns a requested custom split into concrete amounts
// that reconcile to the invoice subtotal.
package allocation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"splitter/internal/money"
	"splitter/pkg/models"
)

// DefaultTolerance is the largest rounding slack absorbed by the last line.
var DefaultTolerance = decimal.New(1, -2)

// Allocated pairs a requested split line with its computed amount.
type Allocated struct {
	Allocation models.Allocation
	Amount     decimal.Decimal
}

// Compute converts allocations into amounts. Percent lines are priced as
// quantize2(subtotal * pct / 100), amount lines as quantize2(amount). When the
// quantized total differs from subtotal by at most tolerance, the difference
// is added to the last line; a larger difference is a ReconciliationError.
// Percentages are not required to sum to 100.
func Compute(subtotal decimal.Decimal, mode models.AllocMode, allocations []models.Allocation, tolerance decimal.Decimal) ([]Allocated, error) {
	const op = "Compute"

	if mode != models.AllocPercent && mode != models.AllocAmount {
		return nil, fmt.Errorf("%s: %q: %w", op, string(mode), ErrInvalidMode)
	}
	if len(allocations) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyAllocations)
	}

	amounts := make([]decimal.Decimal, len(allocations))
	for i, a := range allocations {
		if mode == models.AllocPercent {
			amounts[i] = money.PercentOf(subtotal, a.Percent)
		} else {
			amounts[i] = money.Quantize2(a.Amount)
		}
	}

	total := money.Sum(amounts...)
	diff := money.Quantize2(subtotal.Sub(total))
	if diff.Abs().GreaterThan(tolerance) {
		return nil, &ReconciliationError{
			Total:     total,
			Subtotal:  subtotal,
			Diff:      diff,
			Tolerance: tolerance,
		}
	}

	if !diff.IsZero() {
		last := len(amounts) - 1
		amounts[last] = money.Quantize2(amounts[last].Add(diff))
	}

	out := make([]Allocated, len(allocations))
	for i, a := range allocations {
		out[i] = Allocated{Allocation: a, Amount: amounts[i]}
	}
	return out, nil
}

// ReconcileLast adds quantize2(target - Σamounts) to the last element and
// returns the applied difference. amounts is modified in place.
func ReconcileLast(target decimal.Decimal, amounts []decimal.Decimal) decimal.Decimal {
	if len(amounts) == 0 {
		return decimal.Zero
	}
	diff := money.Quantize2(target.Sub(money.Sum(amounts...)))
	if !diff.IsZero() {
		last := len(amounts) - 1
		amounts[last] = money.Quantize2(amounts[last].Add(diff))
	}
	return diff
}
