package allocation

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidMode is returned when the split mode is neither percent nor amount.
	ErrInvalidMode = errors.New("allocation mode must be 'percent' or 'amount'")

	// ErrEmptyAllocations is returned when a split has no lines.
	ErrEmptyAllocations = errors.New("no split lines to compute")
)

// ReconciliationError is returned when the split lines do not add up to the
// invoice subtotal within tolerance.
type ReconciliationError struct {
	Total     decimal.Decimal
	Subtotal  decimal.Decimal
	Diff      decimal.Decimal
	Tolerance decimal.Decimal
}

// Error implements the error interface.
func (e *ReconciliationError) Error() string {
	return fmt.Sprintf(
		"split lines total %s does not match subtotal %s (difference %s, tolerance %s): correct the amounts or percentages",
		e.Total.StringFixed(2), e.Subtotal.StringFixed(2), e.Diff.StringFixed(2), e.Tolerance.StringFixed(2),
	)
}
