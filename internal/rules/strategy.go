// Package rules maps an invoice to the ledger rows it produces. Each vendor
// family is served by a Strategy selected by vendor ID through a Registry.
package rules

import (
	"strings"

	"github.com/shopspring/decimal"

	"splitter/internal/allocation"
	"splitter/internal/money"
	"splitter/pkg/models"
)

// Strategy builds the ledger rows for one vendor family.
type Strategy interface {
	// BuildLines returns the rows for inv. It must not mutate inv.
	BuildLines(inv models.Invoice) ([]models.LineItem, error)

	// Tables lists the tables the strategy writes to with their headers.
	// Strategies with computed table names return nil.
	Tables() []TableSchema
}

// TableSchema is the header layout of a vendor table.
type TableSchema struct {
	Name    string
	Headers []string
}

// ExtraColumn is a vendor specific column copied onto every row the vendor
// produces.
type ExtraColumn struct {
	Header string
	Value  func(inv models.Invoice) any
}

// IntExtra builds an integer column read through get with a default.
func IntExtra(header string, def int, get func(models.Extras) *int) ExtraColumn {
	return ExtraColumn{
		Header: header,
		Value: func(inv models.Invoice) any {
			return models.IntOr(get(inv.Extras), def)
		},
	}
}

// SignedPriceExtra builds a unit price column whose sign follows the
// invoice subtotal.
func SignedPriceExtra(header string, def decimal.Decimal, get func(models.Extras) *decimal.Decimal) ExtraColumn {
	return ExtraColumn{
		Header: header,
		Value: func(inv models.Invoice) any {
			price := models.DecimalOr(get(inv.Extras), def)
			if inv.Subtotal.IsNegative() {
				return price.Abs().Neg()
			}
			return price
		},
	}
}

func headersWith(extras []ExtraColumn) []string {
	headers := models.BaseHeaders()
	for _, e := range extras {
		headers = append(headers, e.Header)
	}
	return headers
}

func resolveExtras(inv models.Invoice, extras []ExtraColumn) []models.Cell {
	cells := make([]models.Cell, 0, len(extras))
	for _, e := range extras {
		cells = append(cells, models.Cell{Header: e.Header, Value: e.Value(inv)})
	}
	return cells
}

// newLine renders one row. Tax and total are derived from subtotal.
func newLine(table string, inv models.Invoice, concept string, cc, gl int64, subtotal decimal.Decimal, extras []models.Cell) models.LineItem {
	tax, total := money.TaxAndTotal(subtotal, inv.IVARate)

	cells := []models.Cell{
		{Header: models.HeaderDate, Value: inv.Date},
		{Header: models.HeaderBillNumber, Value: inv.BillNumber},
		{Header: models.HeaderID, Value: inv.VendorID},
		{Header: models.HeaderVendor, Value: inv.VendorName},
		{Header: models.HeaderConcept, Value: concept},
		{Header: models.HeaderCC, Value: cc},
		{Header: models.HeaderGLAccount, Value: gl},
		{Header: models.HeaderSubtotal, Value: subtotal},
		{Header: models.HeaderIVARate, Value: inv.IVARate},
		{Header: models.HeaderIVA, Value: tax},
		{Header: models.HeaderTotal, Value: total},
	}
	cells = append(cells, extras...)

	return models.LineItem{Table: table, Cells: cells}
}

// customLines handles a custom concept: a user split through the allocation
// validator, or a single line at 100% to the CC/GL pair in the extras.
func customLines(table string, inv models.Invoice, general string, extras []models.Cell) ([]models.LineItem, error) {
	if inv.HasSplit() {
		pairs, err := allocation.Compute(inv.Subtotal, inv.AllocMode, inv.Allocations, allocation.DefaultTolerance)
		if err != nil {
			return nil, err
		}
		lines := make([]models.LineItem, 0, len(pairs))
		for _, p := range pairs {
			concept := strings.TrimSpace(p.Allocation.Concept)
			if concept == "" {
				concept = general
			}
			lines = append(lines, newLine(table, inv, concept, p.Allocation.CostCenter, p.Allocation.GLAccount, p.Amount, extras))
		}
		return lines, nil
	}

	if inv.Extras.CostCenter == nil || inv.Extras.GLAccount == nil {
		return nil, &MissingAccountError{VendorID: inv.VendorID, Table: table, Concept: general}
	}
	return []models.LineItem{
		newLine(table, inv, general, *inv.Extras.CostCenter, *inv.Extras.GLAccount, money.Quantize2(inv.Subtotal), extras),
	}, nil
}
