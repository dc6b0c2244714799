package models

import (
	"github.com/shopspring/decimal"
)

// Ledger column headers shared by every vendor table.
const (
	HeaderDate       = "Date"
	HeaderBillNumber = "Bill number"
	HeaderID         = "ID"
	HeaderVendor     = "Vendor"
	HeaderConcept    = "Service/ concept"
	HeaderCC         = "CC"
	HeaderGLAccount  = "GL account"
	HeaderSubtotal   = "Subtotal assigned by CC"
	HeaderIVARate    = "% IVA"
	HeaderIVA        = "IVA assigned by CC"
	HeaderTotal      = "Total assigned by CC"
)

// BaseHeaders returns the column order every vendor table starts with.
func BaseHeaders() []string {
	return []string{
		HeaderDate,
		HeaderBillNumber,
		HeaderID,
		HeaderVendor,
		HeaderConcept,
		HeaderCC,
		HeaderGLAccount,
		HeaderSubtotal,
		HeaderIVARate,
		HeaderIVA,
		HeaderTotal,
	}
}

// Cell is one column value of a LineItem.
type Cell struct {
	Header string
	Value  any
}

// LineItem is one row destined for a named ledger table. Cells keep
// insertion order so the row renders in the table's column order.
type LineItem struct {
	Table string
	Cells []Cell
}

// Get returns the value stored under header.
func (l LineItem) Get(header string) (any, bool) {
	for _, c := range l.Cells {
		if c.Header == header {
			return c.Value, true
		}
	}
	return nil, false
}

// Set replaces the value under header, or appends a new cell.
func (l *LineItem) Set(header string, value any) {
	for i := range l.Cells {
		if l.Cells[i].Header == header {
			l.Cells[i].Value = value
			return
		}
	}
	l.Cells = append(l.Cells, Cell{Header: header, Value: value})
}

// Headers lists the cell headers in order.
func (l LineItem) Headers() []string {
	headers := make([]string, 0, len(l.Cells))
	for _, c := range l.Cells {
		headers = append(headers, c.Header)
	}
	return headers
}

// Subtotal returns the "Subtotal assigned by CC" value, zero when absent.
func (l LineItem) Subtotal() decimal.Decimal {
	return l.decimal(HeaderSubtotal)
}

// IVA returns the "IVA assigned by CC" value, zero when absent.
func (l LineItem) IVA() decimal.Decimal {
	return l.decimal(HeaderIVA)
}

// Total returns the "Total assigned by CC" value, zero when absent.
func (l LineItem) Total() decimal.Decimal {
	return l.decimal(HeaderTotal)
}

func (l LineItem) decimal(header string) decimal.Decimal {
	v, ok := l.Get(header)
	if !ok {
		return decimal.Zero
	}
	if d, ok := v.(decimal.Decimal); ok {
		return d
	}
	return decimal.Zero
}

// GroupByTable splits lines into per-table row groups, keeping the order in
// which each table first appears.
func GroupByTable(lines []LineItem) []TableRows {
	var groups []TableRows
	index := make(map[string]int)
	for _, line := range lines {
		i, ok := index[line.Table]
		if !ok {
			i = len(groups)
			index[line.Table] = i
			groups = append(groups, TableRows{Table: line.Table})
		}
		groups[i].Rows = append(groups[i].Rows, line)
	}
	return groups
}

// TableRows is the batch of rows targeted at one ledger table.
type TableRows struct {
	Table string
	Rows  []LineItem
}
