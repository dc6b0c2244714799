package ledger

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Bounds is the cell rectangle of a table, header row included. Rows and
// columns are 1-based.
type Bounds struct {
	MinCol int
	MinRow int
	MaxCol int
	MaxRow int
}

// ParseRef reads an "A1:L20" range.
func ParseRef(ref string) (Bounds, error) {
	parts := strings.Split(ref, ":")
	if len(parts) != 2 {
		return Bounds{}, fmt.Errorf("invalid table range %q", ref)
	}
	minCol, minRow, err := excelize.CellNameToCoordinates(parts[0])
	if err != nil {
		return Bounds{}, fmt.Errorf("invalid table range %q: %w", ref, err)
	}
	maxCol, maxRow, err := excelize.CellNameToCoordinates(parts[1])
	if err != nil {
		return Bounds{}, fmt.Errorf("invalid table range %q: %w", ref, err)
	}
	return Bounds{MinCol: minCol, MinRow: minRow, MaxCol: maxCol, MaxRow: maxRow}, nil
}

// Ref renders the bounds as an "A1:L20" range.
func (b Bounds) Ref() (string, error) {
	start, err := excelize.CoordinatesToCellName(b.MinCol, b.MinRow)
	if err != nil {
		return "", err
	}
	end, err := excelize.CoordinatesToCellName(b.MaxCol, b.MaxRow)
	if err != nil {
		return "", err
	}
	return start + ":" + end, nil
}

// DataRows is the number of rows below the header.
func (b Bounds) DataRows() int {
	return b.MaxRow - b.MinRow
}

// TableInfo locates a table inside the ledger. It is read fresh for every
// lookup since edits move the bounds.
type TableInfo struct {
	Sheet   string
	Name    string
	Bounds  Bounds
	Headers []string
}

// Column returns the absolute sheet column of header.
func (t TableInfo) Column(header string) (int, bool) {
	for i, h := range t.Headers {
		if h == header {
			return t.Bounds.MinCol + i, true
		}
	}
	return 0, false
}

// RequireColumn is Column, failing with a SchemaError.
func (t TableInfo) RequireColumn(header string) (int, error) {
	col, ok := t.Column(header)
	if !ok {
		return 0, &SchemaError{Table: t.Name, Column: header, Headers: t.Headers}
	}
	return col, nil
}

// DeletionPlan describes how to drop matched rows from a table.
type DeletionPlan struct {
	Remove      []int // absolute rows to remove, bottom first
	Clear       int   // absolute row to blank out, 0 when none
	Next        Bounds
	Placeholder bool // the table is left with one blank data row
}

// PlanDeletion computes the rows to drop and the shrunk bounds. A table must
// keep one data row, so when every row matches the first one is blanked and
// kept as a placeholder instead of removed.
func PlanDeletion(b Bounds, matches []int) DeletionPlan {
	rows := append([]int(nil), matches...)
	sort.Sort(sort.Reverse(sort.IntSlice(rows)))

	plan := DeletionPlan{Next: b}
	if len(rows) == 0 {
		return plan
	}

	if len(rows) >= b.DataRows() {
		plan.Clear = rows[len(rows)-1]
		rows = rows[:len(rows)-1]
		plan.Placeholder = true
	}
	plan.Remove = rows
	plan.Next.MaxRow = b.MaxRow - len(rows)
	return plan
}

// PlanAppend returns the first row to write n new rows to and the expanded
// bounds. A placeholder row is overwritten by the first new row.
func PlanAppend(b Bounds, n int, placeholder bool) (start int, next Bounds) {
	next = b
	if n == 0 {
		return b.MaxRow + 1, next
	}
	if placeholder {
		start = b.MinRow + 1
		next.MaxRow = b.MinRow + n
		return start, next
	}
	start = b.MaxRow + 1
	next.MaxRow = b.MaxRow + n
	return start, next
}
