package ledger

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"splitter/pkg/models"
)

// Concepts table headers.
const (
	HeaderConceptVendorID = "Vendor ID"
	HeaderConceptName     = "Concept"
	HeaderIsDefault       = "Is_default"
	HeaderActive          = "Active"
	HeaderSortOrder       = "Sort_order"
)

// ConceptHeaders is the column order of a new concepts table.
func ConceptHeaders() []string {
	return []string{HeaderConceptVendorID, HeaderConceptName, HeaderIsDefault, HeaderActive, HeaderSortOrder}
}

// Vendor is one entry of the ledger's vendor table.
type Vendor struct {
	ID   int64
	Name string
}

// Concept is one service concept offered by a vendor.
type Concept struct {
	VendorID  int64
	Concept   string
	IsDefault bool
	Active    bool
	SortOrder int
}

func openReadOnly(path string) (*workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, &LockedError{Path: path, Op: "open", Err: err}
		}
		return nil, err
	}
	return &workbook{f: f, path: path, styles: make(map[styleKey]int)}, nil
}

// LoadVendors reads the vendor table, sorted by name. The table is looked up
// by name; sheet is only used in error messages.
func LoadVendors(path, sheet, table string) ([]Vendor, error) {
	const op = "LoadVendors"

	wb, err := openReadOnly(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer wb.close()

	info, err := wb.findTable(table)
	if err != nil {
		return nil, fmt.Errorf("%s: %s in sheet %s: %w", op, table, sheet, err)
	}
	idCol, err := info.RequireColumn(models.HeaderID)
	if err != nil {
		return nil, err
	}
	nameCol, err := info.RequireColumn(models.HeaderVendor)
	if err != nil {
		return nil, err
	}

	var vendors []Vendor
	for r := info.Bounds.MinRow + 1; r <= info.Bounds.MaxRow; r++ {
		rawID, err := wb.rawString(info.Sheet, idCol, r)
		if err != nil {
			return nil, err
		}
		name, err := wb.cellString(info.Sheet, nameCol, r)
		if err != nil {
			return nil, err
		}
		rawID, name = strings.TrimSpace(rawID), strings.TrimSpace(name)

		if rawID == "" && name == "" {
			continue
		}
		if rawID == "" || name == "" {
			return nil, fmt.Errorf("%s: %s row %d: both ID and Vendor are required", op, table, r)
		}
		id, ok := parseWholeNumber(rawID)
		if !ok {
			return nil, fmt.Errorf("%s: %s row %d: vendor ID %q is not an integer", op, table, r, rawID)
		}
		vendors = append(vendors, Vendor{ID: id, Name: name})
	}

	sort.SliceStable(vendors, func(i, j int) bool {
		return strings.ToLower(vendors[i].Name) < strings.ToLower(vendors[j].Name)
	})
	return vendors, nil
}

// LoadConcepts reads the active concepts grouped by vendor, each group
// ordered by sort order then concept. A ledger without the table yields an
// empty catalogue.
func LoadConcepts(path, table string) (map[int64][]Concept, error) {
	const op = "LoadConcepts"

	wb, err := openReadOnly(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer wb.close()

	info, err := wb.findTable(table)
	if errors.Is(err, ErrTableNotFound) {
		return map[int64][]Concept{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	concepts, err := readConcepts(wb, info)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	byVendor := make(map[int64][]Concept)
	for _, c := range concepts {
		if c.Active {
			byVendor[c.VendorID] = append(byVendor[c.VendorID], c)
		}
	}
	for id := range byVendor {
		group := byVendor[id]
		sort.SliceStable(group, func(i, j int) bool {
			if group[i].SortOrder != group[j].SortOrder {
				return group[i].SortOrder < group[j].SortOrder
			}
			return strings.ToLower(group[i].Concept) < strings.ToLower(group[j].Concept)
		})
	}
	return byVendor, nil
}

// readConcepts returns every concept row of the table, inactive ones too.
func readConcepts(wb *workbook, info TableInfo) ([]Concept, error) {
	cols := make(map[string]int, 5)
	for _, h := range []string{HeaderConceptVendorID, HeaderConceptName} {
		col, err := info.RequireColumn(h)
		if err != nil {
			return nil, err
		}
		cols[h] = col
	}
	for _, h := range []string{HeaderIsDefault, HeaderActive, HeaderSortOrder} {
		if col, ok := info.Column(h); ok {
			cols[h] = col
		}
	}

	read := func(header string, row int) (string, error) {
		col, ok := cols[header]
		if !ok {
			return "", nil
		}
		v, err := wb.rawString(info.Sheet, col, row)
		return strings.TrimSpace(v), err
	}

	var concepts []Concept
	for r := info.Bounds.MinRow + 1; r <= info.Bounds.MaxRow; r++ {
		rawID, err := read(HeaderConceptVendorID, r)
		if err != nil {
			return nil, err
		}
		name, err := read(HeaderConceptName, r)
		if err != nil {
			return nil, err
		}
		id, ok := parseWholeNumber(rawID)
		if !ok || name == "" {
			continue
		}

		isDefault, err := read(HeaderIsDefault, r)
		if err != nil {
			return nil, err
		}
		active, err := read(HeaderActive, r)
		if err != nil {
			return nil, err
		}
		order, err := read(HeaderSortOrder, r)
		if err != nil {
			return nil, err
		}

		c := Concept{
			VendorID:  id,
			Concept:   name,
			IsDefault: parseFlag(isDefault, false),
			Active:    parseFlag(active, true),
		}
		if n, ok := parseWholeNumber(order); ok {
			c.SortOrder = int(n)
		}
		concepts = append(concepts, c)
	}
	return concepts, nil
}

// AddConceptsRequest adds concepts to one vendor's catalogue.
type AddConceptsRequest struct {
	LedgerPath string
	BackupDir  string
	Table      string
	VendorID   int64
	Concepts   []string

	ExistingBackup string
	RetainLastN    int
	RetainDays     int
}

// AddConcepts appends the concepts the vendor does not have yet (compared
// case-insensitively) and returns the ones written. The table is created
// when the ledger has none.
func (m *Manager) AddConcepts(req AddConceptsRequest) ([]string, error) {
	const op = "AddConcepts"

	if req.VendorID <= 0 {
		return nil, fmt.Errorf("%s: vendor ID must be positive, got %d", op, req.VendorID)
	}

	wanted := make([]string, 0, len(req.Concepts))
	for _, c := range req.Concepts {
		if c = strings.TrimSpace(c); c != "" {
			wanted = append(wanted, c)
		}
	}
	if len(wanted) == 0 {
		return nil, nil
	}

	backup, created, err := m.sessionBackup(req.LedgerPath, req.BackupDir, req.ExistingBackup, req.RetainLastN, req.RetainDays)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	wb, err := openWorkbook(req.LedgerPath, m.dateFormat)
	if err != nil {
		return nil, err
	}
	defer wb.close()

	info, err := wb.findTable(req.Table)
	if errors.Is(err, ErrTableNotFound) {
		info, err = wb.createTable(req.Table, ConceptHeaders())
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	existing, err := readConcepts(wb, info)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	seen := make(map[string]bool)
	nextOrder := 0
	for _, c := range existing {
		if c.VendorID != req.VendorID {
			continue
		}
		seen[strings.ToLower(c.Concept)] = true
		if c.SortOrder > nextOrder {
			nextOrder = c.SortOrder
		}
	}

	var added []string
	var rows []conceptRow
	for _, c := range wanted {
		key := strings.ToLower(c)
		if seen[key] {
			continue
		}
		seen[key] = true
		nextOrder++
		added = append(added, c)
		rows = append(rows, conceptRow{vendorID: req.VendorID, concept: c, order: nextOrder})
	}
	if len(rows) == 0 {
		m.log.Info().Int64("vendor_id", req.VendorID).Msg("No new concepts to add")
		return nil, nil
	}

	placeholder, err := wb.isPlaceholder(info)
	if err != nil {
		return nil, err
	}
	if err := wb.appendRows(info, conceptLines(info, rows), placeholder); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := wb.save(); err != nil {
		return nil, err
	}

	m.log.Info().
		Int64("vendor_id", req.VendorID).
		Strs("concepts", added).
		Str("backup", backup).
		Bool("backup_created", created).
		Msg("Concepts added")
	return added, nil
}

func parseWholeNumber(raw string) (int64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	// MaxInt64 rounds up to 2^63 as a float64.
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

// parseFlag reads spreadsheet booleans: 1, true, yes, y, si, sí.
func parseFlag(raw string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return def
	case "1", "true", "yes", "y", "si", "sí", "verdadero":
		return true
	default:
		return false
	}
}

type conceptRow struct {
	vendorID int64
	concept  string
	order    int
}

func conceptLines(info TableInfo, rows []conceptRow) []models.LineItem {
	lines := make([]models.LineItem, 0, len(rows))
	for _, r := range rows {
		line := models.LineItem{Table: info.Name}
		values := []models.Cell{
			{Header: HeaderConceptVendorID, Value: r.vendorID},
			{Header: HeaderConceptName, Value: r.concept},
			{Header: HeaderIsDefault, Value: 0},
			{Header: HeaderActive, Value: 1},
			{Header: HeaderSortOrder, Value: r.order},
		}
		for _, c := range values {
			// Optional columns may be missing from hand-made tables.
			if _, ok := info.Column(c.Header); ok {
				line.Cells = append(line.Cells, c)
			}
		}
		lines = append(lines, line)
	}
	return lines
}
