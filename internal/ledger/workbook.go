package ledger

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"splitter/internal/money"
	"splitter/pkg/models"
)

// Built-in number formats.
const (
	numFmtInteger = 1  // 0
	numFmtMoney   = 4  // #,##0.00
	numFmtText    = 49 // @
)

const defaultTableStyle = "TableStyleMedium2"

// columnFormats maps headers to the number format their cells receive.
// Headers absent here keep the copied style untouched.
var columnFormats = map[string]int{
	models.HeaderBillNumber: numFmtText,
	models.HeaderCC:         numFmtInteger,
	models.HeaderGLAccount:  numFmtInteger,
	models.HeaderSubtotal:   numFmtMoney,
	models.HeaderIVARate:    numFmtMoney,
	models.HeaderIVA:        numFmtMoney,
	models.HeaderTotal:      numFmtMoney,
}

type styleKey struct {
	base   int
	header string
}

// workbook adapts an excelize file to the table operations the ledger needs.
type workbook struct {
	f          *excelize.File
	path       string
	dateFormat string
	styles     map[styleKey]int
}

// openWorkbook opens the ledger for editing, failing with a LockedError when
// another program holds it.
func openWorkbook(path, dateFormat string) (*workbook, error) {
	const op = "openWorkbook"

	if err := checkLocked(path); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, &LockedError{Path: path, Op: "open", Err: err}
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &workbook{
		f:          f,
		path:       path,
		dateFormat: dateFormat,
		styles:     make(map[styleKey]int),
	}, nil
}

// checkLocked detects an office owner file next to the ledger, or a ledger
// the process cannot open for writing.
func checkLocked(path string) error {
	owner := filepath.Join(filepath.Dir(path), "~$"+filepath.Base(path))
	if _, err := os.Stat(owner); err == nil {
		return &LockedError{Path: path, Op: "open", Err: ErrLockFilePresent}
	}

	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return &LockedError{Path: path, Op: "open", Err: err}
		}
		return fmt.Errorf("open ledger %s: %w", path, err)
	}
	return file.Close()
}

func (w *workbook) close() {
	_ = w.f.Close()
}

// findTable looks the table up by name across all sheets.
func (w *workbook) findTable(name string) (TableInfo, error) {
	for _, sheet := range w.f.GetSheetList() {
		tables, err := w.f.GetTables(sheet)
		if err != nil {
			return TableInfo{}, fmt.Errorf("list tables of %s: %w", sheet, err)
		}
		for _, t := range tables {
			if !strings.EqualFold(t.Name, name) {
				continue
			}
			bounds, err := ParseRef(t.Range)
			if err != nil {
				return TableInfo{}, err
			}
			headers := make([]string, 0, bounds.MaxCol-bounds.MinCol+1)
			for col := bounds.MinCol; col <= bounds.MaxCol; col++ {
				v, err := w.cellString(sheet, col, bounds.MinRow)
				if err != nil {
					return TableInfo{}, err
				}
				headers = append(headers, strings.TrimSpace(v))
			}
			return TableInfo{Sheet: sheet, Name: t.Name, Bounds: bounds, Headers: headers}, nil
		}
	}
	return TableInfo{}, fmt.Errorf("%q: %w", name, ErrTableNotFound)
}

// createTable adds a fresh sheet holding an empty table: the header row and
// one blank placeholder row.
func (w *workbook) createTable(name string, headers []string) (TableInfo, error) {
	const op = "createTable"

	if len(headers) == 0 {
		return TableInfo{}, fmt.Errorf("%s: %s: no headers", op, name)
	}

	sheet := SheetNameFor(name, w.f.GetSheetList())
	if _, err := w.f.NewSheet(sheet); err != nil {
		return TableInfo{}, fmt.Errorf("%s: new sheet %s: %w", op, sheet, err)
	}

	row := make([]interface{}, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := w.f.SetSheetRow(sheet, "A1", &row); err != nil {
		return TableInfo{}, fmt.Errorf("%s: write headers: %w", op, err)
	}

	bounds := Bounds{MinCol: 1, MinRow: 1, MaxCol: len(headers), MaxRow: 2}
	ref, err := bounds.Ref()
	if err != nil {
		return TableInfo{}, fmt.Errorf("%s: %w", op, err)
	}
	stripes := true
	if err := w.f.AddTable(sheet, &excelize.Table{
		Range:          ref,
		Name:           name,
		StyleName:      defaultTableStyle,
		ShowRowStripes: &stripes,
	}); err != nil {
		return TableInfo{}, fmt.Errorf("%s: add table %s: %w", op, name, err)
	}

	return TableInfo{Sheet: sheet, Name: name, Bounds: bounds, Headers: append([]string(nil), headers...)}, nil
}

// keyRows returns the data rows whose (ID, Bill number) equals the key.
func (w *workbook) keyRows(info TableInfo, vendorID int64, bill string) ([]int, error) {
	idCol, err := info.RequireColumn(models.HeaderID)
	if err != nil {
		return nil, err
	}
	billCol, err := info.RequireColumn(models.HeaderBillNumber)
	if err != nil {
		return nil, err
	}

	var rows []int
	for r := info.Bounds.MinRow + 1; r <= info.Bounds.MaxRow; r++ {
		rawID, err := w.rawString(info.Sheet, idCol, r)
		if err != nil {
			return nil, err
		}
		rawBill, err := w.rawString(info.Sheet, billCol, r)
		if err != nil {
			return nil, err
		}
		if sameVendor(rawID, vendorID) && sameBill(rawBill, bill) {
			rows = append(rows, r)
		}
	}
	return rows, nil
}

func sameVendor(raw string, vendorID int64) bool {
	id, ok := parseWholeNumber(raw)
	return ok && id == vendorID
}

// sameBill compares a stored bill with a normalized one. Bills stored as
// numbers lost their leading zeros and are padded back first.
func sameBill(raw, bill string) bool {
	s := strings.TrimSpace(raw)
	if s == bill {
		return true
	}
	padded, err := money.NormalizeBillNumber(s)
	return err == nil && padded == bill
}

// isPlaceholder reports a table whose only data row is blank.
func (w *workbook) isPlaceholder(info TableInfo) (bool, error) {
	if info.Bounds.DataRows() != 1 {
		return false, nil
	}
	row := info.Bounds.MinRow + 1
	for col := info.Bounds.MinCol; col <= info.Bounds.MaxCol; col++ {
		v, err := w.rawString(info.Sheet, col, row)
		if err != nil {
			return false, err
		}
		if strings.TrimSpace(v) != "" {
			return false, nil
		}
	}
	return true, nil
}

// deleteRows applies a deletion plan and shrinks the table.
func (w *workbook) deleteRows(info TableInfo, plan DeletionPlan) error {
	for _, r := range plan.Remove {
		if err := w.f.RemoveRow(info.Sheet, r); err != nil {
			return fmt.Errorf("remove row %d of %s: %w", r, info.Name, err)
		}
	}
	if plan.Clear > 0 {
		for col := info.Bounds.MinCol; col <= info.Bounds.MaxCol; col++ {
			cell, err := excelize.CoordinatesToCellName(col, plan.Clear)
			if err != nil {
				return err
			}
			if err := w.f.SetCellValue(info.Sheet, cell, nil); err != nil {
				return fmt.Errorf("clear %s of %s: %w", cell, info.Name, err)
			}
		}
	}
	return w.setTableRange(info, plan.Next)
}

// appendRows writes rows below the table (or over its placeholder row) and
// expands the table to cover them.
func (w *workbook) appendRows(info TableInfo, rows []models.LineItem, placeholder bool) error {
	if len(rows) == 0 {
		return nil
	}

	start, next := PlanAppend(info.Bounds, len(rows), placeholder)
	styleRow := 0
	if info.Bounds.DataRows() > 0 {
		styleRow = info.Bounds.MaxRow
	}

	for i, row := range rows {
		r := start + i
		if err := w.styleRow(info, styleRow, r); err != nil {
			return err
		}
		for _, c := range row.Cells {
			col, ok := info.Column(c.Header)
			if !ok {
				return &SchemaError{Table: info.Name, Column: c.Header, Headers: info.Headers}
			}
			cell, err := excelize.CoordinatesToCellName(col, r)
			if err != nil {
				return err
			}
			if err := w.setValue(info.Sheet, cell, c.Value); err != nil {
				return fmt.Errorf("write %s of %s: %w", cell, info.Name, err)
			}
		}
		styleRow = r
	}

	return w.setTableRange(info, next)
}

func (w *workbook) setValue(sheet, cell string, value any) error {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return w.f.SetCellStr(sheet, cell, v)
	case decimal.Decimal:
		return w.f.SetCellValue(sheet, cell, v.InexactFloat64())
	default:
		return w.f.SetCellValue(sheet, cell, v)
	}
}

// styleRow copies the style of src onto dst across the table columns and
// applies the canonical number format of each column.
func (w *workbook) styleRow(info TableInfo, src, dst int) error {
	for col := info.Bounds.MinCol; col <= info.Bounds.MaxCol; col++ {
		base := 0
		if src > 0 {
			srcCell, err := excelize.CoordinatesToCellName(col, src)
			if err != nil {
				return err
			}
			if base, err = w.f.GetCellStyle(info.Sheet, srcCell); err != nil {
				return fmt.Errorf("read style of %s: %w", srcCell, err)
			}
		}

		style, err := w.styleFor(base, info.Headers[col-info.Bounds.MinCol])
		if err != nil {
			return err
		}
		if style == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(col, dst)
		if err != nil {
			return err
		}
		if err := w.f.SetCellStyle(info.Sheet, cell, cell, style); err != nil {
			return fmt.Errorf("set style of %s: %w", cell, err)
		}
	}
	return nil
}

// styleFor derives the style for header from a copied base style.
func (w *workbook) styleFor(base int, header string) (int, error) {
	numFmt, formatted := columnFormats[header]
	isDate := header == models.HeaderDate && w.dateFormat != ""
	if !formatted && !isDate {
		return base, nil
	}

	key := styleKey{base: base, header: header}
	if id, ok := w.styles[key]; ok {
		return id, nil
	}

	src, err := w.f.GetStyle(base)
	if err != nil {
		return 0, fmt.Errorf("read style %d: %w", base, err)
	}
	style := *src
	if isDate {
		format := w.dateFormat
		style.NumFmt = 0
		style.CustomNumFmt = &format
	} else {
		style.NumFmt = numFmt
		style.CustomNumFmt = nil
	}

	id, err := w.f.NewStyle(&style)
	if err != nil {
		return 0, fmt.Errorf("create style for %s: %w", header, err)
	}
	w.styles[key] = id
	return id, nil
}

// setTableRange resizes a table. The table is re-added with its original
// options since excelize has no in-place resize.
func (w *workbook) setTableRange(info TableInfo, next Bounds) error {
	ref, err := next.Ref()
	if err != nil {
		return err
	}

	tables, err := w.f.GetTables(info.Sheet)
	if err != nil {
		return fmt.Errorf("list tables of %s: %w", info.Sheet, err)
	}
	for _, t := range tables {
		if t.Name != info.Name {
			continue
		}
		if t.Range == ref {
			return nil
		}
		if err := w.f.DeleteTable(t.Name); err != nil {
			return fmt.Errorf("resize %s: %w", t.Name, err)
		}
		t.Range = ref
		if err := w.f.AddTable(info.Sheet, &t); err != nil {
			return fmt.Errorf("resize %s to %s: %w", t.Name, ref, err)
		}
		return nil
	}
	return fmt.Errorf("%q: %w", info.Name, ErrTableNotFound)
}

// save writes the workbook next to the ledger and renames it over the
// original, so a failed write leaves the ledger untouched.
func (w *workbook) save() error {
	const op = "save"

	if err := checkOwnerFile(w.path); err != nil {
		return err
	}

	mode := os.FileMode(0o644)
	if info, err := os.Stat(w.path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(w.path), ".splitter-*"+filepath.Ext(w.path))
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return &LockedError{Path: w.path, Op: "save", Err: err}
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	tmpPath := tmp.Name()

	if err := w.f.Write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%s: write workbook: %w", op, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := os.Rename(tmpPath, w.path); err != nil {
		os.Remove(tmpPath)
		if errors.Is(err, fs.ErrPermission) {
			return &LockedError{Path: w.path, Op: "save", Err: err}
		}
		return fmt.Errorf("%s: replace ledger: %w", op, err)
	}
	return nil
}

func checkOwnerFile(path string) error {
	owner := filepath.Join(filepath.Dir(path), "~$"+filepath.Base(path))
	if _, err := os.Stat(owner); err == nil {
		return &LockedError{Path: path, Op: "save", Err: ErrLockFilePresent}
	}
	return nil
}

func (w *workbook) cellString(sheet string, col, row int) (string, error) {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "", err
	}
	return w.f.GetCellValue(sheet, cell)
}

func (w *workbook) rawString(sheet string, col, row int) (string, error) {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "", err
	}
	return w.f.GetCellValue(sheet, cell, excelize.Options{RawCellValue: true})
}
