package ledger

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"splitter/internal/logger"
	"splitter/pkg/models"
)

// Retention defaults applied when a request leaves them unset.
const (
	DefaultKeepLastN = 30
	DefaultKeepDays  = 30
)

// SchemaLookup returns the header list a new table is created with.
type SchemaLookup interface {
	HeadersFor(table string) []string
}

// Request is one write to the ledger: the rows of every table touched by a
// single bill.
type Request struct {
	LedgerPath string
	BackupDir  string
	VendorID   int64
	BillNumber string
	Tables     []models.TableRows

	// ExistingBackup is reused instead of creating a new backup when it
	// still exists.
	ExistingBackup string

	RetainLastN int
	RetainDays  int
}

// Result reports what Apply did.
type Result struct {
	BackupPath      string
	BackupCreated   bool
	DeletedByTable  map[string]int
	InsertedByTable map[string]int
}

// Manager applies requests to the ledger.
type Manager struct {
	schemas    SchemaLookup
	dateFormat string
	now        func() time.Time
	log        zerolog.Logger
}

// NewManager creates a Manager. dateFormat is the number format applied to
// the Date column of appended rows.
func NewManager(schemas SchemaLookup, dateFormat string) *Manager {
	return &Manager{
		schemas:    schemas,
		dateFormat: dateFormat,
		now:        time.Now,
		log:        logger.WithComponent("ledger-transaction"),
	}
}

// Apply backs the ledger up (once per session), removes every row keyed by
// (VendorID, BillNumber) from each target table, appends the new rows and
// saves. The ledger file is only written after all edits succeed.
func (m *Manager) Apply(req Request) (*Result, error) {
	const op = "Apply"

	if err := validateRequest(req); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	backup, created, err := m.sessionBackup(req.LedgerPath, req.BackupDir, req.ExistingBackup, req.RetainLastN, req.RetainDays)
	if err != nil {
		m.log.Error().Err(err).Int64("vendor_id", req.VendorID).Str("bill", req.BillNumber).Msg("Backup failed")
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	tables := make([]string, 0, len(req.Tables))
	for _, t := range req.Tables {
		tables = append(tables, t.Table)
	}
	m.log.Info().
		Str("ledger", req.LedgerPath).
		Int64("vendor_id", req.VendorID).
		Str("bill", req.BillNumber).
		Str("backup", backup).
		Bool("backup_created", created).
		Strs("tables", tables).
		Msg("Transaction started")

	wb, err := openWorkbook(req.LedgerPath, m.dateFormat)
	if err != nil {
		m.log.Error().Err(err).Int64("vendor_id", req.VendorID).Str("bill", req.BillNumber).Msg("Could not open ledger")
		return nil, err
	}
	defer wb.close()

	result := &Result{
		BackupPath:      backup,
		BackupCreated:   created,
		DeletedByTable:  make(map[string]int, len(req.Tables)),
		InsertedByTable: make(map[string]int, len(req.Tables)),
	}

	for _, group := range req.Tables {
		deleted, err := m.replaceRows(wb, group, req.VendorID, req.BillNumber)
		if err != nil {
			m.log.Error().Err(err).
				Int64("vendor_id", req.VendorID).
				Str("bill", req.BillNumber).
				Str("table", group.Table).
				Msg("Transaction aborted")
			return nil, fmt.Errorf("%s: table %s: %w", op, group.Table, err)
		}
		result.DeletedByTable[group.Table] = deleted
		result.InsertedByTable[group.Table] = len(group.Rows)

		m.log.Info().
			Str("table", group.Table).
			Int("deleted", deleted).
			Int("inserted", len(group.Rows)).
			Msg("Table updated")
	}

	if err := wb.save(); err != nil {
		m.log.Error().Err(err).Int64("vendor_id", req.VendorID).Str("bill", req.BillNumber).Msg("Could not save ledger")
		return nil, err
	}

	m.log.Info().
		Int64("vendor_id", req.VendorID).
		Str("bill", req.BillNumber).
		Interface("deleted", result.DeletedByTable).
		Msg("Transaction committed")

	return result, nil
}

func validateRequest(req Request) error {
	if strings.TrimSpace(req.LedgerPath) == "" {
		return errors.New("ledger path is required")
	}
	if req.BackupDir == "" {
		return errors.New("backup directory is required")
	}
	if req.BillNumber == "" {
		return errors.New("bill number is required")
	}
	seen := make(map[string]bool, len(req.Tables))
	for _, t := range req.Tables {
		key := strings.ToLower(t.Table)
		if seen[key] {
			return fmt.Errorf("%q: %w", t.Table, ErrDuplicateTable)
		}
		seen[key] = true
	}
	return nil
}

// sessionBackup reuses existing when it is still on disk, otherwise copies
// the ledger and prunes the backup directory.
func (m *Manager) sessionBackup(ledgerPath, backupDir, existing string, keepN, keepDays int) (string, bool, error) {
	if existing != "" {
		if _, err := os.Stat(existing); err == nil {
			return existing, false, nil
		}
	}

	path, err := CreateBackup(ledgerPath, backupDir, m.now())
	if err != nil {
		return "", false, err
	}

	if keepN <= 0 {
		keepN = DefaultKeepLastN
	}
	if keepDays < 0 {
		keepDays = DefaultKeepDays
	}
	policy := NewRetentionPolicy(keepN, keepDays)
	policy.now = m.now
	res := policy.Prune(backupDir, path)
	m.log.Debug().
		Int("deleted_by_age", len(res.DeletedByAge)).
		Int("deleted_by_count", len(res.DeletedByCount)).
		Int("kept", res.Kept).
		Msg("Retention applied")

	return path, true, nil
}

// replaceRows deletes the keyed rows of one table and appends the group.
func (m *Manager) replaceRows(wb *workbook, group models.TableRows, vendorID int64, bill string) (int, error) {
	info, err := wb.findTable(group.Table)
	if errors.Is(err, ErrTableNotFound) {
		headers := m.schemas.HeadersFor(group.Table)
		if info, err = wb.createTable(group.Table, headers); err != nil {
			return 0, err
		}
		m.log.Info().Str("table", group.Table).Str("sheet", info.Sheet).Msg("Table created")
	} else if err != nil {
		return 0, err
	}

	matches, err := wb.keyRows(info, vendorID, bill)
	if err != nil {
		return 0, err
	}

	placeholder := false
	if len(matches) > 0 {
		plan := PlanDeletion(info.Bounds, matches)
		if err := wb.deleteRows(info, plan); err != nil {
			return 0, err
		}
		info.Bounds = plan.Next
		placeholder = plan.Placeholder
	} else if placeholder, err = wb.isPlaceholder(info); err != nil {
		return 0, err
	}

	if err := wb.appendRows(info, group.Rows, placeholder); err != nil {
		return 0, err
	}
	return len(matches), nil
}
