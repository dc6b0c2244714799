package cmd

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"splitter/internal/config"
	"splitter/internal/ledger"
	"splitter/internal/logger"
	"splitter/internal/rules"
	"splitter/internal/sheets"
	"splitter/pkg/models"
)

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Write an invoice's lines into the ledger",
	Long: `Build the invoice lines exactly like preview, then write them into the
ledger in one transaction:

  1. Back the ledger up into BACKUP_DIR (skipped when --backup names a backup
     that still exists, so one session keeps one backup) and prune old backups.
  2. Remove every row of the target tables with the same vendor ID and bill
     number. Saving a bill again replaces it.
  3. Append the new rows and save the ledger once.

Close the ledger in Excel before saving. With --journal and GOOGLE_SHEET_URL
set, the saved lines are also appended to the Google Sheets journal.`,
	Example: `  splitter save --vendor-id 1254926 --bill 472 --subtotal 120

  # Reuse the backup of an earlier save in the same session
  splitter save --vendor-id 1254926 --bill 473 --subtotal 80 \
    --backup invoice_splitter_backups/Ledger_backup_20250307_143005.xlsx`,
	Args: cobra.NoArgs,
	RunE: runSave,
}

func init() {
	rootCmd.AddCommand(saveCmd)

	addInvoiceFlags(saveCmd)
	saveCmd.Flags().String("backup", "", "Existing session backup to reuse")
	saveCmd.Flags().Bool("journal", false, "Also append the lines to the Google Sheets journal")
	saveCmd.Flags().Int("journal-timeout", 30, "Journal timeout in seconds")
}

func runSave(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("save")

	existingBackup, _ := cmd.Flags().GetString("backup")
	journal, _ := cmd.Flags().GetBool("journal")
	journalTimeout, _ := cmd.Flags().GetInt("journal-timeout")

	cfg, err := loadLedgerConfig()
	if err != nil {
		return err
	}

	inv, lines, warnings, err := evaluateInvoice(cmd, cfg)
	if err != nil {
		return err
	}
	printWarnings(cmd.ErrOrStderr(), warnings)

	manager := ledger.NewManager(rules.NewRegistry(), cfg.DateDisplayFormat)
	result, err := manager.Apply(ledger.Request{
		LedgerPath:     cfg.LedgerPath,
		BackupDir:      cfg.BackupDir,
		VendorID:       inv.VendorID,
		BillNumber:     inv.BillNumber,
		Tables:         models.GroupByTable(lines),
		ExistingBackup: existingBackup,
		RetainLastN:    cfg.RetentionKeepLastN,
		RetainDays:     cfg.RetentionKeepDays,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printSaveResult(out, inv, result)

	if journal {
		if err := writeJournal(cfg, lines, time.Duration(journalTimeout)*time.Second); err != nil {
			log.Warn().Err(err).Msg("Journal update failed")
			printWarnings(cmd.ErrOrStderr(), []string{fmt.Sprintf("ledger saved, but the journal was not updated: %v", err)})
		} else {
			fmt.Fprintln(out, "Journal updated.")
		}
	}
	return nil
}

func printSaveResult(w io.Writer, inv models.Invoice, result *ledger.Result) {
	state := "reused"
	if result.BackupCreated {
		state = "created"
	}
	fmt.Fprintf(w, "Saved bill %s for %s (%d).\n", inv.BillNumber, inv.VendorName, inv.VendorID)
	fmt.Fprintf(w, "Backup (%s): %s\n", state, result.BackupPath)

	tables := make([]string, 0, len(result.InsertedByTable))
	for t := range result.InsertedByTable {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	for _, t := range tables {
		fmt.Fprintf(w, "  %s: %d replaced, %d written\n", t, result.DeletedByTable[t], result.InsertedByTable[t])
	}
}

func writeJournal(cfg *config.Config, lines []models.LineItem, timeout time.Duration) error {
	if cfg.GoogleSheetURL == "" {
		return fmt.Errorf("GOOGLE_SHEET_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	j, err := sheets.NewJournal(ctx, cfg.GoogleSheetURL)
	if err != nil {
		return err
	}
	return j.AppendLines(ctx, cfg.GoogleSheetWorksheet, lines, time.Now())
}
