package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"splitter/internal/ledger"
	"splitter/internal/logger"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old ledger backups",
	Long: `Apply the backup retention policy to BACKUP_DIR: backups older than
RETENTION_KEEP_DAYS are deleted, then only the RETENTION_KEEP_LAST_N newest
of the rest are kept. Only files named <ledger>_backup_YYYYMMDD_HHMMSS.xlsx
(or .xlsm) are touched.`,
	Args: cobra.NoArgs,
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)

	pruneCmd.Flags().Int("keep", 0, "Backups to keep (default: RETENTION_KEEP_LAST_N)")
	pruneCmd.Flags().Int("days", -1, "Maximum backup age in days (default: RETENTION_KEEP_DAYS)")
}

func runPrune(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("prune")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.BackupDir == "" {
		return fmt.Errorf("BACKUP_DIR or LEDGER_PATH is required")
	}

	keep, _ := cmd.Flags().GetInt("keep")
	days, _ := cmd.Flags().GetInt("days")
	if keep <= 0 {
		keep = cfg.RetentionKeepLastN
	}
	if days < 0 {
		days = cfg.RetentionKeepDays
	}

	result := ledger.Prune(cfg.BackupDir, keep, days)

	log.Info().
		Str("dir", cfg.BackupDir).
		Int("deleted_by_age", len(result.DeletedByAge)).
		Int("deleted_by_count", len(result.DeletedByCount)).
		Int("failed", len(result.Failed)).
		Msg("Backups pruned")

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Backups in %s\n", cfg.BackupDir)
	fmt.Fprintf(out, "  kept:            %d\n", result.Kept)
	fmt.Fprintf(out, "  deleted (age):   %d\n", len(result.DeletedByAge))
	fmt.Fprintf(out, "  deleted (count): %d\n", len(result.DeletedByCount))
	if len(result.Failed) > 0 {
		printWarnings(cmd.ErrOrStderr(), []string{fmt.Sprintf("%d backups could not be deleted", len(result.Failed))})
	}
	return nil
}
