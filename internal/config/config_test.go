package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{
		"SPLITTER_CONFIG", "LEDGER_PATH", "EXCEL_PATH", "BACKUP_DIR", "DEFAULT_IVA",
		"RETENTION_KEEP_LAST_N", "RETENTION_KEEP_DAYS", "LOG_LEVEL", "LOG_OUTPUT",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "", cfg.LedgerPath)
	assert.Equal(t, "Vendors", cfg.VendorsSheet)
	assert.Equal(t, "Vendors_table", cfg.VendorsTable)
	assert.Equal(t, "Vendor_concepts_table", cfg.ConceptsTable)
	assert.Equal(t, "dd-mmm-yy", cfg.DateDisplayFormat)
	assert.Equal(t, "0.1500", cfg.DefaultIVA.StringFixed(4))
	assert.Equal(t, 30, cfg.RetentionKeepLastN)
	assert.Equal(t, 30, cfg.RetentionKeepDays)
	assert.Equal(t, "Splitter_Journal", cfg.GoogleSheetWorksheet)
	assert.ErrorIs(t, cfg.RequireLedger(), ErrLedgerPathMissing)
}

func TestLoadFromEnvironment(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	ledger := filepath.Join(dir, "ledger.xlsx")
	require.NoError(t, os.WriteFile(ledger, []byte("x"), 0o644))

	t.Setenv("EXCEL_PATH", ledger)
	t.Setenv("DEFAULT_IVA", "12%")
	t.Setenv("RETENTION_KEEP_LAST_N", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ledger, cfg.LedgerPath)
	assert.Equal(t, filepath.Join(dir, BackupDirName), cfg.BackupDir)
	assert.Equal(t, "0.1200", cfg.DefaultIVA.StringFixed(4))
	assert.Equal(t, 5, cfg.RetentionKeepLastN)
	assert.NoError(t, cfg.RequireLedger())
}

func TestLoadFromFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	content := "ledger_path: /data/ledger.xlsm\nbackup_dir: /data/backups\nretention_keep_days: 7\nlog_level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("SPLITTER_CONFIG", path)
	t.Setenv("RETENTION_KEEP_DAYS", "9")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/data/ledger.xlsm", cfg.LedgerPath)
	assert.Equal(t, "/data/backups", cfg.BackupDir)
	assert.Equal(t, 9, cfg.RetentionKeepDays, "environment wins over the file")
	assert.Equal(t, "debug", cfg.GetLoggerConfig().Level)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"keep last zero", "RETENTION_KEEP_LAST_N", "0"},
		{"negative days", "RETENTION_KEEP_DAYS", "-1"},
		{"bad iva", "DEFAULT_IVA", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)
	t.Setenv("SPLITTER_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.Error(t, err)
}
