package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"splitter/internal/logger"
	"splitter/internal/money"
)

// BackupDirName is the backup folder created next to the ledger when
// BACKUP_DIR is not set.
const BackupDirName = "invoice_splitter_backups"

// ErrLedgerPathMissing is returned by RequireLedger when no ledger is configured.
var ErrLedgerPathMissing = errors.New("LEDGER_PATH is required (path to the .xlsx/.xlsm ledger)")

type Config struct {
	// Ledger document
	LedgerPath        string
	BackupDir         string
	VendorsSheet      string
	VendorsTable      string
	ConceptsTable     string
	DateDisplayFormat string

	// Invoice defaults
	DefaultIVA decimal.Decimal

	// Backup retention
	RetentionKeepLastN int
	RetentionKeepDays  int

	// Google Sheets journal
	GoogleSheetURL       string
	GoogleSheetWorksheet string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

// Load reads the configuration from the environment and an optional
// splitter.yaml (working directory, $HOME/.config/splitter, or the file named
// by SPLITTER_CONFIG). Environment variables win over the file.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("splitter")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "splitter"))
	}
	if explicit := os.Getenv("SPLITTER_CONFIG"); explicit != "" {
		v.SetConfigFile(explicit)
	}

	v.AutomaticEnv()
	// EXCEL_PATH is the historical name of the ledger variable
	if err := v.BindEnv("ledger_path", "LEDGER_PATH", "EXCEL_PATH"); err != nil {
		return nil, fmt.Errorf("bind ledger_path: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	iva, err := money.ParseIVA(v.GetString("default_iva"), decimal.RequireFromString("0.15"))
	if err != nil {
		return nil, fmt.Errorf("DEFAULT_IVA: %w", err)
	}

	config := &Config{
		LedgerPath:           v.GetString("ledger_path"),
		BackupDir:            v.GetString("backup_dir"),
		VendorsSheet:         v.GetString("vendors_sheet"),
		VendorsTable:         v.GetString("vendors_table"),
		ConceptsTable:        v.GetString("concepts_table"),
		DateDisplayFormat:    v.GetString("date_display_format"),
		DefaultIVA:           iva,
		RetentionKeepLastN:   v.GetInt("retention_keep_last_n"),
		RetentionKeepDays:    v.GetInt("retention_keep_days"),
		GoogleSheetURL:       v.GetString("google_sheet_url"),
		GoogleSheetWorksheet: v.GetString("google_sheet_worksheet"),
		LogLevel:             v.GetString("log_level"),
		LogFormat:            v.GetString("log_format"),
		LogTimeFormat:        v.GetString("log_time_format"),
		LogOutput:            v.GetString("log_output"),
	}

	if config.BackupDir == "" && config.LedgerPath != "" {
		config.BackupDir = filepath.Join(filepath.Dir(config.LedgerPath), BackupDirName)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ledger_path", "")
	v.SetDefault("backup_dir", "")
	v.SetDefault("vendors_sheet", "Vendors")
	v.SetDefault("vendors_table", "Vendors_table")
	v.SetDefault("concepts_table", "Vendor_concepts_table")
	v.SetDefault("date_display_format", "dd-mmm-yy")
	v.SetDefault("default_iva", "0.15")
	v.SetDefault("retention_keep_last_n", 30)
	v.SetDefault("retention_keep_days", 30)
	v.SetDefault("google_sheet_url", "")
	v.SetDefault("google_sheet_worksheet", "Splitter_Journal")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("log_time_format", "2006-01-02T15:04:05Z07:00")
	v.SetDefault("log_output", "stderr")
}

func (c *Config) validate() error {
	if c.RetentionKeepLastN < 1 {
		return fmt.Errorf("RETENTION_KEEP_LAST_N must be at least 1, got %d", c.RetentionKeepLastN)
	}
	if c.RetentionKeepDays < 0 {
		return fmt.Errorf("RETENTION_KEEP_DAYS must not be negative, got %d", c.RetentionKeepDays)
	}
	if c.DefaultIVA.IsNegative() || c.DefaultIVA.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("DEFAULT_IVA must be between 0 and 1, got %s", c.DefaultIVA)
	}
	if c.DateDisplayFormat == "" {
		return fmt.Errorf("DATE_DISPLAY_FORMAT must not be empty")
	}
	return nil
}

// RequireLedger fails when no ledger path is configured or it does not exist.
func (c *Config) RequireLedger() error {
	if c.LedgerPath == "" {
		return ErrLedgerPathMissing
	}
	if _, err := os.Stat(c.LedgerPath); err != nil {
		return fmt.Errorf("ledger %s: %w", c.LedgerPath, err)
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}
