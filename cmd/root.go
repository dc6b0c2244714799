package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"splitter/internal/config"
	"splitter/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "splitter",
	Short: "Split vendor invoices across cost centers and record them in the ledger",
	Long: `Splitter turns a vendor invoice into cost-center / GL-account lines using
the vendor's allocation rule (or a custom split), and writes those lines into
the vendor's table in the Excel ledger.

Saving a bill replaces any rows already recorded for the same vendor and bill
number, and the ledger is backed up once per session before it is modified.

Configuration is read from the environment (a .env file is loaded first) or
from splitter.yaml. LEDGER_PATH must point to the .xlsx/.xlsm ledger for
every command that touches it.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error(err, "Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads the configuration for a command.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

// loadLedgerConfig is loadConfig for commands that need the ledger.
func loadLedgerConfig() (*config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireLedger(); err != nil {
		return nil, err
	}
	return cfg, nil
}
