package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"splitter/internal/ledger"
	"splitter/internal/rules"
)

var vendorsCmd = &cobra.Command{
	Use:   "vendors",
	Short: "List the vendors of the ledger's vendor table",
	Long: `List the vendors in VENDORS_TABLE, sorted by name, and the table their
invoices are written to. Vendors without a dedicated rule use the generic
rule and get their own <Name>_<ID>_table.`,
	Args: cobra.NoArgs,
	RunE: runVendors,
}

func init() {
	rootCmd.AddCommand(vendorsCmd)
}

func runVendors(cmd *cobra.Command, args []string) error {
	cfg, err := loadLedgerConfig()
	if err != nil {
		return err
	}

	vendors, err := ledger.LoadVendors(cfg.LedgerPath, cfg.VendorsSheet, cfg.VendorsTable)
	if err != nil {
		return err
	}

	registry := rules.NewRegistry()
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, tableTitleStyle.Render(cfg.VendorsTable))

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tVendor\tRule\tTables")
	for _, v := range vendors {
		rule, tables := "generic", []string{rules.TableNameFor(v.Name, v.ID)}
		if s, ok := registry.Strategy(v.ID); ok {
			rule = "dedicated"
			tables = tables[:0]
			for _, t := range s.Tables() {
				tables = append(tables, t.Name)
			}
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%v\n", v.ID, v.Name, rule, tables)
	}
	return tw.Flush()
}
