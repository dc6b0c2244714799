package cmd

import (
	"fmt"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"splitter/internal/ledger"
	"splitter/internal/logger"
	"splitter/internal/rules"
)

var conceptsCmd = &cobra.Command{
	Use:   "concepts",
	Short: "Manage the service concepts offered per vendor",
}

var conceptsListCmd = &cobra.Command{
	Use:   "list [vendor-id]",
	Short: "List the active concepts of CONCEPTS_TABLE and the built-in rule concepts",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConceptsList,
}

var conceptsAddCmd = &cobra.Command{
	Use:   "add <vendor-id> <concept>...",
	Short: "Add concepts for a vendor to CONCEPTS_TABLE",
	Long: `Append concepts for a vendor to CONCEPTS_TABLE, creating the table on a new
sheet when the ledger has none. Concepts the vendor already has (compared
case-insensitively) are skipped. The ledger is backed up first.`,
	Example: `  splitter concepts add 1254926 "Internet dedicado" "Colocation"`,
	Args:    cobra.MinimumNArgs(2),
	RunE:    runConceptsAdd,
}

func init() {
	rootCmd.AddCommand(conceptsCmd)
	conceptsCmd.AddCommand(conceptsListCmd)
	conceptsCmd.AddCommand(conceptsAddCmd)

	conceptsAddCmd.Flags().String("backup", "", "Existing session backup to reuse")
}

func runConceptsList(cmd *cobra.Command, args []string) error {
	cfg, err := loadLedgerConfig()
	if err != nil {
		return err
	}

	var only *int64
	if len(args) == 1 {
		id, err := parseAccount("vendor_id", args[0])
		if err != nil {
			return err
		}
		only = id
	}

	catalogue, err := ledger.LoadConcepts(cfg.LedgerPath, cfg.ConceptsTable)
	if err != nil {
		return err
	}

	registry := rules.NewRegistry()
	ids := make(map[int64]bool)
	for id := range catalogue {
		ids[id] = true
	}
	for _, id := range registry.VendorIDs() {
		ids[id] = true
	}

	sorted := make([]int64, 0, len(ids))
	for id := range ids {
		if only == nil || *only == id {
			sorted = append(sorted, id)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Vendor ID\tConcept\tSource\tDefault")
	for _, id := range sorted {
		for _, c := range catalogue[id] {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", id, c.Concept, cfg.ConceptsTable, yesNo(c.IsDefault))
		}
		if s, ok := registry.Strategy(id); ok {
			for i, c := range builtinConcepts(s) {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", id, c, "rule", yesNo(i == 0))
			}
		}
	}
	return tw.Flush()
}

// builtinConcepts lists the concepts a rule has a standard schedule for,
// default first.
func builtinConcepts(s rules.Strategy) []string {
	switch r := s.(type) {
	case rules.ScheduleRule:
		return r.Concepts()
	case rules.ServiceTypeRule:
		var concepts []string
		for _, v := range r.Variants {
			concepts = append(concepts, builtinConcepts(v.Strategy)...)
		}
		return concepts
	default:
		return nil
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return ""
}

func runConceptsAdd(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("concepts")
	existingBackup, _ := cmd.Flags().GetString("backup")

	cfg, err := loadLedgerConfig()
	if err != nil {
		return err
	}

	vendorID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid vendor ID %q: %w", args[0], err)
	}

	manager := ledger.NewManager(rules.NewRegistry(), cfg.DateDisplayFormat)
	added, err := manager.AddConcepts(ledger.AddConceptsRequest{
		LedgerPath:     cfg.LedgerPath,
		BackupDir:      cfg.BackupDir,
		Table:          cfg.ConceptsTable,
		VendorID:       vendorID,
		Concepts:       args[1:],
		ExistingBackup: existingBackup,
		RetainLastN:    cfg.RetentionKeepLastN,
		RetainDays:     cfg.RetentionKeepDays,
	})
	if err != nil {
		return err
	}

	log.Info().Int64("vendor_id", vendorID).Int("added", len(added)).Msg("Concepts command finished")

	out := cmd.OutOrStdout()
	if len(added) == 0 {
		fmt.Fprintln(out, "No new concepts: all of them already exist for this vendor.")
		return nil
	}
	for _, c := range added {
		fmt.Fprintf(out, "Added %q for vendor %d\n", c, vendorID)
	}
	return nil
}
