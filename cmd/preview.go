package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"splitter/internal/config"
	"splitter/internal/logger"
	"splitter/internal/money"
	"splitter/internal/rules"
	"splitter/pkg/models"
)

var (
	tableTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	warningStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	mismatchStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show the ledger lines an invoice would produce",
	Long: `Build the cost-center lines of an invoice with the vendor's allocation rule
and print them without touching the ledger.

Vendors with a standard schedule split the subtotal by fixed percentages. A
custom concept is split with --split lines, or written as one line to the
--cc/--gl pair. The last line absorbs any rounding cent.`,
	Example: `  # Standard Cirion split
  splitter preview --vendor-id 1254926 --vendor-name Cirion --bill 472 --subtotal 120

  # Claro SIP trunk with a custom bandwidth
  splitter preview --vendor-id 1254902 --bill 9001 --subtotal 1500 --service-type siptrunk --bandwidth 100

  # Custom split by percentage
  splitter preview --vendor-id 1300001 --vendor-name "Acme Cloud" --bill 15 --subtotal 100 \
    --split 7475036:7980100000:60 --split 3941036:7980100000:40

  # Machine readable output
  splitter preview --vendor-id 1254926 --bill 472 --subtotal 120 --json`,
	Args: cobra.NoArgs,
	RunE: runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)

	addInvoiceFlags(previewCmd)
	previewCmd.Flags().Bool("json", false, "Print the lines as JSON")
}

func runPreview(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("preview")
	asJSON, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	inv, lines, warnings, err := evaluateInvoice(cmd, cfg)
	if err != nil {
		return err
	}

	log.Info().
		Int64("vendor_id", inv.VendorID).
		Str("bill", inv.BillNumber).
		Int("lines", len(lines)).
		Msg("Preview built")

	out := cmd.OutOrStdout()
	if asJSON {
		return writePreviewJSON(out, inv, lines, warnings)
	}

	printWarnings(cmd.ErrOrStderr(), warnings)
	printLines(out, lines)
	printSummary(out, inv, lines)
	return nil
}

// evaluateInvoice reads the invoice flags and runs the vendor rule.
func evaluateInvoice(cmd *cobra.Command, cfg *config.Config) (models.Invoice, []models.LineItem, []string, error) {
	inv, warnings, err := buildInvoice(readInvoiceInput(cmd), cfg.DefaultIVA, time.Now())
	if err != nil {
		return inv, nil, nil, err
	}
	if err := resolveVendorName(cfg, &inv); err != nil {
		return inv, nil, nil, err
	}

	lines, err := rules.NewRegistry().BuildLines(inv)
	if err != nil {
		return inv, nil, nil, err
	}
	return inv, lines, warnings, nil
}

func printWarnings(w io.Writer, warnings []string) {
	for _, msg := range warnings {
		fmt.Fprintln(w, warningStyle.Render("warning: "+msg))
	}
}

// printLines prints one block per table in the order the lines were built.
func printLines(w io.Writer, lines []models.LineItem) {
	for _, group := range models.GroupByTable(lines) {
		fmt.Fprintln(w, tableTitleStyle.Render(group.Table))

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		headers := group.Rows[0].Headers()
		fmt.Fprintln(tw, strings.Join(headers, "\t"))
		for _, row := range group.Rows {
			values := make([]string, len(headers))
			for i, h := range headers {
				v, _ := row.Get(h)
				values[i] = formatValue(h, v)
			}
			fmt.Fprintln(tw, strings.Join(values, "\t"))
		}
		tw.Flush()
		fmt.Fprintln(w)
	}
}

type lineTotals struct {
	Subtotal decimal.Decimal
	IVA      decimal.Decimal
	Total    decimal.Decimal
}

func sumLines(lines []models.LineItem) lineTotals {
	var t lineTotals
	for _, l := range lines {
		t.Subtotal = t.Subtotal.Add(l.Subtotal())
		t.IVA = t.IVA.Add(l.IVA())
		t.Total = t.Total.Add(l.Total())
	}
	t.Subtotal = money.Quantize2(t.Subtotal)
	t.IVA = money.Quantize2(t.IVA)
	t.Total = money.Quantize2(t.Total)
	return t
}

func printSummary(w io.Writer, inv models.Invoice, lines []models.LineItem) {
	t := sumLines(lines)
	fmt.Fprintf(w, "Lines:    %d\n", len(lines))
	fmt.Fprintf(w, "Subtotal: %s (invoice %s)\n", t.Subtotal.StringFixed(2), inv.Subtotal.StringFixed(2))
	fmt.Fprintf(w, "IVA:      %s (rate %s)\n", t.IVA.StringFixed(2), inv.IVARate.StringFixed(4))
	fmt.Fprintf(w, "Total:    %s\n", t.Total.StringFixed(2))
	if !t.Subtotal.Equal(money.Quantize2(inv.Subtotal)) {
		fmt.Fprintln(w, mismatchStyle.Render("Line subtotals do not add up to the invoice subtotal"))
	}
}

// formatValue renders a cell for display.
func formatValue(header string, v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case time.Time:
		return val.Format(money.DateLayout)
	case decimal.Decimal:
		if header == models.HeaderIVARate {
			return val.StringFixed(4)
		}
		return val.StringFixed(2)
	default:
		return fmt.Sprint(val)
	}
}

type previewCell struct {
	Header string `json:"header"`
	Value  string `json:"value"`
}

type previewLine struct {
	Table string        `json:"table"`
	Cells []previewCell `json:"cells"`
}

type previewOutput struct {
	VendorID   int64         `json:"vendor_id"`
	VendorName string        `json:"vendor_name"`
	BillNumber string        `json:"bill_number"`
	Subtotal   string        `json:"subtotal"`
	Lines      []previewLine `json:"lines"`
	Totals     struct {
		Subtotal string `json:"subtotal"`
		IVA      string `json:"iva"`
		Total    string `json:"total"`
	} `json:"totals"`
	Warnings []string `json:"warnings,omitempty"`
}

func writePreviewJSON(w io.Writer, inv models.Invoice, lines []models.LineItem, warnings []string) error {
	out := previewOutput{
		VendorID:   inv.VendorID,
		VendorName: inv.VendorName,
		BillNumber: inv.BillNumber,
		Subtotal:   inv.Subtotal.StringFixed(2),
		Lines:      make([]previewLine, 0, len(lines)),
		Warnings:   warnings,
	}
	for _, l := range lines {
		pl := previewLine{Table: l.Table}
		for _, c := range l.Cells {
			pl.Cells = append(pl.Cells, previewCell{Header: c.Header, Value: formatValue(c.Header, c.Value)})
		}
		out.Lines = append(out.Lines, pl)
	}
	t := sumLines(lines)
	out.Totals.Subtotal = t.Subtotal.StringFixed(2)
	out.Totals.IVA = t.IVA.StringFixed(2)
	out.Totals.Total = t.Total.StringFixed(2)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
