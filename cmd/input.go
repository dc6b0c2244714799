package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"splitter/internal/config"
	"splitter/internal/ledger"
	"splitter/internal/money"
	"splitter/pkg/models"
)

// invoiceInput holds the raw invoice flags before validation.
type invoiceInput struct {
	Date        string
	VendorID    string
	VendorName  string
	Bill        string
	Subtotal    string
	IVA         string
	Concept     string
	ServiceType string

	CostCenter    string
	GLAccount     string
	CustomConcept string

	Bandwidth        string
	Channels         string
	SBCMbps          string
	SBCLicences      string
	SBCSiptrunkPrice string
	SBCLicencePrice  string
	PhoneLines       string

	SplitMode string
	Splits    []string
}

func addInvoiceFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("date", "", "Invoice date YYYY-MM-DD (default: today)")
	f.String("vendor-id", "", "Vendor ID as listed in the vendor table")
	f.String("vendor-name", "", "Vendor name (default: looked up in the ledger)")
	f.String("bill", "", "Bill number, up to 9 digits")
	f.String("subtotal", "", "Invoice subtotal before IVA (negative for credit notes)")
	f.String("iva", "", "IVA rate: 0.15, 15 or 15% (default: DEFAULT_IVA)")
	f.String("concept", "", "Service concept (default: the vendor's default concept)")
	f.String("service-type", "", "Vendor service type (Claro: siptrunk, sbc, mobile)")

	f.String("cc", "", "Cost center of a single-line custom concept")
	f.String("gl", "", "GL account of a single-line custom concept")
	f.String("custom-concept", "", "Concept written on custom lines")

	f.String("bandwidth", "", "Bandwidth in MBPS")
	f.String("channels", "", "SIP trunk channels")
	f.String("sbc-mbps", "", "SBC siptrunk MBPS")
	f.String("sbc-licences", "", "SBC licence quantity")
	f.String("sbc-siptrunk-price", "", "SBC siptrunk price")
	f.String("sbc-licence-price", "", "SBC licence price")
	f.String("phone-lines", "", "Phone lines quantity")

	f.String("split-mode", "", "Custom split mode: percent or amount")
	f.StringArray("split", nil, "Custom split line cc:gl:value[:concept], repeatable")

	_ = cmd.MarkFlagRequired("vendor-id")
	_ = cmd.MarkFlagRequired("bill")
	_ = cmd.MarkFlagRequired("subtotal")
}

func readInvoiceInput(cmd *cobra.Command) invoiceInput {
	f := cmd.Flags()
	get := func(name string) string {
		v, _ := f.GetString(name)
		return v
	}
	splits, _ := f.GetStringArray("split")

	return invoiceInput{
		Date:             get("date"),
		VendorID:         get("vendor-id"),
		VendorName:       get("vendor-name"),
		Bill:             get("bill"),
		Subtotal:         get("subtotal"),
		IVA:              get("iva"),
		Concept:          get("concept"),
		ServiceType:      get("service-type"),
		CostCenter:       get("cc"),
		GLAccount:        get("gl"),
		CustomConcept:    get("custom-concept"),
		Bandwidth:        get("bandwidth"),
		Channels:         get("channels"),
		SBCMbps:          get("sbc-mbps"),
		SBCLicences:      get("sbc-licences"),
		SBCSiptrunkPrice: get("sbc-siptrunk-price"),
		SBCLicencePrice:  get("sbc-licence-price"),
		PhoneLines:       get("phone-lines"),
		SplitMode:        get("split-mode"),
		Splits:           splits,
	}
}

// buildInvoice validates the input. Malformed vendor extras do not fail:
// they fall back to the vendor default and a warning is returned instead.
func buildInvoice(in invoiceInput, defaultIVA decimal.Decimal, today time.Time) (models.Invoice, []string, error) {
	var inv models.Invoice
	var warnings []string

	y, m, d := today.Date()
	inv.Date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if strings.TrimSpace(in.Date) != "" {
		date, err := money.ParseDate(in.Date)
		if err != nil {
			return inv, nil, err
		}
		inv.Date = date
	}

	id, err := parseAccount("vendor_id", in.VendorID)
	if err != nil {
		return inv, nil, err
	}
	if id == nil {
		return inv, nil, &money.ValidationError{Field: "vendor_id", Value: in.VendorID, Message: "must not be empty"}
	}
	inv.VendorID = *id
	inv.VendorName = strings.TrimSpace(in.VendorName)

	if inv.BillNumber, err = money.NormalizeBillNumber(in.Bill); err != nil {
		return inv, nil, err
	}
	if inv.Subtotal, err = money.ParseDecimal(in.Subtotal, "subtotal"); err != nil {
		return inv, nil, err
	}
	if inv.IVARate, err = money.ParseIVA(in.IVA, defaultIVA); err != nil {
		return inv, nil, err
	}

	inv.ServiceConcept = strings.TrimSpace(in.Concept)
	inv.ServiceType = strings.TrimSpace(in.ServiceType)

	if inv.Extras.CostCenter, err = parseAccount("cc", in.CostCenter); err != nil {
		return inv, nil, err
	}
	if inv.Extras.GLAccount, err = parseAccount("gl", in.GLAccount); err != nil {
		return inv, nil, err
	}
	inv.Extras.CustomConcept = strings.TrimSpace(in.CustomConcept)

	inv.Extras.BandwidthMbps = softInt("bandwidth", in.Bandwidth, &warnings)
	inv.Extras.SipChannels = softInt("channels", in.Channels, &warnings)
	inv.Extras.SBCSiptrunkMbps = softInt("sbc-mbps", in.SBCMbps, &warnings)
	inv.Extras.SBCLicenceQty = softInt("sbc-licences", in.SBCLicences, &warnings)
	inv.Extras.SBCSiptrunkPrice = softPrice("sbc-siptrunk-price", in.SBCSiptrunkPrice, &warnings)
	inv.Extras.SBCLicencePrice = softPrice("sbc-licence-price", in.SBCLicencePrice, &warnings)
	inv.Extras.PhoneLines = softInt("phone-lines", in.PhoneLines, &warnings)

	if inv.AllocMode, inv.Allocations, err = parseSplits(in.SplitMode, in.Splits); err != nil {
		return inv, nil, err
	}

	return inv, warnings, nil
}

// parseAccount parses an optional positive integer code.
func parseAccount(field, raw string) (*int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return nil, &money.ValidationError{Field: field, Value: raw, Message: "must be a positive integer"}
	}
	return &n, nil
}

func softInt(flag, raw string, warnings *[]string) *int {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		*warnings = append(*warnings, fmt.Sprintf("--%s %q is not a valid quantity, using the vendor default", flag, raw))
		return nil
	}
	return &n
}

func softPrice(flag, raw string, warnings *[]string) *decimal.Decimal {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	d, err := money.ParseDecimal(raw, flag)
	if err != nil || d.IsNegative() {
		*warnings = append(*warnings, fmt.Sprintf("--%s %q is not a valid price, using the vendor default", flag, raw))
		return nil
	}
	return &d
}

// parseSplits reads --split-mode and the cc:gl:value[:concept] split lines.
// Splits without a mode are percentages.
func parseSplits(rawMode string, splits []string) (models.AllocMode, []models.Allocation, error) {
	mode := models.AllocMode(strings.ToLower(strings.TrimSpace(rawMode)))
	if len(splits) == 0 {
		if mode != models.AllocNone && mode != models.AllocPercent && mode != models.AllocAmount {
			return "", nil, &money.ValidationError{Field: "split-mode", Value: rawMode, Message: "must be percent or amount"}
		}
		return models.AllocNone, nil, nil
	}

	switch mode {
	case models.AllocNone:
		mode = models.AllocPercent
	case models.AllocPercent, models.AllocAmount:
	default:
		return "", nil, &money.ValidationError{Field: "split-mode", Value: rawMode, Message: "must be percent or amount"}
	}

	allocations := make([]models.Allocation, 0, len(splits))
	for _, raw := range splits {
		a, err := parseSplit(raw, mode)
		if err != nil {
			return "", nil, err
		}
		allocations = append(allocations, a)
	}
	return mode, allocations, nil
}

func parseSplit(raw string, mode models.AllocMode) (models.Allocation, error) {
	parts := strings.SplitN(raw, ":", 4)
	if len(parts) < 3 {
		return models.Allocation{}, &money.ValidationError{Field: "split", Value: raw, Message: "expected cc:gl:value[:concept]"}
	}

	cc, err := parseAccount("split cc", parts[0])
	if err != nil {
		return models.Allocation{}, err
	}
	gl, err := parseAccount("split gl", parts[1])
	if err != nil {
		return models.Allocation{}, err
	}
	if cc == nil || gl == nil {
		return models.Allocation{}, &money.ValidationError{Field: "split", Value: raw, Message: "cc and gl are required"}
	}

	a := models.Allocation{CostCenter: *cc, GLAccount: *gl}
	if len(parts) == 4 {
		a.Concept = strings.TrimSpace(parts[3])
	}

	if mode == models.AllocPercent {
		if strings.TrimSpace(parts[2]) == "" {
			return models.Allocation{}, &money.ValidationError{Field: "split", Value: raw, Message: "percent must not be empty"}
		}
		if a.Percent, err = money.ParsePercent(parts[2]); err != nil {
			return models.Allocation{}, err
		}
		return a, nil
	}
	if a.Amount, err = money.ParseDecimal(parts[2], "split amount"); err != nil {
		return models.Allocation{}, err
	}
	return a, nil
}

// resolveVendorName fills in the vendor name from the ledger's vendor table
// when it was not given on the command line.
func resolveVendorName(cfg *config.Config, inv *models.Invoice) error {
	if inv.VendorName != "" {
		return nil
	}
	if cfg.LedgerPath != "" {
		vendors, err := ledger.LoadVendors(cfg.LedgerPath, cfg.VendorsSheet, cfg.VendorsTable)
		if err != nil {
			return fmt.Errorf("look up vendor %d: %w", inv.VendorID, err)
		}
		if name, ok := vendorName(vendors, inv.VendorID); ok {
			inv.VendorName = name
			return nil
		}
	}
	return &money.ValidationError{
		Field:   "vendor_name",
		Value:   inv.VendorID,
		Message: "vendor not found in the ledger, pass --vendor-name",
	}
}

func vendorName(vendors []ledger.Vendor, id int64) (string, bool) {
	for _, v := range vendors {
		if v.ID == id {
			return v.Name, true
		}
	}
	return "", false
}
