package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AllocMode selects how a custom split is expressed.
type AllocMode string

const (
	AllocNone    AllocMode = ""        // no custom split configured
	AllocPercent AllocMode = "percent" // Allocation.Percent on a 0-100 scale
	AllocAmount  AllocMode = "amount"  // Allocation.Amount in invoice currency
)

// Allocation is one requested split line of a custom split.
type Allocation struct {
	Concept    string          // Optional, falls back to the invoice concept
	CostCenter int64           // CC
	GLAccount  int64           // GL account
	Percent    decimal.Decimal // Used when the mode is AllocPercent
	Amount     decimal.Decimal // Used when the mode is AllocAmount
}

type Invoice struct {
	// Header
	Date       time.Time // Invoice date
	VendorID   int64     // Vendor ID as listed in the vendor table
	VendorName string    // Vendor display name
	BillNumber string    // 9-digit text key, see money.NormalizeBillNumber

	// Amounts
	Subtotal decimal.Decimal // Amount before tax, may be negative for credit notes
	IVARate  decimal.Decimal // Fractional tax rate (0.15 = 15%)

	// Rule selection
	ServiceConcept string // General concept, empty selects the vendor default
	ServiceType    string // Vendor sub-variant (e.g. siptrunk, sbc, mobile)

	// Vendor specific parameters
	Extras Extras

	// Custom split
	AllocMode   AllocMode
	Allocations []Allocation
}

// HasSplit reports whether the invoice carries a usable custom split.
func (inv Invoice) HasSplit() bool {
	return inv.AllocMode != AllocNone && len(inv.Allocations) > 0
}

// Extras holds the vendor specific parameters of an invoice. A nil field
// means "not supplied" and resolves to the vendor family default.
type Extras struct {
	// Single-line passthrough target
	CostCenter *int64
	GLAccount  *int64

	// Concept written on custom lines of vendors that use an explicit custom marker
	CustomConcept string

	BandwidthMbps *int // Cirion, Claro siptrunk
	SipChannels   *int // Claro siptrunk

	SBCSiptrunkMbps  *int             // Claro SBC
	SBCLicenceQty    *int             // Claro SBC
	SBCSiptrunkPrice *decimal.Decimal // Claro SBC, unit price
	SBCLicencePrice  *decimal.Decimal // Claro SBC, unit price

	PhoneLines *int // Movistar, Claro mobile
}

// IntOr returns *p, or def when p is nil.
func IntOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

// DecimalOr returns *p, or def when p is nil.
func DecimalOr(p *decimal.Decimal, def decimal.Decimal) decimal.Decimal {
	if p == nil {
		return def
	}
	return *p
}
