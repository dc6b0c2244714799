package rules

import (
	"fmt"
	"regexp"
	"strings"

	"splitter/pkg/models"
)

// GenericConcept is the concept used by the fallback when none is given.
const GenericConcept = "Concepto personalizado"

const maxTableBaseLen = 50

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	nonIdentifier = regexp.MustCompile(`[^0-9A-Za-z_]`)
	underscoreRun = regexp.MustCompile(`_+`)
)

// GenericRule serves vendors without a dedicated rule. Every invoice is
// custom: a user split, or one line to the CC/GL pair in the extras.
type GenericRule struct{}

// BuildLines implements Strategy.
func (GenericRule) BuildLines(inv models.Invoice) ([]models.LineItem, error) {
	concept := strings.TrimSpace(inv.ServiceConcept)
	if concept == "" {
		concept = GenericConcept
	}
	return customLines(TableNameFor(inv.VendorName, inv.VendorID), inv, concept, nil)
}

// Tables implements Strategy. Fallback tables are named per vendor.
func (GenericRule) Tables() []TableSchema {
	return nil
}

// TableNameFor derives the fallback table of a vendor:
// <normalized name>_<vendor id>_table.
func TableNameFor(vendorName string, vendorID int64) string {
	base := whitespaceRun.ReplaceAllString(strings.TrimSpace(vendorName), "_")
	base = nonIdentifier.ReplaceAllString(base, "_")
	base = strings.Trim(underscoreRun.ReplaceAllString(base, "_"), "_")
	if base == "" {
		base = "Vendor"
	}
	if len(base) > maxTableBaseLen {
		base = strings.TrimRight(base[:maxTableBaseLen], "_")
	}
	return fmt.Sprintf("%s_%d_table", base, vendorID)
}
