package rules

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"splitter/internal/allocation"
	"splitter/internal/money"
	"splitter/pkg/models"
)

// FixedLine is a schedule line with a fixed magnitude. The written amount
// takes the sign of the invoice subtotal.
type FixedLine struct {
	Concept    string
	CostCenter int64
	GLAccount  int64
	Amount     decimal.Decimal
}

// PercentLine is a schedule line taking a percentage of the remainder left
// after fixed lines.
type PercentLine struct {
	Concept    string
	CostCenter int64
	GLAccount  int64
	Percent    decimal.Decimal // 0-100
}

// Schedule is a hardcoded split. Line concepts default to the concept the
// schedule is registered under.
type Schedule struct {
	Fixed []FixedLine
	Lines []PercentLine
}

// Amounts prices the schedule for subtotal, fixed lines first. Percent lines
// are reconciled against the remainder, then all lines against subtotal;
// both passes nudge the last line.
func (s Schedule) Amounts(subtotal decimal.Decimal) []decimal.Decimal {
	sign := decimal.NewFromInt(1)
	if subtotal.IsNegative() {
		sign = sign.Neg()
	}

	fixed := make([]decimal.Decimal, len(s.Fixed))
	for i, f := range s.Fixed {
		fixed[i] = money.Quantize2(f.Amount.Abs().Mul(sign))
	}

	base := money.Quantize2(subtotal.Sub(money.Sum(fixed...)))
	variable := make([]decimal.Decimal, len(s.Lines))
	for i, l := range s.Lines {
		variable[i] = money.PercentOf(base, l.Percent)
	}
	allocation.ReconcileLast(base, variable)

	amounts := make([]decimal.Decimal, 0, len(fixed)+len(variable))
	amounts = append(amounts, fixed...)
	amounts = append(amounts, variable...)
	allocation.ReconcileLast(subtotal, amounts)
	return amounts
}

// ScheduleRule serves a vendor family writing to one table. A concept with a
// registered Schedule takes the standard split; any other concept is custom.
// When CustomMarker is set only that concept is custom and every other
// concept takes the DefaultConcept schedule.
type ScheduleRule struct {
	Table          string
	DefaultConcept string
	Schedules      map[string]Schedule

	CustomMarker   string
	CustomFallback string // concept for custom lines when CustomMarker is set

	Extras []ExtraColumn
}

// BuildLines implements Strategy.
func (r ScheduleRule) BuildLines(inv models.Invoice) ([]models.LineItem, error) {
	concept := strings.TrimSpace(inv.ServiceConcept)
	if concept == "" {
		concept = r.DefaultConcept
	}
	extras := resolveExtras(inv, r.Extras)

	if r.CustomMarker != "" {
		if concept == r.CustomMarker {
			general := strings.TrimSpace(inv.Extras.CustomConcept)
			if general == "" {
				general = r.CustomFallback
			}
			return customLines(r.Table, inv, general, extras)
		}
		return r.standard(inv, r.DefaultConcept, r.Schedules[r.DefaultConcept], extras), nil
	}

	schedule, ok := r.Schedules[concept]
	if !ok {
		return customLines(r.Table, inv, concept, extras)
	}
	return r.standard(inv, concept, schedule, extras), nil
}

func (r ScheduleRule) standard(inv models.Invoice, concept string, s Schedule, extras []models.Cell) []models.LineItem {
	amounts := s.Amounts(inv.Subtotal)
	lines := make([]models.LineItem, 0, len(amounts))

	for i, f := range s.Fixed {
		lines = append(lines, newLine(r.Table, inv, conceptOr(f.Concept, concept), f.CostCenter, f.GLAccount, amounts[i], extras))
	}
	offset := len(s.Fixed)
	for i, l := range s.Lines {
		lines = append(lines, newLine(r.Table, inv, conceptOr(l.Concept, concept), l.CostCenter, l.GLAccount, amounts[offset+i], extras))
	}
	return lines
}

// Tables implements Strategy.
func (r ScheduleRule) Tables() []TableSchema {
	return []TableSchema{{Name: r.Table, Headers: headersWith(r.Extras)}}
}

// Concepts lists the standard concepts, default first.
func (r ScheduleRule) Concepts() []string {
	concepts := []string{r.DefaultConcept}
	for c := range r.Schedules {
		if c != r.DefaultConcept {
			concepts = append(concepts, c)
		}
	}
	sort.Strings(concepts[1:])
	return concepts
}

func conceptOr(concept, fallback string) string {
	if concept == "" {
		return fallback
	}
	return concept
}
