// Package money holds the fixed-point helpers used for every monetary value:
// quantization, tax computation and parsing of operator input.
package money

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BillNumberDigits is the width bill numbers are zero-padded to.
const BillNumberDigits = 9

// DateLayout is the accepted input layout for invoice dates.
const DateLayout = "2006-01-02"

var (
	hundred       = decimal.NewFromInt(100)
	numberPattern = regexp.MustCompile(`^[+-]?\d+(\.\d+)?$`)
)

// Quantize2 rounds x to 2 fractional digits, half away from zero.
func Quantize2(x decimal.Decimal) decimal.Decimal {
	return x.Round(2)
}

// TaxAndTotal returns the tax on subtotal at rate and the resulting total,
// both quantized.
func TaxAndTotal(subtotal, rate decimal.Decimal) (tax, total decimal.Decimal) {
	tax = Quantize2(subtotal.Mul(rate))
	total = Quantize2(subtotal.Add(tax))
	return tax, total
}

// PercentOf returns quantize2(base * pct / 100).
func PercentOf(base, pct decimal.Decimal) decimal.Decimal {
	return Quantize2(base.Mul(pct).Div(hundred))
}

// Sum adds values and quantizes the result.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return Quantize2(total)
}

// ParsePercent parses "40", "40.91", "40,91" or "40.91%" into a 0-100 scale
// percentage quantized to 2 places. Empty input is zero.
func ParsePercent(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, nil
	}
	s = strings.TrimSpace(strings.ReplaceAll(s, "%", ""))
	s = strings.ReplaceAll(s, ",", ".")
	if !numberPattern.MatchString(s) {
		return decimal.Zero, &ValidationError{Field: "percent", Value: raw, Message: "not a valid percentage"}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &ValidationError{Field: "percent", Value: raw, Message: err.Error()}
	}
	return Quantize2(d), nil
}

// ParseDecimal parses an operator-entered amount. Both "," and "." are
// accepted as decimal separator; when both appear the right-most one is the
// decimal separator and the other is a thousands separator.
func ParseDecimal(raw, field string) (decimal.Decimal, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
	if s == "" {
		return decimal.Zero, &ValidationError{Field: field, Value: raw, Message: "must not be empty"}
	}

	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")
	switch {
	case hasComma && hasDot:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasComma:
		s = strings.ReplaceAll(s, ",", ".")
	}

	if !numberPattern.MatchString(s) {
		return decimal.Zero, &ValidationError{Field: field, Value: raw, Message: "invalid number format"}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &ValidationError{Field: field, Value: raw, Message: err.Error()}
	}
	return Quantize2(d), nil
}

// ParseIVA parses a tax rate given as "0.15", "15" or "15%". Values above 1
// are read as percentages. Empty input returns def.
func ParseIVA(raw string, def decimal.Decimal) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return def, nil
	}
	d, err := ParseDecimal(strings.ReplaceAll(s, "%", ""), "IVA")
	if err != nil {
		return decimal.Zero, err
	}
	if d.GreaterThan(decimal.NewFromInt(1)) {
		d = d.Div(hundred)
	}
	return d.Round(4), nil
}

// NormalizeBillNumber validates a bill number and zero-pads it to 9 digits.
func NormalizeBillNumber(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", &ValidationError{Field: "bill_number", Value: raw, Message: "must not be empty"}
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", &ValidationError{Field: "bill_number", Value: raw, Message: "must contain digits only"}
		}
	}
	if len(s) > BillNumberDigits {
		return "", &ValidationError{
			Field:   "bill_number",
			Value:   raw,
			Message: fmt.Sprintf("must not exceed %d digits", BillNumberDigits),
		}
	}
	return strings.Repeat("0", BillNumberDigits-len(s)) + s, nil
}

// ParseDate parses an invoice date in YYYY-MM-DD form.
func ParseDate(raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, &ValidationError{Field: "date", Value: raw, Message: "expected YYYY-MM-DD"}
	}
	return t, nil
}
