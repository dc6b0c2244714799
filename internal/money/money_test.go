package money

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestQuantize2(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.005", "1.01"},
		{"1.004", "1.00"},
		{"-1.005", "-1.01"},
		{"40", "40.00"},
		{"33.333333", "33.33"},
		{"0.125", "0.13"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Quantize2(dec(tt.in))
			assert.Equal(t, tt.want, got.StringFixed(2))
		})
	}
}

func TestQuantize2Idempotent(t *testing.T) {
	for i := -2000; i <= 2000; i += 7 {
		x := decimal.New(int64(i)*37, -4)
		once := Quantize2(x)
		assert.True(t, once.Equal(Quantize2(once)), "value %s", x)
	}
}

func TestTaxAndTotal(t *testing.T) {
	tax, total := TaxAndTotal(dec("40.00"), dec("0.15"))
	assert.Equal(t, "6.00", tax.StringFixed(2))
	assert.Equal(t, "46.00", total.StringFixed(2))

	tax, total = TaxAndTotal(dec("33.33"), dec("0.15"))
	assert.Equal(t, "5.00", tax.StringFixed(2))
	assert.Equal(t, "38.33", total.StringFixed(2))

	tax, total = TaxAndTotal(dec("-300.00"), dec("0.15"))
	assert.Equal(t, "-45.00", tax.StringFixed(2))
	assert.Equal(t, "-345.00", total.StringFixed(2))
}

func TestParsePercent(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"", "0.00", false},
		{"   ", "0.00", false},
		{"40", "40.00", false},
		{"40.91", "40.91", false},
		{"40,91", "40.91", false},
		{"40.91%", "40.91", false},
		{" 15 % ", "15.00", false},
		{"33.335", "33.34", false},
		{"abc", "", true},
		{"1.2.3", "", true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.raw), func(t *testing.T) {
			got, err := ParsePercent(tt.raw)
			if tt.wantErr {
				var vErr *ValidationError
				require.Error(t, err)
				assert.True(t, errors.As(err, &vErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.StringFixed(2))
		})
	}
}

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"100", "100.00", false},
		{"100.5", "100.50", false},
		{"100,5", "100.50", false},
		{"1.234,56", "1234.56", false},
		{"1,234.56", "1234.56", false},
		{"1 234,56", "1234.56", false},
		{"-45.005", "-45.01", false},
		{"+7", "7.00", false},
		{"", "", true},
		{"12a", "", true},
		{"--3", "", true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.raw), func(t *testing.T) {
			got, err := ParseDecimal(tt.raw, "Subtotal")
			if tt.wantErr {
				var vErr *ValidationError
				require.ErrorAs(t, err, &vErr)
				assert.Equal(t, "Subtotal", vErr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.StringFixed(2))
		})
	}
}

func TestParseIVA(t *testing.T) {
	def := dec("0.15")

	tests := []struct {
		raw  string
		want string
	}{
		{"", "0.1500"},
		{"0.12", "0.1200"},
		{"12", "0.1200"},
		{"12%", "0.1200"},
		{"15,5", "0.1550"},
		{"0", "0.0000"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.raw), func(t *testing.T) {
			got, err := ParseIVA(tt.raw, def)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.StringFixed(4))
		})
	}

	_, err := ParseIVA("x%", def)
	assert.Error(t, err)
}

func TestNormalizeBillNumber(t *testing.T) {
	got, err := NormalizeBillNumber("472")
	require.NoError(t, err)
	assert.Equal(t, "000000472", got)

	got, err = NormalizeBillNumber(" 123456789 ")
	require.NoError(t, err)
	assert.Equal(t, "123456789", got)

	for _, raw := range []string{"", "47a", "-12", "1234567890", "4 72"} {
		_, err := NormalizeBillNumber(raw)
		var vErr *ValidationError
		assert.ErrorAs(t, err, &vErr, "input %q", raw)
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2025-03-07")
	require.NoError(t, err)
	assert.Equal(t, 2025, got.Year())
	assert.Equal(t, 7, got.Day())

	_, err = ParseDate("07/03/2025")
	assert.Error(t, err)
}

func ExampleNormalizeBillNumber() {
	bill, _ := NormalizeBillNumber("472")
	fmt.Println(bill)
	// Output: 000000472
}
