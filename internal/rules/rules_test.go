package rules

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"splitter/internal/allocation"
	"splitter/internal/money"
	"splitter/pkg/models"
)

func invoice(vendorID int64, subtotal string) models.Invoice {
	return models.Invoice{
		Date:       time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC),
		VendorID:   vendorID,
		VendorName: "Vendor",
		BillNumber: "000000472",
		Subtotal:   d(subtotal),
		IVARate:    d("0.15"),
	}
}

func int64p(v int64) *int64 { return &v }
func intp(v int) *int       { return &v }

func subtotals(lines []models.LineItem) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Subtotal().StringFixed(2)
	}
	return out
}

func sumSubtotals(lines []models.LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

func cell(t *testing.T, l models.LineItem, header string) any {
	t.Helper()
	v, ok := l.Get(header)
	require.True(t, ok, "missing column %q", header)
	return v
}

func TestEikonStandardSplit(t *testing.T) {
	reg := NewRegistry()

	lines, err := reg.BuildLines(invoice(VendorEikon, "100.00"))
	require.NoError(t, err)
	require.Len(t, lines, 2)

	assert.Equal(t, []string{"60.00", "40.00"}, subtotals(lines))
	assert.Equal(t, "Eikon_table", lines[0].Table)
	assert.Equal(t, int64(7457036), cell(t, lines[0], models.HeaderCC))
	assert.Equal(t, int64(7980100000), cell(t, lines[0], models.HeaderGLAccount))
	assert.Equal(t, "Infrastructure cloud (Monthly)", cell(t, lines[0], models.HeaderConcept))
	assert.Equal(t, "9.00", lines[0].IVA().StringFixed(2))
	assert.Equal(t, "69.00", lines[0].Total().StringFixed(2))
	assert.Equal(t, models.BaseHeaders(), lines[0].Headers())
}

func TestEikonSingleLineConcepts(t *testing.T) {
	reg := NewRegistry()

	tests := []struct {
		concept string
		cc      int64
	}{
		{"Azure Consumptions (biannual)", 7475036},
		{"Maintenance and support (annual)", 1100036},
		{"Domains (annual)", 7475036},
	}

	for _, tt := range tests {
		t.Run(tt.concept, func(t *testing.T) {
			inv := invoice(VendorEikon, "250.55")
			inv.ServiceConcept = tt.concept

			lines, err := reg.BuildLines(inv)
			require.NoError(t, err)
			require.Len(t, lines, 1)
			assert.Equal(t, tt.cc, cell(t, lines[0], models.HeaderCC))
			assert.Equal(t, "250.55", lines[0].Subtotal().StringFixed(2))
		})
	}
}

func TestStandardScheduleRoundTrip(t *testing.T) {
	reg := NewRegistry()

	for _, id := range []int64{VendorEikon, VendorAkros, VendorSipbox, VendorPuntonet, VendorCirion, VendorMovistar} {
		lines, err := reg.BuildLines(invoice(id, "100.00"))
		require.NoError(t, err)
		assert.True(t, sumSubtotals(lines).Equal(d("100.00")), "vendor %d", id)
	}

	akros, err := reg.BuildLines(invoice(VendorAkros, "100.00"))
	require.NoError(t, err)
	assert.Equal(t, []string{"40.00", "60.00"}, subtotals(akros))
}

func TestStandardScheduleReconcilesLastLine(t *testing.T) {
	reg := NewRegistry()
	inv := invoice(VendorClaro, "33.33")
	inv.ServiceType = ServiceMobile

	lines, err := reg.BuildLines(inv)
	require.NoError(t, err)

	// raw prices 13.64 + 5.21 + 9.47 + 5.02 = 33.34, last line absorbs -0.01
	assert.Equal(t, []string{"13.64", "5.21", "9.47", "5.01"}, subtotals(lines))

	tax, total := money.TaxAndTotal(d("5.01"), d("0.15"))
	assert.True(t, lines[3].IVA().Equal(tax))
	assert.True(t, lines[3].Total().Equal(total))
}

func TestSchedulesAlwaysSumToSubtotal(t *testing.T) {
	reg := NewRegistry()
	rng := rand.New(rand.NewSource(1))

	type target struct {
		vendor      int64
		serviceType string
	}
	targets := []target{
		{VendorEikon, ""}, {VendorAkros, ""}, {VendorSipbox, ""}, {VendorPuntonet, ""},
		{VendorCirion, ""}, {VendorMovistar, ""},
		{VendorClaro, ServiceSiptrunk}, {VendorClaro, ServiceSBC}, {VendorClaro, ServiceMobile},
	}

	for i := 0; i < 300; i++ {
		subtotal := decimal.New(rng.Int63n(2_000_000)-1_000_000, -2)
		for _, tg := range targets {
			inv := invoice(tg.vendor, "0")
			inv.Subtotal = subtotal
			inv.ServiceType = tg.serviceType

			lines, err := reg.BuildLines(inv)
			require.NoError(t, err)
			assert.True(t, sumSubtotals(lines).Equal(subtotal),
				"vendor %d %s subtotal %s sum %s", tg.vendor, tg.serviceType, subtotal, sumSubtotals(lines))
		}
	}
}

func TestScheduleDriftIsBounded(t *testing.T) {
	schedules := map[string]Schedule{
		"siptrunk": claroSiptrunk().(ScheduleRule).Schedules["Claro Siptrunk"],
		"mobile":   claroMobile().(ScheduleRule).Schedules["2 lines 50 GB + 3 lines 20 GB"],
	}
	rng := rand.New(rand.NewSource(99))

	for name, s := range schedules {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 2000; i++ {
				subtotal := decimal.New(rng.Int63n(10_000_000)-5_000_000, -2)
				amounts := s.Amounts(subtotal)

				base := subtotal
				for j, f := range s.Fixed {
					assert.True(t, amounts[j].Abs().Equal(f.Amount), "fixed lines keep their magnitude")
					base = base.Sub(amounts[j])
				}

				offset := len(s.Fixed)
				last := len(s.Lines) - 1
				for j, l := range s.Lines {
					raw := money.PercentOf(base, l.Percent)
					drift := amounts[offset+j].Sub(raw).Abs()
					if j < last {
						assert.True(t, drift.IsZero(), "only the last line moves")
						continue
					}
					assert.True(t, drift.LessThanOrEqual(d("0.02")),
						"subtotal %s drift %s", subtotal, drift)
				}
			}
		})
	}
}

func TestClaroSiptrunk(t *testing.T) {
	reg := NewRegistry()

	t.Run("positive", func(t *testing.T) {
		inv := invoice(VendorClaro, "1000.00")
		inv.ServiceType = "SIPTRUNK "

		lines, err := reg.BuildLines(inv)
		require.NoError(t, err)
		require.Len(t, lines, 7)
		assert.Equal(t, []string{"300.00", "200.00", "185.00", "55.00", "160.00", "75.00", "25.00"}, subtotals(lines))
		assert.Equal(t, "Claro_siptrunk_table", lines[0].Table)
		assert.Equal(t, "CONECEL (Internet 50 Mbps) - SD WAN", cell(t, lines[0], models.HeaderConcept))
		assert.Equal(t, "Consumos SIP Trunk - Claro ECUADOR", cell(t, lines[6], models.HeaderConcept))
		assert.Equal(t, 50, cell(t, lines[0], HeaderBandwidth))
		assert.Equal(t, 10, cell(t, lines[6], HeaderSipChannels))
	})

	t.Run("credit note", func(t *testing.T) {
		inv := invoice(VendorClaro, "-1000.00")
		inv.ServiceType = ServiceSiptrunk

		lines, err := reg.BuildLines(inv)
		require.NoError(t, err)
		assert.Equal(t, []string{"-300.00", "-200.00", "-185.00", "-55.00", "-160.00", "-75.00", "-25.00"}, subtotals(lines))
	})

	t.Run("remainder below fixed lines", func(t *testing.T) {
		inv := invoice(VendorClaro, "333.33")
		inv.ServiceType = ServiceSiptrunk

		lines, err := reg.BuildLines(inv)
		require.NoError(t, err)
		assert.Equal(t, []string{"300.00", "200.00", "-61.67", "-18.33", "-53.33", "-25.00", "-8.34"}, subtotals(lines))
		assert.True(t, sumSubtotals(lines).Equal(d("333.33")))
	})

	t.Run("extras override defaults", func(t *testing.T) {
		inv := invoice(VendorClaro, "1000.00")
		inv.ServiceType = ServiceSiptrunk
		inv.Extras.BandwidthMbps = intp(100)
		inv.Extras.SipChannels = intp(30)

		lines, err := reg.BuildLines(inv)
		require.NoError(t, err)
		for _, l := range lines {
			assert.Equal(t, 100, cell(t, l, HeaderBandwidth))
			assert.Equal(t, 30, cell(t, l, HeaderSipChannels))
		}
	})
}

func TestClaroSBCPricesFollowSign(t *testing.T) {
	reg := NewRegistry()
	inv := invoice(VendorClaro, "-100.00")
	inv.ServiceType = ServiceSBC
	inv.ServiceConcept = "anything but the marker"

	lines, err := reg.BuildLines(inv)
	require.NoError(t, err)
	require.Len(t, lines, 2)

	assert.Equal(t, []string{"-60.00", "-40.00"}, subtotals(lines))
	assert.Equal(t, "SBC in cloud", cell(t, lines[0], models.HeaderConcept))
	assert.Equal(t, "-80.00", cell(t, lines[0], HeaderSBCSipPrice).(decimal.Decimal).StringFixed(2))
	assert.Equal(t, "-266.00", cell(t, lines[1], HeaderSBCLicPrice).(decimal.Decimal).StringFixed(2))
	assert.Equal(t, 2, cell(t, lines[0], HeaderSBCSiptrunk))
	assert.Equal(t, 14, cell(t, lines[0], HeaderSBCLicences))
}

func TestClaroServiceTypeRequired(t *testing.T) {
	reg := NewRegistry()

	for _, st := range []string{"", "fiber"} {
		inv := invoice(VendorClaro, "10.00")
		inv.ServiceType = st

		_, err := reg.BuildLines(inv)
		assert.ErrorIs(t, err, ErrInvalidServiceType)

		var stErr *InvalidServiceTypeError
		require.ErrorAs(t, err, &stErr)
		assert.Equal(t, []string{ServiceSiptrunk, ServiceSBC, ServiceMobile}, stErr.Allowed)
	}
}

func TestClaroCustomMarker(t *testing.T) {
	reg := NewRegistry()

	t.Run("split with fallback concept", func(t *testing.T) {
		inv := invoice(VendorClaro, "90.00")
		inv.ServiceType = ServiceMobile
		inv.ServiceConcept = CustomMarker
		inv.AllocMode = models.AllocAmount
		inv.Allocations = []models.Allocation{
			{CostCenter: 1, GLAccount: 10, Amount: d("30")},
			{CostCenter: 2, GLAccount: 20, Amount: d("60"), Concept: "Roaming"},
		}

		lines, err := reg.BuildLines(inv)
		require.NoError(t, err)
		require.Len(t, lines, 2)
		assert.Equal(t, "Claro_mobile_table", lines[0].Table)
		assert.Equal(t, "Claro Mobile - Custom", cell(t, lines[0], models.HeaderConcept))
		assert.Equal(t, "Roaming", cell(t, lines[1], models.HeaderConcept))
		assert.Equal(t, 5, cell(t, lines[1], HeaderPhoneLines))
	})

	t.Run("single line with custom concept", func(t *testing.T) {
		inv := invoice(VendorClaro, "90.00")
		inv.ServiceType = ServiceSiptrunk
		inv.ServiceConcept = CustomMarker
		inv.Extras.CustomConcept = "Extra trunk"
		inv.Extras.CostCenter = int64p(7475036)
		inv.Extras.GLAccount = int64p(7648100000)

		lines, err := reg.BuildLines(inv)
		require.NoError(t, err)
		require.Len(t, lines, 1)
		assert.Equal(t, "Extra trunk", cell(t, lines[0], models.HeaderConcept))
		assert.Equal(t, "90.00", lines[0].Subtotal().StringFixed(2))
	})
}

func TestCustomConcept(t *testing.T) {
	reg := NewRegistry()

	t.Run("missing account", func(t *testing.T) {
		inv := invoice(VendorEikon, "10.00")
		inv.ServiceConcept = "Licences"
		inv.Extras.CostCenter = int64p(1)

		_, err := reg.BuildLines(inv)
		assert.ErrorIs(t, err, ErrMissingAccount)

		var maErr *MissingAccountError
		require.ErrorAs(t, err, &maErr)
		assert.Equal(t, "Eikon_table", maErr.Table)
	})

	t.Run("split keeps vendor extras", func(t *testing.T) {
		inv := invoice(VendorCirion, "100.00")
		inv.ServiceConcept = "Dark fiber"
		inv.AllocMode = models.AllocPercent
		inv.Allocations = []models.Allocation{
			{CostCenter: 1, GLAccount: 10, Percent: d("50")},
			{CostCenter: 2, GLAccount: 20, Percent: d("50")},
		}

		lines, err := reg.BuildLines(inv)
		require.NoError(t, err)
		require.Len(t, lines, 2)
		for _, l := range lines {
			assert.Equal(t, "Dark fiber", cell(t, l, models.HeaderConcept))
			assert.Equal(t, 40, cell(t, l, HeaderBandwidth))
		}
	})

	t.Run("reconciliation error propagates", func(t *testing.T) {
		inv := invoice(VendorCirion, "100.00")
		inv.ServiceConcept = "Dark fiber"
		inv.AllocMode = models.AllocPercent
		inv.Allocations = []models.Allocation{{CostCenter: 1, GLAccount: 10, Percent: d("90")}}

		_, err := reg.BuildLines(inv)
		var recErr *allocation.ReconciliationError
		assert.ErrorAs(t, err, &recErr)
	})
}

func TestGenericFallback(t *testing.T) {
	reg := NewRegistry()
	inv := invoice(42, "80.00")
	inv.VendorName = "Acme Corp, S.A."
	inv.Extras.CostCenter = int64p(1100036)
	inv.Extras.GLAccount = int64p(7418000000)

	lines, err := reg.BuildLines(inv)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "Acme_Corp_S_A_42_table", lines[0].Table)
	assert.Equal(t, GenericConcept, cell(t, lines[0], models.HeaderConcept))

	inv.Extras = models.Extras{}
	_, err = reg.BuildLines(inv)
	assert.ErrorIs(t, err, ErrMissingAccount)
}

func TestTableNameFor(t *testing.T) {
	long := ""
	for i := 0; i < 60; i++ {
		long += "a"
	}

	tests := []struct {
		name string
		want string
	}{
		{"Acme Corp, S.A.", "Acme_Corp_S_A_42_table"},
		{"  ", "Vendor_42_table"},
		{"__Surti__", "Surti_42_table"},
		{"Telefónica", "Telef_nica_42_table"},
		{long, long[:50] + "_42_table"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TableNameFor(tt.name, 42))
		})
	}
}

func TestRegistryUnknownVendor(t *testing.T) {
	_, err := NewRegistry().BuildLines(invoice(0, "1.00"))
	assert.True(t, errors.Is(err, ErrUnknownVendorRule))

	_, err = NewRegistry(WithFallback(nil)).BuildLines(invoice(77, "1.00"))
	assert.ErrorIs(t, err, ErrUnknownVendorRule)
}

func TestRegistryWithRule(t *testing.T) {
	custom := ScheduleRule{
		Table:          "Surti_table",
		DefaultConcept: "Supplies",
		Schedules:      map[string]Schedule{"Supplies": full(1100036, 5100000000)},
		Extras:         []ExtraColumn{phoneLines(3)},
	}
	reg := NewRegistry(WithRule(9999999, custom))

	lines, err := reg.BuildLines(invoice(9999999, "12.34"))
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "Surti_table", lines[0].Table)
	assert.Contains(t, reg.VendorIDs(), int64(9999999))
	assert.Equal(t, append(models.BaseHeaders(), HeaderPhoneLines), reg.HeadersFor("Surti_table"))
}

func TestHeadersFor(t *testing.T) {
	reg := NewRegistry()

	assert.Equal(t, append(models.BaseHeaders(), HeaderBandwidth), reg.HeadersFor("Cirion_table"))
	assert.Equal(t,
		append(models.BaseHeaders(), HeaderSBCSiptrunk, HeaderSBCLicences, HeaderSBCSipPrice, HeaderSBCLicPrice),
		reg.HeadersFor("Claro_SBC_table"))
	assert.Equal(t, models.BaseHeaders(), reg.HeadersFor("Acme_42_table"))
}

func TestScheduleRuleConcepts(t *testing.T) {
	concepts := eikon().(ScheduleRule).Concepts()
	assert.Equal(t, []string{
		"Infrastructure cloud (Monthly)",
		"Azure Consumptions (biannual)",
		"Domains (annual)",
		"Maintenance and support (annual)",
	}, concepts)
}

func ExampleRegistry_BuildLines() {
	reg := NewRegistry()
	lines, err := reg.BuildLines(models.Invoice{
		Date:       time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC),
		VendorID:   VendorCirion,
		VendorName: "CIRION",
		BillNumber: "000000472",
		Subtotal:   decimal.RequireFromString("120.00"),
		IVARate:    decimal.RequireFromString("0.15"),
	})
	if err != nil {
		fmt.Println(err)
		return
	}
	for _, l := range lines {
		cc, _ := l.Get(models.HeaderCC)
		fmt.Println(l.Table, cc, l.Subtotal().StringFixed(2), l.Total().StringFixed(2))
	}
	// Output:
	// Cirion_table 7475036 72.00 82.80
	// Cirion_table 3941036 48.00 55.20
}
