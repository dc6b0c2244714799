package rules

import (
	"github.com/shopspring/decimal"

	"splitter/pkg/models"
)

// Vendor IDs with dedicated rules.
const (
	VendorEikon    int64 = 1255097
	VendorAkros    int64 = 1255036
	VendorSipbox   int64 = 1274957
	VendorPuntonet int64 = 1261182
	VendorCirion   int64 = 1254926
	VendorMovistar int64 = 1260177
	VendorClaro    int64 = 1254902
)

// CustomMarker is the concept that selects a custom split for vendors that
// keep their standard split for every other concept.
const CustomMarker = "Otro (personalizado)"

// Extra column headers.
const (
	HeaderBandwidth   = "Bandwidth (MBPS)"
	HeaderSipChannels = "Troncal SIP (channels)"
	HeaderPhoneLines  = "Phone lines quantity"
	HeaderSBCSiptrunk = "Siptrunk (MBPS)"
	HeaderSBCLicences = "Licences (Quantity)"
	HeaderSBCSipPrice = "Siptrunk price"
	HeaderSBCLicPrice = "Licences price"
)

// Claro service types.
const (
	ServiceSiptrunk = "siptrunk"
	ServiceSBC      = "sbc"
	ServiceMobile   = "mobile"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func full(cc, gl int64) Schedule {
	return Schedule{Lines: []PercentLine{{CostCenter: cc, GLAccount: gl, Percent: d("100")}}}
}

func bandwidth(def int) ExtraColumn {
	return IntExtra(HeaderBandwidth, def, func(e models.Extras) *int { return e.BandwidthMbps })
}

func phoneLines(def int) ExtraColumn {
	return IntExtra(HeaderPhoneLines, def, func(e models.Extras) *int { return e.PhoneLines })
}

func eikon() Strategy {
	const gl = 7980100000
	return ScheduleRule{
		Table:          "Eikon_table",
		DefaultConcept: "Infrastructure cloud (Monthly)",
		Schedules: map[string]Schedule{
			"Infrastructure cloud (Monthly)": {Lines: []PercentLine{
				{CostCenter: 7457036, GLAccount: gl, Percent: d("60")},
				{CostCenter: 7475036, GLAccount: gl, Percent: d("40")},
			}},
			"Azure Consumptions (biannual)":    full(7475036, gl),
			"Maintenance and support (annual)": full(1100036, gl),
			"Domains (annual)":                 full(7475036, gl),
		},
	}
}

func akros() Strategy {
	return ScheduleRule{
		Table:          "Akros_bills_table",
		DefaultConcept: "Printers & Copiers",
		Schedules: map[string]Schedule{
			"Printers & Copiers": {Lines: []PercentLine{
				{CostCenter: 3941036, GLAccount: 3526200000, Percent: d("40")},
				{CostCenter: 7475036, GLAccount: 7427000000, Percent: d("60")},
			}},
		},
	}
}

func sipbox() Strategy {
	return ScheduleRule{
		Table:          "Sipbox_table",
		DefaultConcept: "Lenovo ThinkSmartHub + Stem speaker + POE switch",
		Schedules: map[string]Schedule{
			"Lenovo ThinkSmartHub + Stem speaker + POE switch": full(7475036, 7648100000),
		},
	}
}

func puntonet() Strategy {
	return ScheduleRule{
		Table:          "Puntonet_table",
		DefaultConcept: "40 MBPS",
		Schedules: map[string]Schedule{
			"40 MBPS": full(1100036, 7418000000),
		},
	}
}

func cirion() Strategy {
	return ScheduleRule{
		Table:          "Cirion_table",
		DefaultConcept: "Internet",
		Schedules: map[string]Schedule{
			"Internet": {Lines: []PercentLine{
				{CostCenter: 7475036, GLAccount: 7418000000, Percent: d("60")},
				{CostCenter: 3941036, GLAccount: 3526400000, Percent: d("40")},
			}},
		},
		Extras: []ExtraColumn{bandwidth(40)},
	}
}

func movistar() Strategy {
	const concept = "10 lines DRP (4 lines 35 GB + 6 lines 53 GB)"
	return ScheduleRule{
		Table:          "Movistar_table",
		DefaultConcept: concept,
		Schedules: map[string]Schedule{
			concept: {Lines: []PercentLine{
				{CostCenter: 7475036, GLAccount: 4649000000, Percent: d("60")},
				{CostCenter: 3941036, GLAccount: 3649000000, Percent: d("40")},
			}},
		},
		Extras: []ExtraColumn{phoneLines(10)},
	}
}

func claroSiptrunk() Strategy {
	const (
		sdwan = "CONECEL (Internet 50 Mbps) - SD WAN"
		sip   = "Consumos SIP Trunk - Claro ECUADOR"
	)
	return ScheduleRule{
		Table:          "Claro_siptrunk_table",
		DefaultConcept: "Claro Siptrunk",
		Schedules: map[string]Schedule{
			"Claro Siptrunk": {
				Fixed: []FixedLine{
					{Concept: sdwan, CostCenter: 7475036, GLAccount: 7418000000, Amount: d("300.00")},
					{Concept: sdwan, CostCenter: 3941036, GLAccount: 3526400000, Amount: d("200.00")},
				},
				Lines: []PercentLine{
					{Concept: sip, CostCenter: 7000036, GLAccount: 7648100000, Percent: d("37")},
					{Concept: sip, CostCenter: 7100036, GLAccount: 7648100000, Percent: d("11")},
					{Concept: sip, CostCenter: 7300036, GLAccount: 7648100000, Percent: d("32")},
					{Concept: sip, CostCenter: 3941036, GLAccount: 3648000000, Percent: d("15")},
					{Concept: sip, CostCenter: 7475036, GLAccount: 7648100000, Percent: d("5")},
				},
			},
		},
		CustomMarker:   CustomMarker,
		CustomFallback: "Claro Siptrunk - Custom",
		Extras: []ExtraColumn{
			bandwidth(50),
			IntExtra(HeaderSipChannels, 10, func(e models.Extras) *int { return e.SipChannels }),
		},
	}
}

func claroSBC() Strategy {
	return ScheduleRule{
		Table:          "Claro_SBC_table",
		DefaultConcept: "SBC in cloud",
		Schedules: map[string]Schedule{
			"SBC in cloud": {Lines: []PercentLine{
				{CostCenter: 7475036, GLAccount: 7648100000, Percent: d("60")},
				{CostCenter: 3941036, GLAccount: 3648000000, Percent: d("40")},
			}},
		},
		CustomMarker:   CustomMarker,
		CustomFallback: "SBC - Custom",
		Extras: []ExtraColumn{
			IntExtra(HeaderSBCSiptrunk, 2, func(e models.Extras) *int { return e.SBCSiptrunkMbps }),
			IntExtra(HeaderSBCLicences, 14, func(e models.Extras) *int { return e.SBCLicenceQty }),
			SignedPriceExtra(HeaderSBCSipPrice, d("80"), func(e models.Extras) *decimal.Decimal { return e.SBCSiptrunkPrice }),
			SignedPriceExtra(HeaderSBCLicPrice, d("266"), func(e models.Extras) *decimal.Decimal { return e.SBCLicencePrice }),
		},
	}
}

func claroMobile() Strategy {
	const concept = "2 lines 50 GB + 3 lines 20 GB"
	return ScheduleRule{
		Table:          "Claro_mobile_table",
		DefaultConcept: concept,
		Schedules: map[string]Schedule{
			concept: {Lines: []PercentLine{
				{CostCenter: 7300036, GLAccount: 4649000000, Percent: d("40.91")},
				{CostCenter: 7410036, GLAccount: 4649000000, Percent: d("15.63")},
				{CostCenter: 3941036, GLAccount: 3649000000, Percent: d("28.41")},
				{CostCenter: 7475036, GLAccount: 4649000000, Percent: d("15.05")},
			}},
		},
		CustomMarker:   CustomMarker,
		CustomFallback: "Claro Mobile - Custom",
		Extras:         []ExtraColumn{phoneLines(5)},
	}
}

func claro() Strategy {
	return ServiceTypeRule{Variants: []Variant{
		{Name: ServiceSiptrunk, Strategy: claroSiptrunk()},
		{Name: ServiceSBC, Strategy: claroSBC()},
		{Name: ServiceMobile, Strategy: claroMobile()},
	}}
}

// builtinRules returns the dedicated vendor rules.
func builtinRules() map[int64]Strategy {
	return map[int64]Strategy{
		VendorEikon:    eikon(),
		VendorAkros:    akros(),
		VendorSipbox:   sipbox(),
		VendorPuntonet: puntonet(),
		VendorCirion:   cirion(),
		VendorMovistar: movistar(),
		VendorClaro:    claro(),
	}
}
