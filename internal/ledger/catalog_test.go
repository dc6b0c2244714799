package ledger

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadVendors(t *testing.T) {
	ledger := newLedger(t, "Vendors_table", []string{"ID", "Vendor"}, [][]any{
		{1254926, "cirion"},
		{nil, nil},
		{1255097, "EIKON"},
		{"1254902", "Claro"},
	})

	vendors, err := LoadVendors(ledger, "Vendors", "Vendors_table")
	require.NoError(t, err)
	assert.Equal(t, []Vendor{
		{ID: 1254926, Name: "cirion"},
		{ID: 1254902, Name: "Claro"},
		{ID: 1255097, Name: "EIKON"},
	}, vendors)
}

func TestLoadVendorsErrors(t *testing.T) {
	tests := []struct {
		name string
		rows [][]any
	}{
		{"half-filled row", [][]any{{1254926, nil}}},
		{"non-integer id", [][]any{{"12.5", "Cirion"}}},
		{"infinite id", [][]any{{"Inf", "Cirion"}}},
		{"id beyond int64", [][]any{{"1e19", "Cirion"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := newLedger(t, "Vendors_table", []string{"ID", "Vendor"}, tt.rows)
			_, err := LoadVendors(ledger, "Vendors", "Vendors_table")
			assert.Error(t, err)
		})
	}

	ledger := newLedger(t, "Other_table", []string{"ID"}, nil)
	_, err := LoadVendors(ledger, "Vendors", "Vendors_table")
	assert.ErrorIs(t, err, ErrTableNotFound)
}

func TestParseWholeNumber(t *testing.T) {
	tests := []struct {
		raw  string
		want int64
		ok   bool
	}{
		{"1254926", 1254926, true},
		{" 472.0 ", 472, true},
		{"-3", -3, true},
		{"-9223372036854775808", math.MinInt64, true},
		{"12.5", 0, false},
		{"", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{"-Inf", 0, false},
		{"9223372036854775808", 0, false},
		{"1e19", 0, false},
		{"-1e19", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := parseWholeNumber(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadConcepts(t *testing.T) {
	ledger := newLedger(t, "Vendor_concepts_table", ConceptHeaders(), [][]any{
		{1254926, "Internet", "si", "1", 2},
		{1254926, "Backup link", 0, "yes", 1},
		{1254926, "Retired", 0, "no", 0},
		{1255097, "Domains", 0, nil, 1},
		{nil, "Orphan", 0, 1, 1},
	})

	catalogue, err := LoadConcepts(ledger, "Vendor_concepts_table")
	require.NoError(t, err)
	require.Len(t, catalogue, 2)

	cirion := catalogue[cirionID]
	require.Len(t, cirion, 2)
	assert.Equal(t, "Backup link", cirion[0].Concept)
	assert.Equal(t, "Internet", cirion[1].Concept)
	assert.True(t, cirion[1].IsDefault)
	assert.False(t, cirion[0].IsDefault)

	assert.Equal(t, []Concept{{VendorID: 1255097, Concept: "Domains", Active: true, SortOrder: 1}}, catalogue[1255097])
}

func TestLoadConceptsMissingTable(t *testing.T) {
	ledger := newLedger(t, "Other_table", []string{"A"}, nil)
	catalogue, err := LoadConcepts(ledger, "Vendor_concepts_table")
	require.NoError(t, err)
	assert.Empty(t, catalogue)
}

func TestAddConcepts(t *testing.T) {
	ledger := newLedger(t, "Other_table", []string{"A"}, nil)
	m := testManager()
	req := AddConceptsRequest{
		LedgerPath: ledger,
		BackupDir:  filepath.Join(filepath.Dir(ledger), "backups"),
		Table:      "Vendor_concepts_table",
		VendorID:   cirionID,
		Concepts:   []string{"Internet", " ", "Backup link", "internet"},
	}

	added, err := m.AddConcepts(req)
	require.NoError(t, err)
	assert.Equal(t, []string{"Internet", "Backup link"}, added)

	req.Concepts = []string{"BACKUP LINK", "Colocation"}
	added, err = m.AddConcepts(req)
	require.NoError(t, err)
	assert.Equal(t, []string{"Colocation"}, added)

	catalogue, err := LoadConcepts(ledger, "Vendor_concepts_table")
	require.NoError(t, err)
	var names []string
	var orders []int
	for _, c := range catalogue[cirionID] {
		names = append(names, c.Concept)
		orders = append(orders, c.SortOrder)
	}
	assert.Equal(t, []string{"Internet", "Backup link", "Colocation"}, names)
	assert.Equal(t, []int{1, 2, 3}, orders)
}

func TestAddConceptsNothingNew(t *testing.T) {
	ledger := newLedger(t, "Vendor_concepts_table", ConceptHeaders(), [][]any{
		{1254926, "Internet", 1, 1, 1},
	})
	added, err := testManager().AddConcepts(AddConceptsRequest{
		LedgerPath: ledger,
		BackupDir:  t.TempDir(),
		Table:      "Vendor_concepts_table",
		VendorID:   cirionID,
		Concepts:   []string{"internet"},
	})
	require.NoError(t, err)
	assert.Empty(t, added)

	_, err = testManager().AddConcepts(AddConceptsRequest{LedgerPath: ledger, VendorID: 0, Concepts: []string{"x"}})
	assert.Error(t, err)
}
