package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestLineItemSetGet(t *testing.T) {
	var l LineItem
	l.Set(HeaderCC, int64(1))
	l.Set(HeaderSubtotal, decimal.RequireFromString("10.50"))
	l.Set(HeaderCC, int64(2))

	v, ok := l.Get(HeaderCC)
	assert.True(t, ok)
	assert.Equal(t, int64(2), v)
	assert.Equal(t, []string{HeaderCC, HeaderSubtotal}, l.Headers())
	assert.Equal(t, "10.50", l.Subtotal().StringFixed(2))
	assert.True(t, l.Total().IsZero())

	_, ok = l.Get(HeaderVendor)
	assert.False(t, ok)
}

func TestGroupByTable(t *testing.T) {
	lines := []LineItem{
		{Table: "B_table"},
		{Table: "A_table"},
		{Table: "B_table"},
	}

	groups := GroupByTable(lines)
	assert.Len(t, groups, 2)
	assert.Equal(t, "B_table", groups[0].Table)
	assert.Len(t, groups[0].Rows, 2)
	assert.Equal(t, "A_table", groups[1].Table)
}

func TestInvoiceHasSplit(t *testing.T) {
	inv := Invoice{AllocMode: AllocPercent}
	assert.False(t, inv.HasSplit())

	inv.Allocations = []Allocation{{CostCenter: 1}}
	assert.True(t, inv.HasSplit())

	inv.AllocMode = AllocNone
	assert.False(t, inv.HasSplit())
}
