package engine

import (
	"math"
	"strings"
	"testing"

	"github.com/Veraticus/estimatch/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriority(t *testing.T) {
	tests := []struct {
		name string
		item model.InvoiceLineItem
		want float64
	}{
		{
			name: "value only",
			item: model.InvoiceLineItem{Description: "Labor", TotalPrice: decimal.NewFromInt(99), Category: model.CategoryLabor},
			want: math.Log(100) * 10,
		},
		{
			name: "material bonus",
			item: model.InvoiceLineItem{Description: "Rebar", TotalPrice: decimal.NewFromInt(99), Category: model.CategoryMaterial},
			want: math.Log(100)*10 + 3,
		},
		{
			name: "material bonus ignores case",
			item: model.InvoiceLineItem{Description: "Rebar", TotalPrice: decimal.NewFromInt(99), Category: " material "},
			want: math.Log(100)*10 + 3,
		},
		{
			name: "unknown category gets no bonus",
			item: model.InvoiceLineItem{Description: "Pump", TotalPrice: decimal.NewFromInt(99), Category: "PLANT"},
			want: math.Log(100) * 10,
		},
		{
			name: "long description bonus",
			item: model.InvoiceLineItem{Description: strings.Repeat("x", 51), TotalPrice: decimal.Zero},
			want: 5,
		},
		{
			name: "fifty characters is not long",
			item: model.InvoiceLineItem{Description: strings.Repeat("x", 50), TotalPrice: decimal.Zero},
			want: 0,
		},
		{
			name: "negative totals score as zero",
			item: model.InvoiceLineItem{Description: "Credit", TotalPrice: decimal.NewFromInt(-250)},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Priority(tt.item), 1e-9)
		})
	}
}

func TestPrioritize(t *testing.T) {
	invoices := []model.Invoice{
		{ID: "a", LineItems: []model.InvoiceLineItem{
			{ID: "small", TotalPrice: decimal.NewFromInt(10)},
			{ID: "tie-1", TotalPrice: decimal.NewFromInt(500)},
		}},
		{ID: "b", LineItems: []model.InvoiceLineItem{
			{ID: "big", TotalPrice: decimal.NewFromInt(9000)},
			{ID: "tie-2", TotalPrice: decimal.NewFromInt(500)},
		}},
	}

	t.Run("high value first with stable ties", func(t *testing.T) {
		items := Prioritize(invoices, true)
		require.Len(t, items, 4)
		assert.Equal(t, []string{"big", "tie-1", "tie-2", "small"}, itemIDs(items))
		assert.Equal(t, 2, items[0].Position)
		assert.Equal(t, "b", items[0].Source.ID)
	})

	t.Run("input order when disabled", func(t *testing.T) {
		items := Prioritize(invoices, false)
		assert.Equal(t, []string{"small", "tie-1", "big", "tie-2"}, itemIDs(items))
		for i, it := range items {
			assert.Equal(t, i, it.Position)
		}
	})
}

func itemIDs(items []PrioritizedItem) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.Item.ID
	}
	return ids
}

func TestPartition(t *testing.T) {
	items := make([]PrioritizedItem, 5)
	batches := partition(items, 2)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0].items, 2)
	assert.Len(t, batches[2].items, 1)
	assert.Equal(t, 2, batches[2].index)

	assert.Empty(t, partition(nil, 50))
}

func TestSyntheticInvoices(t *testing.T) {
	invoices := []model.Invoice{
		{ID: "a", SupplierName: "A", InvoiceNumber: "1", LineItems: []model.InvoiceLineItem{{ID: "a1"}, {ID: "a2"}}},
		{ID: "b", SupplierName: "B", InvoiceNumber: "2", LineItems: []model.InvoiceLineItem{{ID: "b1"}}},
	}
	items := Prioritize(invoices, false)

	got := syntheticInvoices([]PrioritizedItem{items[2], items[0]})
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "B", got[0].SupplierName)
	assert.Equal(t, []model.InvoiceLineItem{{ID: "b1"}}, got[0].LineItems)
	assert.Equal(t, "a", got[1].ID)
	assert.Len(t, got[1].LineItems, 1)
	assert.Len(t, invoices[0].LineItems, 2)
}
