package engine

import (
	"math"
	"sort"
	"unicode/utf8"

	"github.com/Veraticus/estimatch/internal/model"
)

// PrioritizedItem is an invoice line item with its scheduling priority.
type PrioritizedItem struct {
	Source   *model.Invoice
	Item     model.InvoiceLineItem
	Priority float64
	Position int
}

// Prioritize flattens the invoices into line items in input order and, when
// highValueFirst is set, stable-sorts them by descending priority.
func Prioritize(invoices []model.Invoice, highValueFirst bool) []PrioritizedItem {
	items := make([]PrioritizedItem, 0, model.ItemCount(invoices))
	for i := range invoices {
		inv := &invoices[i]
		for _, item := range inv.LineItems {
			items = append(items, PrioritizedItem{
				Source:   inv,
				Item:     item,
				Priority: Priority(item),
				Position: len(items),
			})
		}
	}

	if highValueFirst {
		sort.SliceStable(items, func(a, b int) bool {
			return items[a].Priority > items[b].Priority
		})
	}

	return items
}

// Priority scores an item: ln(total+1)*10, plus 5 for long descriptions and 3 for materials.
func Priority(item model.InvoiceLineItem) float64 {
	total := max(item.TotalPrice.InexactFloat64(), 0)
	score := math.Log(total+1) * 10
	if utf8.RuneCountInString(item.Description) > 50 {
		score += 5
	}
	if item.Category.IsMaterial() {
		score += 3
	}
	return score
}
