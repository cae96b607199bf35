package testutil

import (
	"time"

	"github.com/Veraticus/estimatch/internal/model"
	"github.com/shopspring/decimal"
)

// Money parses a decimal literal and panics on bad input.
func Money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// LineItem builds an invoice line item with quantity 1.
func LineItem(id, description, total string, category model.LineItemCategory) model.InvoiceLineItem {
	return model.InvoiceLineItem{
		ID:          id,
		InvoiceID:   "inv-1",
		Description: description,
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   Money(total),
		TotalPrice:  Money(total),
		Category:    category,
	}
}

// Invoice wraps line items in a single supplier invoice.
func Invoice(supplier string, items ...model.InvoiceLineItem) model.Invoice {
	return model.Invoice{
		ID:            "inv-1",
		InvoiceNumber: "INV-1001",
		SupplierName:  supplier,
		InvoiceDate:   time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC),
		LineItems:     items,
	}
}

// SiteWorkEstimates returns a small estimate set covering common trades.
func SiteWorkEstimates() []model.EstimateLineItem {
	return []model.EstimateLineItem{
		{ID: "e1", Description: "Steel Rebar 10mm", TradeName: "Structural", Unit: "ton",
			Quantity: Money("2"), MaterialCost: Money("1800"), TotalCost: Money("1800")},
		{ID: "e2", Description: "Ready Mix Concrete 4000 PSI", TradeName: "Concrete", Unit: "cy",
			Quantity: Money("40"), MaterialCost: Money("6400"), TotalCost: Money("6400")},
		{ID: "e3", Description: "Concrete Finishing Labor", TradeName: "Concrete", Unit: "hr",
			Quantity: Money("80"), LaborCost: Money("5200"), TotalCost: Money("5200")},
	}
}

// SiteWorkInvoice returns an invoice whose items line up with SiteWorkEstimates.
func SiteWorkInvoice() model.Invoice {
	return Invoice("ACME Supply",
		LineItem("i1", "10mm Steel Rebar", "500", model.CategoryMaterial),
		LineItem("i2", "Ready Mix Concrete 4000 PSI delivered", "3200", model.CategoryMaterial),
		LineItem("i3", "Concrete finishing crew", "1300", model.CategoryLabor),
	)
}
