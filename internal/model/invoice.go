// Package model defines the core data structures for the estimatch application.
package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LineItemCategory classifies what an invoice line item bills for.
type LineItemCategory string

// Line item categories.
const (
	CategoryMaterial      LineItemCategory = "MATERIAL"
	CategoryLabor         LineItemCategory = "LABOR"
	CategoryEquipment     LineItemCategory = "EQUIPMENT"
	CategorySubcontractor LineItemCategory = "SUBCONTRACTOR"
	CategoryOther         LineItemCategory = "OTHER"
)

// IsMaterial reports whether the category names materials, ignoring case and
// surrounding space. Categories outside the known set are accepted as-is.
func (c LineItemCategory) IsMaterial() bool {
	return strings.EqualFold(strings.TrimSpace(string(c)), string(CategoryMaterial))
}

// InvoiceLineItem is a single billed line on a supplier invoice.
type InvoiceLineItem struct {
	Quantity    decimal.Decimal  `json:"quantity" yaml:"quantity"`
	UnitPrice   decimal.Decimal  `json:"unit_price" yaml:"unit_price"`
	TotalPrice  decimal.Decimal  `json:"total_price" yaml:"total_price"`
	ID          string           `json:"id" yaml:"id"`
	InvoiceID   string           `json:"invoice_id" yaml:"invoice_id"`
	Description string           `json:"description" yaml:"description"`
	Category    LineItemCategory `json:"category,omitempty" yaml:"category,omitempty"`
}

// Invoice groups the line items billed by one supplier document.
type Invoice struct {
	InvoiceDate   time.Time         `json:"invoice_date" yaml:"invoice_date"`
	ID            string            `json:"id" yaml:"id"`
	InvoiceNumber string            `json:"invoice_number" yaml:"invoice_number"`
	SupplierName  string            `json:"supplier_name" yaml:"supplier_name"`
	LineItems     []InvoiceLineItem `json:"line_items" yaml:"line_items"`
}

// ItemCount returns the total number of line items across invoices.
func ItemCount(invoices []Invoice) int {
	n := 0
	for _, inv := range invoices {
		n += len(inv.LineItems)
	}
	return n
}
