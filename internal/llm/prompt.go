package llm

import (
	"fmt"
	"strings"

	"github.com/Veraticus/estimatch/internal/model"
)

const systemPrompt = "You are a construction cost analyst. You match supplier invoice line items to project estimate line items and respond only with JSON in the exact format requested."

// buildMatchPrompt renders the invoice batch and the estimate catalogue.
func buildMatchPrompt(invoices []model.Invoice, estimates []model.EstimateLineItem, matchContext string) string {
	var sb strings.Builder

	if matchContext != "" {
		fmt.Fprintf(&sb, "Context: %s\n\n", matchContext)
	}

	sb.WriteString("Estimate Line Items:\n")
	for _, e := range estimates {
		fmt.Fprintf(&sb, "- id=%s | %s", e.ID, e.Description)
		if e.TradeName != "" {
			fmt.Fprintf(&sb, " | trade: %s", e.TradeName)
		}
		if e.Unit != "" {
			fmt.Fprintf(&sb, " | qty: %s %s", e.Quantity.String(), e.Unit)
		}
		fmt.Fprintf(&sb, " | total: $%s\n", e.TotalCost.StringFixed(2))
	}

	sb.WriteString("\nInvoice Line Items:\n")
	for _, inv := range invoices {
		for _, item := range inv.LineItems {
			fmt.Fprintf(&sb, "- id=%s | %s | qty: %s @ $%s | total: $%s",
				item.ID,
				item.Description,
				item.Quantity.String(),
				item.UnitPrice.StringFixed(2),
				item.TotalPrice.StringFixed(2))
			if item.Category != "" {
				fmt.Fprintf(&sb, " | category: %s", item.Category)
			}
			if inv.SupplierName != "" {
				fmt.Fprintf(&sb, " | supplier: %s", inv.SupplierName)
			}
			sb.WriteString("\n")
		}
	}

	sb.WriteString(`
Instructions:
1. For every invoice line item, pick the single estimate line item it bills against.
2. Compare description, trade, units and cost. Supplier wording often differs from estimate wording.
3. If nothing fits, use null for estimateLineItemId and 0 for confidence.
4. Confidence is between 0.0 and 1.0. Use 0.8 or higher only when you are sure.

Respond with a JSON object of this shape:
{"matches":[{"invoiceLineItemId":"<id>","estimateLineItemId":"<id or null>","confidence":0.0,"reasoning":"<one sentence>"}]}`)

	return sb.String()
}
