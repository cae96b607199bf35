package sheets

import (
	"fmt"

	"github.com/Veraticus/estimatch/internal/model"
	"github.com/shopspring/decimal"
)

// Report is everything written to the export sheet.
type Report struct {
	Result    model.BulkMatchingResult
	Invoices  []model.Invoice
	Estimates []model.EstimateLineItem
}

// matchColumns is the width of the match detail table.
const matchColumns = 11

// prepareReportData lays out the summary, match detail and estimate coverage sections.
func prepareReportData(r Report) [][]any {
	res := r.Result
	m := res.Metrics

	items := make(map[string]model.InvoiceLineItem)
	suppliers := make(map[string]string)
	for _, inv := range r.Invoices {
		for _, item := range inv.LineItems {
			items[item.ID] = item
			suppliers[item.ID] = inv.SupplierName
		}
	}
	estimates := model.NewEstimateIndex(r.Estimates)

	values := make([][]any, 0, 16+len(res.Matches)+len(r.Estimates))
	values = append(values,
		[]any{"Invoice Match Report", res.ProjectID},
		[]any{},
		[]any{"Summary"},
		[]any{"Run ID", res.RunID},
		[]any{"Quality Score", res.QualityScore},
		[]any{"Total Items", m.TotalItems},
		[]any{"High / Medium / Low / None", fmt.Sprintf("%d / %d / %d / %d",
			m.HighConfidenceMatches, m.MediumConfidenceMatches, m.LowConfidenceMatches, m.NoMatches)},
		[]any{"Pattern / Cache / LLM", fmt.Sprintf("%d / %d / %d", m.PatternMatches, m.CacheHits, m.LLMCalls)},
		[]any{"Estimated Cost", m.CostEstimate},
		[]any{},
		[]any{"Match Details"},
		[]any{
			"Invoice Item", "Description", "Supplier", "Invoice Total",
			"Estimate Item", "Estimate Description", "Trade",
			"Match Type", "Confidence", "Source", "Reasoning",
		},
	)

	billed := make(map[string]decimal.Decimal)
	for _, match := range res.Matches {
		item := items[match.InvoiceLineItemID]
		row := []any{
			match.InvoiceLineItemID,
			item.Description,
			suppliers[match.InvoiceLineItemID],
			item.TotalPrice.InexactFloat64(),
			match.EstimateLineItemID,
			"",
			"",
			match.MatchType.String(),
			fmt.Sprintf("%.2f", match.Confidence),
			string(match.Source),
			match.Reasoning,
		}
		if est, ok := estimates.Get(match.EstimateLineItemID); ok {
			row[5] = est.Description
			row[6] = est.TradeName
			billed[est.ID] = billed[est.ID].Add(item.TotalPrice)
		}
		values = append(values, row)
	}

	values = append(values,
		[]any{},
		[]any{"Estimate Coverage"},
		[]any{"Estimate Item", "Description", "Trade", "Estimated", "Billed", "Remaining"},
	)
	for _, est := range estimates.Items() {
		spent := billed[est.ID]
		values = append(values, []any{
			est.ID,
			est.Description,
			est.TradeName,
			est.TotalCost.InexactFloat64(),
			spent.InexactFloat64(),
			est.TotalCost.Sub(spent).InexactFloat64(),
		})
	}

	return values
}
