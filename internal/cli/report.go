package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Veraticus/estimatch/internal/model"
)

// RenderResult writes the run summary box, the match table and recommendations.
func RenderResult(w io.Writer, res model.BulkMatchingResult, showMatches bool) error {
	if !res.Success {
		body := fmt.Sprintf("Run: %s\nProject: %s\nError: %s\n\n%s",
			res.RunID, res.ProjectID, res.Error, strings.Join(res.Recommendations, "\n"))
		_, err := fmt.Fprintln(w, RenderBox(ErrorIcon+" Bulk Matching Failed", toneBad.paint(body)))
		return err
	}

	if _, err := fmt.Fprintln(w, RenderBox(ChartIcon+" Bulk Matching Complete", summary(res))); err != nil {
		return err
	}

	if showMatches && len(res.Matches) > 0 {
		if err := renderMatches(w, res.Matches, res.Options.ConfidenceThreshold); err != nil {
			return err
		}
	}

	if len(res.Recommendations) > 0 {
		if _, err := fmt.Fprintln(w, "\n"+boldStyle.Render("Recommendations:")); err != nil {
			return err
		}
		for _, rec := range res.Recommendations {
			if _, err := fmt.Fprintln(w, "  "+FormatWarning(rec)); err != nil {
				return err
			}
		}
	}
	return nil
}

func summary(res model.BulkMatchingResult) string {
	m := res.Metrics
	var sb strings.Builder
	fmt.Fprintf(&sb, "Run: %s\n", res.RunID)
	fmt.Fprintf(&sb, "Project: %s\n\n", res.ProjectID)
	fmt.Fprintf(&sb, "Quality score: %s\n", formatScore(res.QualityScore))
	fmt.Fprintf(&sb, "  • Items: %d (%d processed)\n", m.TotalItems, m.ProcessedItems)
	fmt.Fprintf(&sb, "  • High / medium / low confidence: %d / %d / %d\n",
		m.HighConfidenceMatches, m.MediumConfidenceMatches, m.LowConfidenceMatches)
	fmt.Fprintf(&sb, "  • No match: %d\n", m.NoMatches)
	fmt.Fprintf(&sb, "  • Below threshold (%.2f): %d\n", res.Options.ConfidenceThreshold, m.BelowThreshold)
	fmt.Fprintf(&sb, "  • Pattern matches: %d, cache hits: %d, LLM calls: %d\n", m.PatternMatches, m.CacheHits, m.LLMCalls)
	if m.FailedBatches > 0 {
		fmt.Fprintf(&sb, "  • %s\n", toneBad.paint(fmt.Sprintf("Failed batches: %d", m.FailedBatches)))
	}
	fmt.Fprintf(&sb, "  • Average confidence: %.2f\n", m.AverageConfidence)
	fmt.Fprintf(&sb, "  • Estimated cost: $%.4f\n", m.CostEstimate)
	fmt.Fprintf(&sb, "  • Time taken: %s", m.ProcessingTime.Round(time.Millisecond))
	return sb.String()
}

func renderMatches(w io.Writer, matches []model.MatchResult, threshold float64) error {
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "INVOICE ITEM\tESTIMATE ITEM\tTYPE\tCONFIDENCE\tSOURCE\tREASONING")
	_, _ = fmt.Fprintln(tw, "────────────\t─────────────\t────\t──────────\t──────\t─────────")

	for _, m := range matches {
		estimate := m.EstimateLineItemID
		if estimate == "" {
			estimate = "-"
		}
		confidence := fmt.Sprintf("%.0f%%", m.Confidence*100)
		if m.EstimateLineItemID != "" && m.Confidence < threshold {
			confidence += " " + WarningIcon
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			m.InvoiceLineItemID,
			estimate,
			m.MatchType,
			confidence,
			m.Source,
			truncateString(m.Reasoning, 50))
	}
	return tw.Flush()
}

// RenderPatterns writes learned patterns as a table.
func RenderPatterns(w io.Writer, patterns []model.MatchingPattern) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "KEY\tINVOICE PATTERN\tESTIMATE PATTERN\tSUPPLIER\tCONFIDENCE\tSUCCESS\tUSES")
	_, _ = fmt.Fprintln(tw, "───\t───────────────\t────────────────\t────────\t──────────\t───────\t────")
	for _, p := range patterns {
		supplier := p.Supplier
		if supplier == "" {
			supplier = "any"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.0f%%\t%.0f%%\t%d\n",
			truncateString(p.Key, 30),
			truncateString(p.InvoicePattern, 30),
			truncateString(p.EstimatePattern, 30),
			supplier,
			p.Confidence*100,
			p.SuccessRate*100,
			p.UsageCount)
	}
	return tw.Flush()
}

// RenderPattern writes the details of one pattern.
func RenderPattern(w io.Writer, p model.MatchingPattern) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Key: %s\n", p.Key)
	fmt.Fprintf(&sb, "Invoice pattern: %s\n", p.InvoicePattern)
	fmt.Fprintf(&sb, "Estimate pattern: %s\n", p.EstimatePattern)
	if p.Supplier != "" {
		fmt.Fprintf(&sb, "Supplier: %s\n", p.Supplier)
	}
	if p.TradeName != "" {
		fmt.Fprintf(&sb, "Trade: %s\n", p.TradeName)
	}
	fmt.Fprintf(&sb, "Confidence: %.2f\n", p.Confidence)
	fmt.Fprintf(&sb, "Success rate: %.2f\n", p.SuccessRate)
	fmt.Fprintf(&sb, "Uses: %d\n", p.UsageCount)
	fmt.Fprintf(&sb, "Created: %s\n", p.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&sb, "Last used: %s", p.LastUsedAt.Format("2006-01-02 15:04"))
	_, err := fmt.Fprintln(w, RenderBox("Matching Pattern", sb.String()))
	return err
}

// RenderRuns writes run history as a table.
func RenderRuns(w io.Writer, runs []model.RunSummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "RUN\tPROJECT\tWHEN\tSTATUS\tITEMS\tQUALITY\tCACHE HITS\tLLM CALLS\tCOST")
	_, _ = fmt.Fprintln(tw, "───\t───────\t────\t──────\t─────\t───────\t──────────\t─────────\t────")
	for _, r := range runs {
		status := SuccessIcon
		if !r.Success {
			status = ErrorIcon
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t$%.4f\n",
			truncateString(r.RunID, 8),
			r.ProjectID,
			r.CreatedAt.Format("2006-01-02 15:04"),
			status,
			r.Metrics.TotalItems,
			r.QualityScore,
			r.Metrics.CacheHits,
			r.Metrics.LLMCalls,
			r.Metrics.CostEstimate)
	}
	return tw.Flush()
}

func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
