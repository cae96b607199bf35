package engine

import (
	"fmt"

	"github.com/Veraticus/estimatch/internal/model"
)

// Recommendation thresholds, as fractions of all items.
const (
	maxLowConfidenceRate = 0.3
	maxNoMatchRate       = 0.2
	minPatternRate       = 0.1
	minAverageConfidence = 0.6
	duplicateConfidence  = 0.5
)

// Recommend derives advisory messages from a run's metrics and results.
// Duplicate warnings follow estimate order.
func Recommend(m model.ProcessingMetrics, results []model.MatchResult, estimates []model.EstimateLineItem) []string {
	recs := []string{}
	if m.TotalItems == 0 {
		return recs
	}

	total := float64(m.TotalItems)
	if rate := float64(m.LowConfidenceMatches) / total; rate > maxLowConfidenceRate {
		recs = append(recs, fmt.Sprintf(
			"%.0f%% of items matched with low confidence - make estimate line item descriptions more specific", rate*100))
	}
	if rate := float64(m.NoMatches) / total; rate > maxNoMatchRate {
		recs = append(recs, fmt.Sprintf(
			"%.0f%% of items found no estimate match - review them for missing or new scope", rate*100))
	}
	if rate := float64(m.PatternMatches) / total; rate < minPatternRate {
		recs = append(recs,
			"Few items matched learned patterns - keep pattern learning enabled so recurring items resolve without the matcher")
	}
	if m.AverageConfidence < minAverageConfidence {
		recs = append(recs, fmt.Sprintf(
			"Average confidence is %.2f - review matches manually before applying them", m.AverageConfidence))
	}

	return append(recs, duplicateWarnings(results, estimates)...)
}

func duplicateWarnings(results []model.MatchResult, estimates []model.EstimateLineItem) []string {
	counts := make(map[string]int)
	for _, r := range results {
		if r.EstimateLineItemID != "" && r.Confidence > duplicateConfidence {
			counts[r.EstimateLineItemID]++
		}
	}

	var warnings []string
	seen := make(map[string]bool)
	for _, e := range estimates {
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		if n := counts[e.ID]; n > 1 {
			warnings = append(warnings, fmt.Sprintf(
				"Estimate item %s (%s) is matched by %d invoice items - check for duplicate billing", e.ID, e.Description, n))
		}
	}
	return warnings
}
