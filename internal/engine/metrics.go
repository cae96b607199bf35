package engine

import (
	"math"

	"github.com/Veraticus/estimatch/internal/model"
)

// Confidence bucket boundaries.
const (
	HighConfidence   = 0.8
	MediumConfidence = 0.5
	LowConfidence    = 0.3
)

// ComputeMetrics fills the per-result counters of m. Stage counters such as cache
// hits and collaborator calls are left as accumulated by the pipeline. Matches below
// threshold are counted but kept.
func ComputeMetrics(results []model.MatchResult, m *model.ProcessingMetrics, threshold float64) {
	m.TotalItems = len(results)
	m.ProcessedItems = 0
	m.HighConfidenceMatches = 0
	m.MediumConfidenceMatches = 0
	m.LowConfidenceMatches = 0
	m.NoMatches = 0
	m.BelowThreshold = 0

	var sum float64
	for _, r := range results {
		if r.Source != model.SourceFailed {
			m.ProcessedItems++
		}
		sum += r.Confidence

		switch c := r.Confidence; {
		case c >= HighConfidence:
			m.HighConfidenceMatches++
		case c >= MediumConfidence:
			m.MediumConfidenceMatches++
		case c >= LowConfidence:
			m.LowConfidenceMatches++
		default:
			m.NoMatches++
		}

		if r.EstimateLineItemID != "" && r.Confidence < threshold {
			m.BelowThreshold++
		}
	}

	m.AverageConfidence = 0
	if len(results) > 0 {
		m.AverageConfidence = sum / float64(len(results))
	}
}

// QualityScore summarizes a run as an integer in [0, 100].
func QualityScore(m model.ProcessingMetrics) int {
	if m.TotalItems == 0 {
		return 0
	}

	total := float64(m.TotalItems)
	matchRate := float64(m.TotalItems-m.NoMatches) / total
	highRate := float64(m.HighConfidenceMatches) / total
	patternRate := float64(m.PatternMatches) / total

	score := math.Round(100 * (0.4*m.AverageConfidence + 0.3*matchRate + 0.2*highRate + 0.1*patternRate))
	if math.IsNaN(score) {
		return 0
	}
	return int(max(0, min(100, score)))
}
