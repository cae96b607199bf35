package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/Veraticus/estimatch/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() model.BulkMatchingResult {
	return model.BulkMatchingResult{
		RunID:     "run-1234abcd",
		ProjectID: "proj-1",
		Success:   true,
		Matches: []model.MatchResult{
			{InvoiceLineItemID: "i1", EstimateLineItemID: "e1", Confidence: 0.9, MatchType: model.MatchExact, Source: model.SourceLLM, Reasoning: "same rebar"},
			{InvoiceLineItemID: "i2", EstimateLineItemID: "e2", Confidence: 0.3, MatchType: model.MatchPartial, Source: model.SourceLLM, Reasoning: "weak"},
			{InvoiceLineItemID: "i3", Reasoning: model.ReasonBatchFailed, Source: model.SourceFailed},
		},
		Metrics: model.ProcessingMetrics{
			TotalItems:            3,
			ProcessedItems:        3,
			HighConfidenceMatches: 1,
			LowConfidenceMatches:  1,
			NoMatches:             1,
			BelowThreshold:        1,
			LLMCalls:              2,
			FailedBatches:         1,
			CostEstimate:          0.02,
			ProcessingTime:        1500 * time.Millisecond,
		},
		Options:         model.DefaultBulkOptions(),
		QualityScore:    55,
		Recommendations: []string{"Review low confidence matches"},
	}
}

func TestRenderResult(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderResult(&buf, sampleResult(), true))

	out := buf.String()
	assert.Contains(t, out, "Bulk Matching Complete")
	assert.Contains(t, out, "run-1234abcd")
	assert.Contains(t, out, "55/100")
	assert.Contains(t, out, "Failed batches: 1")
	assert.Contains(t, out, "Below threshold (0.50): 1")
	assert.Contains(t, out, "INVOICE ITEM")
	assert.Contains(t, out, "30% "+WarningIcon)
	assert.Contains(t, out, "Review low confidence matches")
}

func TestRenderResultWithoutMatches(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderResult(&buf, sampleResult(), false))
	assert.NotContains(t, buf.String(), "INVOICE ITEM")
}

func TestRenderResultFailure(t *testing.T) {
	res := model.BulkMatchingResult{
		RunID:           "run-x",
		ProjectID:       "proj-1",
		Error:           "invalid input: line item has no id",
		FallbackUsed:    true,
		Recommendations: []string{"Bulk matching failed - review matching configuration and retry"},
	}

	var buf bytes.Buffer
	require.NoError(t, RenderResult(&buf, res, true))
	assert.Contains(t, buf.String(), "Bulk Matching Failed")
	assert.Contains(t, buf.String(), "line item has no id")
}

func TestRenderPatternsAndRuns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderPatterns(&buf, []model.MatchingPattern{{
		Key:             "acme:* steel rebar:steel rebar *",
		InvoicePattern:  "*mm steel rebar",
		EstimatePattern: "steel rebar *mm",
		Confidence:      0.9,
		SuccessRate:     1,
		UsageCount:      3,
	}}))
	assert.Contains(t, buf.String(), "*mm steel rebar")
	assert.Contains(t, buf.String(), "any")

	buf.Reset()
	require.NoError(t, RenderRuns(&buf, []model.RunSummary{{
		RunID:        "0123456789",
		ProjectID:    "proj-1",
		Success:      true,
		QualityScore: 88,
		CreatedAt:    time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC),
	}}))
	assert.Contains(t, buf.String(), "01234...")
	assert.Contains(t, buf.String(), "2024-05-01 08:30")
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{name: "short", in: "rebar", max: 10, want: "rebar"},
		{name: "long", in: "reinforcing steel", max: 10, want: "reinfor..."},
		{name: "tiny limit", in: "concrete", max: 2, want: "co"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, truncateString(tt.in, tt.max))
		})
	}
}

func TestScoreTone(t *testing.T) {
	assert.Equal(t, toneGood, scoreTone(80))
	assert.Equal(t, toneCaution, scoreTone(79))
	assert.Equal(t, toneCaution, scoreTone(50))
	assert.Equal(t, toneBad, scoreTone(49))
	assert.Contains(t, FormatError("boom"), ErrorIcon+" boom")
}
