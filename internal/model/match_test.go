package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMatch(t *testing.T) {
	tests := []struct {
		name       string
		estimateID string
		confidence float64
		wantType   MatchType
		wantConf   float64
		wantErr    bool
	}{
		{name: "high confidence is exact", estimateID: "e1", confidence: 0.9, wantType: MatchExact, wantConf: 0.9},
		{name: "threshold is exact", estimateID: "e1", confidence: 0.8, wantType: MatchExact, wantConf: 0.8},
		{name: "mid confidence is partial", estimateID: "e1", confidence: 0.6, wantType: MatchPartial, wantConf: 0.6},
		{name: "zero confidence is none", estimateID: "e1", confidence: 0, wantType: MatchNone, wantConf: 0},
		{name: "missing estimate is none", estimateID: "", confidence: 0.9, wantType: MatchNone, wantConf: 0},
		{name: "negative confidence rejected", estimateID: "e1", confidence: -0.1, wantErr: true},
		{name: "confidence above one rejected", estimateID: "e1", confidence: 1.2, wantErr: true},
		{name: "NaN rejected", estimateID: "e1", confidence: math.NaN(), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMatch("i1", tt.estimateID, tt.confidence, "because", SourceLLM)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidConfidence)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, m.MatchType)
			assert.InDelta(t, tt.wantConf, m.Confidence, 1e-9)
			assert.Equal(t, "i1", m.InvoiceLineItemID)
		})
	}
}

func TestFailedMatch(t *testing.T) {
	m := FailedMatch("i7")
	assert.Equal(t, "i7", m.InvoiceLineItemID)
	assert.Empty(t, m.EstimateLineItemID)
	assert.Zero(t, m.Confidence)
	assert.Equal(t, MatchNone, m.MatchType)
	assert.Equal(t, "Batch processing failed", m.Reasoning)
	assert.Equal(t, SourceFailed, m.Source)
}

func TestMatchTypeText(t *testing.T) {
	for _, mt := range []MatchType{MatchNone, MatchPartial, MatchExact} {
		text, err := mt.MarshalText()
		require.NoError(t, err)

		var parsed MatchType
		require.NoError(t, parsed.UnmarshalText(text))
		assert.Equal(t, mt, parsed)
	}

	var bad MatchType
	assert.Error(t, bad.UnmarshalText([]byte("fuzzy")))
}

func TestMatchResultUnmarshalRederivesType(t *testing.T) {
	var m MatchResult
	err := json.Unmarshal([]byte(`{"invoice_line_item_id":"i1","estimate_line_item_id":"e1","confidence":0.92,"match_type":"none"}`), &m)
	require.NoError(t, err)
	assert.Equal(t, MatchExact, m.MatchType)

	err = json.Unmarshal([]byte(`{"invoice_line_item_id":"i1","confidence":1.7,"match_type":"exact"}`), &m)
	require.NoError(t, err)
	assert.Equal(t, MatchNone, m.MatchType)
	assert.Zero(t, m.Confidence)
}

func TestBulkOptionsNormalize(t *testing.T) {
	opts := BulkProcessingOptions{BatchSize: -1, ConfidenceThreshold: 3}.Normalize()
	assert.Equal(t, 50, opts.BatchSize)
	assert.Equal(t, 3, opts.MaxConcurrency)
	assert.InDelta(t, 0.5, opts.ConfidenceThreshold, 1e-9)

	custom := BulkProcessingOptions{BatchSize: 10, MaxConcurrency: 8, ConfidenceThreshold: 0.7}.Normalize()
	assert.Equal(t, 10, custom.BatchSize)
	assert.Equal(t, 8, custom.MaxConcurrency)
	assert.InDelta(t, 0.7, custom.ConfidenceThreshold, 1e-9)
}
