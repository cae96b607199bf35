package pattern

import (
	"testing"
	"time"

	"github.com/Veraticus/estimatch/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatches(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		text    string
		want    bool
	}{
		{name: "wildcard fragments in order", pattern: "*mm Steel Rebar", text: "12mm steel rebar", want: true},
		{name: "wildcard fragments out of order", pattern: "rebar * steel", text: "steel 10 rebar", want: false},
		{name: "multiple wildcards", pattern: "Pipe * x *", text: "PVC pipe 4in x 10ft", want: true},
		{name: "verbatim containment", pattern: "copper wire", text: "Roll of Copper Wire 12ga", want: true},
		{name: "similar enough", pattern: "drywall screws", text: "drywal screws", want: true},
		{name: "not similar", pattern: "drywall screws", text: "roof shingles", want: false},
		{name: "empty pattern never matches", pattern: "  ", text: "anything", want: false},
		{name: "bare wildcard matches nothing", pattern: "*", text: "Concrete pump hire", want: false},
		{name: "wildcards and punctuation match nothing", pattern: "* - *", text: "12 - 40", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.pattern, tt.text))
		})
	}
}

func TestMatcher_Resolve(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	estimates := []model.EstimateLineItem{
		{ID: "e1", Description: "Concrete Pour 4000psi", TradeName: "Concrete"},
		{ID: "e2", Description: "Steel Rebar 12mm", TradeName: "Structural"},
	}
	item := model.InvoiceLineItem{ID: "i1", Description: "12mm Steel Rebar", TotalPrice: decimal.NewFromInt(400)}

	t.Run("applies first matching pattern and caps confidence", func(t *testing.T) {
		store := NewMemoryStore(model.MatchingPattern{
			Key:             "acme:*mm steel rebar:steel rebar *mm",
			InvoicePattern:  "*mm Steel Rebar",
			EstimatePattern: "Steel Rebar *mm",
			TradeName:       "Structural",
			Confidence:      0.99,
			UsageCount:      1,
		})
		m := NewMatcher(store)
		m.now = func() time.Time { return fixed }

		result, ok := m.Resolve(item, "ACME", estimates, false)
		require.True(t, ok)
		assert.Equal(t, "e2", result.EstimateLineItemID)
		assert.InDelta(t, 0.95, result.Confidence, 1e-9)
		assert.Equal(t, model.MatchExact, result.MatchType)
		assert.Equal(t, model.SourcePattern, result.Source)

		stored, found := store.Get("acme:*mm steel rebar:steel rebar *mm")
		require.True(t, found)
		assert.Equal(t, 2, stored.UsageCount)
		assert.Equal(t, fixed, stored.LastUsedAt)
	})

	t.Run("trade mismatch leaves item unresolved", func(t *testing.T) {
		store := NewMemoryStore(model.MatchingPattern{
			Key:             "k",
			InvoicePattern:  "*mm Steel Rebar",
			EstimatePattern: "Steel Rebar *mm",
			TradeName:       "Electrical",
			Confidence:      0.9,
		})
		_, ok := NewMatcher(store).Resolve(item, "", estimates, false)
		assert.False(t, ok)
	})

	t.Run("first invoice match wins even without estimate", func(t *testing.T) {
		store := NewMemoryStore(
			model.MatchingPattern{Key: "a", InvoicePattern: "steel rebar", EstimatePattern: "nonexistent", Confidence: 0.9},
			model.MatchingPattern{Key: "b", InvoicePattern: "*mm steel rebar", EstimatePattern: "steel rebar *mm", Confidence: 0.9},
		)
		_, ok := NewMatcher(store).Resolve(item, "", estimates, false)
		assert.False(t, ok)
	})

	t.Run("strict supplier scope skips other suppliers", func(t *testing.T) {
		store := NewMemoryStore(model.MatchingPattern{
			Key:             "k",
			InvoicePattern:  "*mm Steel Rebar",
			EstimatePattern: "Steel Rebar *mm",
			Supplier:        "Other Supply",
			Confidence:      0.9,
		})
		_, ok := NewMatcher(store).Resolve(item, "ACME", estimates, true)
		assert.False(t, ok)

		result, ok := NewMatcher(store).Resolve(item, "ACME", estimates, false)
		require.True(t, ok)
		assert.InDelta(t, 0.9, result.Confidence, 1e-9)
	})

	t.Run("confidence at the threshold is partial", func(t *testing.T) {
		store := NewMemoryStore(model.MatchingPattern{
			Key:             "k",
			InvoicePattern:  "*mm Steel Rebar",
			EstimatePattern: "Steel Rebar *mm",
			Confidence:      0.8,
		})
		result, ok := NewMatcher(store).Resolve(item, "", estimates, false)
		require.True(t, ok)
		assert.InDelta(t, 0.8, result.Confidence, 1e-9)
		assert.Equal(t, model.MatchPartial, result.MatchType)
	})

	t.Run("pattern without literal text is ignored", func(t *testing.T) {
		store := NewMemoryStore(model.MatchingPattern{Key: "k", InvoicePattern: "*", EstimatePattern: "Steel Rebar *mm", Confidence: 0.9})
		_, ok := NewMatcher(store).Resolve(item, "", estimates, false)
		assert.False(t, ok)
	})

	t.Run("empty store", func(t *testing.T) {
		_, ok := NewMatcher(NewMemoryStore()).Resolve(item, "", estimates, false)
		assert.False(t, ok)
	})
}
