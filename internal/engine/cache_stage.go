package engine

import (
	"context"

	"github.com/Veraticus/estimatch/internal/cache"
	"github.com/Veraticus/estimatch/internal/model"
)

// CachedSuffix marks reasoning reused from the result cache.
const CachedSuffix = " (cached)"

// resolveFromCache resolves pending items from the result cache and returns the rest.
// Entries pointing at estimates outside the current set are ignored.
func (e *MatchingEngine) resolveFromCache(
	ctx context.Context,
	pending []PrioritizedItem,
	index *model.EstimateIndex,
	results []model.MatchResult,
	metrics *model.ProcessingMetrics,
) []PrioritizedItem {
	remaining := pending[:0]
	for _, it := range pending {
		entry, ok := e.results.Get(ctx, cache.Key(it.Item))
		if !ok || !index.Has(entry.EstimateLineItemID) {
			remaining = append(remaining, it)
			continue
		}

		r, err := model.NewMatch(it.Item.ID, entry.EstimateLineItemID,
			model.ClampConfidence(entry.Confidence), entry.Reasoning+CachedSuffix, model.SourceCache)
		if err != nil {
			remaining = append(remaining, it)
			continue
		}

		results[it.Position] = r
		metrics.CacheHits++
	}
	return remaining
}

// remember writes a confident collaborator match into the result cache.
func (e *MatchingEngine) remember(ctx context.Context, item model.InvoiceLineItem, r model.MatchResult) {
	if r.Confidence <= 0.5 || r.EstimateLineItemID == "" {
		return
	}
	e.results.Put(ctx, cache.Key(item), model.CachedMatch{
		EstimateLineItemID: r.EstimateLineItemID,
		Confidence:         r.Confidence,
		Reasoning:          r.Reasoning,
		StoredAt:           e.now(),
	})
}
