package pattern

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/estimatch/internal/model"
	"github.com/Veraticus/estimatch/internal/similarity"
)

// SimilarityThreshold is the normalized similarity a non-wildcard pattern must exceed.
const SimilarityThreshold = 0.8

// Matcher resolves invoice line items against the learned patterns of a Store.
type Matcher struct {
	store Store
	now   func() time.Time
}

// NewMatcher creates a matcher over the given store.
func NewMatcher(store Store) *Matcher {
	return &Matcher{
		store: store,
		now:   time.Now,
	}
}

// Resolve tries the learned patterns in store order. The first pattern whose invoice
// side matches the item is the only one considered; if no estimate satisfies its
// estimate side the item stays unresolved. supplier is the item's invoice supplier and
// is only consulted when strictSupplier is set.
func (m *Matcher) Resolve(item model.InvoiceLineItem, supplier string, estimates []model.EstimateLineItem, strictSupplier bool) (model.MatchResult, bool) {
	for _, p := range m.store.Snapshot() {
		if strictSupplier && p.Supplier != "" && !strings.EqualFold(p.Supplier, supplier) {
			continue
		}
		if !Matches(p.InvoicePattern, item.Description) {
			continue
		}

		estimate, ok := findEstimate(p, estimates)
		if !ok {
			return model.MatchResult{}, false
		}

		confidence := model.ClampConfidence(min(p.Confidence, model.MaxPatternConfidence))
		result, err := model.NewMatch(item.ID, estimate.ID, confidence,
			fmt.Sprintf("Matched learned pattern %q to %q", p.InvoicePattern, p.EstimatePattern),
			model.SourcePattern)
		if err != nil {
			return model.MatchResult{}, false
		}
		// Pattern matches are exact only strictly above the threshold.
		if result.MatchType == model.MatchExact && p.Confidence <= model.ExactMatchThreshold {
			result.MatchType = model.MatchPartial
		}

		now := m.now()
		m.store.Update(p.Key, func(stored *model.MatchingPattern) {
			stored.UsageCount++
			stored.LastUsedAt = now
		})

		return result, true
	}

	return model.MatchResult{}, false
}

func findEstimate(p model.MatchingPattern, estimates []model.EstimateLineItem) (model.EstimateLineItem, bool) {
	for _, e := range estimates {
		if p.TradeName != "" && !strings.EqualFold(p.TradeName, e.TradeName) {
			continue
		}
		if Matches(p.EstimatePattern, e.Description) {
			return e, true
		}
	}
	return model.EstimateLineItem{}, false
}

// Matches reports whether text satisfies pattern. Wildcard patterns require every
// literal fragment to appear in order; other patterns must appear verbatim or be
// more than SimilarityThreshold similar. Comparison ignores case.
func Matches(pattern, text string) bool {
	p := strings.ToLower(strings.TrimSpace(pattern))
	t := strings.ToLower(strings.TrimSpace(text))
	if !HasLiteral(p) {
		return false
	}

	if strings.Contains(p, Wildcard) {
		return matchFragments(p, t)
	}

	return strings.Contains(t, p) || similarity.Normalized(p, t) > SimilarityThreshold
}

func matchFragments(pattern, text string) bool {
	pos := 0
	for _, frag := range strings.Split(pattern, Wildcard) {
		if frag == "" {
			continue
		}
		i := strings.Index(text[pos:], frag)
		if i < 0 {
			return false
		}
		pos += i + len(frag)
	}
	return true
}
