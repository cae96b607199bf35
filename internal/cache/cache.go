// Package cache provides the result cache consulted before the matching collaborator.
package cache

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/Veraticus/estimatch/internal/model"
	"github.com/shopspring/decimal"
)

// Store caches previously observed matches by normalized item key.
// Lookups never fail: backend errors are reported as misses.
type Store interface {
	Get(ctx context.Context, key string) (model.CachedMatch, bool)
	Put(ctx context.Context, key string, entry model.CachedMatch)
	Snapshot(ctx context.Context) map[string]model.CachedMatch
	Len(ctx context.Context) int
}

var priceBucket = decimal.NewFromInt(100)

// Key derives the cache key for an invoice line item. Descriptions are lower-cased,
// stripped of punctuation and whitespace-collapsed; prices fall into 100-unit buckets,
// so near-identical items at similar prices share an entry.
func Key(item model.InvoiceLineItem) string {
	return fmt.Sprintf("%s_%d", normalizeDescription(item.Description), item.TotalPrice.Div(priceBucket).Floor().IntPart())
}

func normalizeDescription(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
