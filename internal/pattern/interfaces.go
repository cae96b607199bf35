// Package pattern learns generalized description-matching patterns from confident
// matches and applies them to new invoice line items.
package pattern

import "github.com/Veraticus/estimatch/internal/model"

// Store holds learned patterns keyed by their identity key.
// Snapshot order is the store's iteration order.
type Store interface {
	Get(key string) (model.MatchingPattern, bool)
	Put(p model.MatchingPattern)
	// Update applies fn to an existing pattern and reports whether one was found.
	Update(key string, fn func(p *model.MatchingPattern)) bool
	// Upsert applies fn to the pattern under key, creating it when missing.
	Upsert(key string, fn func(p *model.MatchingPattern, exists bool))
	Snapshot() []model.MatchingPattern
	Len() int
}

// Rule is an alias to the model.MatchingPattern type for convenience.
type Rule = model.MatchingPattern
