package engine

import (
	"context"
	"log/slog"

	"github.com/Veraticus/estimatch/internal/model"
)

// Collaborator matches a batch of invoice line items against the estimate set.
// Returning an error or a response with Success unset fails the whole batch.
type Collaborator interface {
	Match(ctx context.Context, invoices []model.Invoice, estimates []model.EstimateLineItem, matchContext string) (model.MatchResponse, error)
}

// PatternPersister loads and saves the learned pattern set.
type PatternPersister interface {
	LoadPatterns(ctx context.Context) ([]model.MatchingPattern, error)
	SavePatterns(ctx context.Context, patterns []model.MatchingPattern) error
}

// ProgressFunc is called after each batch completes.
type ProgressFunc func(completed, total int)

// NopPersister keeps patterns in memory only and logs save requests.
type NopPersister struct {
	Logger *slog.Logger
}

// LoadPatterns returns no patterns.
func (NopPersister) LoadPatterns(context.Context) ([]model.MatchingPattern, error) {
	return nil, nil
}

// SavePatterns logs the pattern count and discards them.
func (p NopPersister) SavePatterns(_ context.Context, patterns []model.MatchingPattern) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("pattern persistence disabled, keeping patterns in memory", "patterns", len(patterns))
	return nil
}
