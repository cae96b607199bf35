// Package storage provides the data persistence layer for learned patterns,
// cached matches and run history.
package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Veraticus/estimatch/internal/model"
)

// Validation errors.
var (
	ErrNilContext     = errors.New("context cannot be nil")
	ErrEmptyString    = errors.New("string parameter cannot be empty")
	ErrInvalidPattern = errors.New("invalid matching pattern")
	ErrInvalidEntry   = errors.New("invalid cache entry")
	ErrInvalidRun     = errors.New("invalid run summary")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validUnit(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

// validatePatterns validates every pattern in a batch.
func validatePatterns(patterns []model.MatchingPattern) error {
	for i := range patterns {
		if err := validatePattern(&patterns[i]); err != nil {
			return fmt.Errorf("pattern at index %d: %w", i, err)
		}
	}
	return nil
}

func validatePattern(p *model.MatchingPattern) error {
	if p.Key == "" {
		return fmt.Errorf("%w: missing key", ErrInvalidPattern)
	}
	if p.InvoicePattern == "" || p.EstimatePattern == "" {
		return fmt.Errorf("%w: missing pattern text", ErrInvalidPattern)
	}
	if !validUnit(p.Confidence) {
		return fmt.Errorf("%w: confidence %v out of range", ErrInvalidPattern, p.Confidence)
	}
	if !validUnit(p.SuccessRate) {
		return fmt.Errorf("%w: success rate %v out of range", ErrInvalidPattern, p.SuccessRate)
	}
	if p.UsageCount < 0 {
		return fmt.Errorf("%w: negative usage count", ErrInvalidPattern)
	}
	return nil
}

func validateEntries(entries map[string]model.CachedMatch) error {
	for key, entry := range entries {
		if key == "" {
			return fmt.Errorf("%w: missing key", ErrInvalidEntry)
		}
		if entry.EstimateLineItemID == "" {
			return fmt.Errorf("%w: %s has no estimate id", ErrInvalidEntry, key)
		}
		if !validUnit(entry.Confidence) {
			return fmt.Errorf("%w: %s confidence %v out of range", ErrInvalidEntry, key, entry.Confidence)
		}
	}
	return nil
}

func validateRun(run *model.RunSummary) error {
	if run.RunID == "" {
		return fmt.Errorf("%w: missing run id", ErrInvalidRun)
	}
	if run.QualityScore < 0 || run.QualityScore > 100 {
		return fmt.Errorf("%w: quality score %d out of range", ErrInvalidRun, run.QualityScore)
	}
	return nil
}
