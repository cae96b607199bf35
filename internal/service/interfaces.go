// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/estimatch/internal/model"
)

// PatternRepository persists learned matching patterns.
type PatternRepository interface {
	LoadPatterns(ctx context.Context) ([]model.MatchingPattern, error)
	SavePatterns(ctx context.Context, patterns []model.MatchingPattern) error
	DeletePattern(ctx context.Context, key string) error
}

// CacheRepository persists result cache entries between runs.
type CacheRepository interface {
	LoadCacheEntries(ctx context.Context) (map[string]model.CachedMatch, error)
	SaveCacheEntries(ctx context.Context, entries map[string]model.CachedMatch) error
	ClearCacheEntries(ctx context.Context) error
}

// RunRepository records summaries of completed runs.
type RunRepository interface {
	SaveRun(ctx context.Context, run model.RunSummary) error
	ListRuns(ctx context.Context, projectID string, limit int) ([]model.RunSummary, error)
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	PatternRepository
	CacheRepository
	RunRepository

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
