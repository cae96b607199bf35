// Package engine implements the bulk invoice-to-estimate matching pipeline.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/estimatch/internal/cache"
	"github.com/Veraticus/estimatch/internal/common"
	"github.com/Veraticus/estimatch/internal/model"
	"github.com/Veraticus/estimatch/internal/pattern"
	"github.com/google/uuid"
)

// RunFailedRecommendation is the single recommendation of a failed run.
const RunFailedRecommendation = "Bulk matching failed - review matching configuration and retry"

// MatchingEngine runs the matching pipeline: learned patterns, result cache,
// batched collaborator calls, pattern learning, then scoring.
type MatchingEngine struct {
	collaborator Collaborator
	patterns     pattern.Store
	results      cache.Store
	persister    PatternPersister
	matcher      *pattern.Matcher
	learner      *pattern.Learner
	logger       *slog.Logger
	progress     ProgressFunc
	newRunID     func() string
	now          func() time.Time
	batchCost    float64
}

// Config holds configuration options for the matching engine.
type Config struct {
	Persister PatternPersister
	Logger    *slog.Logger
	Progress  ProgressFunc
	// DefaultBatchCost is charged for batches whose response reports no cost.
	DefaultBatchCost float64
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		DefaultBatchCost: 0.01,
	}
}

// New creates a new matching engine with the given dependencies.
func New(collaborator Collaborator, patterns pattern.Store, results cache.Store) *MatchingEngine {
	return NewWithConfig(collaborator, patterns, results, DefaultConfig())
}

// NewWithConfig creates a new matching engine with custom configuration.
// A nil results store disables the cache stage.
func NewWithConfig(collaborator Collaborator, patterns pattern.Store, results cache.Store, config Config) *MatchingEngine {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if patterns == nil {
		patterns = pattern.NewMemoryStore()
	}
	persister := config.Persister
	if persister == nil {
		persister = NopPersister{Logger: logger}
	}
	if config.DefaultBatchCost <= 0 {
		config.DefaultBatchCost = DefaultConfig().DefaultBatchCost
	}

	return &MatchingEngine{
		collaborator: collaborator,
		patterns:     patterns,
		results:      results,
		persister:    persister,
		matcher:      pattern.NewMatcher(patterns),
		learner:      pattern.NewLearner(patterns, logger),
		logger:       logger,
		progress:     config.Progress,
		newRunID:     uuid.NewString,
		now:          time.Now,
		batchCost:    config.DefaultBatchCost,
	}
}

// LoadPatterns seeds the pattern store from the persister.
func (e *MatchingEngine) LoadPatterns(ctx context.Context) error {
	patterns, err := e.persister.LoadPatterns(ctx)
	if err != nil {
		return fmt.Errorf("failed to load patterns: %w", err)
	}
	for _, p := range patterns {
		e.patterns.Put(p)
	}
	e.logger.Info("Loaded matching patterns", "count", len(patterns))
	return nil
}

// Patterns returns a snapshot of the learned patterns.
func (e *MatchingEngine) Patterns() []model.MatchingPattern {
	return e.patterns.Snapshot()
}

// BulkMatchInvoices matches every line item of the invoices against the estimate set.
// It never returns an error: run-level failures yield a result with Success unset and
// FallbackUsed set, while batch-level failures only downgrade the affected items.
// A nil opts uses DefaultBulkOptions.
func (e *MatchingEngine) BulkMatchInvoices(
	ctx context.Context,
	invoices []model.Invoice,
	estimates []model.EstimateLineItem,
	projectID string,
	opts *model.BulkProcessingOptions,
) (result model.BulkMatchingResult) {
	start := e.now()
	runID := e.newRunID()

	options := model.DefaultBulkOptions()
	if opts != nil {
		options = opts.Normalize()
	}

	logger := e.logger.With("run_id", runID, "project_id", projectID)

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("bulk matching panicked: %v", r)
			logger.Error("Bulk matching failed", "error", err)
			result = e.failedRun(runID, projectID, options, invoices, start, err)
		}
	}()

	result, err := e.run(ctx, logger, runID, invoices, estimates, projectID, options, start)
	if err != nil {
		logger.Error("Bulk matching failed", "error", err)
		return e.failedRun(runID, projectID, options, invoices, start, err)
	}

	return result
}

func (e *MatchingEngine) run(
	ctx context.Context,
	logger *slog.Logger,
	runID string,
	invoices []model.Invoice,
	estimates []model.EstimateLineItem,
	projectID string,
	opts model.BulkProcessingOptions,
	start time.Time,
) (model.BulkMatchingResult, error) {
	if err := ctx.Err(); err != nil {
		return model.BulkMatchingResult{}, err
	}
	if err := validateInvoices(invoices); err != nil {
		return model.BulkMatchingResult{}, err
	}

	items := Prioritize(invoices, opts.PrioritizeHighValue)
	index := model.NewEstimateIndex(estimates)
	results := make([]model.MatchResult, len(items))
	var metrics model.ProcessingMetrics

	logger.Info("Starting bulk matching",
		"items", len(items),
		"estimates", len(estimates),
		"patterns", e.patterns.Len(),
		"batch_size", opts.BatchSize,
		"max_concurrency", opts.MaxConcurrency)

	pending := make([]PrioritizedItem, 0, len(items))
	for _, it := range items {
		if r, ok := e.matcher.Resolve(it.Item, it.Source.SupplierName, estimates, opts.StrictSupplierScope); ok {
			results[it.Position] = r
			metrics.PatternMatches++
			continue
		}
		pending = append(pending, it)
	}

	if opts.EnableCache && e.results != nil {
		pending = e.resolveFromCache(ctx, pending, index, results, &metrics)
	}

	if len(pending) > 0 {
		if e.collaborator == nil {
			return model.BulkMatchingResult{}, fmt.Errorf("%w: no matching collaborator configured", common.ErrMissingConfig)
		}
		e.dispatch(ctx, logger, pending, estimates, index, projectID, opts, results, &metrics)
	}

	if opts.EnablePatternLearning {
		if learned := e.learner.Learn(results, invoices, estimates); learned > 0 {
			if err := e.persister.SavePatterns(ctx, e.patterns.Snapshot()); err != nil {
				logger.Warn("Failed to persist learned patterns", "error", err)
			}
		}
	}

	metrics.ProcessingTime = e.now().Sub(start)
	ComputeMetrics(results, &metrics, opts.ConfidenceThreshold)
	quality := QualityScore(metrics)

	logger.Info("Bulk matching completed",
		"items", metrics.TotalItems,
		"pattern_matches", metrics.PatternMatches,
		"cache_hits", metrics.CacheHits,
		"llm_calls", metrics.LLMCalls,
		"failed_batches", metrics.FailedBatches,
		"quality_score", quality,
		"duration", metrics.ProcessingTime)

	return model.BulkMatchingResult{
		RunID:           runID,
		ProjectID:       projectID,
		Success:         true,
		Matches:         results,
		Metrics:         metrics,
		Patterns:        e.patterns.Snapshot(),
		Recommendations: Recommend(metrics, results, estimates),
		QualityScore:    quality,
		Options:         opts,
	}, nil
}

func (e *MatchingEngine) failedRun(
	runID, projectID string,
	opts model.BulkProcessingOptions,
	invoices []model.Invoice,
	start time.Time,
	err error,
) model.BulkMatchingResult {
	return model.BulkMatchingResult{
		RunID:     runID,
		ProjectID: projectID,
		Success:   false,
		Error:     err.Error(),
		Matches:   []model.MatchResult{},
		Patterns:  []model.MatchingPattern{},
		Metrics: model.ProcessingMetrics{
			TotalItems:     model.ItemCount(invoices),
			ProcessingTime: e.now().Sub(start),
		},
		Recommendations: []string{RunFailedRecommendation},
		FallbackUsed:    true,
		Options:         opts,
	}
}

func validateInvoices(invoices []model.Invoice) error {
	seen := make(map[string]struct{})
	var errs []error
	for i, inv := range invoices {
		for j, item := range inv.LineItems {
			id := strings.TrimSpace(item.ID)
			switch {
			case id == "":
				errs = append(errs, fmt.Errorf("%w: invoice %d line item %d has no id", common.ErrInvalidInput, i, j))
			default:
				if _, dup := seen[id]; dup {
					errs = append(errs, fmt.Errorf("%w: %s", common.ErrDuplicateLineItem, id))
				}
				seen[id] = struct{}{}
			}
		}
	}
	return errors.Join(errs...)
}
