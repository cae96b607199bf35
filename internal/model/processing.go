package model

import "time"

// BulkProcessingOptions tunes a single bulk matching run.
type BulkProcessingOptions struct {
	BatchSize             int     `json:"batch_size" yaml:"batch_size"`
	MaxConcurrency        int     `json:"max_concurrency" yaml:"max_concurrency"`
	ConfidenceThreshold   float64 `json:"confidence_threshold" yaml:"confidence_threshold"`
	EnablePatternLearning bool    `json:"enable_pattern_learning" yaml:"enable_pattern_learning"`
	EnableCache           bool    `json:"enable_cache" yaml:"enable_cache"`
	PrioritizeHighValue   bool    `json:"prioritize_high_value" yaml:"prioritize_high_value"`
	StrictSupplierScope   bool    `json:"strict_supplier_scope,omitempty" yaml:"strict_supplier_scope,omitempty"`
}

// DefaultBulkOptions returns the default run options.
func DefaultBulkOptions() BulkProcessingOptions {
	return BulkProcessingOptions{
		BatchSize:             50,
		MaxConcurrency:        3,
		EnablePatternLearning: true,
		EnableCache:           true,
		PrioritizeHighValue:   true,
		ConfidenceThreshold:   0.5,
	}
}

// Normalize replaces non-positive sizes and out-of-range thresholds with defaults.
func (o BulkProcessingOptions) Normalize() BulkProcessingOptions {
	def := DefaultBulkOptions()
	if o.BatchSize <= 0 {
		o.BatchSize = def.BatchSize
	}
	if o.MaxConcurrency <= 0 {
		o.MaxConcurrency = def.MaxConcurrency
	}
	if o.ConfidenceThreshold <= 0 || o.ConfidenceThreshold > 1 {
		o.ConfidenceThreshold = def.ConfidenceThreshold
	}
	return o
}

// ProcessingMetrics accumulates counters for one run.
type ProcessingMetrics struct {
	TotalItems              int           `json:"total_items"`
	ProcessedItems          int           `json:"processed_items"`
	HighConfidenceMatches   int           `json:"high_confidence_matches"`
	MediumConfidenceMatches int           `json:"medium_confidence_matches"`
	LowConfidenceMatches    int           `json:"low_confidence_matches"`
	NoMatches               int           `json:"no_matches"`
	CacheHits               int           `json:"cache_hits"`
	LLMCalls                int           `json:"llm_calls"`
	PatternMatches          int           `json:"pattern_matches"`
	FailedBatches           int           `json:"failed_batches"`
	BelowThreshold          int           `json:"below_threshold"`
	CostEstimate            float64       `json:"cost_estimate"`
	AverageConfidence       float64       `json:"average_confidence"`
	ProcessingTime          time.Duration `json:"processing_time"`
}

// BulkMatchingResult is the outcome of a bulk matching run.
type BulkMatchingResult struct {
	RunID           string                `json:"run_id"`
	ProjectID       string                `json:"project_id"`
	Error           string                `json:"error,omitempty"`
	Matches         []MatchResult         `json:"matches"`
	Patterns        []MatchingPattern     `json:"patterns"`
	Recommendations []string              `json:"recommendations"`
	Metrics         ProcessingMetrics     `json:"metrics"`
	Options         BulkProcessingOptions `json:"options"`
	QualityScore    int                   `json:"quality_score"`
	Success         bool                  `json:"success"`
	FallbackUsed    bool                  `json:"fallback_used"`
}

// RunSummary is the persisted record of a completed run.
type RunSummary struct {
	CreatedAt    time.Time         `json:"created_at"`
	RunID        string            `json:"run_id"`
	ProjectID    string            `json:"project_id"`
	Metrics      ProcessingMetrics `json:"metrics"`
	QualityScore int               `json:"quality_score"`
	Success      bool              `json:"success"`
}
