package model

import "time"

// MaxPatternConfidence caps the confidence of any pattern-derived match.
const MaxPatternConfidence = 0.95

// MatchingPattern is a learned invoice-description to estimate-description mapping.
type MatchingPattern struct {
	CreatedAt       time.Time `json:"created_at"`
	LastUsedAt      time.Time `json:"last_used_at"`
	Key             string    `json:"key"`
	InvoicePattern  string    `json:"invoice_pattern"`
	EstimatePattern string    `json:"estimate_pattern"`
	Supplier        string    `json:"supplier,omitempty"`
	TradeName       string    `json:"trade_name,omitempty"`
	Confidence      float64   `json:"confidence"`
	SuccessRate     float64   `json:"success_rate"`
	UsageCount      int       `json:"usage_count"`
}

// CachedMatch is a previously observed match stored in the result cache.
type CachedMatch struct {
	StoredAt           time.Time `json:"stored_at"`
	EstimateLineItemID string    `json:"estimate_line_item_id"`
	Reasoning          string    `json:"reasoning"`
	Confidence         float64   `json:"confidence"`
}
