package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ExactMatchThreshold is the confidence at or above which a match is exact.
const ExactMatchThreshold = 0.8

// ErrInvalidConfidence is returned when a confidence lies outside [0, 1].
var ErrInvalidConfidence = errors.New("confidence must be between 0 and 1")

// Reasoning used by the engine for results it produces itself.
const (
	ReasonBatchFailed     = "Batch processing failed"
	ReasonNotReturned     = "No match returned by matcher"
	ReasonUnknownEstimate = "Matcher referenced an unknown estimate item"
)

// MatchType is the closed set of match strengths.
type MatchType int

// Match types, ordered by strength.
const (
	MatchNone MatchType = iota
	MatchPartial
	MatchExact
)

// String returns the wire form of the match type.
func (t MatchType) String() string {
	switch t {
	case MatchExact:
		return "exact"
	case MatchPartial:
		return "partial"
	default:
		return "none"
	}
}

// ParseMatchType parses the wire form of a match type.
func ParseMatchType(s string) (MatchType, error) {
	switch s {
	case "exact":
		return MatchExact, nil
	case "partial":
		return MatchPartial, nil
	case "none", "":
		return MatchNone, nil
	default:
		return MatchNone, fmt.Errorf("unknown match type %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t MatchType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *MatchType) UnmarshalText(text []byte) error {
	parsed, err := ParseMatchType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// DeriveMatchType computes the match type implied by an estimate id and confidence.
func DeriveMatchType(estimateID string, confidence float64) MatchType {
	switch {
	case estimateID == "" || confidence == 0:
		return MatchNone
	case confidence >= ExactMatchThreshold:
		return MatchExact
	default:
		return MatchPartial
	}
}

// MatchSource records which pipeline stage resolved an item.
type MatchSource string

// Match sources.
const (
	SourcePattern MatchSource = "pattern"
	SourceCache   MatchSource = "cache"
	SourceLLM     MatchSource = "llm"
	SourceFailed  MatchSource = "failed"
)

// MatchResult is the terminal outcome for one invoice line item.
// EstimateLineItemID is empty when the item matched nothing.
type MatchResult struct {
	InvoiceLineItemID  string      `json:"invoice_line_item_id"`
	EstimateLineItemID string      `json:"estimate_line_item_id,omitempty"`
	Reasoning          string      `json:"reasoning"`
	Source             MatchSource `json:"source,omitempty"`
	Confidence         float64     `json:"confidence"`
	MatchType          MatchType   `json:"match_type"`
}

// NewMatch builds a match result, deriving its type from the confidence.
func NewMatch(itemID, estimateID string, confidence float64, reasoning string, source MatchSource) (MatchResult, error) {
	if math.IsNaN(confidence) || confidence < 0 || confidence > 1 {
		return MatchResult{}, fmt.Errorf("%w: %v", ErrInvalidConfidence, confidence)
	}
	if estimateID == "" {
		confidence = 0
	}
	return MatchResult{
		InvoiceLineItemID:  itemID,
		EstimateLineItemID: estimateID,
		Confidence:         confidence,
		Reasoning:          reasoning,
		MatchType:          DeriveMatchType(estimateID, confidence),
		Source:             source,
	}, nil
}

// NoMatch builds a zero-confidence result for an item without an estimate.
func NoMatch(itemID, reasoning string, source MatchSource) MatchResult {
	return MatchResult{
		InvoiceLineItemID: itemID,
		Reasoning:         reasoning,
		MatchType:         MatchNone,
		Source:            source,
	}
}

// FailedMatch builds the result assigned to items of a failed batch.
func FailedMatch(itemID string) MatchResult {
	return NoMatch(itemID, ReasonBatchFailed, SourceFailed)
}

// ClampConfidence forces a confidence into [0, 1]. NaN becomes 0.
func ClampConfidence(c float64) float64 {
	switch {
	case math.IsNaN(c) || c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}

// UnmarshalJSON re-derives the match type so decoded results keep the invariant.
func (m *MatchResult) UnmarshalJSON(data []byte) error {
	type alias MatchResult
	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw.Confidence = ClampConfidence(raw.Confidence)
	if raw.EstimateLineItemID == "" {
		raw.Confidence = 0
	}
	raw.MatchType = DeriveMatchType(raw.EstimateLineItemID, raw.Confidence)
	*m = MatchResult(raw)
	return nil
}

// MatchResponse is what the matching collaborator returns for one batch.
// Cost is nil when the collaborator did not report one.
type MatchResponse struct {
	Cost    *float64      `json:"cost,omitempty"`
	Error   string        `json:"error,omitempty"`
	Matches []MatchResult `json:"matches"`
	Success bool          `json:"success"`
}
