package engine

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/Veraticus/estimatch/internal/model"
	"github.com/Veraticus/estimatch/internal/similarity"
)

// ErrMockBatchFailure is returned by MockCollaborator for batches configured to fail.
var ErrMockBatchFailure = errors.New("mock collaborator failure")

// MockCollaborator is a test implementation of the Collaborator interface.
// Items with a configured match get it; other items are matched to the most
// similar estimate description, or omitted when nothing is similar enough.
type MockCollaborator struct {
	matches     map[string]MockMatch
	failItems   map[string]bool
	cost        *float64
	calls       []MockCall
	delay       time.Duration
	inFlight    int
	maxInFlight int
	mu          sync.Mutex
}

// MockMatch is a canned collaborator answer for one invoice line item.
type MockMatch struct {
	EstimateID string
	Reasoning  string
	Confidence float64
}

// MockCall records details of a collaborator request.
type MockCall struct {
	Error   error
	Context string
	ItemIDs []string
}

// NewMockCollaborator creates a new mock matching collaborator.
func NewMockCollaborator() *MockCollaborator {
	return &MockCollaborator{
		matches:   make(map[string]MockMatch),
		failItems: make(map[string]bool),
	}
}

// WithMatch configures the answer for an invoice line item.
func (m *MockCollaborator) WithMatch(itemID, estimateID string, confidence float64) *MockCollaborator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matches[itemID] = MockMatch{EstimateID: estimateID, Confidence: confidence, Reasoning: "mock match"}
	return m
}

// FailBatchesWith makes every batch containing itemID fail.
func (m *MockCollaborator) FailBatchesWith(itemID string) *MockCollaborator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failItems[itemID] = true
	return m
}

// WithDelay makes each call block for d or until the context ends.
func (m *MockCollaborator) WithDelay(d time.Duration) *MockCollaborator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// WithCost makes every successful response report cost.
func (m *MockCollaborator) WithCost(cost float64) *MockCollaborator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cost = &cost
	return m
}

// Match answers a batch deterministically.
func (m *MockCollaborator) Match(ctx context.Context, invoices []model.Invoice, estimates []model.EstimateLineItem, matchContext string) (model.MatchResponse, error) {
	m.mu.Lock()
	m.inFlight++
	m.maxInFlight = max(m.maxInFlight, m.inFlight)
	delay := m.delay
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if delay > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(delay):
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	call := MockCall{Context: matchContext}
	var matches []model.MatchResult
	for _, inv := range invoices {
		for _, item := range inv.LineItems {
			call.ItemIDs = append(call.ItemIDs, item.ID)
			if m.failItems[item.ID] {
				call.Error = ErrMockBatchFailure
			}
			if r, ok := m.answer(item, estimates); ok {
				matches = append(matches, r)
			}
		}
	}

	if call.Error == nil {
		call.Error = ctx.Err()
	}
	m.calls = append(m.calls, call)
	if call.Error != nil {
		return model.MatchResponse{}, call.Error
	}

	return model.MatchResponse{Success: true, Matches: matches, Cost: m.cost}, nil
}

func (m *MockCollaborator) answer(item model.InvoiceLineItem, estimates []model.EstimateLineItem) (model.MatchResult, bool) {
	if canned, ok := m.matches[item.ID]; ok {
		return model.MatchResult{
			InvoiceLineItemID:  item.ID,
			EstimateLineItemID: canned.EstimateID,
			Confidence:         canned.Confidence,
			Reasoning:          canned.Reasoning,
		}, true
	}

	var best model.EstimateLineItem
	bestScore := 0.0
	for _, e := range estimates {
		if s := similarity.NormalizedFold(item.Description, e.Description); s > bestScore {
			best, bestScore = e, s
		}
	}
	if bestScore < LowConfidence {
		return model.MatchResult{}, false
	}

	return model.MatchResult{
		InvoiceLineItemID:  item.ID,
		EstimateLineItemID: best.ID,
		Confidence:         math.Round(bestScore*100) / 100,
		Reasoning:          "closest estimate description",
	}, true
}

// Calls returns a copy of the recorded calls.
func (m *MockCollaborator) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of calls made.
func (m *MockCollaborator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// MaxInFlight returns the highest number of concurrent calls observed.
func (m *MockCollaborator) MaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxInFlight
}
