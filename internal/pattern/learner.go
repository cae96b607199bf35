package pattern

import (
	"log/slog"
	"time"

	"github.com/Veraticus/estimatch/internal/model"
)

// LearnThreshold is the confidence a match must exceed to be learned from.
const LearnThreshold = 0.8

// Learner derives generalized patterns from confident matches.
type Learner struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewLearner creates a learner writing into store.
func NewLearner(store Store, logger *slog.Logger) *Learner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Learner{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Learn folds every confident match into the store and returns how many
// patterns were created or reinforced.
func (l *Learner) Learn(matches []model.MatchResult, invoices []model.Invoice, estimates []model.EstimateLineItem) int {
	suppliers := make(map[string]string)
	items := make(map[string]model.InvoiceLineItem)
	for _, inv := range invoices {
		for _, item := range inv.LineItems {
			suppliers[item.ID] = inv.SupplierName
			items[item.ID] = item
		}
	}
	index := model.NewEstimateIndex(estimates)

	learned := 0
	for _, m := range matches {
		if m.Confidence <= LearnThreshold || m.EstimateLineItemID == "" || m.MatchType == model.MatchNone {
			continue
		}

		item, ok := items[m.InvoiceLineItemID]
		if !ok {
			continue
		}
		estimate, ok := index.Get(m.EstimateLineItemID)
		if !ok {
			continue
		}

		supplier := suppliers[item.ID]
		invoicePattern := Generalize(item.Description)
		estimatePattern := Generalize(estimate.Description)
		if !HasLiteral(invoicePattern) || !HasLiteral(estimatePattern) {
			l.logger.Debug("Skipping pattern without literal text",
				"item", item.ID, "invoice_pattern", invoicePattern, "estimate_pattern", estimatePattern)
			continue
		}
		key := Key(supplier, invoicePattern, estimatePattern)
		now := l.now()
		confidence := m.Confidence

		l.store.Upsert(key, func(p *model.MatchingPattern, exists bool) {
			if exists {
				p.Confidence = max(p.Confidence, confidence)
				p.UsageCount++
				p.SuccessRate = (p.SuccessRate + 1) / 2
				p.LastUsedAt = now
				return
			}
			*p = model.MatchingPattern{
				Key:             key,
				InvoicePattern:  invoicePattern,
				EstimatePattern: estimatePattern,
				Supplier:        supplier,
				TradeName:       estimate.TradeName,
				Confidence:      confidence,
				UsageCount:      1,
				SuccessRate:     1.0,
				CreatedAt:       now,
				LastUsedAt:      now,
			}
		})
		learned++
	}

	if learned > 0 {
		l.logger.Debug("learned patterns", "updated", learned, "total", l.store.Len())
	}

	return learned
}
