package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/estimatch/internal/model"
	"golang.org/x/sync/errgroup"
)

// lineBatch is a slice of prioritized items sent to the collaborator in one call.
type lineBatch struct {
	items []PrioritizedItem
	index int
}

// batchOutcome is what a worker hands back to the collector for one batch.
type batchOutcome struct {
	err      error
	response model.MatchResponse
	batch    lineBatch
	called   bool
}

// partition splits items into consecutive batches of at most size items.
func partition(items []PrioritizedItem, size int) []lineBatch {
	batches := make([]lineBatch, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		batches = append(batches, lineBatch{index: len(batches), items: items[start:end]})
	}
	return batches
}

// dispatch runs the batches through a pool of MaxConcurrency workers. Workers only
// call the collaborator; the calling goroutine collects outcomes and is the only
// writer of results, metrics and the result cache.
func (e *MatchingEngine) dispatch(
	ctx context.Context,
	logger *slog.Logger,
	pending []PrioritizedItem,
	estimates []model.EstimateLineItem,
	index *model.EstimateIndex,
	projectID string,
	opts model.BulkProcessingOptions,
	results []model.MatchResult,
	metrics *model.ProcessingMetrics,
) {
	batches := partition(pending, opts.BatchSize)
	workers := min(opts.MaxConcurrency, len(batches))

	workChan := make(chan lineBatch, len(batches))
	for _, b := range batches {
		workChan <- b
	}
	close(workChan)

	outcomes := make(chan batchOutcome, len(batches))

	var g errgroup.Group
	for workerID := 0; workerID < workers; workerID++ {
		workerID := workerID
		g.Go(func() error {
			for b := range workChan {
				logger.Debug("worker processing batch",
					"worker_id", workerID,
					"batch", b.index+1,
					"items", len(b.items))
				outcomes <- e.matchBatch(ctx, b, len(batches), estimates, projectID)
			}
			return nil
		})
	}

	go func() {
		_ = g.Wait()
		close(outcomes)
	}()

	completed := 0
	for out := range outcomes {
		e.collect(ctx, logger, out, index, opts, results, metrics)
		completed++
		if e.progress != nil {
			e.progress(completed, len(batches))
		}
	}
}

// matchBatch performs the collaborator call for one batch. A canceled context
// fails the batch without calling out; a panicking collaborator fails only its batch.
func (e *MatchingEngine) matchBatch(
	ctx context.Context,
	b lineBatch,
	totalBatches int,
	estimates []model.EstimateLineItem,
	projectID string,
) (out batchOutcome) {
	out.batch = b
	if err := ctx.Err(); err != nil {
		out.err = err
		return out
	}

	defer func() {
		if r := recover(); r != nil {
			out.err = fmt.Errorf("matching collaborator panicked: %v", r)
		}
	}()

	out.called = true
	matchContext := fmt.Sprintf("Project %s: invoice line item batch %d of %d (%d items)",
		projectID, b.index+1, totalBatches, len(b.items))
	out.response, out.err = e.collaborator.Match(ctx, syntheticInvoices(b.items), estimates, matchContext)
	return out
}

// syntheticInvoices regroups batch items under copies of their source invoice headers.
func syntheticInvoices(items []PrioritizedItem) []model.Invoice {
	var invoices []model.Invoice
	positions := make(map[*model.Invoice]int)

	for _, it := range items {
		i, ok := positions[it.Source]
		if !ok {
			i = len(invoices)
			positions[it.Source] = i
			invoices = append(invoices, model.Invoice{
				ID:            it.Source.ID,
				InvoiceNumber: it.Source.InvoiceNumber,
				SupplierName:  it.Source.SupplierName,
				InvoiceDate:   it.Source.InvoiceDate,
			})
		}
		invoices[i].LineItems = append(invoices[i].LineItems, it.Item)
	}

	return invoices
}

// collect records one batch outcome.
func (e *MatchingEngine) collect(
	ctx context.Context,
	logger *slog.Logger,
	out batchOutcome,
	index *model.EstimateIndex,
	opts model.BulkProcessingOptions,
	results []model.MatchResult,
	metrics *model.ProcessingMetrics,
) {
	if out.called {
		metrics.LLMCalls++
	}

	if out.err != nil || !out.response.Success {
		err := out.err
		if err == nil {
			err = fmt.Errorf("collaborator reported failure: %s", out.response.Error)
		}
		logger.Warn("Batch processing failed",
			"batch", out.batch.index+1,
			"items", len(out.batch.items),
			"error", err)
		metrics.FailedBatches++
		for _, it := range out.batch.items {
			results[it.Position] = model.FailedMatch(it.Item.ID)
		}
		return
	}

	cost := e.batchCost
	if out.response.Cost != nil {
		cost = *out.response.Cost
	}
	metrics.CostEstimate += cost

	byID := make(map[string]PrioritizedItem, len(out.batch.items))
	for _, it := range out.batch.items {
		byID[it.Item.ID] = it
	}
	resolved := make(map[string]bool, len(out.batch.items))

	for _, m := range out.response.Matches {
		it, ok := byID[m.InvoiceLineItemID]
		if !ok || resolved[m.InvoiceLineItemID] {
			logger.Debug("ignoring match for item outside batch", "item_id", m.InvoiceLineItemID)
			continue
		}
		resolved[m.InvoiceLineItemID] = true

		r := normalizeMatch(m, index)
		results[it.Position] = r
		if opts.EnableCache && e.results != nil {
			e.remember(ctx, it.Item, r)
		}
	}

	for _, it := range out.batch.items {
		if !resolved[it.Item.ID] {
			results[it.Position] = model.NoMatch(it.Item.ID, model.ReasonNotReturned, model.SourceLLM)
		}
	}
}

// normalizeMatch rebuilds a collaborator match through the model constructor so
// its confidence is clamped and its match type derived.
func normalizeMatch(m model.MatchResult, index *model.EstimateIndex) model.MatchResult {
	if m.EstimateLineItemID != "" && !index.Has(m.EstimateLineItemID) {
		return model.NoMatch(m.InvoiceLineItemID, model.ReasonUnknownEstimate, model.SourceLLM)
	}
	r, err := model.NewMatch(m.InvoiceLineItemID, m.EstimateLineItemID,
		model.ClampConfidence(m.Confidence), m.Reasoning, model.SourceLLM)
	if err != nil {
		return model.NoMatch(m.InvoiceLineItemID, m.Reasoning, model.SourceLLM)
	}
	return r
}
