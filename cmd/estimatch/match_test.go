package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/Veraticus/estimatch/internal/model"
	"github.com/Veraticus/estimatch/internal/storage"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyOptionFlags(t *testing.T) {
	cmd := matchCmd()
	require.NoError(t, cmd.Flags().Parse([]string{
		"--batch-size", "10", "--no-cache", "--strict-supplier", "--threshold", "0.7",
	}))

	base := model.DefaultBulkOptions()
	base.MaxConcurrency = 6
	opts := applyOptionFlags(cmd, base)

	assert.Equal(t, 10, opts.BatchSize)
	assert.Equal(t, 6, opts.MaxConcurrency, "unchanged flags keep bundle values")
	assert.False(t, opts.EnableCache)
	assert.True(t, opts.EnablePatternLearning)
	assert.True(t, opts.StrictSupplierScope)
	assert.InDelta(t, 0.7, opts.ConfidenceThreshold, 1e-9)
}

func TestFilterBySupplier(t *testing.T) {
	patterns := []model.MatchingPattern{
		{Key: "a", Supplier: "ACME Supply"},
		{Key: "b", Supplier: "Bolt Depot"},
		{Key: "c"},
	}

	assert.Len(t, filterBySupplier(append([]model.MatchingPattern(nil), patterns...), ""), 3)

	got := filterBySupplier(append([]model.MatchingPattern(nil), patterns...), "acme supply")
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Key)
}

func TestRecordRun(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			t.Logf("Failed to close store: %v", closeErr)
		}
	}()
	require.NoError(t, store.Migrate(ctx))

	recordRun(ctx, store, model.BulkMatchingResult{RunID: "r1", ProjectID: "p1", Success: true, QualityScore: 88})
	recordRun(ctx, store, model.BulkMatchingResult{RunID: "r2", ProjectID: "p1", Success: false})

	runs, err := store.ListRuns(ctx, "p1", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1, "failed runs are not recorded")
	assert.Equal(t, "r1", runs[0].RunID)
	assert.Equal(t, 88, runs[0].QualityScore)
}

func TestWriteResultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.json")
	result := model.BulkMatchingResult{RunID: "r1", ProjectID: "p1", Success: true}

	require.NoError(t, writeResultFile(path, result))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded model.BulkMatchingResult
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "r1", decoded.RunID)
}

func TestInitStorageAndResultCache(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("storage.path", filepath.Join(t.TempDir(), "estimatch.db"))

	ctx := context.Background()
	store, err := initStorage(ctx)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	require.NoError(t, store.SaveCacheEntries(ctx, map[string]model.CachedMatch{
		"10mm steel rebar_5": {EstimateLineItemID: "e1", Confidence: 0.9, Reasoning: "rebar"},
	}))

	rc, err := initResultCache(ctx, store)
	require.NoError(t, err)

	entry, ok := rc.Get(ctx, "10mm steel rebar_5")
	require.True(t, ok)
	assert.Equal(t, "e1", entry.EstimateLineItemID)

	rc.Put(ctx, "ready mix concrete_32", model.CachedMatch{EstimateLineItemID: "e2", Confidence: 0.8})
	require.NoError(t, rc.flush(ctx))

	entries, err := store.LoadCacheEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
