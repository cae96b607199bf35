package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Veraticus/estimatch/internal/cache"
	"github.com/Veraticus/estimatch/internal/engine"
	"github.com/Veraticus/estimatch/internal/model"
	"github.com/Veraticus/estimatch/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, collab engine.Collaborator, opts ...Option) *httptest.Server {
	t.Helper()
	eng := engine.New(collab, nil, cache.NewMemoryStore(0))
	server := httptest.NewServer(NewHandler(eng, opts...).SetupRoutes())
	t.Cleanup(server.Close)
	return server
}

func siteWorkCollaborator() *engine.MockCollaborator {
	return engine.NewMockCollaborator().
		WithMatch("i1", "e1", 0.92).
		WithMatch("i2", "e2", 0.9).
		WithMatch("i3", "e3", 0.85)
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data)) //nolint:noctx // test
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestBulkMatch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	server := newTestServer(t, siteWorkCollaborator(), WithRuns(db.Storage))

	resp := postJSON(t, server.URL+"/api/projects/p1/bulk-match", BulkMatchRequest{
		Invoices:  []model.Invoice{testutil.SiteWorkInvoice()},
		Estimates: testutil.SiteWorkEstimates(),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result model.BulkMatchingResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.True(t, result.Success)
	assert.Equal(t, "p1", result.ProjectID)
	require.Len(t, result.Matches, 3)
	assert.Equal(t, 3, result.Metrics.TotalItems)
	assert.Equal(t, 1, result.Metrics.LLMCalls)

	runs, err := db.Storage.ListRuns(context.Background(), "p1", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, result.RunID, runs[0].RunID)
}

func TestBulkMatchPartialOptionsKeepDefaults(t *testing.T) {
	server := newTestServer(t, siteWorkCollaborator())

	resp := postJSON(t, server.URL+"/api/projects/p1/bulk-match", map[string]any{
		"invoices":  []model.Invoice{testutil.SiteWorkInvoice()},
		"estimates": testutil.SiteWorkEstimates(),
		"options":   map[string]any{"batch_size": 10},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result model.BulkMatchingResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	require.True(t, result.Success)
	assert.Equal(t, 10, result.Options.BatchSize)
	assert.Equal(t, 3, result.Options.MaxConcurrency)
	assert.True(t, result.Options.EnableCache)
	assert.True(t, result.Options.EnablePatternLearning)
	assert.True(t, result.Options.PrioritizeHighValue)
	assert.Len(t, result.Patterns, 3)
}

func TestBulkMatchRejectsBadRequests(t *testing.T) {
	server := newTestServer(t, siteWorkCollaborator())

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed JSON", body: `{"invoices": [`},
		{name: "unknown field", body: `{"invoices": [], "estimatez": []}`},
		{name: "no line items", body: `{"invoices": [], "estimates": []}`},
		{name: "duplicate estimate ids", body: `{"invoices": [{"id":"inv","line_items":[{"id":"i1","description":"x"}]}],
			"estimates": [{"id":"e1"},{"id":"e1"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(server.URL+"/api/projects/p1/bulk-match", "application/json", //nolint:noctx // test
				bytes.NewBufferString(tt.body))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestBulkMatchRunFailure(t *testing.T) {
	server := newTestServer(t, siteWorkCollaborator())

	inv := testutil.Invoice("ACME Supply",
		testutil.LineItem("i1", "Rebar", "10", model.CategoryMaterial),
		testutil.LineItem("i1", "Rebar again", "10", model.CategoryMaterial),
	)
	resp := postJSON(t, server.URL+"/api/projects/p1/bulk-match", BulkMatchRequest{
		Invoices:  []model.Invoice{inv},
		Estimates: testutil.SiteWorkEstimates(),
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var result model.BulkMatchingResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.False(t, result.Success)
	assert.True(t, result.FallbackUsed)
	assert.Equal(t, []string{engine.RunFailedRecommendation}, result.Recommendations)
}

func TestListPatternsAfterLearning(t *testing.T) {
	server := newTestServer(t, siteWorkCollaborator())

	resp := postJSON(t, server.URL+"/api/projects/p1/bulk-match", BulkMatchRequest{
		Invoices:  []model.Invoice{testutil.SiteWorkInvoice()},
		Estimates: testutil.SiteWorkEstimates(),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	patternsResp, err := http.Get(server.URL + "/api/patterns") //nolint:noctx // test
	require.NoError(t, err)
	defer func() { _ = patternsResp.Body.Close() }()

	var body struct {
		Patterns []model.MatchingPattern `json:"patterns"`
		Count    int                     `json:"count"`
	}
	require.NoError(t, json.NewDecoder(patternsResp.Body).Decode(&body))
	assert.Equal(t, 3, body.Count)
	assert.Len(t, body.Patterns, 3)
}

func TestListRuns(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		server := newTestServer(t, siteWorkCollaborator())
		resp, err := http.Get(server.URL + "/api/projects/p1/runs") //nolint:noctx // test
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
	})

	t.Run("invalid limit", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		server := newTestServer(t, siteWorkCollaborator(), WithRuns(db.Storage))
		resp, err := http.Get(server.URL + "/api/projects/p1/runs?limit=abc") //nolint:noctx // test
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("empty history", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		server := newTestServer(t, siteWorkCollaborator(), WithRuns(db.Storage))
		resp, err := http.Get(server.URL + "/api/projects/p1/runs?limit=5") //nolint:noctx // test
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.InDelta(t, 0, body["count"], 0)
	})
}

func TestHealth(t *testing.T) {
	server := newTestServer(t, siteWorkCollaborator(), WithVersion("1.2.3"))

	resp, err := http.Get(server.URL + "/health") //nolint:noctx // test
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "1.2.3", health.Version)
}

func TestMetricsEndpoint(t *testing.T) {
	server := newTestServer(t, siteWorkCollaborator())

	resp := postJSON(t, server.URL+"/api/projects/p1/bulk-match", BulkMatchRequest{
		Invoices:  []model.Invoice{testutil.SiteWorkInvoice()},
		Estimates: testutil.SiteWorkEstimates(),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	metricsResp, err := http.Get(server.URL + "/metrics") //nolint:noctx // test
	require.NoError(t, err)
	defer func() { _ = metricsResp.Body.Close() }()
	body, err := io.ReadAll(metricsResp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `estimatch_runs_total{status="success"} 1`)
	assert.Contains(t, string(body), `estimatch_items_total{source="llm"} 3`)
	assert.Contains(t, string(body), "estimatch_run_duration_seconds_count 1")
}
