// Package api exposes the matching engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Veraticus/estimatch/internal/common"
	"github.com/Veraticus/estimatch/internal/input"
	"github.com/Veraticus/estimatch/internal/model"
	"github.com/Veraticus/estimatch/internal/service"
	"github.com/gorilla/mux"
)

// MaxRequestSize bounds bulk-match request bodies.
const MaxRequestSize = 10 * 1024 * 1024 // 10MB

// Matcher is the engine surface the handler depends on.
type Matcher interface {
	BulkMatchInvoices(
		ctx context.Context,
		invoices []model.Invoice,
		estimates []model.EstimateLineItem,
		projectID string,
		opts *model.BulkProcessingOptions,
	) model.BulkMatchingResult
	Patterns() []model.MatchingPattern
}

// Handler handles HTTP requests for bulk matching.
type Handler struct {
	matcher Matcher
	runs    service.RunRepository
	metrics *Metrics
	logger  *slog.Logger
	version string
	started time.Time
}

// Option configures a Handler.
type Option func(*Handler)

// WithRuns records each completed run in the repository.
func WithRuns(runs service.RunRepository) Option {
	return func(h *Handler) { h.runs = runs }
}

// WithLogger sets the handler logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// WithVersion sets the version reported by the health endpoint.
func WithVersion(version string) Option {
	return func(h *Handler) { h.version = version }
}

// NewHandler creates a new API handler.
func NewHandler(matcher Matcher, opts ...Option) *Handler {
	h := &Handler{
		matcher: matcher,
		metrics: NewMetrics(),
		logger:  slog.Default(),
		version: "dev",
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SetupRoutes configures the HTTP routes.
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/api/projects/{projectID}/bulk-match", h.BulkMatch).Methods("POST")
	router.HandleFunc("/api/projects/{projectID}/runs", h.ListRuns).Methods("GET")
	router.HandleFunc("/api/patterns", h.ListPatterns).Methods("GET")

	router.HandleFunc("/health", h.Health).Methods("GET")
	router.Handle("/metrics", h.metrics.Handler()).Methods("GET")

	return router
}

// BulkMatchRequest is the body of a bulk-match call.
type BulkMatchRequest struct {
	Invoices  []model.Invoice              `json:"invoices"`
	Estimates []model.EstimateLineItem     `json:"estimates"`
	Options   *model.BulkProcessingOptions `json:"options,omitempty"`
}

// BulkMatch runs the matching pipeline for one project.
func (h *Handler) BulkMatch(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["projectID"]

	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestSize)
	// Fields absent from a partial options object keep their defaults.
	defaults := model.DefaultBulkOptions()
	req := BulkMatchRequest{Options: &defaults}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	bundle := input.Bundle{ProjectID: projectID, Invoices: req.Invoices, Estimates: req.Estimates}
	if err := bundle.Validate(); err != nil {
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := model.DefaultBulkOptions()
	if req.Options != nil {
		opts = req.Options.Normalize()
	}

	result := h.matcher.BulkMatchInvoices(r.Context(), req.Invoices, req.Estimates, projectID, &opts)
	h.metrics.Observe(result)
	h.recordRun(r.Context(), result)

	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	sendJSON(w, status, result)
}

func (h *Handler) recordRun(ctx context.Context, result model.BulkMatchingResult) {
	if h.runs == nil || !result.Success {
		return
	}
	run := model.RunSummary{
		CreatedAt:    time.Now(),
		RunID:        result.RunID,
		ProjectID:    result.ProjectID,
		Metrics:      result.Metrics,
		QualityScore: result.QualityScore,
		Success:      result.Success,
	}
	if err := h.runs.SaveRun(ctx, run); err != nil {
		h.logger.Warn("Failed to record run", "run_id", result.RunID, "error", err)
	}
}

// ListRuns returns recent runs for a project. The limit query parameter is optional.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		sendError(w, http.StatusNotImplemented, "Run history is not configured")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			sendError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	runs, err := h.runs.ListRuns(r.Context(), mux.Vars(r)["projectID"], limit)
	if err != nil {
		if errors.Is(err, common.ErrInvalidInput) {
			sendError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("Failed to list runs", "error", err)
		sendError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}
	if runs == nil {
		runs = []model.RunSummary{}
	}
	sendJSON(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

// ListPatterns returns the learned patterns currently held by the engine.
func (h *Handler) ListPatterns(w http.ResponseWriter, _ *http.Request) {
	patterns := h.matcher.Patterns()
	if patterns == nil {
		patterns = []model.MatchingPattern{}
	}
	sendJSON(w, http.StatusOK, map[string]any{"patterns": patterns, "count": len(patterns)})
}

// HealthResponse represents the health check response structure.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
	Uptime    string `json:"uptime"`
	Patterns  int    `json:"patterns"`
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	sendJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		Timestamp: time.Now().Format(time.RFC3339),
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Patterns:  len(h.matcher.Patterns()),
	})
}

func sendJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func sendError(w http.ResponseWriter, status int, message string) {
	sendJSON(w, status, map[string]string{"error": message})
}
