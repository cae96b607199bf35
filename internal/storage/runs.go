package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Veraticus/estimatch/internal/model"
)

const defaultRunLimit = 20

// SaveRun records a run summary.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run model.RunSummary) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRun(&run); err != nil {
		return err
	}

	metrics, err := json.Marshal(run.Metrics)
	if err != nil {
		return fmt.Errorf("failed to encode run metrics: %w", err)
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO match_runs (run_id, project_id, success, quality_score, metrics, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.RunID, run.ProjectID, run.Success, run.QualityScore, string(metrics), run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first. An empty projectID lists all projects.
func (s *SQLiteStorage) ListRuns(ctx context.Context, projectID string, limit int) ([]model.RunSummary, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultRunLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, project_id, success, quality_score, metrics, created_at
		FROM match_runs
		WHERE ? = '' OR project_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, projectID, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []model.RunSummary
	for rows.Next() {
		var (
			run     model.RunSummary
			metrics string
		)
		if err := rows.Scan(&run.RunID, &run.ProjectID, &run.Success, &run.QualityScore, &metrics, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if err := json.Unmarshal([]byte(metrics), &run.Metrics); err != nil {
			return nil, fmt.Errorf("failed to decode metrics for run %s: %w", run.RunID, err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}
