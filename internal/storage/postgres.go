package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/estimatch/internal/common"
	"github.com/Veraticus/estimatch/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStorage implements the Storage interface on a PostgreSQL pool, for
// deployments where several API instances share learned patterns.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage connects to databaseURL and verifies the connection.
func NewPostgresStorage(ctx context.Context, databaseURL string) (*PostgresStorage, error) {
	if err := validateString(databaseURL, "databaseURL"); err != nil {
		return nil, err
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 1 * time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("Database connection pool initialized", "max_conns", config.MaxConns)
	return &PostgresStorage{pool: pool}, nil
}

// Close closes the connection pool.
func (s *PostgresStorage) Close() error {
	s.pool.Close()
	return nil
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS matching_patterns (
		seq BIGSERIAL,
		key TEXT PRIMARY KEY,
		invoice_pattern TEXT NOT NULL,
		estimate_pattern TEXT NOT NULL,
		supplier TEXT NOT NULL DEFAULT '',
		trade_name TEXT NOT NULL DEFAULT '',
		confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
		success_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
		usage_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		last_used_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS match_cache (
		key TEXT PRIMARY KEY,
		estimate_line_item_id TEXT NOT NULL,
		confidence DOUBLE PRECISION NOT NULL,
		reasoning TEXT NOT NULL DEFAULT '',
		stored_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS match_runs (
		run_id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		success BOOLEAN NOT NULL,
		quality_score INTEGER NOT NULL,
		metrics JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_match_runs_project ON match_runs(project_id, created_at)`,
}

// Migrate creates the schema if it does not exist.
func (s *PostgresStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	for _, stmt := range postgresSchema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// LoadPatterns returns all persisted patterns in insertion order.
func (s *PostgresStorage) LoadPatterns(ctx context.Context) ([]model.MatchingPattern, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT key, invoice_pattern, estimate_pattern, supplier, trade_name,
		       confidence, success_rate, usage_count, created_at, last_used_at
		FROM matching_patterns
		ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query patterns: %w", err)
	}
	defer rows.Close()

	var patterns []model.MatchingPattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating patterns: %w", err)
	}
	return patterns, nil
}

// SavePatterns upserts patterns in a single batch.
func (s *PostgresStorage) SavePatterns(ctx context.Context, patterns []model.MatchingPattern) error {
	if len(patterns) == 0 {
		return nil
	}
	if err := validatePatterns(patterns); err != nil {
		return err
	}

	now := time.Now()
	batch := &pgx.Batch{}
	for _, p := range patterns {
		createdAt, lastUsed := p.CreatedAt, p.LastUsedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		if lastUsed.IsZero() {
			lastUsed = createdAt
		}
		batch.Queue(`
			INSERT INTO matching_patterns (
				key, invoice_pattern, estimate_pattern, supplier, trade_name,
				confidence, success_rate, usage_count, created_at, last_used_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (key) DO UPDATE SET
				invoice_pattern = EXCLUDED.invoice_pattern,
				estimate_pattern = EXCLUDED.estimate_pattern,
				supplier = EXCLUDED.supplier,
				trade_name = EXCLUDED.trade_name,
				confidence = EXCLUDED.confidence,
				success_rate = EXCLUDED.success_rate,
				usage_count = EXCLUDED.usage_count,
				last_used_at = EXCLUDED.last_used_at
		`, p.Key, p.InvoicePattern, p.EstimatePattern, p.Supplier, p.TradeName,
			p.Confidence, p.SuccessRate, p.UsageCount, createdAt, lastUsed)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()

	for _, p := range patterns {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to save pattern %s: %w", p.Key, err)
		}
	}
	return nil
}

// DeletePattern removes a pattern by key.
func (s *PostgresStorage) DeletePattern(ctx context.Context, key string) error {
	if err := validateString(key, "key"); err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM matching_patterns WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("failed to delete pattern: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("pattern %q: %w", key, common.ErrNotFound)
	}
	return nil
}

// LoadCacheEntries returns every persisted cache entry.
func (s *PostgresStorage) LoadCacheEntries(ctx context.Context) (map[string]model.CachedMatch, error) {
	rows, err := s.pool.Query(ctx, `SELECT key, estimate_line_item_id, confidence, reasoning, stored_at FROM match_cache`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cache entries: %w", err)
	}
	defer rows.Close()

	entries := make(map[string]model.CachedMatch)
	for rows.Next() {
		var (
			key   string
			entry model.CachedMatch
		)
		if err := rows.Scan(&key, &entry.EstimateLineItemID, &entry.Confidence, &entry.Reasoning, &entry.StoredAt); err != nil {
			return nil, fmt.Errorf("failed to scan cache entry: %w", err)
		}
		entries[key] = entry
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cache entries: %w", err)
	}
	return entries, nil
}

// SaveCacheEntries upserts cache entries.
func (s *PostgresStorage) SaveCacheEntries(ctx context.Context, entries map[string]model.CachedMatch) error {
	if len(entries) == 0 {
		return nil
	}
	if err := validateEntries(entries); err != nil {
		return err
	}

	now := time.Now()
	batch := &pgx.Batch{}
	for key, entry := range entries {
		storedAt := entry.StoredAt
		if storedAt.IsZero() {
			storedAt = now
		}
		batch.Queue(`
			INSERT INTO match_cache (key, estimate_line_item_id, confidence, reasoning, stored_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (key) DO UPDATE SET
				estimate_line_item_id = EXCLUDED.estimate_line_item_id,
				confidence = EXCLUDED.confidence,
				reasoning = EXCLUDED.reasoning,
				stored_at = EXCLUDED.stored_at
		`, key, entry.EstimateLineItemID, entry.Confidence, entry.Reasoning, storedAt)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()

	for range entries {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to save cache entry: %w", err)
		}
	}
	return nil
}

// ClearCacheEntries deletes every cache entry.
func (s *PostgresStorage) ClearCacheEntries(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM match_cache`); err != nil {
		return fmt.Errorf("failed to clear cache entries: %w", err)
	}
	return nil
}

// SaveRun records a run summary.
func (s *PostgresStorage) SaveRun(ctx context.Context, run model.RunSummary) error {
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

	_, err = s.pool.Exec(ctx, `
		INSERT INTO match_runs (run_id, project_id, success, quality_score, metrics, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (run_id) DO NOTHING
	`, run.RunID, run.ProjectID, run.Success, run.QualityScore, metrics, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *PostgresStorage) ListRuns(ctx context.Context, projectID string, limit int) ([]model.RunSummary, error) {
	if limit <= 0 {
		limit = defaultRunLimit
	}

	rows, err := s.pool.Query(ctx, `
		SELECT run_id, project_id, success, quality_score, metrics, created_at
		FROM match_runs
		WHERE $1 = '' OR project_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []model.RunSummary
	for rows.Next() {
		var (
			run     model.RunSummary
			metrics []byte
		)
		if err := rows.Scan(&run.RunID, &run.ProjectID, &run.Success, &run.QualityScore, &metrics, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if err := json.Unmarshal(metrics, &run.Metrics); err != nil {
			return nil, fmt.Errorf("failed to decode metrics for run %s: %w", run.RunID, err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// IsNotFound reports whether err means a row was missing.
func IsNotFound(err error) bool {
	return errors.Is(err, common.ErrNotFound) || errors.Is(err, pgx.ErrNoRows)
}
