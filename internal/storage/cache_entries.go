package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Veraticus/estimatch/internal/model"
)

// LoadCacheEntries returns every persisted cache entry keyed by cache key.
func (s *SQLiteStorage) LoadCacheEntries(ctx context.Context) (map[string]model.CachedMatch, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT key, estimate_line_item_id, confidence, reasoning, stored_at
		FROM match_cache
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cache entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

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

// SaveCacheEntries upserts cache entries; later writes for a key win.
func (s *SQLiteStorage) SaveCacheEntries(ctx context.Context, entries map[string]model.CachedMatch) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	if err := validateEntries(entries); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO match_cache (key, estimate_line_item_id, confidence, reasoning, stored_at)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		now := time.Now()
		for key, entry := range entries {
			storedAt := entry.StoredAt
			if storedAt.IsZero() {
				storedAt = now
			}
			if _, err := stmt.ExecContext(ctx, key, entry.EstimateLineItemID, entry.Confidence, entry.Reasoning, storedAt); err != nil {
				return fmt.Errorf("failed to save cache entry %s: %w", key, err)
			}
		}
		return nil
	})
}

// ClearCacheEntries deletes every cache entry.
func (s *SQLiteStorage) ClearCacheEntries(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM match_cache`); err != nil {
		return fmt.Errorf("failed to clear cache entries: %w", err)
	}
	return nil
}
