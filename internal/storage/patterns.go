package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/estimatch/internal/common"
	"github.com/Veraticus/estimatch/internal/model"
)

// LoadPatterns returns all persisted patterns in insertion order.
func (s *SQLiteStorage) LoadPatterns(ctx context.Context) ([]model.MatchingPattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT key, invoice_pattern, estimate_pattern, supplier, trade_name,
		       confidence, success_rate, usage_count, created_at, last_used_at
		FROM matching_patterns
		ORDER BY rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query patterns: %w", err)
	}
	defer func() { _ = rows.Close() }()

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

// GetPattern retrieves a single pattern by key.
func (s *SQLiteStorage) GetPattern(ctx context.Context, key string) (*model.MatchingPattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(key, "key"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT key, invoice_pattern, estimate_pattern, supplier, trade_name,
		       confidence, success_rate, usage_count, created_at, last_used_at
		FROM matching_patterns
		WHERE key = ?
	`, key)

	p, err := scanPattern(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pattern %q: %w", key, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SavePatterns upserts the given patterns in one transaction.
func (s *SQLiteStorage) SavePatterns(ctx context.Context, patterns []model.MatchingPattern) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(patterns) == 0 {
		return nil
	}
	if err := validatePatterns(patterns); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO matching_patterns (
				key, invoice_pattern, estimate_pattern, supplier, trade_name,
				confidence, success_rate, usage_count, created_at, last_used_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET
				invoice_pattern = excluded.invoice_pattern,
				estimate_pattern = excluded.estimate_pattern,
				supplier = excluded.supplier,
				trade_name = excluded.trade_name,
				confidence = excluded.confidence,
				success_rate = excluded.success_rate,
				usage_count = excluded.usage_count,
				last_used_at = excluded.last_used_at
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		now := time.Now()
		for _, p := range patterns {
			createdAt, lastUsed := p.CreatedAt, p.LastUsedAt
			if createdAt.IsZero() {
				createdAt = now
			}
			if lastUsed.IsZero() {
				lastUsed = createdAt
			}
			if _, err := stmt.ExecContext(ctx,
				p.Key, p.InvoicePattern, p.EstimatePattern, p.Supplier, p.TradeName,
				p.Confidence, p.SuccessRate, p.UsageCount, createdAt, lastUsed,
			); err != nil {
				return fmt.Errorf("failed to save pattern %s: %w", p.Key, err)
			}
		}
		return nil
	})
}

// DeletePattern removes a pattern by key.
func (s *SQLiteStorage) DeletePattern(ctx context.Context, key string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(key, "key"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM matching_patterns WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete pattern: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("pattern %q: %w", key, common.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPattern(row rowScanner) (model.MatchingPattern, error) {
	var p model.MatchingPattern
	err := row.Scan(
		&p.Key,
		&p.InvoicePattern,
		&p.EstimatePattern,
		&p.Supplier,
		&p.TradeName,
		&p.Confidence,
		&p.SuccessRate,
		&p.UsageCount,
		&p.CreatedAt,
		&p.LastUsedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, err
		}
		return p, fmt.Errorf("failed to scan pattern: %w", err)
	}
	return p, nil
}
