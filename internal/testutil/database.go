// Package testutil provides shared test fixtures: migrated in-memory databases
// and invoice/estimate bundles used across package tests.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/estimatch/internal/model"
	"github.com/Veraticus/estimatch/internal/storage"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a new in-memory test database seeded with patterns.
// It automatically handles migrations and cleanup.
func SetupTestDB(t *testing.T, patterns ...model.MatchingPattern) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	if len(patterns) > 0 {
		if err := store.SavePatterns(ctx, patterns); err != nil {
			t.Fatalf("failed to seed patterns: %v", err)
		}
	}

	return &TestDB{Storage: store, t: t}
}

// MustLoadPatterns returns the persisted patterns or fails the test.
func (db *TestDB) MustLoadPatterns() []model.MatchingPattern {
	db.t.Helper()
	patterns, err := db.Storage.LoadPatterns(context.Background())
	if err != nil {
		db.t.Fatalf("failed to load patterns: %v", err)
	}
	return patterns
}
