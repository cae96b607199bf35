package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/estimatch/internal/cache"
	"github.com/Veraticus/estimatch/internal/common"
	"github.com/Veraticus/estimatch/internal/config"
	"github.com/Veraticus/estimatch/internal/llm"
	"github.com/Veraticus/estimatch/internal/service"
	"github.com/Veraticus/estimatch/internal/storage"
)

// withStorage runs fn against an initialized store and closes it afterwards.
func withStorage(ctx context.Context, fn func(service.Storage) error) (err error) {
	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, store.Close()) }()
	return fn(store)
}

// initStorage opens the configured store and brings its schema up to date.
func initStorage(ctx context.Context) (service.Storage, error) {
	cfg, err := config.LoadStorageConfig()
	if err != nil {
		return nil, err
	}

	var store service.Storage
	switch cfg.Driver {
	case config.DriverPostgres:
		store, err = storage.NewPostgresStorage(ctx, cfg.PostgresURL)
	default:
		store, err = storage.NewSQLiteStorage(cfg.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Debug("Connected to database", "driver", cfg.Driver)
	return store, nil
}

// resultCache is a cache.Store plus a hook that persists it when the run ends.
type resultCache struct {
	cache.Store
	flush func(ctx context.Context) error
}

// initResultCache builds the configured result cache. The memory backend is
// seeded from, and flushed back to, the database cache table.
func initResultCache(ctx context.Context, repo service.CacheRepository) (*resultCache, error) {
	cfg, err := config.LoadCacheConfig()
	if err != nil {
		return nil, err
	}

	if cfg.Backend == config.CacheRedis {
		store, err := cache.NewRedisStore(ctx, cfg.Redis, slog.Default())
		if err != nil {
			return nil, err
		}
		return &resultCache{
			Store: store,
			flush: func(context.Context) error { return store.Close() },
		}, nil
	}

	mem := cache.NewMemoryStore(cfg.TTL)
	entries, err := repo.LoadCacheEntries(ctx)
	if err != nil {
		slog.Warn("Failed to load cached matches", "error", err)
	} else {
		mem.Load(entries)
		slog.Debug("Loaded cached matches", "count", len(entries))
	}

	return &resultCache{
		Store: mem,
		flush: func(ctx context.Context) error {
			defer func() { _ = mem.Close() }()
			return repo.SaveCacheEntries(ctx, mem.Snapshot(ctx))
		},
	}, nil
}

// createMatcher builds the language-model collaborator from the llm config key.
func createMatcher() (*llm.Matcher, error) {
	cfg, err := config.LoadLLMConfig()
	if errors.Is(err, common.ErrMissingConfig) {
		return nil, common.NewUserError("No LLM API key configured. Set llm.<provider>_api_key in config.yaml or export the provider's API key variable", err)
	}
	if err != nil {
		return nil, err
	}

	matcher, err := llm.NewMatcher(cfg, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM matcher: %w", err)
	}
	return matcher, nil
}
