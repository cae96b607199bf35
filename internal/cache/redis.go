package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/estimatch/internal/model"
	"github.com/go-redis/redis/v8"
)

// RedisConfig configures a Redis-backed result cache shared between processes.
type RedisConfig struct {
	Addr      string
	Password  string
	KeyPrefix string
	DB        int
	TTL       time.Duration
	Timeout   time.Duration
}

// RedisStore is a Store backed by Redis. Transport errors are logged and treated as misses.
type RedisStore struct {
	client  *redis.Client
	logger  *slog.Logger
	prefix  string
	ttl     time.Duration
	timeout time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig, logger *slog.Logger) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	s := newRedisStore(client, cfg, logger)

	pingCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return s, nil
}

func newRedisStore(client *redis.Client, cfg RedisConfig, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "estimatch:match:"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &RedisStore{
		client:  client,
		logger:  logger,
		prefix:  prefix,
		ttl:     cfg.TTL,
		timeout: timeout,
	}
}

// Get returns the entry stored under key.
func (s *RedisStore) Get(ctx context.Context, key string) (model.CachedMatch, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("redis cache lookup failed", "key", key, "error", err)
		}
		return model.CachedMatch{}, false
	}

	var match model.CachedMatch
	if err := json.Unmarshal(data, &match); err != nil {
		s.logger.Warn("discarding unreadable cache entry", "key", key, "error", err)
		return model.CachedMatch{}, false
	}
	return match, true
}

// Put stores entry under key.
func (s *RedisStore) Put(ctx context.Context, key string, entry model.CachedMatch) {
	data, err := json.Marshal(entry)
	if err != nil {
		s.logger.Warn("failed to encode cache entry", "key", key, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.client.Set(ctx, s.prefix+key, data, s.ttl).Err(); err != nil {
		s.logger.Warn("redis cache write failed", "key", key, "error", err)
	}
}

// Snapshot scans all entries under the store prefix.
func (s *RedisStore) Snapshot(ctx context.Context) map[string]model.CachedMatch {
	out := make(map[string]model.CachedMatch)

	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", 100).Result()
		if err != nil {
			s.logger.Warn("redis cache scan failed", "error", err)
			return out
		}
		for _, fullKey := range keys {
			key := strings.TrimPrefix(fullKey, s.prefix)
			if match, ok := s.Get(ctx, key); ok {
				out[key] = match
			}
		}
		cursor = next
		if cursor == 0 {
			return out
		}
	}
}

// Len counts the entries under the store prefix.
func (s *RedisStore) Len(ctx context.Context) int {
	n := 0
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", 100).Result()
		if err != nil {
			s.logger.Warn("redis cache scan failed", "error", err)
			return n
		}
		n += len(keys)
		cursor = next
		if cursor == 0 {
			return n
		}
	}
}

// Close releases the Redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
