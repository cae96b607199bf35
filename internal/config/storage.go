package config

import (
	"fmt"
	"time"

	"github.com/Veraticus/estimatch/internal/cache"
	"github.com/Veraticus/estimatch/internal/common"
	"github.com/spf13/viper"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// StorageConfig selects where patterns, cache snapshots and runs persist.
type StorageConfig struct {
	Driver      string
	Path        string
	PostgresURL string
}

// LoadStorageConfig reads the storage key. SQLite at DefaultDatabasePath is the default.
func LoadStorageConfig() (StorageConfig, error) {
	cfg := StorageConfig{
		Driver:      viper.GetString("storage.driver"),
		Path:        ExpandPath(viper.GetString("storage.path")),
		PostgresURL: viper.GetString("storage.postgres_url"),
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverSQLite
	}

	switch cfg.Driver {
	case DriverSQLite:
		if cfg.Path == "" {
			cfg.Path = DefaultDatabasePath()
		}
	case DriverPostgres:
		if cfg.PostgresURL == "" {
			return StorageConfig{}, fmt.Errorf("%w: storage.postgres_url is required for the postgres driver", common.ErrMissingConfig)
		}
	default:
		return StorageConfig{}, fmt.Errorf("%w: unknown storage driver %q", common.ErrInvalidConfig, cfg.Driver)
	}
	return cfg, nil
}

// CacheConfig selects the result cache backend.
type CacheConfig struct {
	Backend string
	TTL     time.Duration
	Redis   cache.RedisConfig
}

// LoadCacheConfig reads the cache key. The in-memory backend is the default.
func LoadCacheConfig() (CacheConfig, error) {
	cfg := CacheConfig{
		Backend: viper.GetString("cache.backend"),
		TTL:     viper.GetDuration("cache.ttl"),
		Redis: cache.RedisConfig{
			Addr:      viper.GetString("cache.redis.addr"),
			Password:  viper.GetString("cache.redis.password"),
			DB:        viper.GetInt("cache.redis.db"),
			KeyPrefix: viper.GetString("cache.redis.key_prefix"),
			Timeout:   viper.GetDuration("cache.redis.timeout"),
		},
	}
	if cfg.Backend == "" {
		cfg.Backend = CacheMemory
	}
	cfg.Redis.TTL = cfg.TTL

	switch cfg.Backend {
	case CacheMemory:
	case CacheRedis:
		if cfg.Redis.Addr == "" {
			cfg.Redis.Addr = "localhost:6379"
		}
	default:
		return CacheConfig{}, fmt.Errorf("%w: unknown cache backend %q", common.ErrInvalidConfig, cfg.Backend)
	}
	return cfg, nil
}
