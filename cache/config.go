package cache

import (
	"time"

	"github.com/goliatone/go-listquery/internal/cacheinfra"
)

// Config exposes cache configuration options for consumers of the cache package.
//
// Retention is how long an entry is kept at all. It is unrelated to how long
// a page is considered fresh, which belongs to the query coordinator.
type Config struct {
	Capacity           int           `env:"CAPACITY"`
	NumShards          int           `env:"NUM_SHARDS"`
	Retention          time.Duration `env:"RETENTION"`
	EvictionPercentage int           `env:"EVICTION_PERCENTAGE"`
	EvictionInterval   time.Duration `env:"EVICTION_INTERVAL"`
}

// ConfigError reports an invalid configuration field.
type ConfigError = cacheinfra.ConfigError

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return c.toInternal().Validate()
}

// NewCacheService constructs the default cache service implementation using the provided configuration.
func NewCacheService(cfg Config) (CacheService, error) {
	svc, err := cacheinfra.NewSturdycService(cfg.toInternal())
	if err != nil {
		return nil, err
	}
	return &entryService{backend: svc}, nil
}

func (c Config) toInternal() cacheinfra.Config {
	return cacheinfra.Config{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.Retention,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	return Config{
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		Retention:          cfg.TTL,
		EvictionPercentage: cfg.EvictionPercentage,
		EvictionInterval:   cfg.EvictionInterval,
	}
}
