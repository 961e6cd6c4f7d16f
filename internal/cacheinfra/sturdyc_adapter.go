package cacheinfra

import (
	"context"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/viccon/sturdyc"
)

// Config holds the configuration for the sturdyc cache adapter.
type Config struct {
	// Capacity defines the maximum number of entries that the cache can store.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access.
	// Must be greater than 0. Default: 256
	NumShards int

	// TTL is how long an entry is retained before sturdyc drops it.
	// Must be greater than 0.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// EvictionInterval sets how often the cache checks for expired entries.
	// Zero value uses the sturdyc default.
	EvictionInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          256,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
	}
}

// ToSturdycOptions converts the optional parts of Config to sturdyc options.
// Capacity, NumShards, TTL and EvictionPercentage go to the sturdyc.New constructor.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option
	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}
	return options
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}
	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}
	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}
	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}
	if c.EvictionInterval < 0 {
		return &ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// Record is the unit stored in the sturdyc client.
type Record struct {
	Value     any
	Tags      []string
	FetchedAt time.Time
}

type keySet = *xsync.MapOf[string, struct{}]

// sweepEvery is the number of writes between sweeps of the tag index for keys
// sturdyc expired or evicted on its own.
const sweepEvery = 1024

// sturdycService stores records in a sturdyc client and keeps a tag index
// next to it so a whole family of keys can be dropped at once. keyTags holds
// the tags each key is registered under, so removing a key unregisters it.
type sturdycService struct {
	client  *sturdyc.Client[Record]
	tags    *xsync.MapOf[string, keySet]
	keyTags *xsync.MapOf[string, []string]
	writes  atomic.Uint64
}

// NewSturdycService validates cfg and creates a sturdyc backed record store.
func NewSturdycService(cfg Config) (*sturdycService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[Record](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &sturdycService{
		client:  client,
		tags:    xsync.NewMapOf[string, keySet](),
		keyTags: xsync.NewMapOf[string, []string](),
	}, nil
}

// Get returns the record stored under key, if it has not expired.
func (s *sturdycService) Get(ctx context.Context, key string) (Record, bool) {
	return s.client.Get(key)
}

// Set stores rec under key and registers key under each of the record tags.
// Tags the key carried before and rec does not are released.
func (s *sturdycService) Set(ctx context.Context, key string, rec Record) error {
	if key == "" {
		return &ConfigError{Field: "key", Message: "cannot be empty"}
	}

	s.client.Set(key, rec)

	tags := slices.Clone(rec.Tags)
	var prev []string
	s.keyTags.Compute(key, func(old []string, _ bool) ([]string, bool) {
		prev = old
		return tags, len(tags) == 0
	})
	for _, tag := range prev {
		if !slices.Contains(tags, tag) {
			s.unregister(tag, key)
		}
	}
	for _, tag := range tags {
		s.register(tag, key)
	}

	if s.writes.Add(1)%sweepEvery == 0 {
		s.sweep()
	}
	return nil
}

// Delete removes a single entry.
func (s *sturdycService) Delete(ctx context.Context, key string) error {
	s.remove(key)
	return nil
}

// DeleteByPrefix removes every entry whose key starts with prefix.
func (s *sturdycService) DeleteByPrefix(ctx context.Context, prefix string) error {
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			s.remove(key)
		}
	}
	// keys sturdyc already dropped are only left in the index
	s.keyTags.Range(func(key string, _ []string) bool {
		if strings.HasPrefix(key, prefix) {
			s.forget(key)
		}
		return true
	})
	return nil
}

// InvalidateKeys removes the listed entries.
func (s *sturdycService) InvalidateKeys(ctx context.Context, keys []string) error {
	for _, key := range keys {
		s.remove(key)
	}
	return nil
}

// InvalidateTags removes every entry registered under any of tags.
// Keys already evicted by sturdyc are not counted.
func (s *sturdycService) InvalidateTags(ctx context.Context, tags ...string) (int, error) {
	removed := 0
	for _, tag := range tags {
		set, ok := s.tags.LoadAndDelete(tag)
		if !ok {
			continue
		}
		set.Range(func(key string, _ struct{}) bool {
			if _, live := s.client.Get(key); live {
				removed++
			}
			s.remove(key)
			return true
		})
	}
	return removed, nil
}

// Clear drops all entries and the tag index.
func (s *sturdycService) Clear(ctx context.Context) error {
	for _, key := range s.client.ScanKeys() {
		s.client.Delete(key)
	}
	s.keyTags.Clear()
	s.tags.Clear()
	return nil
}

func (s *sturdycService) remove(key string) {
	s.client.Delete(key)
	s.forget(key)
}

// forget drops key from the tag index.
func (s *sturdycService) forget(key string) {
	tags, ok := s.keyTags.LoadAndDelete(key)
	if !ok {
		return
	}
	for _, tag := range tags {
		s.unregister(tag, key)
	}
}

// register and unregister run inside Compute so a tag set is never removed
// while a key is being added to it.
func (s *sturdycService) register(tag, key string) {
	s.tags.Compute(tag, func(set keySet, loaded bool) (keySet, bool) {
		if !loaded {
			set = xsync.NewMapOf[string, struct{}]()
		}
		set.Store(key, struct{}{})
		return set, false
	})
}

func (s *sturdycService) unregister(tag, key string) {
	s.tags.Compute(tag, func(set keySet, loaded bool) (keySet, bool) {
		if !loaded {
			return set, true
		}
		set.Delete(key)
		return set, set.Size() == 0
	})
}

// sweep forgets indexed keys sturdyc no longer holds.
func (s *sturdycService) sweep() {
	s.keyTags.Range(func(key string, _ []string) bool {
		if _, live := s.client.Get(key); !live {
			s.forget(key)
		}
		return true
	})
}

// Size returns the number of entries currently held by sturdyc.
func (s *sturdycService) Size() int {
	return s.client.Size()
}
