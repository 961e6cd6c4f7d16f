package cache

import (
	"context"
	"errors"
	"slices"
	"time"
)

// ErrInvalidResultType is returned when a cached value cannot be converted to the requested type.
var ErrInvalidResultType = errors.New("cache: cached value has unexpected type")

// KeySerializer builds a cache key from a namespace + arbitrary args.
// Implementations must be injective over the args they accept: two different
// argument tuples under the same namespace never produce the same key.
type KeySerializer interface {
	SerializeKey(namespace string, args ...any) string
}

// Entry is a cached value together with the tags it was registered under.
type Entry struct {
	Value     any
	Tags      []string
	FetchedAt time.Time
}

// HasTag reports whether the entry was stored under tag.
func (e Entry) HasTag(tag string) bool {
	return slices.Contains(e.Tags, tag)
}

// Age returns how long ago the entry was fetched, relative to now.
func (e Entry) Age(now time.Time) time.Duration {
	if e.FetchedAt.IsZero() {
		return 0
	}
	return now.Sub(e.FetchedAt)
}

// CacheService is the shared result cache used by query coordinators.
// Reads may happen concurrently; callers are expected to serialise writes per key.
type CacheService interface {
	Get(ctx context.Context, key string) (Entry, bool)
	Set(ctx context.Context, key string, entry Entry) error
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	InvalidateKeys(ctx context.Context, keys []string) error
	// InvalidateTags removes every entry registered under any of the tags
	// and returns how many keys were dropped.
	InvalidateTags(ctx context.Context, tags ...string) (int, error)
	Clear(ctx context.Context) error
	Size() int
}

// Value extracts the typed value held by entry.
// A nil value yields the zero value of T.
func Value[T any](entry Entry) (T, error) {
	var zero T
	if entry.Value == nil {
		return zero, nil
	}
	v, ok := entry.Value.(T)
	if !ok {
		return zero, ErrInvalidResultType
	}
	return v, nil
}

// Lookup is a type-safe wrapper around CacheService.Get.
func Lookup[T any](ctx context.Context, service CacheService, key string) (T, Entry, bool, error) {
	var zero T
	entry, ok := service.Get(ctx, key)
	if !ok {
		return zero, Entry{}, false, nil
	}
	v, err := Value[T](entry)
	if err != nil {
		return zero, entry, true, err
	}
	return v, entry, true, nil
}
