package cache

import (
	"context"

	"github.com/goliatone/go-listquery/internal/cacheinfra"
)

type recordStore interface {
	Get(ctx context.Context, key string) (cacheinfra.Record, bool)
	Set(ctx context.Context, key string, rec cacheinfra.Record) error
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	InvalidateKeys(ctx context.Context, keys []string) error
	InvalidateTags(ctx context.Context, tags ...string) (int, error)
	Clear(ctx context.Context) error
	Size() int
}

// entryService adapts the internal record store to CacheService.
type entryService struct {
	backend recordStore
}

func (s *entryService) Get(ctx context.Context, key string) (Entry, bool) {
	rec, ok := s.backend.Get(ctx, key)
	if !ok {
		return Entry{}, false
	}
	return Entry{Value: rec.Value, Tags: rec.Tags, FetchedAt: rec.FetchedAt}, true
}

func (s *entryService) Set(ctx context.Context, key string, entry Entry) error {
	return s.backend.Set(ctx, key, cacheinfra.Record{
		Value:     entry.Value,
		Tags:      append([]string(nil), entry.Tags...),
		FetchedAt: entry.FetchedAt,
	})
}

func (s *entryService) Delete(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}

func (s *entryService) DeleteByPrefix(ctx context.Context, prefix string) error {
	return s.backend.DeleteByPrefix(ctx, prefix)
}

func (s *entryService) InvalidateKeys(ctx context.Context, keys []string) error {
	return s.backend.InvalidateKeys(ctx, keys)
}

func (s *entryService) InvalidateTags(ctx context.Context, tags ...string) (int, error) {
	return s.backend.InvalidateTags(ctx, tags...)
}

func (s *entryService) Clear(ctx context.Context) error {
	return s.backend.Clear(ctx)
}

func (s *entryService) Size() int {
	return s.backend.Size()
}
