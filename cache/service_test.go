package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

// mapCacheService is an in-memory CacheService used to exercise the generic helpers.
type mapCacheService struct {
	entries map[string]Entry
}

func newMapCacheService() *mapCacheService {
	return &mapCacheService{entries: make(map[string]Entry)}
}

func (m *mapCacheService) Get(ctx context.Context, key string) (Entry, bool) {
	e, ok := m.entries[key]
	return e, ok
}

func (m *mapCacheService) Set(ctx context.Context, key string, entry Entry) error {
	m.entries[key] = entry
	return nil
}

func (m *mapCacheService) Delete(ctx context.Context, key string) error {
	delete(m.entries, key)
	return nil
}

func (m *mapCacheService) DeleteByPrefix(ctx context.Context, prefix string) error {
	return nil
}

func (m *mapCacheService) InvalidateKeys(ctx context.Context, keys []string) error {
	return nil
}

func (m *mapCacheService) InvalidateTags(ctx context.Context, tags ...string) (int, error) {
	return 0, nil
}

func (m *mapCacheService) Clear(ctx context.Context) error {
	m.entries = make(map[string]Entry)
	return nil
}

func (m *mapCacheService) Size() int {
	return len(m.entries)
}

func TestValue_NilInterface(t *testing.T) {
	type SomeInterface interface {
		DoSomething() string
	}

	result, err := Value[SomeInterface](Entry{Value: nil})
	if err != nil {
		t.Errorf("expected no error but got: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil result but got: %v", result)
	}
}

func TestValue_NilPointer(t *testing.T) {
	result, err := Value[*string](Entry{Value: (*string)(nil)})
	if err != nil {
		t.Errorf("expected no error but got: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil result but got: %v", result)
	}
}

func TestValue_TypeAssertionFailure(t *testing.T) {
	result, err := Value[int](Entry{Value: "wrong-type"})
	if !errors.Is(err, ErrInvalidResultType) {
		t.Errorf("expected ErrInvalidResultType but got: %v", err)
	}
	if result != 0 {
		t.Errorf("expected zero value (0) but got: %v", result)
	}
}

func TestLookup(t *testing.T) {
	ctx := context.Background()
	svc := newMapCacheService()
	fetchedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	_ = svc.Set(ctx, "students::list", Entry{Value: "page-1", Tags: []string{"students"}, FetchedAt: fetchedAt})

	t.Run("hit", func(t *testing.T) {
		v, entry, ok, err := Lookup[string](ctx, svc, "students::list")
		if err != nil || !ok {
			t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
		}
		if v != "page-1" {
			t.Errorf("expected 'page-1' but got: '%s'", v)
		}
		if !entry.FetchedAt.Equal(fetchedAt) {
			t.Errorf("expected FetchedAt %v, got %v", fetchedAt, entry.FetchedAt)
		}
	})

	t.Run("miss", func(t *testing.T) {
		_, _, ok, err := Lookup[string](ctx, svc, "missing")
		if ok || err != nil {
			t.Errorf("expected clean miss, got ok=%v err=%v", ok, err)
		}
	})

	t.Run("wrong type", func(t *testing.T) {
		_, _, ok, err := Lookup[int](ctx, svc, "students::list")
		if !ok {
			t.Error("expected the entry to be found")
		}
		if !errors.Is(err, ErrInvalidResultType) {
			t.Errorf("expected ErrInvalidResultType but got: %v", err)
		}
	})
}

func TestEntry_HasTagAndAge(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 30, 0, time.UTC)
	e := Entry{Tags: []string{"students", "page"}, FetchedAt: now.Add(-30 * time.Second)}

	if !e.HasTag("students") {
		t.Error("expected entry to carry the students tag")
	}
	if e.HasTag("users") {
		t.Error("did not expect the users tag")
	}
	if got := e.Age(now); got != 30*time.Second {
		t.Errorf("expected age 30s, got %v", got)
	}
	if got := (Entry{}).Age(now); got != 0 {
		t.Errorf("expected zero age for an unset FetchedAt, got %v", got)
	}
}

func TestNewCacheService(t *testing.T) {
	ctx := context.Background()

	svc, err := NewCacheService(DefaultConfig())
	if err != nil {
		t.Fatalf("NewCacheService() failed: %v", err)
	}

	if err := svc.Set(ctx, "students::a", Entry{Value: 1, Tags: []string{"students"}}); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if err := svc.Set(ctx, "users::a", Entry{Value: 2, Tags: []string{"users"}}); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	n, err := svc.InvalidateTags(ctx, "students")
	if err != nil {
		t.Fatalf("InvalidateTags() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 invalidated entry, got %d", n)
	}
	if _, ok := svc.Get(ctx, "students::a"); ok {
		t.Error("expected students entry to be gone")
	}
	if e, ok := svc.Get(ctx, "users::a"); !ok || e.Value != 2 {
		t.Errorf("expected users entry to survive, got %v %v", e, ok)
	}
}

func TestNewCacheService_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Retention = 0

	svc, err := NewCacheService(cfg)
	if err == nil {
		t.Fatal("expected error for zero retention")
	}
	if svc != nil {
		t.Error("expected nil service on error")
	}

	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "TTL" {
		t.Errorf("expected ConfigError on TTL, got %v", err)
	}
}
