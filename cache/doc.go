// Package cache provides the shared result cache and key serialization used by list queries.
//
// # Overview
//
// This package exports two main interfaces and their default implementations:
//
//   - CacheService: a tag aware entry store with bulk invalidation
//   - KeySerializer: builds stable, collision free cache keys from a namespace and arguments
//
// The cache is an explicit object owned by the application. Create one with
// NewCacheService and hand it to every coordinator that should share results:
//
//	svc, err := cache.NewCacheService(cache.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	_ = svc.Set(ctx, key, cache.Entry{Value: page, Tags: []string{"students"}, FetchedAt: time.Now()})
//
//	// after a successful mutation
//	n, _ := svc.InvalidateTags(ctx, "students")
//
// # Key Serialization Strategy
//
// The default key serializer joins the namespace and arguments with KeySeparator:
//
//   - Strings (and named string types) are written quoted, so "a::b" stays one segment
//   - Integers, floats and booleans use their canonical strconv form
//   - Slices, arrays and maps are serialized recursively, maps with sorted pairs
//   - Structs list their exported fields as name:value pairs
//   - Anything else falls back to JSON
//
// Because every argument is self delimiting, two argument tuples with the same
// arity never produce the same key.
//
// # Retention vs Freshness
//
// Config.Retention only bounds how long sturdyc keeps an entry around. Whether
// a retained entry is fresh enough to be served without a refetch is decided by
// the caller from Entry.FetchedAt.
package cache
