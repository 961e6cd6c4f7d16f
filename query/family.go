package query

import (
	"context"
	"reflect"
	"slices"
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"
)

// familyFor derives the default resource family from T, e.g. Student -> "students".
func familyFor[T any]() string {
	rt := reflect.TypeOf((*T)(nil)).Elem()
	for rt.Kind() == reflect.Ptr || rt.Kind() == reflect.Slice {
		rt = rt.Elem()
	}
	name := rt.Name()
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return "items"
	}
	return inflection.Plural(toSnake(name))
}

// toSnake converts s to snake_case. Punctuation that shows up in reflected
// type names is turned into separators, because the family is used as a key
// prefix and as an invalidation tag.
func toSnake(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(runes) + len(runes)/2)

	lastUnderscore := false
	sep := func() {
		if !lastUnderscore && b.Len() > 0 {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}

	for i, r := range runes {
		switch {
		case unicode.IsUpper(r):
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					sep()
				}
			}
			b.WriteRune(unicode.ToLower(r))
			lastUnderscore = false
		case unicode.IsLower(r), unicode.IsDigit(r):
			b.WriteRune(r)
			lastUnderscore = false
		default:
			sep()
		}
	}

	return strings.Trim(b.String(), "_")
}

type cacheTagsContextKey struct{}

// WithCacheTags attaches additional cache tags to the context. Pages fetched by
// an observation started with this context are stored under these tags too.
func WithCacheTags(ctx context.Context, tags ...string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(tags) == 0 {
		return ctx
	}

	combined := dedupeStrings(append(cacheTagsFromContext(ctx), tags...))
	if len(combined) == 0 {
		return ctx
	}
	return context.WithValue(ctx, cacheTagsContextKey{}, combined)
}

func cacheTagsFromContext(ctx context.Context) []string {
	if ctx == nil {
		return nil
	}
	if tags, ok := ctx.Value(cacheTagsContextKey{}).([]string); ok {
		return append([]string(nil), tags...)
	}
	return nil
}

// dedupeStrings drops empty and repeated values, keeping first occurrences in order.
func dedupeStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0:0]
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// sharesTag reports whether a and b have a tag in common.
func sharesTag(a, b []string) bool {
	for _, tag := range b {
		if slices.Contains(a, tag) {
			return true
		}
	}
	return false
}
