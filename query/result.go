package query

import (
	"context"
	"time"
)

// Page is one page of a list resource. Total counts all matching items before pagination.
type Page[T any] struct {
	Items []T `json:"items" msgpack:"items"`
	Total int `json:"total" msgpack:"total"`
}

// ResourceAPI fetches pages of a list resource. Implementations must be idempotent.
type ResourceAPI[T any] interface {
	FetchPage(ctx context.Context, params ListParameters) (Page[T], error)
}

// ResourceFunc adapts a function to ResourceAPI.
type ResourceFunc[T any] func(ctx context.Context, params ListParameters) (Page[T], error)

// FetchPage implements ResourceAPI.
func (f ResourceFunc[T]) FetchPage(ctx context.Context, params ListParameters) (Page[T], error) {
	return f(ctx, params)
}

// QueryResult is the state of an observed list query.
//
// Data, Total, Key and Params always describe the same page. Data is nil when
// nothing can be shown and a non-nil empty slice for an empty page.
// While the active key differs from Key, IsPlaceholderData is set.
type QueryResult[T any] struct {
	Data              []T
	Total             int
	Key               string
	Params            ListParameters
	Error             error
	IsLoading         bool
	IsFetching        bool
	IsPlaceholderData bool
	UpdatedAt         time.Time
}

// HasData reports whether there is something to render.
func (r QueryResult[T]) HasData() bool {
	return r.Data != nil
}

// ErrorKind classifies Error.
func (r QueryResult[T]) ErrorKind() ErrorKind {
	return KindOf(r.Error)
}

// normalizePage rejects impossible totals and turns a nil item list into an empty page.
func normalizePage[T any](page Page[T]) (Page[T], error) {
	if page.Total < 0 {
		return Page[T]{}, MalformedResponseError(errNegativeTotal)
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	return page, nil
}
