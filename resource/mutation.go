package resource

import "context"

// MutationAPI writes records of a collection.
type MutationAPI[T any] interface {
	Create(ctx context.Context, record T) (T, error)
	Update(ctx context.Context, id string, record T) (T, error)
	Delete(ctx context.Context, id string) error
}
