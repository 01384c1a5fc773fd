package dao

import (
	"context"
)

// Service abstracts persistence of one entity type keyed by K. The in-memory
// store under dao/store satisfies it; hosts may provide database-backed
// implementations without changing callers.
type Service[K comparable, T any] interface {
	Save(ctx context.Context, t *T) error

	Load(ctx context.Context, id K) (*T, error)

	Delete(ctx context.Context, id K) error

	List(ctx context.Context, parameters ...*Parameter) ([]*T, error)
}
