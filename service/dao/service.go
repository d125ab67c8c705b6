package dao

import (
	"context"
)

// Service is a generic keyed store used for run artefacts such as the
// result journal.
type Service[K comparable, T any] interface {
	Save(ctx context.Context, t *T) error

	Load(ctx context.Context, id K) (*T, error)

	Delete(ctx context.Context, id K) error

	// List returns entities matching every parameter.
	List(ctx context.Context, parameters ...*Parameter) ([]*T, error)
}
