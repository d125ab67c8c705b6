package idgen

import "github.com/google/uuid"

// NewFunc returns a new globally unique identifier as string. It is a
// variable so tests can stub it.
var NewFunc = func() string { return uuid.New().String() }

// New returns a new identifier.
func New() string { return NewFunc() }

// WithPrefix returns a new identifier prefixed with kind, e.g. "session-…".
func WithPrefix(kind string) string {
	if kind == "" {
		return New()
	}
	return kind + "-" + New()
}
