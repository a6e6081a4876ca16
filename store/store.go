package store

import (
	"context"
	"errors"
)

// ErrConflict is returned by optimistic backends when a concurrent commit
// invalidated the transaction. Callers may retry the whole transaction.
var ErrConflict = errors.New("tick/store: transaction conflict")

// Tx is the view of the store available inside a transaction.
type Tx interface {
	// Get returns the value for key. ok is false if the key has never been written.
	Get(ctx context.Context, key string) (value int64, ok bool, err error)

	// Put stages value for key. It becomes visible only if the transaction commits.
	Put(ctx context.Context, key string, value int64) error
}

// Store defines the interface for transactional counter backends.
type Store interface {
	// WithTransaction runs fn in a single atomic, isolated scope. The
	// transaction commits if fn returns nil and is rolled back otherwise.
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// Load reads the committed value for key outside any transaction.
	Load(ctx context.Context, key string) (value int64, ok bool, err error)

	// Close releases any resources held by the store.
	Close() error
}
