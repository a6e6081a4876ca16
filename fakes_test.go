package tick

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ryhazerus/tick/store"
)

var errInjected = errors.New("injected failure")

// faultyStore wraps a real store and injects failures, conflicts and panics.
// Injected failures happen after fn has staged its writes, so they exercise
// the rollback path of the wrapped store.
type faultyStore struct {
	store.Store

	mu             sync.Mutex
	failWith       error
	conflicts      int
	alwaysConflict bool
	panicWith      any
	attempts       int
}

func newFaultyStore() *faultyStore {
	return &faultyStore{Store: store.NewMemoryStore()}
}

func (f *faultyStore) WithTransaction(ctx context.Context, fn func(context.Context, store.Tx) error) error {
	f.mu.Lock()
	f.attempts++
	failWith, panicWith := f.failWith, f.panicWith
	conflict := f.alwaysConflict || f.conflicts > 0
	if f.conflicts > 0 {
		f.conflicts--
	}
	f.mu.Unlock()

	if panicWith != nil {
		panic(panicWith)
	}
	if conflict {
		return store.ErrConflict
	}
	return f.Store.WithTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := fn(ctx, tx); err != nil {
			return err
		}
		return failWith
	})
}

func (f *faultyStore) fail(err error) {
	f.mu.Lock()
	f.failWith = err
	f.mu.Unlock()
}

func (f *faultyStore) panicking(v any) {
	f.mu.Lock()
	f.panicWith = v
	f.mu.Unlock()
}

func (f *faultyStore) Attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

func stored(t *testing.T, s store.Store) (int64, bool) {
	t.Helper()
	v, ok, err := s.Load(context.Background(), DefaultKey)
	require.NoError(t, err)
	return v, ok
}
