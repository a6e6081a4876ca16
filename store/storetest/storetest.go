// Package storetest provides a conformance suite for store.Store
// implementations.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryhazerus/tick/store"
)

// Factory returns a fresh, empty store. Cleanup is the factory's job.
type Factory func(t *testing.T) store.Store

var errAbort = errors.New("storetest: abort")

// Run exercises the transactional contract every backend must honour.
func Run(t *testing.T, newStore Factory) {
	t.Run("LoadMissing", func(t *testing.T) {
		s := newStore(t)
		_, ok, err := s.Load(context.Background(), "missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("CommitIsVisible", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		err := s.WithTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
			if err := tx.Put(ctx, "k", 7); err != nil {
				return err
			}
			v, ok, err := tx.Get(ctx, "k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, int64(7), v)
			return nil
		})
		require.NoError(t, err)

		v, ok, err := s.Load(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(7), v)
	})

	t.Run("ErrorRollsBack", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		put(t, s, "k", 1)

		err := s.WithTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
			require.NoError(t, tx.Put(ctx, "k", 2))
			return errAbort
		})
		assert.ErrorIs(t, err, errAbort)

		v, _, err := s.Load(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, int64(1), v)
	})

	t.Run("PanicRollsBack", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		put(t, s, "k", 1)

		assert.Panics(t, func() {
			_ = s.WithTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
				require.NoError(t, tx.Put(ctx, "k", 2))
				panic("boom")
			})
		})

		// The store must still be usable after the panic.
		put(t, s, "other", 3)
		v, _, err := s.Load(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, int64(1), v)
	})

	t.Run("ConcurrentIncrements", func(t *testing.T) {
		s := newStore(t)
		put(t, s, "k", 0)

		const workers = 20
		var wg sync.WaitGroup
		errs := make(chan error, workers)

		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- increment(context.Background(), s, "k")
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}

		v, _, err := s.Load(context.Background(), "k")
		require.NoError(t, err)
		assert.Equal(t, int64(workers), v)
	})
}

func put(t *testing.T, s store.Store, key string, value int64) {
	t.Helper()
	err := s.WithTransaction(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.Put(ctx, key, value)
	})
	require.NoError(t, err)
}

// increment retries on store.ErrConflict until the read-modify-write commits.
func increment(ctx context.Context, s store.Store, key string) error {
	for {
		err := s.WithTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
			v, _, err := tx.Get(ctx, key)
			if err != nil {
				return err
			}
			return tx.Put(ctx, key, v+1)
		})
		if !errors.Is(err, store.ErrConflict) {
			return err
		}
	}
}
