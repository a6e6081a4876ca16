package store

import (
	"context"
	"sync"
)

// Compile-time interface check.
var _ Store = (*TieredStore)(nil)

// TieredStore wraps an in-memory store (fast path) with a persistent backend
// (durable path). Transactions always run against the persistent store, which
// is the source of truth; committed writes are mirrored into memory. Load
// checks memory first and falls back to the persistent store on a miss.
//
// The cache assumes this TieredStore is the only writer of the persistent
// store. Once a key is cached, Load does not see writes made by other
// processes or through the backend directly; transactions always do.
type TieredStore struct {
	// mu orders commits with their mirror writes so memory never falls
	// behind the persistent store.
	mu         sync.Mutex
	memory     *MemoryStore
	persistent Store
}

// NewTieredStore creates a TieredStore backed by the given persistent store.
// An internal MemoryStore is created automatically.
func NewTieredStore(persistent Store) *TieredStore {
	return &TieredStore{
		memory:     NewMemoryStore(),
		persistent: persistent,
	}
}

// recordingTx remembers the writes of a transaction so they can be mirrored
// once the persistent store has committed them.
type recordingTx struct {
	Tx
	writes map[string]int64
}

func (r *recordingTx) Put(ctx context.Context, key string, value int64) error {
	if err := r.Tx.Put(ctx, key, value); err != nil {
		return err
	}
	r.writes[key] = value
	return nil
}

// WithTransaction runs fn against the persistent backend and mirrors the
// committed writes into memory.
func (t *TieredStore) WithTransaction(ctx context.Context, fn func(context.Context, Tx) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var rec *recordingTx

	err := t.persistent.WithTransaction(ctx, func(ctx context.Context, tx Tx) error {
		rec = &recordingTx{Tx: tx, writes: make(map[string]int64)}
		return fn(ctx, rec)
	})
	if err != nil {
		return err
	}

	for k, v := range rec.writes {
		t.memory.set(k, v)
	}
	return nil
}

// Load reads from memory first. On a miss, it falls back to the persistent
// store and backfills memory.
func (t *TieredStore) Load(ctx context.Context, key string) (int64, bool, error) {
	v, ok, err := t.memory.Load(ctx, key)
	if err != nil {
		return 0, false, err
	}
	if ok {
		return v, true, nil
	}

	// Memory miss — read from persistent backend. Holding mu keeps a
	// concurrent commit from being overwritten by an older backfill.
	t.mu.Lock()
	defer t.mu.Unlock()

	v, ok, err = t.persistent.Load(ctx, key)
	if err != nil {
		return 0, false, err
	}
	if ok {
		t.memory.set(key, v)
	}
	return v, ok, nil
}

// Close closes the persistent backend. The in-memory store needs no cleanup.
func (t *TieredStore) Close() error {
	return t.persistent.Close()
}
