package store

import (
	"context"
	"sync"
)

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory Store implementation.
// It is safe for concurrent use. Transactions are serialized and their
// writes are staged until commit. Counters are lost on process restart.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]int64
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string]int64),
	}
}

type memoryTx struct {
	committed map[string]int64
	staged    map[string]int64
}

func (t *memoryTx) Get(_ context.Context, key string) (int64, bool, error) {
	if v, ok := t.staged[key]; ok {
		return v, true, nil
	}
	v, ok := t.committed[key]
	return v, ok, nil
}

func (t *memoryTx) Put(_ context.Context, key string, value int64) error {
	t.staged[key] = value
	return nil
}

// WithTransaction runs fn while holding the store lock. Staged writes are
// applied only when fn returns nil.
func (m *MemoryStore) WithTransaction(ctx context.Context, fn func(context.Context, Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memoryTx{committed: m.values, staged: make(map[string]int64)}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	for k, v := range tx.staged {
		m.values[k] = v
	}
	return nil
}

// Load returns the committed value for key.
func (m *MemoryStore) Load(_ context.Context, key string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) set(key string, value int64) {
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}

