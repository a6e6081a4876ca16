package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/ryhazerus/tick/store"
)

// Compile-time interface check.
var _ store.Store = (*RedisStore)(nil)

// RedisStore is a Store backed by Redis. Each counter is stored as a plain
// integer string. Transactions are optimistic: every key touched is WATCHed
// and writes are queued in a MULTI/EXEC block at commit. A transaction that
// lost a race fails with store.ErrConflict.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis-backed store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

type redisTx struct {
	rtx     *redis.Tx
	watched map[string]bool
	writes  map[string]int64
	order   []string
}

// watch WATCHes key once per transaction. Re-watching a key resets the
// version the server compares at EXEC, which would hide a write that landed
// after the first read.
func (t *redisTx) watch(ctx context.Context, key string) error {
	if t.watched[key] {
		return nil
	}
	if err := t.rtx.Watch(ctx, redisKey(key)).Err(); err != nil {
		return fmt.Errorf("tick/store/redis: watch: %w", err)
	}
	t.watched[key] = true
	return nil
}

func (t *redisTx) Get(ctx context.Context, key string) (int64, bool, error) {
	if v, ok := t.writes[key]; ok {
		return v, true, nil
	}
	if err := t.watch(ctx, key); err != nil {
		return 0, false, err
	}

	v, err := t.rtx.Get(ctx, redisKey(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("tick/store/redis: get: %w", err)
	}
	return v, true, nil
}

func (t *redisTx) Put(ctx context.Context, key string, value int64) error {
	if _, ok := t.writes[key]; !ok {
		if err := t.watch(ctx, key); err != nil {
			return err
		}
		t.order = append(t.order, key)
	}
	t.writes[key] = value
	return nil
}

// WithTransaction runs fn on a dedicated connection and commits the staged
// writes with MULTI/EXEC. Nothing is written if fn fails.
func (r *RedisStore) WithTransaction(ctx context.Context, fn func(context.Context, store.Tx) error) error {
	err := r.client.Watch(ctx, func(rtx *redis.Tx) error {
		tx := &redisTx{
			rtx:     rtx,
			watched: make(map[string]bool),
			writes:  make(map[string]int64),
		}
		if err := fn(ctx, tx); err != nil {
			return err
		}
		if len(tx.order) == 0 {
			return nil
		}

		_, err := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, k := range tx.order {
				pipe.Set(ctx, redisKey(k), tx.writes[k], 0)
			}
			return nil
		})
		return err
	})

	if errors.Is(err, redis.TxFailedErr) {
		return store.ErrConflict
	}
	return err
}

// Load returns the committed value for key.
func (r *RedisStore) Load(ctx context.Context, key string) (int64, bool, error) {
	v, err := r.client.Get(ctx, redisKey(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("tick/store/redis: load: %w", err)
	}
	return v, true, nil
}

// Close closes the underlying Redis client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

func redisKey(key string) string {
	return "tick:" + key
}
