package tick

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/ryhazerus/tick/store"
)

// DefaultKey is the store key the counter lives under.
const DefaultKey = "COUNTER"

// ErrStorageFailure is returned when the store could not commit a counter
// transaction. No partial update is visible when it is returned.
var ErrStorageFailure = errors.New("tick: storage failure")

// StorageError describes which store operation failed. It matches both
// ErrStorageFailure and the underlying store error with errors.Is.
type StorageError struct {
	Op  string // "init", "increment" or "load"
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("tick: storage failure during %s of %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorageFailure, e.Err}
}

// RestartPolicy decides what the first Count of a fresh instance does with a
// counter value that is already in the store.
type RestartPolicy int

const (
	// ResetOnRestart overwrites the stored value with 0, so every new
	// instance starts at "Tick: 0".
	ResetOnRestart RestartPolicy = iota
	// ResumeOnRestart continues from the stored value when one exists.
	ResumeOnRestart
)

func (p RestartPolicy) String() string {
	switch p {
	case ResetOnRestart:
		return "reset"
	case ResumeOnRestart:
		return "resume"
	default:
		return fmt.Sprintf("RestartPolicy(%d)", int(p))
	}
}

// ParseRestartPolicy converts "reset" or "resume" into a RestartPolicy.
func ParseRestartPolicy(s string) (RestartPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reset":
		return ResetOnRestart, nil
	case "resume":
		return ResumeOnRestart, nil
	default:
		return 0, fmt.Errorf("tick: unknown restart policy %q", s)
	}
}

// Service counts requests against a single counter held in a transactional
// store. Each instance tracks locally whether it has started ticking; the
// counter value itself only lives in the store.
type Service struct {
	id             string
	key            string
	store          store.Store
	logger         *zap.Logger
	metrics        *Metrics
	policy         RestartPolicy
	maxRetries     uint64
	initialBackoff time.Duration

	// initMu serializes first-call initialization on this instance.
	initMu sync.Mutex
	state  *fsm.FSM
}

// New creates a Fresh Service with the given options.
// If no store is provided, an in-memory store is used.
func New(opts ...Option) *Service {
	s := &Service{
		id:             uuid.NewString(),
		key:            DefaultKey,
		policy:         ResetOnRestart,
		maxRetries:     10,
		initialBackoff: 10 * time.Millisecond,
		state:          newInstanceFSM(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.store == nil {
		s.store = store.NewMemoryStore()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.logger = s.logger.With(zap.String("instance_id", s.id), zap.String("key", s.key))
	return s
}

// ID returns the identifier of this instance generation.
func (s *Service) ID() string { return s.id }

// State returns StateFresh or StateTicking.
func (s *Service) State() string { return s.state.Current() }

// Count advances the counter and returns "Tick: n\n". The first call on a
// fresh instance initializes the counter and returns "Tick: 0\n".
func (s *Service) Count(ctx context.Context) (string, error) {
	// A request abandoned before it started never reaches the store.
	if err := ctx.Err(); err != nil {
		return "", err
	}

	value, err := s.count(ctx)
	if err != nil {
		if errors.Is(err, ErrStorageFailure) {
			s.metrics.storageFailure()
		}
		s.logger.Error("count failed", zap.Error(err))
		return "", err
	}
	s.metrics.observe(value)
	return formatTick(value), nil
}

func (s *Service) count(ctx context.Context) (int64, error) {
	if !s.state.Is(StateTicking) {
		s.initMu.Lock()
		if !s.state.Is(StateTicking) {
			defer s.initMu.Unlock()
			return s.start(ctx)
		}
		s.initMu.Unlock()
	}
	return s.increment(ctx)
}

// start runs the initialization transaction and moves the instance to
// Ticking once it has committed.
func (s *Service) start(ctx context.Context) (int64, error) {
	var value int64

	err := s.transact(ctx, func(ctx context.Context, tx store.Tx) error {
		value = 0
		if s.policy == ResumeOnRestart {
			current, ok, err := tx.Get(ctx, s.key)
			if err != nil {
				return err
			}
			if ok {
				value = current + 1
			}
		}
		return tx.Put(ctx, s.key, value)
	})
	if err != nil {
		return 0, &StorageError{Op: "init", Key: s.key, Err: err}
	}

	// The commit has happened; the transition must not be lost to a
	// cancelled request context.
	if err := markTicking(context.WithoutCancel(ctx), s.state); err != nil {
		return 0, fmt.Errorf("tick: mark ticking: %w", err)
	}

	s.logger.Info("counter started", zap.Int64("value", value), zap.Stringer("policy", s.policy))
	return value, nil
}

func (s *Service) increment(ctx context.Context) (int64, error) {
	var (
		value   int64
		missing bool
	)

	err := s.transact(ctx, func(ctx context.Context, tx store.Tx) error {
		current, ok, err := tx.Get(ctx, s.key)
		if err != nil {
			return err
		}
		missing = !ok
		if missing {
			value = 0
		} else {
			value = current + 1
		}
		return tx.Put(ctx, s.key, value)
	})
	if err != nil {
		return 0, &StorageError{Op: "increment", Key: s.key, Err: err}
	}

	if missing {
		s.logger.Warn("counter missing from store, reinitialized")
	}
	return value, nil
}

// transact runs fn in a store transaction, retrying with exponential backoff
// while the store reports conflicts. Any other error is returned at once.
func (s *Service) transact(ctx context.Context, fn func(context.Context, store.Tx) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.initialBackoff
	b.MaxInterval = time.Second
	b.MaxElapsedTime = 0

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := s.store.WithTransaction(ctx, fn)
		if err == nil {
			return nil
		}
		if errors.Is(err, store.ErrConflict) {
			s.logger.Debug("transaction conflict, retrying", zap.Int("attempt", attempt))
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(backoff.WithMaxRetries(b, s.maxRetries), ctx))
}

// Current returns the committed counter value without modifying it.
// ok is false if the counter has never been initialized.
func (s *Service) Current(ctx context.Context) (value int64, ok bool, err error) {
	value, ok, err = s.store.Load(ctx, s.key)
	if err != nil {
		s.metrics.storageFailure()
		return 0, false, &StorageError{Op: "load", Key: s.key, Err: err}
	}
	return value, ok, nil
}

// OnBeforeRestart is called by the supervisor before this instance is
// replaced. The counter already lives in the store, so there is nothing to flush.
func (s *Service) OnBeforeRestart() {
	s.logger.Info("Prepare for restart by supervisor", zap.String("state", s.State()))
}

// OnAfterRestart is called by the supervisor on the replacement instance.
func (s *Service) OnAfterRestart() {
	s.logger.Info("Reinitialize after restart by supervisor", zap.Stringer("policy", s.policy))
}

func formatTick(v int64) string {
	return fmt.Sprintf("Tick: %d\n", v)
}
