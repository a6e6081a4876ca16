package tick

import (
	"time"

	"go.uber.org/zap"

	"github.com/ryhazerus/tick/store"
)

// Option configures a Service.
type Option func(*Service)

// WithStore sets the backing transactional store.
// If not provided, an in-memory store is used by default.
func WithStore(s store.Store) Option {
	return func(svc *Service) {
		svc.store = s
	}
}

// WithKey overrides the counter key. Defaults to DefaultKey.
func WithKey(key string) Option {
	return func(svc *Service) {
		svc.key = key
	}
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(svc *Service) {
		svc.logger = l
	}
}

// WithMetrics attaches Prometheus collectors created by NewMetrics.
func WithMetrics(m *Metrics) Option {
	return func(svc *Service) {
		svc.metrics = m
	}
}

// WithRestartPolicy selects how a fresh instance treats an existing durable
// value on its first Count. Defaults to ResetOnRestart.
func WithRestartPolicy(p RestartPolicy) Option {
	return func(svc *Service) {
		svc.policy = p
	}
}

// WithRetry bounds how often a transaction is retried after a
// store.ErrConflict. initial is the first backoff interval.
func WithRetry(maxRetries uint64, initial time.Duration) Option {
	return func(svc *Service) {
		svc.maxRetries = maxRetries
		svc.initialBackoff = initial
	}
}
