package tick

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrInstanceCrashed is returned when the service instance panicked while
// handling a call. The supervisor has already replaced it.
var ErrInstanceCrashed = errors.New("tick: service instance crashed")

// Lifecycle is implemented by anything the Supervisor restarts.
type Lifecycle interface {
	OnBeforeRestart()
	OnAfterRestart()
}

// Compile-time interface check.
var _ Lifecycle = (*Service)(nil)

// SupervisorOption configures a Supervisor.
type SupervisorOption func(*Supervisor)

// WithSupervisorLogger sets the logger used for restart events.
func WithSupervisorLogger(l *zap.Logger) SupervisorOption {
	return func(s *Supervisor) {
		s.logger = l
	}
}

// WithSupervisorMetrics records restarts in m.
func WithSupervisorMetrics(m *Metrics) SupervisorOption {
	return func(s *Supervisor) {
		s.metrics = m
	}
}

// Supervisor owns the live Service instance and replaces it on failure.
// Replacement always goes through OnBeforeRestart on the old instance and
// OnAfterRestart on the new one.
type Supervisor struct {
	mu       sync.RWMutex
	factory  func() *Service
	current  *Service
	restarts int
	logger   *zap.Logger
	metrics  *Metrics
}

// NewSupervisor builds the first instance with factory. The factory must
// hand every instance the same store.
func NewSupervisor(factory func() *Service, opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{factory: factory}
	for _, o := range opts {
		o(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.current = factory()
	return s
}

// Instance returns the live service instance.
func (s *Supervisor) Instance() *Service {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Restarts returns how many times the instance has been replaced.
func (s *Supervisor) Restarts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.restarts
}

// Restart replaces the live instance and returns the new one.
func (s *Supervisor) Restart(reason error) *Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restartLocked(reason)
}

// restartFrom restarts only if failed is still the live instance, so
// concurrent failures of one instance cause a single restart.
func (s *Supervisor) restartFrom(failed *Service, reason error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != failed {
		return
	}
	s.restartLocked(reason)
}

func (s *Supervisor) restartLocked(reason error) *Service {
	old := s.current
	s.logger.Warn("restarting service instance",
		zap.String("instance_id", old.ID()),
		zap.Error(reason),
	)

	s.runHook("before_restart", old.OnBeforeRestart)
	next := s.factory()
	s.runHook("after_restart", next.OnAfterRestart)

	s.current = next
	s.restarts++
	s.metrics.restart()
	return next
}

// runHook calls a lifecycle hook. A panicking hook is logged and never
// blocks the restart.
func (s *Supervisor) runHook(name string, hook func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("lifecycle hook panicked", zap.String("hook", name), zap.Any("panic", r))
		}
	}()
	hook()
}

// Count calls Count on the live instance. If the instance panics it is
// restarted and ErrInstanceCrashed is returned. Storage failures are
// returned as is and do not restart the instance.
func (s *Supervisor) Count(ctx context.Context) (resp string, err error) {
	inst := s.Instance()
	defer func() {
		if r := recover(); r != nil {
			s.restartFrom(inst, fmt.Errorf("panic in Count: %v", r))
			resp, err = "", fmt.Errorf("%w: %v", ErrInstanceCrashed, r)
		}
	}()
	return inst.Count(ctx)
}

// Current reads the committed counter through the live instance.
func (s *Supervisor) Current(ctx context.Context) (int64, bool, error) {
	return s.Instance().Current(ctx)
}
