// Package breaker wraps a core.Store with a circuit breaker so that a
// failing remote store is not hammered by every request.
package breaker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/introspection"
	"github.com/sony/gobreaker"

	"github.com/aretw0/daybook/pkg/core"
)

// Config holds configuration for the circuit breaker.
type Config struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	// FailureThreshold is the failure ratio that trips the breaker.
	FailureThreshold float64
	MinRequests      uint32
	Logger           *slog.Logger
}

// DefaultConfig returns a configuration suited to a remote object store.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// Store is a core.Store guarded by a circuit breaker. Only store
// unavailability counts as a failure; caller errors pass through.
type Store struct {
	next core.Store
	cb   *gobreaker.CircuitBreaker
}

// Wrap returns next guarded by a breaker configured with config.
func Wrap(next core.Store, config Config) *Store {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= config.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, core.ErrStoreUnavailable)
		},
	})
	return &Store{next: next, cb: cb}
}

func execute[T any](s *Store, op string, fn func() (T, error)) (T, error) {
	out, err := s.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		var zero T
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, core.Unavailable(op, err)
		}
		return zero, err
	}
	return out.(T), nil
}

// List implements core.Store.
func (s *Store) List(ctx context.Context, f core.Filter) ([]core.Entry, error) {
	return execute(s, "list", func() ([]core.Entry, error) {
		return s.next.List(ctx, f)
	})
}

// CreateContainer implements core.Store.
func (s *Store) CreateContainer(ctx context.Context, name string, parent core.ContainerID) (core.ContainerID, error) {
	return execute(s, "create container", func() (core.ContainerID, error) {
		return s.next.CreateContainer(ctx, name, parent)
	})
}

// PutLeaf implements core.Store.
func (s *Store) PutLeaf(ctx context.Context, l core.Leaf) (core.LeafID, error) {
	return execute(s, "put leaf", func() (core.LeafID, error) {
		return s.next.PutLeaf(ctx, l)
	})
}

// FetchLeaf implements core.Store.
func (s *Store) FetchLeaf(ctx context.Context, id core.LeafID) ([]byte, error) {
	return execute(s, "fetch leaf", func() ([]byte, error) {
		return s.next.FetchLeaf(ctx, id)
	})
}

// Watch forwards to the wrapped store when it supports watching.
func (s *Store) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	w, ok := s.next.(core.Watchable)
	if !ok {
		return nil, errors.New("store does not support watching")
	}
	return w.Watch(ctx, pattern)
}

// BreakerState exposes the breaker and the wrapped store for observability.
type BreakerState struct {
	Name     string `json:"name"`
	State    string `json:"state"`
	Requests uint32 `json:"requests"`
	Failures uint32 `json:"failures"`
	Inner    any    `json:"inner,omitempty"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	counts := s.cb.Counts()
	state := BreakerState{
		Name:     s.cb.Name(),
		State:    s.cb.State().String(),
		Requests: counts.Requests,
		Failures: counts.TotalFailures,
	}
	if intro, ok := s.next.(introspection.Introspectable); ok {
		state.Inner = intro.State()
	}
	return state
}

// ComponentType implements introspection.Component. It reports the wrapped store's type.
func (s *Store) ComponentType() string {
	if comp, ok := s.next.(introspection.Component); ok {
		return comp.ComponentType()
	}
	return "store"
}

var _ core.Store = (*Store)(nil)
var _ core.Watchable = (*Store)(nil)
