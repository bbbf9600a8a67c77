package breaker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/daybook/pkg/adapters/breaker"
	"github.com/aretw0/daybook/pkg/adapters/memory"
	"github.com/aretw0/daybook/pkg/core"
)

func testConfig() breaker.Config {
	cfg := breaker.DefaultConfig("test")
	cfg.MinRequests = 2
	cfg.FailureThreshold = 0.5
	cfg.Timeout = time.Hour
	return cfg
}

func TestBreaker_TripsOnUnavailable(t *testing.T) {
	failing := true
	inner := memory.New(memory.WithHooks(memory.Hooks{
		Fail: func(op string) error {
			if failing {
				return errors.New("503 backend error")
			}
			return nil
		},
	}))
	s := breaker.Wrap(inner, testConfig())
	ctx := context.Background()

	for range 2 {
		_, err := s.List(ctx, core.Containers("kgiri", core.Root))
		assert.ErrorIs(t, err, core.ErrStoreUnavailable)
	}
	listsBefore := inner.Stats().Lists

	failing = false
	_, err := s.List(ctx, core.Containers("kgiri", core.Root))
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, listsBefore, inner.Stats().Lists, "open breaker short-circuits")

	state := s.State().(breaker.BreakerState)
	assert.Equal(t, "open", state.State)
	assert.Equal(t, "memory-store", s.ComponentType())
}

// rejectingStore fails container creation with a caller error.
type rejectingStore struct {
	*memory.Store
}

func (rejectingStore) CreateContainer(context.Context, string, core.ContainerID) (core.ContainerID, error) {
	return "", errors.New("invalid entry name")
}

func TestBreaker_CallerErrorsDoNotTrip(t *testing.T) {
	s := breaker.Wrap(rejectingStore{memory.New()}, testConfig())
	ctx := context.Background()

	for range 5 {
		_, err := s.CreateContainer(ctx, "a/b", core.Root)
		require.Error(t, err)
		assert.NotErrorIs(t, err, core.ErrStoreUnavailable)
	}
	assert.Equal(t, "closed", s.State().(breaker.BreakerState).State)

	leaf, err := s.PutLeaf(ctx, core.Leaf{Name: "note.json", Data: []byte("x")})
	require.NoError(t, err)
	data, err := s.FetchLeaf(ctx, leaf)
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}

func TestBreaker_WatchUnsupported(t *testing.T) {
	_, err := breaker.Wrap(memory.New(), testConfig()).Watch(context.Background(), "**")
	assert.Error(t, err)
}
