package redislock_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/daybook/pkg/adapters/memory"
	"github.com/aretw0/daybook/pkg/adapters/redislock"
	"github.com/aretw0/daybook/pkg/core"
)

func newLocker(t *testing.T, opts ...redislock.Option) (*redislock.Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redislock.NewClient(context.Background(), mr.Addr(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return redislock.New(client, opts...), mr
}

func TestLocker_MutualExclusion(t *testing.T) {
	l, _ := newLocker(t)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "ns:root/kgiri")
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_, err = l.Lock(waitCtx, "ns:root/kgiri")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock(ctx))

	again, err := l.Lock(ctx, "ns:root/kgiri")
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestLocker_WaiterAcquiresAfterRelease(t *testing.T) {
	l, _ := newLocker(t)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "k")
	require.NoError(t, err)

	acquired := make(chan error, 1)
	go func() {
		release, err := l.Lock(ctx, "k")
		if err == nil {
			err = release(ctx)
		}
		acquired <- err
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired a held lock")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, unlock(ctx))
	select {
	case err := <-acquired:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never acquired the released lock")
	}
}

func TestLocker_KeyAndTTL(t *testing.T) {
	tests := []struct {
		name    string
		opts    []redislock.Option
		wantKey string
		wantTTL time.Duration
	}{
		{"defaults", nil, "daybook:lock:ns:root/kgiri", 10 * time.Second},
		{"custom", []redislock.Option{redislock.WithPrefix("app:"), redislock.WithTTL(time.Minute)}, "app:ns:root/kgiri", time.Minute},
		{"zero ttl keeps default", []redislock.Option{redislock.WithTTL(0)}, "daybook:lock:ns:root/kgiri", 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, mr := newLocker(t, tt.opts...)
			ctx := context.Background()

			unlock, err := l.Lock(ctx, "ns:root/kgiri")
			require.NoError(t, err)
			assert.True(t, mr.Exists(tt.wantKey))
			assert.Equal(t, tt.wantTTL, mr.TTL(tt.wantKey))

			require.NoError(t, unlock(ctx))
			assert.False(t, mr.Exists(tt.wantKey))
		})
	}
}

func TestLocker_ExpiredReleaseIsHarmless(t *testing.T) {
	l, mr := newLocker(t, redislock.WithTTL(time.Second))
	ctx := context.Background()

	stale, err := l.Lock(ctx, "k")
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	fresh, err := l.Lock(ctx, "k")
	require.NoError(t, err)
	freshToken, err := mr.Get("daybook:lock:k")
	require.NoError(t, err)

	require.NoError(t, stale(ctx))

	got, err := mr.Get("daybook:lock:k")
	require.NoError(t, err, "stale release must not free the new holder's lock")
	assert.Equal(t, freshToken, got)

	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	_, err = l.Lock(waitCtx, "k")
	assert.Error(t, err)

	require.NoError(t, fresh(ctx))
	assert.False(t, mr.Exists("daybook:lock:k"))
}

func TestLocker_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	l := redislock.New(client)

	mr.SetError("LOADING dataset in memory")
	_, err := l.Lock(context.Background(), "k")
	assert.Error(t, err)
}

func TestNewClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := redislock.NewClient(context.Background(), addr, "")
	assert.ErrorContains(t, err, "failed to connect to redis")
}

func TestLocker_SerializesResolver(t *testing.T) {
	l, _ := newLocker(t)
	store := memory.New()
	r := core.NewResolver(store, core.WithLocker(l))
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.ResolveOrCreate(ctx, "kgiri", core.Root)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	entries, err := store.List(ctx, core.Containers("kgiri", core.Root))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
