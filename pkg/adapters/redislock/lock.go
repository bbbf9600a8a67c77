// Package redislock implements core.Locker with Redis SET NX PX and a
// compare-and-delete release script.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/aretw0/daybook/pkg/core"
)

// Client is the subset of a go-redis client used by Locker.
type Client interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker serializes namespace resolutions across processes sharing a Redis.
type Locker struct {
	client Client
	prefix string
	ttl    time.Duration
	retry  time.Duration
	logger *slog.Logger
}

// Option configures a Locker.
type Option func(*Locker)

// WithPrefix namespaces lock keys. Defaults to "daybook:lock:".
func WithPrefix(prefix string) Option {
	return func(l *Locker) {
		l.prefix = prefix
	}
}

// WithTTL sets how long a lock survives a crashed holder. Defaults to 10s.
func WithTTL(ttl time.Duration) Option {
	return func(l *Locker) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Locker) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a Locker.
func New(client Client, opts ...Option) *Locker {
	l := &Locker{
		client: client,
		prefix: "daybook:lock:",
		ttl:    10 * time.Second,
		retry:  25 * time.Millisecond,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewClient creates a go-redis client and checks connectivity.
func NewClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

// Lock implements core.Locker.
func (l *Locker) Lock(ctx context.Context, key string) (func(context.Context) error, error) {
	redisKey := l.prefix + key
	token := uuid.NewString()
	retry := l.retry

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			l.logger.Debug("lock acquired", "key", redisKey)
			return func(ctx context.Context) error {
				return l.release(ctx, redisKey, token)
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retry):
			if retry < 500*time.Millisecond {
				retry *= 2
			}
		}
	}
}

func (l *Locker) release(ctx context.Context, redisKey, token string) error {
	n, err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to release lock %s: %w", redisKey, err)
	}
	if n == 0 {
		l.logger.Warn("lock expired before release", "key", redisKey)
	}
	return nil
}

var _ core.Locker = (*Locker)(nil)
