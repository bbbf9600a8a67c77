package platform

import (
	"log/slog"

	"github.com/aretw0/daybook/pkg/core"
	"github.com/aretw0/daybook/pkg/metrics"
)

// options holds the wiring overrides for New.
type options struct {
	store        core.Store
	locker       core.Locker
	logger       *slog.Logger
	collector    *metrics.Collector
	errorHandler func(error)
	forceTemp    bool
}

// Option configures New.
type Option func(*options)

func defaultOptions() *options {
	return &options{}
}

// WithStore injects a store (e.g. a test double) and skips the configured adapter.
// Decorators (breaker, metrics) still apply.
func WithStore(s core.Store) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithLocker injects a namespace locker and skips the configured one.
func WithLocker(l core.Locker) Option {
	return func(o *options) {
		o.locker = l
	}
}

// WithLogger sets the logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithCollector reuses a metrics collector instead of creating one.
// It only takes effect when metrics are enabled.
func WithCollector(c *metrics.Collector) Option {
	return func(o *options) {
		o.collector = c
	}
}

// WithWatcherErrorHandler receives runtime failures of the fs watcher.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.errorHandler = fn
	}
}

// WithForceTemp moves the fs store into the dev sandbox even outside `go run`.
func WithForceTemp(force bool) Option {
	return func(o *options) {
		o.forceTemp = force
	}
}
