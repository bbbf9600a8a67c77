package daybook

import (
	"context"
	"log/slog"

	"github.com/aretw0/daybook/internal/config"
	"github.com/aretw0/daybook/internal/platform"
	"github.com/aretw0/daybook/pkg/core"
	"github.com/aretw0/daybook/pkg/metrics"
)

// --- Types ---

type (
	// Config holds every runtime setting.
	Config = config.Config
	// Runtime is a wired service plus the connections it owns.
	Runtime = platform.Runtime
	// Option overrides parts of the wiring.
	Option = platform.Option
	// Fields are the three sections of a note.
	Fields = core.Fields
	// Note is a stored note with its store ids.
	Note = core.Note
)

// --- Errors ---

var (
	ErrRejected         = core.ErrRejected
	ErrIncompleteNote   = core.ErrIncompleteNote
	ErrNoteNotFound     = core.ErrNoteNotFound
	ErrCorruptNote      = core.ErrCorruptNote
	ErrStoreUnavailable = core.ErrStoreUnavailable
)

// --- Configuration ---

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return config.Default()
}

// LoadConfig reads .env, DAYBOOK_* variables and the optional YAML file.
func LoadConfig() (Config, error) {
	return config.Load()
}

// WithLogger sets the logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithStore injects a custom store adapter.
func WithStore(s core.Store) Option {
	return platform.WithStore(s)
}

// WithLocker injects a namespace locker.
func WithLocker(l core.Locker) Option {
	return platform.WithLocker(l)
}

// WithCollector reuses a metrics collector.
func WithCollector(c *metrics.Collector) Option {
	return platform.WithCollector(c)
}

// WithWatcherErrorHandler receives runtime failures of the fs watcher.
func WithWatcherErrorHandler(fn func(error)) Option {
	return platform.WithWatcherErrorHandler(fn)
}

// WithForceTemp keeps the fs store inside the dev sandbox.
func WithForceTemp(force bool) Option {
	return platform.WithForceTemp(force)
}

// --- Constructors ---

// New wires a Service from cfg.
func New(ctx context.Context, cfg Config, opts ...Option) (*Runtime, error) {
	return platform.New(ctx, cfg, opts...)
}

// Open loads the configuration and wires a Service from it.
func Open(ctx context.Context, opts ...Option) (*Runtime, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg, opts...)
}

// --- Utils ---

// IsDevRun reports whether the process runs under `go run` or `go test`.
func IsDevRun() bool {
	return platform.IsDevRun()
}

// FindConfigFile looks upward from startDir for a daybook.yaml.
func FindConfigFile(startDir string) (string, error) {
	return config.FindFile(startDir)
}
