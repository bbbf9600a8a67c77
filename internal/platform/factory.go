// Package platform wires configuration into a ready core.Service.
package platform

import (
	"context"
	"errors"
	"io"
	"log/slog"

	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/aretw0/daybook/internal/config"
	"github.com/aretw0/daybook/pkg/adapters/breaker"
	"github.com/aretw0/daybook/pkg/codec"
	"github.com/aretw0/daybook/pkg/core"
	"github.com/aretw0/daybook/pkg/metrics"
)

// Runtime is a wired service plus the resources it owns.
type Runtime struct {
	Service *core.Service
	// Metrics is nil unless metrics are enabled.
	Metrics *metrics.Collector

	logger  *slog.Logger
	dynamo  *awsdynamodb.Client
	closers []func() error
}

// New builds a Service from cfg.
//
//	rt, err := platform.New(ctx, cfg, platform.WithLogger(logger))
//	defer rt.Close()
func New(ctx context.Context, cfg config.Config, opts ...Option) (*Runtime, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	rt := &Runtime{logger: o.logger}
	if rt.logger == nil {
		rt.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	noteCodec, err := codec.New(cfg.Format)
	if err != nil {
		return nil, err
	}

	store := o.store
	if store == nil {
		if store, err = rt.openStore(ctx, cfg, o); err != nil {
			return nil, errors.Join(err, rt.Close())
		}
	}

	locker := o.locker
	if locker == nil {
		if locker, err = rt.openLocker(ctx, cfg); err != nil {
			return nil, errors.Join(err, rt.Close())
		}
	}

	if cfg.Breaker {
		bc := breaker.DefaultConfig("daybook-store")
		bc.Logger = rt.logger
		store = breaker.Wrap(store, bc)
	}

	resolverOpts := []core.ResolverOption{core.WithReconcile(cfg.Reconcile)}
	if cfg.Metrics {
		rt.Metrics = o.collector
		if rt.Metrics == nil {
			rt.Metrics = metrics.NewCollector("daybook")
		}
		store = metrics.InstrumentStore(store, rt.Metrics)
		if locker != nil {
			locker = metrics.InstrumentLocker(locker, rt.Metrics)
		}
		resolverOpts = append(resolverOpts, core.WithDuplicateHook(rt.Metrics.DuplicateHook()))
	}
	if locker != nil {
		resolverOpts = append(resolverOpts, core.WithLocker(locker))
	}

	rt.Service = core.NewService(store, noteCodec,
		core.WithLogger(rt.logger),
		core.WithAllowList(core.NewAllowList(cfg.Users...)),
		core.WithResolverOptions(resolverOpts...),
	)

	rt.logger.Debug("service ready",
		"adapter", cfg.Adapter,
		"format", cfg.Format,
		"lock", cfg.Lock,
		"breaker", cfg.Breaker,
		"metrics", cfg.Metrics,
	)
	return rt, nil
}

func (rt *Runtime) onClose(fn func() error) {
	rt.closers = append(rt.closers, fn)
}

// Close releases connections in reverse order of creation.
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		errs = append(errs, rt.closers[i]())
	}
	rt.closers = nil
	return errors.Join(errs...)
}
