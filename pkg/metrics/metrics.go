// Package metrics records store and resolver activity with Prometheus.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/aretw0/introspection"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/daybook/pkg/core"
)

// Collector holds all Prometheus metrics for daybook.
type Collector struct {
	registry *prometheus.Registry

	StoreOperations     *prometheus.CounterVec
	StoreDuration       *prometheus.HistogramVec
	LockWait            prometheus.Histogram
	DuplicateNamespaces prometheus.Counter
}

// NewCollector creates a collector with its own registry.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	storeOperations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Total number of store operations",
		},
		[]string{"operation", "status"},
	)

	storeDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Store operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	lockWait := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "namespace_lock_wait_seconds",
			Help:      "Time spent waiting for a namespace lock",
			Buckets:   prometheus.DefBuckets,
		},
	)

	duplicates := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_namespaces_total",
			Help:      "Total number of resolutions that saw more than one matching container",
		},
	)

	registry.MustRegister(storeOperations, storeDuration, lockWait, duplicates)

	return &Collector{
		registry:            registry,
		StoreOperations:     storeOperations,
		StoreDuration:       storeDuration,
		LockWait:            lockWait,
		DuplicateNamespaces: duplicates,
	}
}

// Registry returns the Prometheus registry for this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// DuplicateHook counts duplicate namespaces. Pass it to core.WithDuplicateHook.
func (c *Collector) DuplicateHook() func(*core.DuplicateNamespaceError) {
	return func(*core.DuplicateNamespaceError) {
		c.DuplicateNamespaces.Inc()
	}
}

func (c *Collector) observe(op string, start time.Time, err error) {
	status := "ok"
	switch {
	case err == nil:
	case errors.Is(err, core.ErrStoreUnavailable):
		status = "unavailable"
	default:
		status = "error"
	}
	c.StoreOperations.WithLabelValues(op, status).Inc()
	c.StoreDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// Snapshot gathers counter and gauge values keyed by metric name and labels.
// Histograms report their sample count.
func (c *Collector) Snapshot() (map[string]float64, error) {
	families, err := c.registry.Gather()
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			key := mf.GetName()
			for _, lp := range m.GetLabel() {
				key += "{" + lp.GetName() + "=" + lp.GetValue() + "}"
			}
			switch {
			case m.GetCounter() != nil:
				out[key] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[key] = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				out[key] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return out, nil
}

// Store records every call to the wrapped store.
type Store struct {
	next      core.Store
	collector *Collector
}

// InstrumentStore wraps next so that each primitive is counted and timed.
func InstrumentStore(next core.Store, c *Collector) *Store {
	return &Store{next: next, collector: c}
}

// List implements core.Store.
func (s *Store) List(ctx context.Context, f core.Filter) (entries []core.Entry, err error) {
	defer func(start time.Time) { s.collector.observe("list", start, err) }(time.Now())
	return s.next.List(ctx, f)
}

// CreateContainer implements core.Store.
func (s *Store) CreateContainer(ctx context.Context, name string, parent core.ContainerID) (id core.ContainerID, err error) {
	defer func(start time.Time) { s.collector.observe("create_container", start, err) }(time.Now())
	return s.next.CreateContainer(ctx, name, parent)
}

// PutLeaf implements core.Store.
func (s *Store) PutLeaf(ctx context.Context, l core.Leaf) (id core.LeafID, err error) {
	defer func(start time.Time) { s.collector.observe("put_leaf", start, err) }(time.Now())
	return s.next.PutLeaf(ctx, l)
}

// FetchLeaf implements core.Store.
func (s *Store) FetchLeaf(ctx context.Context, id core.LeafID) (data []byte, err error) {
	defer func(start time.Time) { s.collector.observe("fetch_leaf", start, err) }(time.Now())
	return s.next.FetchLeaf(ctx, id)
}

// Watch forwards to the wrapped store when it supports watching.
func (s *Store) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	w, ok := s.next.(core.Watchable)
	if !ok {
		return nil, errors.New("store does not support watching")
	}
	return w.Watch(ctx, pattern)
}

// State implements introspection.Introspectable by reporting the wrapped store.
func (s *Store) State() any {
	if intro, ok := s.next.(introspection.Introspectable); ok {
		return intro.State()
	}
	return nil
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	if comp, ok := s.next.(introspection.Component); ok {
		return comp.ComponentType()
	}
	return "store"
}

// Locker times lock acquisition on the wrapped locker.
type Locker struct {
	next      core.Locker
	collector *Collector
}

// InstrumentLocker wraps next to record lock wait time.
func InstrumentLocker(next core.Locker, c *Collector) *Locker {
	return &Locker{next: next, collector: c}
}

// Lock implements core.Locker.
func (l *Locker) Lock(ctx context.Context, key string) (func(context.Context) error, error) {
	start := time.Now()
	unlock, err := l.next.Lock(ctx, key)
	l.collector.LockWait.Observe(time.Since(start).Seconds())
	return unlock, err
}

var _ core.Store = (*Store)(nil)
var _ core.Watchable = (*Store)(nil)
var _ core.Locker = (*Locker)(nil)
