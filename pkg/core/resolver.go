package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync/atomic"
)

// Resolver maps a (parent, name) pair to a container id, creating the
// container when none exists.
//
// The store has no conditional create, so two resolutions racing on the
// same pair may both create a container. By default this race is left
// open; WithLocker closes it within the locker's reach and WithReconcile
// makes concurrent resolvers converge on the lowest id.
type Resolver struct {
	store       Store
	logger      *slog.Logger
	locker      Locker
	reconcile   bool
	onDuplicate func(*DuplicateNamespaceError)

	created    atomic.Int64
	resolved   atomic.Int64
	duplicates atomic.Int64
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverLogger sets the resolver logger.
func WithResolverLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithLocker serializes resolutions of the same (parent, name) pair through l.
func WithLocker(l Locker) ResolverOption {
	return func(r *Resolver) {
		r.locker = l
	}
}

// WithReconcile re-lists after every creation and adopts the lowest id
// when more than one container matches.
func WithReconcile(enabled bool) ResolverOption {
	return func(r *Resolver) {
		r.reconcile = enabled
	}
}

// WithDuplicateHook registers fn to be called whenever a resolution sees
// more than one matching container.
func WithDuplicateHook(fn func(*DuplicateNamespaceError)) ResolverOption {
	return func(r *Resolver) {
		r.onDuplicate = fn
	}
}

// NewResolver creates a Resolver over store.
func NewResolver(store Store, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveOrCreate returns the id of the container named name under parent,
// creating it if no such container is listed.
//
// Workflow:
//  1. (optional) Lock the (parent, name) key.
//  2. List containers named name under parent; return the first match.
//  3. Otherwise create the container and return its id.
//  4. (optional) Re-list and adopt the lowest id if a concurrent creation happened.
//
// Store failures are returned as ErrStoreUnavailable. Nothing is retried.
func (r *Resolver) ResolveOrCreate(ctx context.Context, name string, parent ContainerID) (ContainerID, error) {
	if name == "" {
		return "", errors.New("container name cannot be empty")
	}

	if r.locker != nil {
		unlock, err := r.locker.Lock(ctx, LockKey(parent, name))
		if err != nil {
			return "", Unavailable("lock", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				r.logger.Warn("failed to release namespace lock", "parent", parent, "name", name, "error", err)
			}
		}()
	}

	ids, err := r.list(ctx, name, parent)
	if err != nil {
		return "", err
	}
	if len(ids) > 0 {
		r.resolved.Add(1)
		return r.pick(name, parent, ids), nil
	}

	id, err := r.store.CreateContainer(ctx, name, parent)
	if err != nil {
		return "", Unavailable("create container", err)
	}
	r.created.Add(1)
	r.logger.Debug("container created", "parent", parent, "name", name, "id", id)

	if !r.reconcile {
		return id, nil
	}

	ids, err = r.list(ctx, name, parent)
	if err != nil {
		return "", err
	}
	if !slices.Contains(ids, id) {
		// Listing may lag behind creation on eventually consistent stores.
		ids = append(ids, id)
	}
	return r.pick(name, parent, ids), nil
}

// list returns the ids of containers named name under parent, in store order.
func (r *Resolver) list(ctx context.Context, name string, parent ContainerID) ([]ContainerID, error) {
	entries, err := r.store.List(ctx, Containers(name, parent))
	if err != nil {
		return nil, Unavailable("list", err)
	}
	ids := make([]ContainerID, 0, len(entries))
	for _, e := range entries {
		if e.Kind != KindContainer || e.Name != name {
			continue
		}
		ids = append(ids, ContainerID(e.ID))
	}
	return ids, nil
}

// pick applies the tie-break: first listed entry, or lowest id in reconcile mode.
func (r *Resolver) pick(name string, parent ContainerID, ids []ContainerID) ContainerID {
	if len(ids) == 1 {
		return ids[0]
	}

	dup := &DuplicateNamespaceError{Parent: parent, Name: name, IDs: slices.Clone(ids)}
	r.duplicates.Add(1)
	r.logger.Warn("duplicate namespace", "parent", parent, "name", name, "ids", ids)
	if r.onDuplicate != nil {
		r.onDuplicate(dup)
	}

	if r.reconcile {
		return slices.Min(ids)
	}
	return ids[0]
}

// ResolverState exposes resolver counters for observability.
type ResolverState struct {
	Created    int64 `json:"created"`
	Resolved   int64 `json:"resolved"`
	Duplicates int64 `json:"duplicates"`
	Locking    bool  `json:"locking"`
	Reconcile  bool  `json:"reconcile"`
}

// State implements introspection.Introspectable.
func (r *Resolver) State() any {
	return ResolverState{
		Created:    r.created.Load(),
		Resolved:   r.resolved.Load(),
		Duplicates: r.duplicates.Load(),
		Locking:    r.locker != nil,
		Reconcile:  r.reconcile,
	}
}

// ComponentType implements introspection.Component.
func (r *Resolver) ComponentType() string {
	return "resolver"
}
