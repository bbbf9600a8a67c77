// Package memory implements core.Store in process memory.
//
// It mirrors the behavior of a remote store without conditional creates:
// every CreateContainer call makes a new container, even when one with the
// same name already exists. Hooks allow tests to widen the race window and
// inject failures.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/aretw0/daybook/pkg/core"
)

type node struct {
	entry core.Entry
	data  []byte
}

// Store is a concurrency-safe in-memory store. Listing preserves creation order.
type Store struct {
	mu    sync.RWMutex
	order []string
	nodes map[string]*node

	hooks Hooks
	stats Stats
}

// Hooks are optional callbacks invoked by Store operations.
type Hooks struct {
	// BeforeCreate runs before a container is created, without holding the store lock.
	BeforeCreate func(name string, parent core.ContainerID)
	// Fail, when it returns an error for op ("list", "create", "put", "fetch"), fails the call.
	Fail func(op string) error
}

// Stats counts calls per primitive.
type Stats struct {
	Lists   int `json:"lists"`
	Creates int `json:"creates"`
	Puts    int `json:"puts"`
	Fetches int `json:"fetches"`
}

// Total returns the number of calls across all primitives.
func (s Stats) Total() int {
	return s.Lists + s.Creates + s.Puts + s.Fetches
}

// Option configures a Store.
type Option func(*Store)

// WithHooks installs test hooks.
func WithHooks(h Hooks) Option {
	return func(s *Store) {
		s.hooks = h
	}
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{nodes: make(map[string]*node)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List implements core.Store.
func (s *Store) List(ctx context.Context, f core.Filter) ([]core.Entry, error) {
	matcher, err := core.CompileFilter(f)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.stats.Lists++
	s.mu.Unlock()
	if err := s.fail("list"); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Entry
	for _, id := range s.order {
		e := s.nodes[id].entry
		ok, err := matcher.Match(e)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// CreateContainer implements core.Store.
func (s *Store) CreateContainer(ctx context.Context, name string, parent core.ContainerID) (core.ContainerID, error) {
	if s.hooks.BeforeCreate != nil {
		s.hooks.BeforeCreate(name, parent)
	}

	s.mu.Lock()
	s.stats.Creates++
	s.mu.Unlock()
	if err := s.fail("create"); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if parent != core.Root {
		if n, ok := s.nodes[string(parent)]; !ok || n.entry.Kind != core.KindContainer {
			return "", core.Unavailable("create container", fmt.Errorf("parent %s not found", parent))
		}
	}
	id := uuid.NewString()
	s.insert(core.Entry{ID: id, Name: name, Kind: core.KindContainer, ParentID: parent}, nil)
	return core.ContainerID(id), nil
}

// PutLeaf implements core.Store.
func (s *Store) PutLeaf(ctx context.Context, l core.Leaf) (core.LeafID, error) {
	s.mu.Lock()
	s.stats.Puts++
	s.mu.Unlock()
	if err := s.fail("put"); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	data := append([]byte(nil), l.Data...)

	if l.ID != "" {
		n, ok := s.nodes[string(l.ID)]
		if !ok || n.entry.Kind != core.KindLeaf {
			return "", core.Unavailable("put leaf", fmt.Errorf("leaf %s not found", l.ID))
		}
		n.data = data
		return l.ID, nil
	}

	if l.Parent != core.Root {
		if _, ok := s.nodes[string(l.Parent)]; !ok {
			return "", core.Unavailable("put leaf", fmt.Errorf("parent %s not found", l.Parent))
		}
	}
	id := uuid.NewString()
	s.insert(core.Entry{ID: id, Name: l.Name, Kind: core.KindLeaf, ParentID: l.Parent}, data)
	return core.LeafID(id), nil
}

// FetchLeaf implements core.Store.
func (s *Store) FetchLeaf(ctx context.Context, id core.LeafID) ([]byte, error) {
	s.mu.Lock()
	s.stats.Fetches++
	s.mu.Unlock()
	if err := s.fail("fetch"); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[string(id)]
	if !ok || n.entry.Kind != core.KindLeaf {
		return nil, core.Unavailable("fetch leaf", fmt.Errorf("leaf %s not found", id))
	}
	return append([]byte(nil), n.data...), nil
}

// Seed inserts an entry with a caller-chosen id, bypassing hooks and stats.
// It is meant for preparing fixtures such as pre-existing duplicates.
func (s *Store) Seed(e core.Entry, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insert(e, data)
}

// Stats returns a snapshot of the call counters.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

func (s *Store) insert(e core.Entry, data []byte) {
	if _, exists := s.nodes[e.ID]; !exists {
		s.order = append(s.order, e.ID)
	}
	s.nodes[e.ID] = &node{entry: e, data: data}
}

func (s *Store) fail(op string) error {
	if s.hooks.Fail == nil {
		return nil
	}
	return core.Unavailable(op, s.hooks.Fail(op))
}

var _ core.Store = (*Store)(nil)
