package core_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aretw0/daybook/pkg/core"
)

// MockStore implements core.Store in memory with sequential ids.
// Hooks let tests inject failures and interleavings.
type MockStore struct {
	mu      sync.Mutex
	seq     int
	entries []core.Entry
	data    map[core.LeafID][]byte

	lists, creates, puts, fetches int

	// beforeCreate runs before a container is created, outside the store lock.
	beforeCreate func(name string, parent core.ContainerID)
	failList     error
	failCreate   error
	failPut      error
	failFetch    error
}

func NewMockStore() *MockStore {
	return &MockStore{data: make(map[core.LeafID][]byte)}
}

func (m *MockStore) List(ctx context.Context, f core.Filter) ([]core.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	if m.failList != nil {
		return nil, m.failList
	}
	var out []core.Entry
	for _, e := range m.entries {
		if e.ParentID != f.Parent {
			continue
		}
		if f.Kind != "" && e.Kind != f.Kind {
			continue
		}
		if f.Name != "" && e.Name != f.Name {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *MockStore) CreateContainer(ctx context.Context, name string, parent core.ContainerID) (core.ContainerID, error) {
	if m.beforeCreate != nil {
		m.beforeCreate(name, parent)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if m.failCreate != nil {
		return "", m.failCreate
	}
	id := m.next("c")
	m.entries = append(m.entries, core.Entry{ID: id, Name: name, Kind: core.KindContainer, ParentID: parent})
	return core.ContainerID(id), nil
}

func (m *MockStore) PutLeaf(ctx context.Context, l core.Leaf) (core.LeafID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	if m.failPut != nil {
		return "", m.failPut
	}
	if l.ID != "" {
		if _, ok := m.data[l.ID]; !ok {
			return "", errors.New("not found")
		}
		m.data[l.ID] = append([]byte(nil), l.Data...)
		return l.ID, nil
	}
	id := core.LeafID(m.next("l"))
	m.entries = append(m.entries, core.Entry{ID: string(id), Name: l.Name, Kind: core.KindLeaf, ParentID: l.Parent})
	m.data[id] = append([]byte(nil), l.Data...)
	return id, nil
}

func (m *MockStore) FetchLeaf(ctx context.Context, id core.LeafID) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
	if m.failFetch != nil {
		return nil, m.failFetch
	}
	data, ok := m.data[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

// Calls returns the total number of store calls.
func (m *MockStore) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lists + m.creates + m.puts + m.fetches
}

// Containers returns the ids of containers named name under parent.
func (m *MockStore) Containers(name string, parent core.ContainerID) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, e := range m.entries {
		if e.Kind == core.KindContainer && e.Name == name && e.ParentID == parent {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

// AddContainer inserts a container directly, bypassing counters.
func (m *MockStore) AddContainer(id, name string, parent core.ContainerID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, core.Entry{ID: id, Name: name, Kind: core.KindContainer, ParentID: parent})
}

// AddLeaf inserts a leaf directly, bypassing counters.
func (m *MockStore) AddLeaf(id, name string, parent core.ContainerID, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, core.Entry{ID: id, Name: name, Kind: core.KindLeaf, ParentID: parent})
	m.data[core.LeafID(id)] = data
}

func (m *MockStore) next(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s%03d", prefix, m.seq)
}
