package memory

import (
	"github.com/aretw0/introspection"

	"github.com/aretw0/daybook/pkg/core"
)

// StoreState exposes internal state for observability.
type StoreState struct {
	Containers int   `json:"containers"`
	Leaves     int   `json:"leaves"`
	Calls      Stats `json:"calls"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := StoreState{Calls: s.stats}
	for _, n := range s.nodes {
		if n.entry.Kind == core.KindContainer {
			state.Containers++
		} else {
			state.Leaves++
		}
	}
	return state
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "memory-store"
}

var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)
