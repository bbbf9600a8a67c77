package fs

import (
	"github.com/aretw0/introspection"
)

// StoreState exposes internal state for observability.
type StoreState struct {
	Path          string `json:"path"`
	MustExist     bool   `json:"must_exist"`
	WatcherActive bool   `json:"watcher_active"`
	Watchers      int    `json:"watchers"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return StoreState{
		Path:          s.Path,
		MustExist:     s.config.MustExist,
		WatcherActive: s.watchers > 0,
		Watchers:      s.watchers,
	}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "fs-store"
}

var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)

func (s *Store) trackWatcher(delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers += delta
}
