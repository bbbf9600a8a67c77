package core

import (
	"github.com/aretw0/introspection"
)

// ServiceState exposes internal state for observability.
type ServiceState struct {
	StoreType string        `json:"store_type"`
	NoteFile  string        `json:"note_file"`
	Users     []string      `json:"users"`
	Resolver  ResolverState `json:"resolver"`
	Store     any           `json:"store,omitempty"`
}

// State implements introspection.Introspectable.
func (s *Service) State() any {
	storeType := "store"
	var storeState any
	if comp, ok := s.store.(introspection.Component); ok {
		storeType = comp.ComponentType()
	}
	if intro, ok := s.store.(introspection.Introspectable); ok {
		storeState = intro.State()
	}

	return ServiceState{
		StoreType: storeType,
		NoteFile:  s.notes.codec.Filename(),
		Users:     s.allow.Names(),
		Resolver:  s.resolver.State().(ResolverState),
		Store:     storeState,
	}
}

// ComponentType implements introspection.Component.
func (s *Service) ComponentType() string {
	return "service"
}

var _ introspection.Introspectable = (*Service)(nil)
var _ introspection.Component = (*Service)(nil)
var _ introspection.Introspectable = (*Resolver)(nil)
var _ introspection.Component = (*Resolver)(nil)
