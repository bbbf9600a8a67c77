// Package core holds the daybook domain: the store port, the namespace
// resolver, the note repository and the service that sequences them.
package core

import (
	"fmt"
	"time"
)

// ContainerID is an opaque, store-assigned container identifier.
// The empty ContainerID denotes the store root.
type ContainerID string

// LeafID is an opaque, store-assigned leaf document identifier.
type LeafID string

// Root is the implicit parent of every user container.
const Root ContainerID = ""

// Kind distinguishes containers from leaf documents.
type Kind string

const (
	KindContainer Kind = "container"
	KindLeaf      Kind = "leaf"
)

// Entry is a node listed by the store.
// For leaves the ID is a LeafID; for containers it is a ContainerID.
type Entry struct {
	ID       string
	Name     string
	Kind     Kind
	ParentID ContainerID
}

// Leaf describes a leaf write. An empty ID creates a new document,
// a non-empty ID overwrites the content of that document.
type Leaf struct {
	ID     LeafID
	Name   string
	Parent ContainerID
	Data   []byte
}

// DateLayout is the container naming convention for dates (YYYY-MM-DD).
const DateLayout = "2006-01-02"

// DateName formats t as a date container name.
func DateName(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDateName validates that s is a YYYY-MM-DD date and returns it unchanged.
func ParseDateName(s string) (string, error) {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return "", fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return s, nil
}

// EventType represents the type of change observed on a note.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// Event represents a change to a stored document, as reported by stores that can watch.
type Event struct {
	Type      EventType
	ID        string
	Timestamp int64 // Unix timestamp
}

// String implements fmt.Stringer.
func (e Event) String() string {
	return fmt.Sprintf("%s %s", e.Type, e.ID)
}
