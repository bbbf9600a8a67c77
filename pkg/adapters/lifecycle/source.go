// Package lifecycle bridges store change events to lifecycle.Source.
package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/daybook/pkg/core"
)

// NoteEvent is a change to the note of one (user, date) namespace.
// It implements lifecycle.Event.
type NoteEvent struct {
	Type core.EventType
	User string
	Date string
	File string
}

// String implements lifecycle.Event.
func (e NoteEvent) String() string {
	return fmt.Sprintf("%s %s/%s", e.Type, e.User, e.Date)
}

// ParseNoteEvent interprets a path-shaped event id as <user>/<date>/<file>.
// It reports false for anything that is not a note document.
func ParseNoteEvent(e core.Event, noteFile string) (NoteEvent, bool) {
	parts := strings.Split(e.ID, "/")
	if len(parts) != 3 || parts[2] != noteFile {
		return NoteEvent{}, false
	}
	if _, err := core.ParseDateName(parts[1]); err != nil {
		return NoteEvent{}, false
	}
	return NoteEvent{Type: e.Type, User: parts[0], Date: parts[1], File: parts[2]}, true
}

type noteSource struct {
	events   <-chan core.Event
	noteFile string
	out      chan lifecycle.Event
}

// NewSource creates a lifecycle.Source that emits a NoteEvent for every
// store event touching a note document named noteFile.
func NewSource(events <-chan core.Event, noteFile string) lifecycle.Source {
	return &noteSource{
		events:   events,
		noteFile: noteFile,
		out:      make(chan lifecycle.Event),
	}
}

func (s *noteSource) Events() <-chan lifecycle.Event {
	return s.out
}

func (s *noteSource) Start(ctx context.Context) error {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-s.events:
				if !ok {
					return nil
				}
				ne, ok := ParseNoteEvent(e, s.noteFile)
				if !ok {
					continue
				}
				select {
				case s.out <- ne:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
	return nil
}
