package fs_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/daybook/pkg/adapters/fs"
	"github.com/aretw0/daybook/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForEvent(t *testing.T, events <-chan core.Event, id string) core.Event {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case e, ok := <-events:
			require.True(t, ok, "events channel closed early")
			if e.ID == id {
				return e
			}
		case <-deadline:
			t.Fatalf("timeout waiting for event on %s", id)
			return core.Event{}
		}
	}
}

func TestWatch_NewNote(t *testing.T) {
	s := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := s.Watch(ctx, "kgiri/**/note.json")
	require.NoError(t, err)

	user, err := s.CreateContainer(ctx, "kgiri", core.Root)
	require.NoError(t, err)
	date, err := s.CreateContainer(ctx, "2024-03-05", user)
	require.NoError(t, err)
	_, err = s.PutLeaf(ctx, core.Leaf{Name: "note.json", Parent: date, Data: []byte("{}")})
	require.NoError(t, err)

	e := waitForEvent(t, events, "kgiri/2024-03-05/note.json")
	assert.Equal(t, core.EventCreate, e.Type)

	state := s.State().(fs.StoreState)
	assert.True(t, state.WatcherActive)
}

func TestWatch_ClosesOnCancel(t *testing.T) {
	s := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	events, err := s.Watch(ctx, "**")
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-events:
		for ok {
			_, ok = <-events
		}
	case <-time.After(3 * time.Second):
		t.Fatal("events channel not closed after cancel")
	}

	assert.Eventually(t, func() bool {
		return !s.State().(fs.StoreState).WatcherActive
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatch_CancelWithUnreadEvents(t *testing.T) {
	tests := []struct {
		name  string
		notes []string
	}{
		{"single pending", []string{"2024-03-05"}},
		{"several pending", []string{"2024-03-05", "2024-03-06", "2024-03-07"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			ctx, cancel := context.WithCancel(context.Background())

			events, err := s.Watch(ctx, "**/note.json")
			require.NoError(t, err)

			user, err := s.CreateContainer(ctx, "kgiri", core.Root)
			require.NoError(t, err)
			for _, day := range tt.notes {
				date, err := s.CreateContainer(ctx, day, user)
				require.NoError(t, err)
				_, err = s.PutLeaf(ctx, core.Leaf{Name: "note.json", Parent: date, Data: []byte("{}")})
				require.NoError(t, err)
			}

			// Let the debouncer fire into the unread channel.
			time.Sleep(200 * time.Millisecond)
			cancel()

			assert.Eventually(t, func() bool {
				for {
					select {
					case _, ok := <-events:
						if !ok {
							return true
						}
					default:
						return false
					}
				}
			}, 3*time.Second, 10*time.Millisecond)
		})
	}
}

func TestWatch_InvalidPattern(t *testing.T) {
	s := fs.NewStore(fs.Config{Path: filepath.Join(t.TempDir())})
	_, err := s.Watch(context.Background(), "[")
	assert.Error(t, err)
}
