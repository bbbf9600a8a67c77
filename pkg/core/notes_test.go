package core_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/daybook/pkg/codec"
	"github.com/aretw0/daybook/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func testCodec() core.Codec {
	return codec.NewJSON()
}

func sampleFields() core.Fields {
	return core.Fields{
		Reflection: "Good",
		Learning:   "Go generics",
		Highlight:  "Keep going",
	}
}

func TestNoteRepository_RoundTrip(t *testing.T) {
	text := rapid.StringMatching(`[\p{L}\p{N} .,!?'-]{0,60}`)
	rapid.Check(t, func(rt *rapid.T) {
		store := NewMockStore()
		notes := core.NewNoteRepository(store, testCodec(), nil)
		ctx := context.Background()

		f := core.Fields{
			Reflection: text.Draw(rt, "reflection"),
			Learning:   text.Draw(rt, "learning"),
			Highlight:  text.Draw(rt, "highlight"),
		}
		id, err := notes.Save(ctx, "c001", f)
		if err != nil {
			rt.Fatalf("save: %v", err)
		}
		got, err := notes.Load(ctx, "c001")
		if err != nil {
			rt.Fatalf("load: %v", err)
		}
		if got.Fields != f || got.LeafID != id {
			rt.Fatalf("got %+v, want fields %+v at %s", got, f, id)
		}
	})
}

func TestNoteRepository_OverwriteNotMerge(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		store := NewMockStore()
		notes := core.NewNoteRepository(store, testCodec(), nil)
		ctx := context.Background()

		first := core.Fields{
			Reflection: rapid.StringMatching(`[a-z]{1,10}`).Draw(rt, "r1"),
			Learning:   rapid.StringMatching(`[a-z]{1,10}`).Draw(rt, "l1"),
			Highlight:  rapid.StringMatching(`[a-z]{1,10}`).Draw(rt, "h1"),
		}
		second := core.Fields{
			Reflection: rapid.StringMatching(`[a-z]{0,10}`).Draw(rt, "r2"),
			Learning:   rapid.StringMatching(`[a-z]{0,10}`).Draw(rt, "l2"),
			Highlight:  rapid.StringMatching(`[a-z]{0,10}`).Draw(rt, "h2"),
		}

		id1, err := notes.Save(ctx, "c001", first)
		if err != nil {
			rt.Fatalf("save first: %v", err)
		}
		id2, err := notes.Save(ctx, "c001", second)
		if err != nil {
			rt.Fatalf("save second: %v", err)
		}
		if id1 != id2 {
			rt.Fatalf("second save created a new leaf: %s != %s", id1, id2)
		}

		got, err := notes.Load(ctx, "c001")
		if err != nil {
			rt.Fatalf("load: %v", err)
		}
		if got.Fields != second {
			rt.Fatalf("got %+v, want %+v", got.Fields, second)
		}
	})
}

func TestNoteRepository_SingleLeafPerContainer(t *testing.T) {
	store := NewMockStore()
	notes := core.NewNoteRepository(store, testCodec(), nil)
	ctx := context.Background()

	for range 3 {
		_, err := notes.Save(ctx, "c001", sampleFields())
		require.NoError(t, err)
	}

	entries, err := store.List(ctx, core.Leaves("note.json", "c001"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestNoteRepository_AbsentVsCorrupt(t *testing.T) {
	ctx := context.Background()

	t.Run("absent", func(t *testing.T) {
		store := NewMockStore()
		_, err := core.NewNoteRepository(store, testCodec(), nil).Load(ctx, "c001")
		assert.ErrorIs(t, err, core.ErrNoteNotFound)
		assert.NotErrorIs(t, err, core.ErrCorruptNote)
	})

	t.Run("corrupt", func(t *testing.T) {
		store := NewMockStore()
		store.AddLeaf("l900", "note.json", "c001", []byte("{not json"))
		_, err := core.NewNoteRepository(store, testCodec(), nil).Load(ctx, "c001")
		assert.ErrorIs(t, err, core.ErrCorruptNote)
		assert.NotErrorIs(t, err, core.ErrNoteNotFound)

		var corrupt *core.CorruptNoteError
		require.True(t, errors.As(err, &corrupt))
		assert.Equal(t, core.LeafID("l900"), corrupt.LeafID)
	})

	t.Run("legacy", func(t *testing.T) {
		store := NewMockStore()
		store.AddLeaf("l900", "note.json", "c001",
			[]byte(`{"how_was_your_day": "Good", "unique_thing_learned": "Go generics", "quote_of_the_day": "Keep going"}`))
		note, err := core.NewNoteRepository(store, testCodec(), nil).Load(ctx, "c001")
		require.NoError(t, err)
		assert.Equal(t, sampleFields(), note.Fields)
	})
}

func TestNoteRepository_Failures(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("network down")

	t.Run("root", func(t *testing.T) {
		store := NewMockStore()
		_, err := core.NewNoteRepository(store, testCodec(), nil).Save(ctx, core.Root, sampleFields())
		assert.Error(t, err)
		assert.Zero(t, store.Calls())
	})

	t.Run("put", func(t *testing.T) {
		store := NewMockStore()
		store.failPut = boom
		_, err := core.NewNoteRepository(store, testCodec(), nil).Save(ctx, "c001", sampleFields())
		assert.ErrorIs(t, err, core.ErrStoreUnavailable)
	})

	t.Run("fetch", func(t *testing.T) {
		store := NewMockStore()
		notes := core.NewNoteRepository(store, testCodec(), nil)
		_, err := notes.Save(ctx, "c001", sampleFields())
		require.NoError(t, err)

		store.failFetch = boom
		_, err = notes.Load(ctx, "c001")
		assert.ErrorIs(t, err, core.ErrStoreUnavailable)
		assert.NotErrorIs(t, err, core.ErrCorruptNote)
	})
}
