package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// NoteRepository reads and writes the single note document of a date container.
// It persists whatever fields it is given; completeness is the caller's concern.
type NoteRepository struct {
	store  Store
	codec  Codec
	logger *slog.Logger
}

// NewNoteRepository creates a NoteRepository storing notes with codec.
func NewNoteRepository(store Store, codec Codec, logger *slog.Logger) *NoteRepository {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &NoteRepository{store: store, codec: codec, logger: logger}
}

// Save writes fields as the note of container, overwriting any previous note.
// Fields are replaced wholesale, never merged.
func (r *NoteRepository) Save(ctx context.Context, container ContainerID, fields Fields) (LeafID, error) {
	if container == Root {
		return "", errors.New("notes cannot be stored at the store root")
	}

	existing, err := r.find(ctx, container)
	if err != nil {
		return "", err
	}

	data, err := r.codec.Encode(fields)
	if err != nil {
		return "", fmt.Errorf("failed to encode note: %w", err)
	}

	id, err := r.store.PutLeaf(ctx, Leaf{
		ID:     existing,
		Name:   r.codec.Filename(),
		Parent: container,
		Data:   data,
	})
	if err != nil {
		return "", Unavailable("put leaf", err)
	}

	r.logger.Debug("note saved", "container", container, "leaf", id, "overwrite", existing != "")
	return id, nil
}

// Load returns the note of container.
// It returns ErrNoteNotFound when no note exists and ErrCorruptNote when
// the stored content cannot be decoded.
func (r *NoteRepository) Load(ctx context.Context, container ContainerID) (Note, error) {
	id, err := r.find(ctx, container)
	if err != nil {
		return Note{}, err
	}
	if id == "" {
		return Note{}, fmt.Errorf("container %s: %w", container, ErrNoteNotFound)
	}

	data, err := r.store.FetchLeaf(ctx, id)
	if err != nil {
		return Note{}, Unavailable("fetch leaf", err)
	}

	fields, err := r.codec.Decode(data)
	if err != nil {
		return Note{}, &CorruptNoteError{ContainerID: container, LeafID: id, Err: err}
	}

	return Note{ContainerID: container, LeafID: id, Fields: fields}, nil
}

// find returns the id of the note leaf under container, or "" if there is none.
func (r *NoteRepository) find(ctx context.Context, container ContainerID) (LeafID, error) {
	name := r.codec.Filename()
	entries, err := r.store.List(ctx, Leaves(name, container))
	if err != nil {
		return "", Unavailable("list", err)
	}

	var ids []LeafID
	for _, e := range entries {
		if e.Kind == KindLeaf && e.Name == name {
			ids = append(ids, LeafID(e.ID))
		}
	}
	if len(ids) == 0 {
		return "", nil
	}
	if len(ids) > 1 {
		r.logger.Warn("multiple note documents", "container", container, "ids", ids)
	}
	return ids[0], nil
}
