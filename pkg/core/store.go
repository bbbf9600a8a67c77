package core

import "context"

// Store is the remote hierarchical object store the core depends on.
// Implementations are handed an already authenticated capability and
// must be safe for concurrent use; the core never mutates them.
//
// Failures should be reported as *StoreError (see Unavailable) so that
// callers can match ErrStoreUnavailable.
type Store interface {
	// List returns the entries matching f. Ordering is store-defined.
	List(ctx context.Context, f Filter) ([]Entry, error)

	// CreateContainer creates a container named name under parent (Root for the top level).
	// It does not check for existing containers with the same name.
	CreateContainer(ctx context.Context, name string, parent ContainerID) (ContainerID, error)

	// PutLeaf creates a leaf document when l.ID is empty, or overwrites the
	// content of document l.ID otherwise.
	PutLeaf(ctx context.Context, l Leaf) (LeafID, error)

	// FetchLeaf returns the raw content of a leaf document.
	FetchLeaf(ctx context.Context, id LeafID) ([]byte, error)
}

// Watchable defines stores that can report changes to their documents.
type Watchable interface {
	// Watch emits events for documents whose path matches pattern until ctx is done.
	Watch(ctx context.Context, pattern string) (<-chan Event, error)
}

// Locker serializes work on a key across processes.
type Locker interface {
	// Lock blocks until the key is held or ctx is done.
	// The returned function releases the key.
	Lock(ctx context.Context, key string) (unlock func(context.Context) error, err error)
}

// Codec converts note fields to and from the persisted leaf format.
type Codec interface {
	// Filename is the fixed name of the note leaf under a date container.
	Filename() string
	Encode(f Fields) ([]byte, error)
	Decode(data []byte) (Fields, error)
}
