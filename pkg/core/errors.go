package core

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	// ErrStoreUnavailable classifies transport, auth and quota failures of the remote store.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrCorruptNote means a note document exists but its content cannot be decoded.
	ErrCorruptNote = errors.New("corrupt note")
	// ErrNoteNotFound means no note document exists under the date container.
	ErrNoteNotFound = errors.New("note not found")
	// ErrDuplicateNamespace is advisory: more than one container matched a resolution.
	ErrDuplicateNamespace = errors.New("duplicate namespace")
	// ErrRejected means the username is not on the allow-list.
	ErrRejected = errors.New("username not allowed")
	// ErrIncompleteNote means a note was submitted with empty fields.
	ErrIncompleteNote = errors.New("all note sections must be filled in")
)

// StoreError wraps a failure reported by a Store implementation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is allows errors.Is() to match against ErrStoreUnavailable.
func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

// Unavailable wraps err as a StoreError for op, leaving nil and
// already classified errors untouched.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// CorruptNoteError reports an undecodable note document.
type CorruptNoteError struct {
	ContainerID ContainerID
	LeafID      LeafID
	Err         error
}

func (e *CorruptNoteError) Error() string {
	return fmt.Sprintf("corrupt note %s in %s: %v", e.LeafID, e.ContainerID, e.Err)
}

func (e *CorruptNoteError) Unwrap() error { return e.Err }

// Is allows errors.Is() to match against ErrCorruptNote.
func (e *CorruptNoteError) Is(target error) bool {
	return target == ErrCorruptNote
}

// DuplicateNamespaceError lists the containers sharing a (parent, name) pair.
type DuplicateNamespaceError struct {
	Parent ContainerID
	Name   string
	IDs    []ContainerID
}

func (e *DuplicateNamespaceError) Error() string {
	return fmt.Sprintf("%d containers named %q under %q", len(e.IDs), e.Name, e.Parent)
}

// Is allows errors.Is() to match against ErrDuplicateNamespace.
func (e *DuplicateNamespaceError) Is(target error) bool {
	return target == ErrDuplicateNamespace
}
