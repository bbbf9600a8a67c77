// Package fs implements core.Store on a local directory tree.
//
// Containers are directories and leaf documents are files. Identifiers are
// slash-separated paths relative to the root, so they are stable across
// processes. Because creating a directory is atomic, two concurrent
// resolutions of the same name converge on one container.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aretw0/daybook/pkg/core"
)

// Config holds the configuration for the directory store.
type Config struct {
	Path      string
	MustExist bool
	Logger    *slog.Logger
	// ErrorHandler receives watcher failures. Defaults to logging them.
	ErrorHandler func(error)
}

// Store implements core.Store on the filesystem.
type Store struct {
	Path   string
	config Config

	mu       sync.RWMutex
	watchers int
}

// NewStore creates a directory store rooted at config.Path.
func NewStore(config Config) *Store {
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{Path: config.Path, config: config}
}

// Initialize creates the root directory, or checks it exists when MustExist is set.
func (s *Store) Initialize(ctx context.Context) error {
	if s.config.MustExist {
		info, err := os.Stat(s.Path)
		if os.IsNotExist(err) {
			return fmt.Errorf("store path does not exist: %s", s.Path)
		}
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("store path is not a directory: %s", s.Path)
		}
		return nil
	}
	if err := os.MkdirAll(s.Path, 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	return nil
}

// List implements core.Store. Entries are returned in directory order.
func (s *Store) List(ctx context.Context, f core.Filter) ([]core.Entry, error) {
	dir, err := s.abs(string(f.Parent))
	if err != nil {
		return nil, err
	}
	matcher, err := core.CompileFilter(f)
	if err != nil {
		return nil, err
	}

	items, err := os.ReadDir(dir)
	if err != nil {
		return nil, core.Unavailable("list", err)
	}

	var entries []core.Entry
	for _, item := range items {
		if ctx.Err() != nil {
			return nil, core.Unavailable("list", ctx.Err())
		}
		if strings.HasPrefix(item.Name(), ".") {
			continue
		}
		e := core.Entry{
			ID:       path.Join(string(f.Parent), item.Name()),
			Name:     item.Name(),
			Kind:     core.KindLeaf,
			ParentID: f.Parent,
		}
		if item.IsDir() {
			e.Kind = core.KindContainer
		}
		ok, err := matcher.Match(e)
		if err != nil {
			return nil, err
		}
		if ok {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// CreateContainer implements core.Store. Creating a directory that already
// exists returns its id.
func (s *Store) CreateContainer(ctx context.Context, name string, parent core.ContainerID) (core.ContainerID, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	id := path.Join(string(parent), name)
	dir, err := s.abs(id)
	if err != nil {
		return "", err
	}

	if err := os.Mkdir(dir, 0755); err != nil {
		if !errors.Is(err, fs.ErrExist) {
			return "", core.Unavailable("create container", err)
		}
		s.config.Logger.Debug("container already exists", "id", id)
	}
	return core.ContainerID(id), nil
}

// PutLeaf implements core.Store. New leaves are written at parent/name.
func (s *Store) PutLeaf(ctx context.Context, l core.Leaf) (core.LeafID, error) {
	id := string(l.ID)
	if id == "" {
		if err := validName(l.Name); err != nil {
			return "", err
		}
		id = path.Join(string(l.Parent), l.Name)
	}
	filename, err := s.abs(id)
	if err != nil {
		return "", err
	}

	if err := commitLeaf(ctx, filename, l.Data, l.ID != ""); err != nil {
		return "", err
	}
	return core.LeafID(id), nil
}

// FetchLeaf implements core.Store.
func (s *Store) FetchLeaf(ctx context.Context, id core.LeafID) ([]byte, error) {
	filename, err := s.abs(string(id))
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, core.Unavailable("fetch leaf", err)
	}
	return data, nil
}

// abs maps a store id to a path under the root, rejecting ids that escape it.
func (s *Store) abs(id string) (string, error) {
	if id == "" {
		return s.Path, nil
	}
	rel := filepath.FromSlash(id)
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("invalid id %q", id)
	}
	return filepath.Join(s.Path, rel), nil
}

// resolveID maps an absolute path back to a store id.
func (s *Store) resolveID(p string) (string, error) {
	rel, err := filepath.Rel(s.Path, p)
	if err != nil {
		return "", err
	}
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("path %s is outside the store", p)
	}
	return filepath.ToSlash(rel), nil
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid entry name %q", name)
	}
	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("entry name %q cannot start with a dot", name)
	}
	return nil
}

var _ core.Store = (*Store)(nil)
var _ core.Watchable = (*Store)(nil)
