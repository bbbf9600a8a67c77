// Package drive implements core.Store on Google Drive.
//
// Containers are Drive folders and leaf documents are plain files. Drive
// allows any number of files with the same name in a folder and has no
// conditional create, so concurrent resolutions can create duplicate
// folders; pair this store with a Locker or reconcile mode when several
// writers share an account.
package drive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"

	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"github.com/aretw0/daybook/pkg/core"
)

// Store implements core.Store on a Drive account.
type Store struct {
	files  files
	root   string
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithRootFolder places user folders under folderID instead of "My Drive".
func WithRootFolder(folderID string) Option {
	return func(s *Store) {
		if folderID != "" {
			s.root = folderID
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates a Store over an authenticated Drive service.
func NewStore(srv *drive.Service, opts ...Option) *Store {
	return newStore(serviceFiles{srv: srv}, opts...)
}

func newStore(f files, opts ...Option) *Store {
	s := &Store{
		files:  f,
		root:   "root",
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) folder(id core.ContainerID) string {
	if id == core.Root {
		return s.root
	}
	return string(id)
}

// quote escapes a value for a Drive query string literal.
func quote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// query translates a filter into Drive search syntax.
func (s *Store) query(f core.Filter) string {
	clauses := []string{
		quote(s.folder(f.Parent)) + " in parents",
		"trashed = false",
	}
	switch f.Kind {
	case core.KindContainer:
		clauses = append(clauses, "mimeType = "+quote(FolderMimeType))
	case core.KindLeaf:
		clauses = append(clauses, "mimeType != "+quote(FolderMimeType))
	}
	if f.Name != "" {
		clauses = append(clauses, "name = "+quote(f.Name))
	}
	return strings.Join(clauses, " and ")
}

// List implements core.Store.
func (s *Store) List(ctx context.Context, f core.Filter) ([]core.Entry, error) {
	matcher, err := core.CompileFilter(f)
	if err != nil {
		return nil, err
	}

	q := s.query(f)
	var entries []core.Entry
	pageToken := ""
	for {
		page, err := s.files.list(ctx, q, pageToken)
		if err != nil {
			return nil, classify("list", err)
		}
		for _, file := range page.Files {
			e := core.Entry{
				ID:       file.Id,
				Name:     file.Name,
				Kind:     core.KindLeaf,
				ParentID: f.Parent,
			}
			if file.MimeType == FolderMimeType {
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
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}
	s.logger.Debug("drive list", "q", q, "results", len(entries))
	return entries, nil
}

// CreateContainer implements core.Store.
func (s *Store) CreateContainer(ctx context.Context, name string, parent core.ContainerID) (core.ContainerID, error) {
	file, err := s.files.create(ctx, &drive.File{
		Name:     name,
		MimeType: FolderMimeType,
		Parents:  []string{s.folder(parent)},
	}, nil)
	if err != nil {
		return "", classify("create container", err)
	}
	s.logger.Debug("drive folder created", "id", file.Id, "name", name, "parent", parent)
	return core.ContainerID(file.Id), nil
}

// PutLeaf implements core.Store.
func (s *Store) PutLeaf(ctx context.Context, l core.Leaf) (core.LeafID, error) {
	if l.ID != "" {
		if err := s.files.update(ctx, string(l.ID), bytes.NewReader(l.Data)); err != nil {
			return "", classify("put leaf", err)
		}
		return l.ID, nil
	}

	file, err := s.files.create(ctx, &drive.File{
		Name:     l.Name,
		MimeType: leafMimeType(l.Name),
		Parents:  []string{s.folder(l.Parent)},
	}, bytes.NewReader(l.Data))
	if err != nil {
		return "", classify("put leaf", err)
	}
	return core.LeafID(file.Id), nil
}

// leafMimeType maps a leaf name to the media type Drive stores it under.
func leafMimeType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		return "application/json"
	case ".yaml", ".yml":
		return "application/yaml"
	default:
		return "application/octet-stream"
	}
}

// FetchLeaf implements core.Store.
func (s *Store) FetchLeaf(ctx context.Context, id core.LeafID) ([]byte, error) {
	data, err := s.files.download(ctx, string(id))
	if err != nil {
		return nil, classify("fetch leaf", err)
	}
	return data, nil
}

// classify converts Drive API failures into core.StoreError.
func classify(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		reason := http.StatusText(gerr.Code)
		if len(gerr.Errors) > 0 && gerr.Errors[0].Reason != "" {
			reason = gerr.Errors[0].Reason
		}
		return core.Unavailable(op, fmt.Errorf("drive %d %s: %w", gerr.Code, reason, err))
	}
	return core.Unavailable(op, err)
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "drive-store"
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	return map[string]string{"root_folder": s.root}
}

var _ core.Store = (*Store)(nil)
