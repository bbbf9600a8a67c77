package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Service sequences a request: allow-list check, user container, date
// container, then the note operation. It keeps no state between requests.
type Service struct {
	store    Store
	resolver *Resolver
	notes    *NoteRepository
	allow    AllowList
	logger   *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	logger       *slog.Logger
	allow        *AllowList
	resolverOpts []ResolverOption
}

// WithLogger sets the logger used by the service and its components.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// WithAllowList replaces DefaultUsers.
func WithAllowList(a AllowList) ServiceOption {
	return func(o *serviceOptions) {
		o.allow = &a
	}
}

// WithResolverOptions passes options through to the namespace resolver.
func WithResolverOptions(opts ...ResolverOption) ServiceOption {
	return func(o *serviceOptions) {
		o.resolverOpts = append(o.resolverOpts, opts...)
	}
}

// NewService creates a new Service over an authenticated store.
func NewService(store Store, codec Codec, opts ...ServiceOption) *Service {
	o := &serviceOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	allow := NewAllowList(DefaultUsers...)
	if o.allow != nil {
		allow = *o.allow
	}

	resolverOpts := append([]ResolverOption{WithResolverLogger(o.logger)}, o.resolverOpts...)
	return &Service{
		store:    store,
		resolver: NewResolver(store, resolverOpts...),
		notes:    NewNoteRepository(store, codec, o.logger),
		allow:    allow,
		logger:   o.logger,
	}
}

// Authorize rejects usernames that are not on the allow-list.
func (s *Service) Authorize(username string) error {
	return s.allow.Validate(username)
}

// UserNamespace returns the container of username, creating it on first use.
// Unknown usernames are rejected before the store is contacted.
func (s *Service) UserNamespace(ctx context.Context, username string) (ContainerID, error) {
	if err := s.Authorize(username); err != nil {
		return "", err
	}
	return s.resolver.ResolveOrCreate(ctx, username, Root)
}

// DateNamespace returns the container for date (YYYY-MM-DD) under a user container.
func (s *Service) DateNamespace(ctx context.Context, user ContainerID, date string) (ContainerID, error) {
	if user == Root {
		return "", errors.New("user container is required")
	}
	date, err := ParseDateName(date)
	if err != nil {
		return "", err
	}
	return s.resolver.ResolveOrCreate(ctx, date, user)
}

// SaveNote stores fields as the note of a date container.
// All three fields must be filled in.
func (s *Service) SaveNote(ctx context.Context, dateContainer ContainerID, fields Fields) (LeafID, error) {
	if err := fields.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrIncompleteNote, err)
	}
	return s.notes.Save(ctx, dateContainer, fields)
}

// LoadNote returns the note of a date container.
func (s *Service) LoadNote(ctx context.Context, dateContainer ContainerID) (Note, error) {
	return s.notes.Load(ctx, dateContainer)
}

// Save runs a full create request for (username, date).
func (s *Service) Save(ctx context.Context, username, date string, fields Fields) (Note, error) {
	if err := s.Authorize(username); err != nil {
		s.logger.Info("request rejected", "user", username)
		return Note{}, err
	}
	if err := fields.Validate(); err != nil {
		return Note{}, fmt.Errorf("%w: %v", ErrIncompleteNote, err)
	}

	dateID, err := s.resolve(ctx, username, date)
	if err != nil {
		return Note{}, err
	}

	leaf, err := s.notes.Save(ctx, dateID, fields)
	if err != nil {
		return Note{}, fmt.Errorf("save note: %w", err)
	}
	s.logger.Info("note saved", "user", username, "date", date)
	return Note{ContainerID: dateID, LeafID: leaf, Fields: fields}, nil
}

// Open runs a full read request for (username, date).
func (s *Service) Open(ctx context.Context, username, date string) (Note, error) {
	if err := s.Authorize(username); err != nil {
		s.logger.Info("request rejected", "user", username)
		return Note{}, err
	}

	dateID, err := s.resolve(ctx, username, date)
	if err != nil {
		return Note{}, err
	}

	note, err := s.notes.Load(ctx, dateID)
	if err != nil {
		return Note{}, fmt.Errorf("load note: %w", err)
	}
	return note, nil
}

// resolve walks root -> user -> date for an already authorized username.
func (s *Service) resolve(ctx context.Context, username, date string) (ContainerID, error) {
	date, err := ParseDateName(date)
	if err != nil {
		return "", err
	}

	userID, err := s.resolver.ResolveOrCreate(ctx, username, Root)
	if err != nil {
		return "", fmt.Errorf("resolve user container: %w", err)
	}

	dateID, err := s.resolver.ResolveOrCreate(ctx, date, userID)
	if err != nil {
		return "", fmt.Errorf("resolve date container: %w", err)
	}

	s.logger.Debug("namespace resolved", "user", username, "date", date, "user_id", userID, "date_id", dateID)
	return dateID, nil
}

// Resolver returns the namespace resolver used by the service.
func (s *Service) Resolver() *Resolver {
	return s.resolver
}

// Notes returns the note repository used by the service.
func (s *Service) Notes() *NoteRepository {
	return s.notes
}

// Watch observes note changes if the store supports it.
func (s *Service) Watch(ctx context.Context, pattern string) (<-chan Event, error) {
	w, ok := s.store.(Watchable)
	if !ok {
		return nil, errors.New("store does not support watching")
	}
	return w.Watch(ctx, pattern)
}
