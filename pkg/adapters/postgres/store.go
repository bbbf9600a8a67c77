package postgres

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/daybook/pkg/core"
)

// Store implements core.Store on PostgreSQL.
type Store struct {
	db     DBTX
	tables *TableNames
	logger *slog.Logger
}

// NewStore creates a Store. db may be a pool or a transaction.
func NewStore(db DBTX, tables *TableNames, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{db: db, tables: tables, logger: logger}
}

// buildListQuery translates a filter into SQL. Rows are ordered by creation.
func buildListQuery(table string, f core.Filter) (string, []any) {
	clauses := []string{"parent_id = $1"}
	args := []any{string(f.Parent)}
	if f.Kind != "" {
		args = append(args, string(f.Kind))
		clauses = append(clauses, fmt.Sprintf("kind = $%d", len(args)))
	}
	if f.Name != "" {
		args = append(args, f.Name)
		clauses = append(clauses, fmt.Sprintf("name = $%d", len(args)))
	}
	query := fmt.Sprintf(`
		SELECT id, name, kind, parent_id
		FROM %s
		WHERE %s
		ORDER BY created_at, id
	`, table, strings.Join(clauses, " AND "))
	return query, args
}

// List implements core.Store.
func (s *Store) List(ctx context.Context, f core.Filter) ([]core.Entry, error) {
	query, args := buildListQuery(s.tables.Entries, f)
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, s.classify("list", err)
	}
	defer rows.Close()

	var entries []core.Entry
	for rows.Next() {
		var (
			e              core.Entry
			kind, parentID string
		)
		if err := rows.Scan(&e.ID, &e.Name, &kind, &parentID); err != nil {
			return nil, s.classify("list", err)
		}
		e.Kind = core.Kind(kind)
		e.ParentID = core.ContainerID(parentID)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, s.classify("list", err)
	}
	return entries, nil
}

// CreateContainer implements core.Store.
func (s *Store) CreateContainer(ctx context.Context, name string, parent core.ContainerID) (core.ContainerID, error) {
	id := uuid.NewString()
	query := fmt.Sprintf(`
		INSERT INTO %s (id, parent_id, kind, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
	`, s.tables.Entries)

	if _, err := s.db.Exec(ctx, query, id, string(parent), string(core.KindContainer), name, time.Now().UTC()); err != nil {
		return "", s.classify("create container", err)
	}
	s.logger.Debug("container created", "id", id, "name", name, "parent", parent)
	return core.ContainerID(id), nil
}

// PutLeaf implements core.Store.
func (s *Store) PutLeaf(ctx context.Context, l core.Leaf) (core.LeafID, error) {
	now := time.Now().UTC()

	if l.ID != "" {
		query := fmt.Sprintf(`
			UPDATE %s
			SET data = $1, updated_at = $2
			WHERE id = $3 AND kind = $4
		`, s.tables.Entries)
		result, err := s.db.Exec(ctx, query, l.Data, now, string(l.ID), string(core.KindLeaf))
		if err != nil {
			return "", s.classify("put leaf", err)
		}
		if result.RowsAffected() == 0 {
			return "", core.Unavailable("put leaf", fmt.Errorf("leaf %s not found", l.ID))
		}
		return l.ID, nil
	}

	id := uuid.NewString()
	query := fmt.Sprintf(`
		INSERT INTO %s (id, parent_id, kind, name, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
	`, s.tables.Entries)
	if _, err := s.db.Exec(ctx, query, id, string(l.Parent), string(core.KindLeaf), l.Name, l.Data, now); err != nil {
		return "", s.classify("put leaf", err)
	}
	return core.LeafID(id), nil
}

// FetchLeaf implements core.Store.
func (s *Store) FetchLeaf(ctx context.Context, id core.LeafID) ([]byte, error) {
	query := fmt.Sprintf(`
		SELECT data
		FROM %s
		WHERE id = $1 AND kind = $2
	`, s.tables.Entries)

	var data []byte
	if err := s.db.QueryRow(ctx, query, string(id), string(core.KindLeaf)).Scan(&data); err != nil {
		if IsPgNoRowsError(err) {
			return nil, core.Unavailable("fetch leaf", fmt.Errorf("leaf %s not found", id))
		}
		return nil, s.classify("fetch leaf", err)
	}
	return data, nil
}

func (s *Store) classify(op string, err error) error {
	if code := pgErrorCode(err); code != "" {
		s.logger.Debug("postgres error", "op", op, "code", code)
		return core.Unavailable(op, fmt.Errorf("sqlstate %s: %w", code, err))
	}
	return core.Unavailable(op, err)
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "postgres-store"
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	return map[string]string{"table": s.tables.Entries}
}

var _ core.Store = (*Store)(nil)
