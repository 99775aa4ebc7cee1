// Package sqlite provides a local document store backed by an embedded
// SQLite database.
//
// Documents are rows of a single table keyed by (collection, document), with
// the fields kept as a JSON object. A merge-write is one upsert statement that
// applies the new fields as a JSON merge patch, so fields it does not name
// survive and the list is replaced wholesale.
//
// The backend is meant for local previews, tests and offline mirrors of the
// production catalog.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/markvii/modelsync/internal/catalog"
	"github.com/markvii/modelsync/internal/store"
)

func init() {
	store.Register(store.KindSQLite, open)
}

// nowExpr renders SQLite's clock as an RFC 3339 timestamp with milliseconds.
const nowExpr = `strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    collection TEXT NOT NULL,
    document   TEXT NOT NULL,
    fields     TEXT NOT NULL DEFAULT '{}',
    updated_at TEXT NOT NULL,
    PRIMARY KEY (collection, document)
);
`

const mergeQuery = `
INSERT INTO documents (collection, document, fields, updated_at)
VALUES (?, ?, json_set(?, '$.lastUpdated', ` + nowExpr + `), ` + nowExpr + `)
ON CONFLICT (collection, document) DO UPDATE SET
    fields = json_patch(documents.fields, excluded.fields),
    updated_at = excluded.updated_at
`

// Store is a SQLite-backed document store.
type Store struct {
	conn *sql.DB
}

func open(ctx context.Context, opts store.Options) (store.Store, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("%w: sqlite path is required", store.ErrNotConfigured)
	}
	return Open(ctx, opts.Path)
}

// Open creates or opens the database at path and ensures the schema exists.
//
// The caller MUST call Close() when done.
func Open(ctx context.Context, path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection keeps the pragmas below in effect for every statement.
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{conn: conn}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := conn.ExecContext(ctx, p); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	if _, err := conn.ExecContext(ctx, schema); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return s, nil
}

// MergeEnvelope implements store.Store.
func (s *Store) MergeEnvelope(ctx context.Context, ref store.DocRef, env catalog.Envelope) error {
	if err := ref.Validate(); err != nil {
		return err
	}

	patch, err := store.EncodeListDocument(env)
	if err != nil {
		return err
	}

	if _, err := s.conn.ExecContext(ctx, mergeQuery, ref.Collection, ref.Document, string(patch)); err != nil {
		return fmt.Errorf("failed to write %s: %w", ref, err)
	}
	return nil
}

// ReadEnvelope implements store.Store.
func (s *Store) ReadEnvelope(ctx context.Context, ref store.DocRef) (*store.Snapshot, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	var fields string
	err := s.conn.QueryRowContext(ctx,
		`SELECT fields FROM documents WHERE collection = ? AND document = ?`,
		ref.Collection, ref.Document,
	).Scan(&fields)
	if errors.Is(err, sql.ErrNoRows) {
		return &store.Snapshot{List: []catalog.RemoteModel{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", ref, err)
	}

	return store.DecodeDocument([]byte(fields))
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
