// Package postgres provides a document store backed by a PostgreSQL table
// with a JSONB column.
//
// A merge-write is a single upsert that concatenates the stored object with
// the new fields using the jsonb || operator: named top-level fields are
// replaced, others are kept. The timestamp comes from the database's now().
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/markvii/modelsync/internal/catalog"
	"github.com/markvii/modelsync/internal/store"
)

func init() {
	store.Register(store.KindPostgres, open)
}

const schema = `
CREATE TABLE IF NOT EXISTS modelsync_documents (
    collection TEXT NOT NULL,
    document   TEXT NOT NULL,
    fields     JSONB NOT NULL DEFAULT '{}'::jsonb,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (collection, document)
)
`

const mergeQuery = `
INSERT INTO modelsync_documents (collection, document, fields, updated_at)
VALUES ($1, $2, $3::jsonb || jsonb_build_object('lastUpdated', now()), now())
ON CONFLICT (collection, document) DO UPDATE SET
    fields = modelsync_documents.fields || EXCLUDED.fields,
    updated_at = EXCLUDED.updated_at
`

// Store is a PostgreSQL-backed document store.
type Store struct {
	db *sqlx.DB
}

func open(ctx context.Context, opts store.Options) (store.Store, error) {
	if opts.DSN == "" {
		return nil, fmt.Errorf("%w: postgres dsn is required", store.ErrNotConfigured)
	}
	return Open(ctx, opts.DSN)
}

// Open connects to the database and ensures the documents table exists.
//
// The caller MUST call Close() when done.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
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

	if _, err := s.db.ExecContext(ctx, mergeQuery, ref.Collection, ref.Document, string(patch)); err != nil {
		return fmt.Errorf("failed to write %s: %w", ref, err)
	}
	return nil
}

// ReadEnvelope implements store.Store.
func (s *Store) ReadEnvelope(ctx context.Context, ref store.DocRef) (*store.Snapshot, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	var fields []byte
	err := s.db.GetContext(ctx, &fields,
		`SELECT fields FROM modelsync_documents WHERE collection = $1 AND document = $2`,
		ref.Collection, ref.Document)
	if errors.Is(err, sql.ErrNoRows) {
		return &store.Snapshot{List: []catalog.RemoteModel{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", ref, err)
	}

	return store.DecodeDocument(fields)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
