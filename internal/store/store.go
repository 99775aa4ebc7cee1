// Package store defines the document store used to publish catalogs.
//
// A store only needs three primitives: a merge-write of named fields on one
// document, a read of that document, and a clock of its own to stamp writes.
// Backends live in subpackages and register themselves from init():
//
//	import _ "github.com/markvii/modelsync/internal/store/sqlite"
//
//	st, err := store.Open(ctx, store.KindSQLite, store.Options{Path: "modelsync.db"})
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/markvii/modelsync/internal/catalog"
)

var (
	// ErrUnknownBackend is returned by Open for a kind nobody registered.
	ErrUnknownBackend = errors.New("unknown store backend")

	// ErrNotConfigured is returned when a backend lacks the settings or
	// credentials it needs to connect.
	ErrNotConfigured = errors.New("store backend not configured")
)

// Kind names a store backend.
type Kind string

const (
	KindFirestore Kind = "firestore"
	KindSQLite    Kind = "sqlite"
	KindRedis     Kind = "redis"
	KindPostgres  Kind = "postgres"
)

// DisplayName returns a human-readable backend name for console output.
func (k Kind) DisplayName() string {
	switch k {
	case KindFirestore:
		return "Firestore"
	case KindSQLite:
		return "SQLite"
	case KindRedis:
		return "Redis"
	case KindPostgres:
		return "PostgreSQL"
	default:
		return string(k)
	}
}

// DocRef addresses one document.
type DocRef struct {
	Collection string
	Document   string
}

// String returns the "collection/document" path.
func (r DocRef) String() string {
	return r.Collection + "/" + r.Document
}

// Validate checks that both path segments are present and contain no slash.
func (r DocRef) Validate() error {
	if r.Collection == "" || r.Document == "" {
		return fmt.Errorf("invalid document reference %q: collection and document are required", r.String())
	}
	if strings.Contains(r.Collection, "/") || strings.Contains(r.Document, "/") {
		return fmt.Errorf("invalid document reference %q: segments must not contain '/'", r.String())
	}
	return nil
}

// Snapshot is the result of reading a catalog document.
type Snapshot struct {
	// Exists is false when the document has never been written.
	Exists bool
	// HasList is false when the document exists without a list field.
	HasList bool
	// List holds the stored entries in stored order.
	List []catalog.RemoteModel
	// LastUpdated is the store-assigned time of the last write, if any.
	LastUpdated time.Time
}

// Store is a document store holding catalog envelopes.
type Store interface {
	// MergeEnvelope writes env to the document at ref in a single atomic
	// operation. The list field is replaced wholesale and lastUpdated is
	// set from the store's clock; any other field of the document is left
	// untouched. The document is created if it does not exist.
	MergeEnvelope(ctx context.Context, ref DocRef, env catalog.Envelope) error

	// ReadEnvelope reads the document at ref. A missing document is not an
	// error: the snapshot simply reports Exists == false.
	ReadEnvelope(ctx context.Context, ref DocRef) (*Snapshot, error)

	// Close releases the underlying client or connection.
	Close() error
}

// Options carries connection settings for every backend. Each backend reads
// only the fields it needs.
type Options struct {
	// Firestore
	CredentialsFile string
	ProjectID       string

	// SQLite
	Path string

	// Redis
	Addr      string
	Password  string
	DB        int
	KeyPrefix string

	// PostgreSQL
	DSN string
}
