// Package sync publishes parsed catalogs to a document store.
//
// The Syncer owns the envelope: it wraps the records, performs the single
// merge-write, and optionally reads the document back to confirm the count.
// It never retries. Running it again with the same input simply overwrites
// the stored list.
package sync

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/markvii/modelsync/internal/catalog"
	"github.com/markvii/modelsync/internal/store"
)

// Syncer writes and reads the catalog document at one reference.
type Syncer struct {
	store  store.Store
	ref    store.DocRef
	logger *log.Logger
}

// New creates a Syncer for the document at ref.
//
// The store must already be open; the caller remains responsible for
// closing it. If logger is nil, log output is discarded.
//
// Example:
//
//	st, err := store.Open(ctx, store.KindSQLite, store.Options{Path: "modelsync.db"})
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
//	syncer := sync.New(st, store.DocRef{Collection: "app_config", Document: "models"}, nil)
func New(st store.Store, ref store.DocRef, logger *log.Logger) *Syncer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Syncer{
		store:  st,
		ref:    ref,
		logger: logger,
	}
}

// Ref returns the document this syncer targets.
func (s *Syncer) Ref() store.DocRef {
	return s.ref
}

// WriteResult describes an acknowledged write.
type WriteResult struct {
	Ref      store.DocRef
	Count    int
	Duration time.Duration
}

// Verification is the outcome of reading the document back after a write.
// It never turns a successful write into a failure.
type Verification struct {
	Expected int
	Count    int
	Exists   bool
	// Err is set when the read itself failed.
	Err error
}

// OK reports whether the document exists and holds the expected count.
func (v *Verification) OK() bool {
	return v.Err == nil && v.Exists && v.Count == v.Expected
}

// Warning describes why verification did not pass, or "" when it did.
func (v *Verification) Warning() string {
	switch {
	case v.Err != nil:
		return fmt.Sprintf("could not verify update: %v", v.Err)
	case !v.Exists:
		return "could not verify update: document not found"
	case v.Count != v.Expected:
		return fmt.Sprintf("verification found %d models, expected %d", v.Count, v.Expected)
	default:
		return ""
	}
}

// Result combines a write with its optional verification.
type Result struct {
	Write        *WriteResult
	Verification *Verification
}

// Listing is the decoded content of the document for display.
type Listing struct {
	Ref         store.DocRef
	Exists      bool
	Models      []catalog.RemoteModel
	LastUpdated time.Time
}

// Write replaces the stored list with models in one merge-write.
//
// An empty list is rejected with catalog.ErrNoValidModels before the store
// is touched. Store errors are returned wrapped.
func (s *Syncer) Write(ctx context.Context, models []catalog.Model) (*WriteResult, error) {
	if len(models) == 0 {
		return nil, catalog.ErrNoValidModels
	}
	for i, m := range models {
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("model %d: %w", i+1, err)
		}
	}

	start := time.Now()
	if err := s.store.MergeEnvelope(ctx, s.ref, catalog.NewEnvelope(models)); err != nil {
		return nil, fmt.Errorf("failed to update models: %w", err)
	}
	elapsed := time.Since(start)

	s.logger.Printf("Wrote %d models to %s in %v", len(models), s.ref, elapsed.Round(time.Millisecond))
	return &WriteResult{Ref: s.ref, Count: len(models), Duration: elapsed}, nil
}

// Verify reads the document back and compares its list length to expected.
func (s *Syncer) Verify(ctx context.Context, expected int) *Verification {
	v := &Verification{Expected: expected}

	snap, err := s.store.ReadEnvelope(ctx, s.ref)
	if err != nil {
		v.Err = err
		s.logger.Printf("WARNING: verification read failed for %s: %v", s.ref, err)
		return v
	}

	v.Exists = snap.Exists
	v.Count = len(snap.List)
	if !v.OK() {
		s.logger.Printf("WARNING: %s", v.Warning())
	} else {
		s.logger.Printf("Verified %d models at %s", v.Count, s.ref)
	}
	return v
}

// Sync writes models and, when verify is set, reads them back.
func (s *Syncer) Sync(ctx context.Context, models []catalog.Model, verify bool) (*Result, error) {
	write, err := s.Write(ctx, models)
	if err != nil {
		return nil, err
	}

	result := &Result{Write: write}
	if verify {
		result.Verification = s.Verify(ctx, write.Count)
	}
	return result, nil
}

// List reads the stored list. A missing document or a document without a
// list yields an empty listing rather than an error.
func (s *Syncer) List(ctx context.Context) (*Listing, error) {
	snap, err := s.store.ReadEnvelope(ctx, s.ref)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	models := snap.List
	if models == nil {
		models = []catalog.RemoteModel{}
	}
	if snap.Exists && !snap.HasList {
		s.logger.Printf("WARNING: %s has no %s field", s.ref, store.FieldList)
	}

	s.logger.Printf("Read %d models from %s (exists=%v)", len(models), s.ref, snap.Exists)
	return &Listing{
		Ref:         s.ref,
		Exists:      snap.Exists,
		Models:      models,
		LastUpdated: snap.LastUpdated,
	}, nil
}
