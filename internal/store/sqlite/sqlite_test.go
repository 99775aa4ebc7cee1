package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/markvii/modelsync/internal/catalog"
	"github.com/markvii/modelsync/internal/store"
)

var testRef = store.DocRef{Collection: "app_config", Document: "models"}

// setupTestStore creates a temporary database for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	st, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func testModels(n int) []catalog.Model {
	models := make([]catalog.Model, n)
	for i := range models {
		models[i] = catalog.Model{
			DisplayName: "Model " + string(rune('A'+i)),
			APIModel:    "vendor/model-" + string(rune('a'+i)),
			IsAvailable: i%2 == 0,
			Order:       n - i,
		}
	}
	return models
}

func TestReadMissingDocument(t *testing.T) {
	st := setupTestStore(t)

	snap, err := st.ReadEnvelope(context.Background(), testRef)
	if err != nil {
		t.Fatalf("ReadEnvelope failed: %v", err)
	}
	if snap.Exists || snap.HasList || len(snap.List) != 0 {
		t.Errorf("expected empty snapshot, got %+v", snap)
	}
}

func TestMergeEnvelopeRoundTrip(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	models := testModels(3)
	before := time.Now().UTC().Add(-time.Second)

	if err := st.MergeEnvelope(ctx, testRef, catalog.NewEnvelope(models)); err != nil {
		t.Fatalf("MergeEnvelope failed: %v", err)
	}

	snap, err := st.ReadEnvelope(ctx, testRef)
	if err != nil {
		t.Fatalf("ReadEnvelope failed: %v", err)
	}
	if !snap.Exists || !snap.HasList {
		t.Fatalf("expected stored list, got %+v", snap)
	}
	if len(snap.List) != len(models) {
		t.Fatalf("expected %d entries, got %d", len(models), len(snap.List))
	}
	for i, m := range models {
		got := snap.List[i]
		if got.Name() != m.DisplayName || got.API() != m.APIModel ||
			got.Available() != m.IsAvailable || got.Order == nil || *got.Order != int64(m.Order) {
			t.Errorf("entry %d: expected %+v, got %+v", i, m, got)
		}
	}
	if snap.LastUpdated.Before(before) {
		t.Errorf("lastUpdated %v not assigned at write time", snap.LastUpdated)
	}
}

func TestMergeEnvelopeReplacesListAndKeepsOtherFields(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	// A document maintained by hand with an extra field.
	_, err := st.conn.ExecContext(ctx,
		`INSERT INTO documents (collection, document, fields, updated_at) VALUES (?, ?, ?, ?)`,
		testRef.Collection, testRef.Document,
		`{"owner":"ops","list":[{"displayName":"Old"}],"lastUpdated":"2020-01-01T00:00:00Z"}`,
		"2020-01-01T00:00:00Z",
	)
	if err != nil {
		t.Fatalf("failed to seed document: %v", err)
	}

	if err := st.MergeEnvelope(ctx, testRef, catalog.NewEnvelope(testModels(4))); err != nil {
		t.Fatalf("first MergeEnvelope failed: %v", err)
	}
	if err := st.MergeEnvelope(ctx, testRef, catalog.NewEnvelope(testModels(2))); err != nil {
		t.Fatalf("second MergeEnvelope failed: %v", err)
	}

	var raw string
	if err := st.conn.QueryRowContext(ctx,
		`SELECT fields FROM documents WHERE collection = ? AND document = ?`,
		testRef.Collection, testRef.Document).Scan(&raw); err != nil {
		t.Fatalf("failed to read raw document: %v", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		t.Fatalf("stored fields are not JSON: %v", err)
	}
	if string(fields["owner"]) != `"ops"` {
		t.Errorf("expected owner to survive merge, got %s", fields["owner"])
	}

	snap, err := st.ReadEnvelope(ctx, testRef)
	if err != nil {
		t.Fatalf("ReadEnvelope failed: %v", err)
	}
	if len(snap.List) != 2 {
		t.Errorf("expected list replaced with 2 entries, got %d", len(snap.List))
	}
	if snap.LastUpdated.Year() == 2020 {
		t.Errorf("expected lastUpdated refreshed, got %v", snap.LastUpdated)
	}
}

func TestReadDocumentWithoutList(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	_, err := st.conn.ExecContext(ctx,
		`INSERT INTO documents (collection, document, fields, updated_at) VALUES (?, ?, ?, ?)`,
		testRef.Collection, testRef.Document, `{"owner":"ops"}`, "2020-01-01T00:00:00Z",
	)
	if err != nil {
		t.Fatalf("failed to seed document: %v", err)
	}

	snap, err := st.ReadEnvelope(ctx, testRef)
	if err != nil {
		t.Fatalf("ReadEnvelope failed: %v", err)
	}
	if !snap.Exists || snap.HasList || len(snap.List) != 0 {
		t.Errorf("expected existing document without list, got %+v", snap)
	}
}

func TestDocumentsAreIsolated(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()
	gemini := store.DocRef{Collection: "app_config", Document: "gemini_models"}

	if err := st.MergeEnvelope(ctx, testRef, catalog.NewEnvelope(testModels(3))); err != nil {
		t.Fatalf("MergeEnvelope failed: %v", err)
	}
	if err := st.MergeEnvelope(ctx, gemini, catalog.NewEnvelope(testModels(1))); err != nil {
		t.Fatalf("MergeEnvelope failed: %v", err)
	}

	snap, err := st.ReadEnvelope(ctx, testRef)
	if err != nil {
		t.Fatalf("ReadEnvelope failed: %v", err)
	}
	if len(snap.List) != 3 {
		t.Errorf("expected models document untouched, got %d entries", len(snap.List))
	}
}

func TestOpenViaRegistry(t *testing.T) {
	ctx := context.Background()

	if _, err := store.Open(ctx, store.KindSQLite, store.Options{}); !errors.Is(err, store.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}

	st, err := store.Open(ctx, store.KindSQLite, store.Options{Path: filepath.Join(t.TempDir(), "nested", "reg.db")})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestInvalidRef(t *testing.T) {
	st := setupTestStore(t)
	err := st.MergeEnvelope(context.Background(), store.DocRef{Collection: "app_config"}, catalog.NewEnvelope(testModels(1)))
	if err == nil {
		t.Error("expected error for empty document name")
	}
}
