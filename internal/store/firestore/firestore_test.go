package firestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/markvii/modelsync/internal/catalog"
	"github.com/markvii/modelsync/internal/store"
)

func TestClientOptions(t *testing.T) {
	t.Setenv(EmulatorHostEnv, "")
	t.Setenv(CredentialsEnv, "")

	t.Run("missing key file", func(t *testing.T) {
		_, err := clientOptions(store.Options{CredentialsFile: filepath.Join(t.TempDir(), "key.json")})
		if !errors.Is(err, store.ErrNotConfigured) {
			t.Fatalf("expected ErrNotConfigured, got %v", err)
		}
	})

	t.Run("no credentials at all", func(t *testing.T) {
		_, err := clientOptions(store.Options{})
		if !errors.Is(err, store.ErrNotConfigured) {
			t.Fatalf("expected ErrNotConfigured, got %v", err)
		}
	})

	t.Run("key file present", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "key.json")
		if err := os.WriteFile(path, []byte(`{}`), 0600); err != nil {
			t.Fatalf("failed to write key: %v", err)
		}
		opts, err := clientOptions(store.Options{CredentialsFile: path})
		if err != nil {
			t.Fatalf("clientOptions failed: %v", err)
		}
		if len(opts) != 1 {
			t.Errorf("expected one client option, got %d", len(opts))
		}
	})

	t.Run("missing key file falls back to ADC", func(t *testing.T) {
		t.Setenv(CredentialsEnv, filepath.Join(t.TempDir(), "adc.json"))
		opts, err := clientOptions(store.Options{CredentialsFile: "missing.json"})
		if err != nil {
			t.Fatalf("clientOptions failed: %v", err)
		}
		if len(opts) != 0 {
			t.Errorf("expected no client options, got %d", len(opts))
		}
	})

	t.Run("key file wins over ADC", func(t *testing.T) {
		t.Setenv(CredentialsEnv, filepath.Join(t.TempDir(), "adc.json"))
		path := filepath.Join(t.TempDir(), "key.json")
		if err := os.WriteFile(path, []byte(`{}`), 0600); err != nil {
			t.Fatalf("failed to write key: %v", err)
		}
		opts, err := clientOptions(store.Options{CredentialsFile: path})
		if err != nil {
			t.Fatalf("clientOptions failed: %v", err)
		}
		if len(opts) != 1 {
			t.Errorf("expected one client option, got %d", len(opts))
		}
	})

	t.Run("emulator ignores missing key file", func(t *testing.T) {
		t.Setenv(EmulatorHostEnv, "localhost:8080")
		opts, err := clientOptions(store.Options{CredentialsFile: "missing.json"})
		if err != nil {
			t.Fatalf("clientOptions failed: %v", err)
		}
		if len(opts) != 0 {
			t.Errorf("expected no client options, got %d", len(opts))
		}
	})
}

func TestWritable(t *testing.T) {
	t.Run("nil list becomes empty", func(t *testing.T) {
		env := writable(catalog.Envelope{})
		if env.List == nil || len(env.List) != 0 {
			t.Errorf("expected empty list, got %#v", env.List)
		}
	})

	t.Run("timestamp left to the server", func(t *testing.T) {
		models, _ := catalog.Sample("gemini")
		in := catalog.NewEnvelope(models)
		in.LastUpdated = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

		env := writable(in)
		if !env.LastUpdated.IsZero() {
			t.Errorf("expected zero timestamp, got %v", env.LastUpdated)
		}
		if len(env.List) != len(models) || env.List[0] != models[0] {
			t.Errorf("list changed: %+v", env.List)
		}
	})
}

// TestEmulatorRoundTrip runs against a Firestore emulator when
// FIRESTORE_EMULATOR_HOST is set.
func TestEmulatorRoundTrip(t *testing.T) {
	if os.Getenv(EmulatorHostEnv) == "" {
		t.Skip(EmulatorHostEnv + " not set")
	}
	ctx := context.Background()

	st, err := store.Open(ctx, store.KindFirestore, store.Options{ProjectID: "modelsync-test"})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer st.Close()

	ref := store.DocRef{Collection: "app_config", Document: "emulator_models"}
	models, _ := catalog.Sample("gemini")

	if err := st.MergeEnvelope(ctx, ref, catalog.NewEnvelope(models)); err != nil {
		t.Fatalf("MergeEnvelope failed: %v", err)
	}

	snap, err := st.ReadEnvelope(ctx, ref)
	if err != nil {
		t.Fatalf("ReadEnvelope failed: %v", err)
	}
	if !snap.HasList || len(snap.List) != len(models) {
		t.Fatalf("expected %d entries, got %+v", len(models), snap)
	}
	for i, m := range models {
		got := snap.List[i]
		if got.Name() != m.DisplayName || got.Order == nil || *got.Order != int64(m.Order) {
			t.Errorf("entry %d: expected %+v, got %+v", i, m, snap.List[i])
		}
	}
	if snap.LastUpdated.IsZero() {
		t.Error("expected server timestamp")
	}
}
