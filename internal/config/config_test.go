package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/spf13/pflag"

	"github.com/markvii/modelsync/internal/store"
)

// isolate runs the test from an empty directory with no MODELSYNC_*
// variables inherited from the environment.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, EnvPrefix+"_") {
			key := strings.SplitN(kv, "=", 2)[0]
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(LoadOptions{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if diff := cmp.Diff(Default(), cfg, cmpopts.IgnoreUnexported(Config{})); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
	if cfg.File() != "" {
		t.Errorf("expected no config file, got %q", cfg.File())
	}
	if got := cfg.Ref(); got != (store.DocRef{Collection: "app_config", Document: "models"}) {
		t.Errorf("unexpected ref %v", got)
	}
	if cfg.Kind() != store.KindFirestore {
		t.Errorf("expected firestore backend, got %s", cfg.Kind())
	}
}

func TestBuiltinTargets(t *testing.T) {
	tests := []struct {
		name       string
		document   string
		csv        string
		preview    int
		list       int
		width      int
		sampleFile string
	}{
		{"models", "models", "models.csv", 10, 15, 35, ""},
		{"gemini", "gemini_models", "gemini_models.csv", 0, 0, 40, "gemini_models_sample.csv"},
	}

	builtin := Builtin()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, ok := builtin[tt.name]
			if !ok {
				t.Fatalf("missing builtin target %q", tt.name)
			}
			if target.Document != tt.document || target.CSV != tt.csv {
				t.Errorf("unexpected location %+v", target)
			}
			if target.PreviewLimit != tt.preview || target.ListLimit != tt.list || target.NameWidth != tt.width {
				t.Errorf("unexpected limits %+v", target)
			}
			if got := target.SampleFile(); got != tt.sampleFile {
				t.Errorf("SampleFile() = %q, want %q", got, tt.sampleFile)
			}
		})
	}
}

func TestLoadYAMLFile(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "modelsync.yaml"), `
backend: sqlite
target: staging
sqlite:
  path: data/catalog.db
targets:
  staging:
    document: staging_models
    csv: staging.csv
    name_width: 20
  models:
    preview_limit: 0
`)

	cfg, err := Load(LoadOptions{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Backend != "sqlite" || cfg.SQLite.Path != "data/catalog.db" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if !strings.HasSuffix(cfg.File(), "modelsync.yaml") {
		t.Errorf("expected modelsync.yaml to be used, got %q", cfg.File())
	}
	if got := cfg.Ref().Document; got != "staging_models" {
		t.Errorf("expected staging_models, got %q", got)
	}

	models := cfg.Targets["models"]
	if models.PreviewLimit != 0 {
		t.Errorf("explicit preview_limit 0 overridden: %d", models.PreviewLimit)
	}
	if models.ListLimit != 15 || models.Document != "models" {
		t.Errorf("builtin fields not merged: %+v", models)
	}
	if _, ok := cfg.Targets["gemini"]; !ok {
		t.Error("builtin gemini target dropped")
	}
	if diff := cmp.Diff([]string{"gemini", "models", "staging"}, cfg.TargetNames()); diff != "" {
		t.Errorf("target names mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadExplicitFileMissing(t *testing.T) {
	dir := isolate(t)

	_, err := Load(LoadOptions{ConfigFile: filepath.Join(dir, "nope.yaml")})
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestLoadEnvironment(t *testing.T) {
	dir := isolate(t)

	t.Setenv("MODELSYNC_BACKEND", "redis")
	t.Setenv("MODELSYNC_REDIS_ADDR", "cache:6380")
	t.Setenv("MODELSYNC_REDIS_DB", "2")

	// .env supplies values the process environment does not set
	envFile := filepath.Join(dir, ".env")
	writeFile(t, envFile, "MODELSYNC_COLLECTION=staging_config\nMODELSYNC_BACKEND=postgres\n")
	t.Setenv("MODELSYNC_COLLECTION", "")
	os.Unsetenv("MODELSYNC_COLLECTION")

	cfg, err := Load(LoadOptions{EnvFile: envFile})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Backend != "redis" {
		t.Errorf("process env should win over .env, got backend %q", cfg.Backend)
	}
	if cfg.Redis.Addr != "cache:6380" || cfg.Redis.DB != 2 {
		t.Errorf("redis env not applied: %+v", cfg.Redis)
	}
	if cfg.Collection != "staging_config" {
		t.Errorf("expected collection from .env, got %q", cfg.Collection)
	}

	opts := cfg.StoreOptions()
	if opts.Addr != "cache:6380" || opts.DB != 2 || opts.KeyPrefix != DefaultKeyPrefix {
		t.Errorf("unexpected store options %+v", opts)
	}
}

func TestLoadFlagsOverride(t *testing.T) {
	isolate(t)
	t.Setenv("MODELSYNC_BACKEND", "redis")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("backend", "", "")
	flags.String("target", "", "")
	flags.String("log-file", "", "")
	if err := flags.Parse([]string{"--backend", "sqlite", "--target", "gemini"}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	cfg, err := Load(LoadOptions{Flags: flags})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Backend != "sqlite" || cfg.Target != "gemini" {
		t.Errorf("flags not applied: backend=%q target=%q", cfg.Backend, cfg.Target)
	}
	if cfg.Log.File != "" {
		t.Errorf("unset flag should not override: %q", cfg.Log.File)
	}
	if got := cfg.Ref().Document; got != "gemini_models" {
		t.Errorf("expected gemini_models, got %q", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"unknown backend", func(c *Config) { c.Backend = "mongo" }, "Backend must be one of"},
		{"empty collection", func(c *Config) { c.Collection = "" }, "Collection is required"},
		{"unknown target", func(c *Config) { c.Target = "nope" }, `unknown target "nope"`},
		{"negative limit", func(c *Config) {
			m := c.Targets["models"]
			m.PreviewLimit = -1
			c.Targets["models"] = m
		}, "must be >= 0"},
		{"target without document", func(c *Config) {
			c.Targets["broken"] = Target{CSV: "x.csv"}
		}, "Document is required"},
		{"sqlite without path", func(c *Config) {
			c.Backend = "sqlite"
			c.SQLite.Path = ""
		}, "sqlite.path is required"},
		{"redis without addr", func(c *Config) {
			c.Backend = "redis"
			c.Redis.Addr = ""
		}, "redis.addr is required"},
		{"postgres without dsn", func(c *Config) { c.Backend = "postgres" }, "postgres.dsn is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %q", tt.want, err.Error())
			}
		})
	}

	if err := Default().Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestWriteFileRoundTrip(t *testing.T) {
	for _, format := range []string{FormatYAML, FormatTOML} {
		t.Run(format, func(t *testing.T) {
			dir := isolate(t)

			want := Default()
			want.Backend = "postgres"
			want.Postgres.DSN = "postgres://localhost/modelsync"
			want.Targets["extra"] = Target{Document: "extra_models", CSV: "extra.csv", NameWidth: 30}

			path := filepath.Join(dir, "conf", "modelsync."+format)
			if err := want.WriteFile(path, "", false); err != nil {
				t.Fatalf("WriteFile failed: %v", err)
			}

			got, err := Load(LoadOptions{ConfigFile: path})
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if diff := cmp.Diff(want, got, cmpopts.IgnoreUnexported(Config{})); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWriteFileExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "modelsync.yaml")
	writeFile(t, path, "backend: sqlite\n")

	err := Default().WriteFile(path, FormatYAML, false)
	if !errors.Is(err, fs.ErrExist) {
		t.Fatalf("expected fs.ErrExist, got %v", err)
	}

	if err := Default().WriteFile(path, FormatYAML, true); err != nil {
		t.Fatalf("forced WriteFile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.Contains(string(data), "backend: firestore") {
		t.Errorf("file not overwritten:\n%s", data)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
}

func TestMarshal(t *testing.T) {
	cfg := Default()

	data, err := cfg.Marshal(FormatTOML)
	if err != nil {
		t.Fatalf("Marshal toml failed: %v", err)
	}
	if !strings.Contains(string(data), `backend = "firestore"`) {
		t.Errorf("unexpected toml:\n%s", data)
	}

	if _, err := cfg.Marshal("ini"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestFormatFor(t *testing.T) {
	tests := map[string]string{
		"modelsync.toml": FormatTOML,
		"MODELSYNC.TOML": FormatTOML,
		"modelsync.yaml": FormatYAML,
		"modelsync.yml":  FormatYAML,
		"modelsync":      FormatYAML,
	}
	for path, want := range tests {
		if got := FormatFor(path); got != want {
			t.Errorf("FormatFor(%q) = %q, want %q", path, got, want)
		}
	}
}
