// Package config loads modelsync settings from defaults, a config file,
// MODELSYNC_* environment variables (including a local .env file) and
// command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/markvii/modelsync/internal/store"
)

// ErrInvalid is returned when the effective configuration fails validation.
var ErrInvalid = errors.New("invalid configuration")

const (
	// EnvPrefix prefixes every environment variable read by Load.
	EnvPrefix = "MODELSYNC"

	// DefaultConfigName is searched for (as .yaml, .toml, ...) in the
	// working directory when no config file is given.
	DefaultConfigName = "modelsync"

	DefaultBackend     = "firestore"
	DefaultTarget      = "models"
	DefaultCollection  = "app_config"
	DefaultCredentials = "mark-vii-firebase-service-account-key.json"
	DefaultSQLitePath  = "modelsync.db"
	DefaultRedisAddr   = "localhost:6379"
	DefaultKeyPrefix   = "modelsync:"
)

// Config is the effective configuration of one modelsync invocation.
type Config struct {
	Backend    string            `mapstructure:"backend" yaml:"backend" toml:"backend" validate:"required,oneof=firestore sqlite redis postgres"`
	Target     string            `mapstructure:"target" yaml:"target" toml:"target" validate:"required"`
	Collection string            `mapstructure:"collection" yaml:"collection" toml:"collection" validate:"required"`
	Firestore  FirestoreConfig   `mapstructure:"firestore" yaml:"firestore" toml:"firestore"`
	SQLite     SQLiteConfig      `mapstructure:"sqlite" yaml:"sqlite" toml:"sqlite"`
	Redis      RedisConfig       `mapstructure:"redis" yaml:"redis" toml:"redis"`
	Postgres   PostgresConfig    `mapstructure:"postgres" yaml:"postgres" toml:"postgres"`
	Log        LogConfig         `mapstructure:"log" yaml:"log" toml:"log"`
	Targets    map[string]Target `mapstructure:"targets" yaml:"targets" toml:"targets" validate:"required,dive"`

	// path of the config file that was read, if any
	file string
}

type FirestoreConfig struct {
	Credentials string `mapstructure:"credentials" yaml:"credentials" toml:"credentials"`
	ProjectID   string `mapstructure:"project_id" yaml:"project_id" toml:"project_id"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path" yaml:"path" toml:"path"`
}

type RedisConfig struct {
	Addr      string `mapstructure:"addr" yaml:"addr" toml:"addr"`
	Password  string `mapstructure:"password" yaml:"password,omitempty" toml:"password,omitempty"`
	DB        int    `mapstructure:"db" yaml:"db" toml:"db" validate:"gte=0"`
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix" toml:"key_prefix"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn" yaml:"dsn" toml:"dsn"`
}

// LogConfig controls the optional rotating log file.
type LogConfig struct {
	File       string `mapstructure:"file" yaml:"file" toml:"file"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size" toml:"max_size" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups" toml:"max_backups" validate:"gte=0"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age" toml:"max_age" validate:"gte=0"`
	Compress   bool   `mapstructure:"compress" yaml:"compress" toml:"compress"`
}

// Target names one remote list and how the CLI presents it.
type Target struct {
	Document string `mapstructure:"document" yaml:"document" toml:"document" validate:"required"`
	CSV      string `mapstructure:"csv" yaml:"csv" toml:"csv" validate:"required"`
	// PreviewLimit and ListLimit cap the rows printed; 0 prints all.
	PreviewLimit int `mapstructure:"preview_limit" yaml:"preview_limit" toml:"preview_limit" validate:"gte=0"`
	ListLimit    int `mapstructure:"list_limit" yaml:"list_limit" toml:"list_limit" validate:"gte=0"`
	NameWidth    int `mapstructure:"name_width" yaml:"name_width" toml:"name_width" validate:"gte=0"`
	// Label qualifies "models" in console output, e.g. "Gemini models".
	Label string `mapstructure:"label" yaml:"label,omitempty" toml:"label,omitempty"`
	// Sample names a built-in sample catalog; empty means none.
	Sample string `mapstructure:"sample" yaml:"sample,omitempty" toml:"sample,omitempty"`
}

// Builtin returns the target presets that are always available.
func Builtin() map[string]Target {
	return map[string]Target{
		"models": {
			Document:     "models",
			CSV:          "models.csv",
			PreviewLimit: 10,
			ListLimit:    15,
			NameWidth:    35,
		},
		"gemini": {
			Document:  "gemini_models",
			CSV:       "gemini_models.csv",
			NameWidth: 40,
			Label:     "Gemini",
			Sample:    "gemini",
		},
	}
}

// Noun returns "models" qualified by the target label.
func (t Target) Noun() string {
	if t.Label == "" {
		return "models"
	}
	return t.Label + " models"
}

// SampleFile is where `sample` writes a target's sample CSV by default.
func (t Target) SampleFile() string {
	if t.Sample == "" {
		return ""
	}
	return strings.TrimSuffix(t.CSV, ".csv") + "_sample.csv"
}

// LoadOptions controls where Load looks for settings.
type LoadOptions struct {
	// ConfigFile is an explicit config path. When empty, modelsync.* is
	// searched for in the working directory and its absence is not an error.
	ConfigFile string
	// EnvFile is loaded into the process environment before reading
	// MODELSYNC_* variables. Defaults to ".env"; a missing file is ignored.
	EnvFile string
	// Flags, when set, override file and environment values for the keys
	// in FlagKeys.
	Flags *pflag.FlagSet
}

// FlagKeys maps config keys to the persistent flag names that override them.
var FlagKeys = map[string]string{
	"backend":  "backend",
	"target":   "target",
	"log.file": "log-file",
}

// Load builds and validates the effective configuration.
func Load(opts LoadOptions) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: failed to read %s: %v", ErrInvalid, opts.ConfigFile, err)
		}
	} else {
		v.SetConfigName(DefaultConfigName)
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
			}
		}
	}

	if opts.Flags != nil {
		for key, name := range FlagKeys {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	cfg.file = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Backend:    DefaultBackend,
		Target:     DefaultTarget,
		Collection: DefaultCollection,
		Firestore:  FirestoreConfig{Credentials: DefaultCredentials},
		SQLite:     SQLiteConfig{Path: DefaultSQLitePath},
		Redis:      RedisConfig{Addr: DefaultRedisAddr, KeyPrefix: DefaultKeyPrefix},
		Log:        LogConfig{MaxSize: 10, MaxBackups: 3, MaxAge: 28},
		Targets:    Builtin(),
	}
}

// setDefaults registers every key so that environment variables can
// override keys absent from the config file.
func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("backend", d.Backend)
	v.SetDefault("target", d.Target)
	v.SetDefault("collection", d.Collection)
	v.SetDefault("firestore.credentials", d.Firestore.Credentials)
	v.SetDefault("firestore.project_id", "")
	v.SetDefault("sqlite.path", d.SQLite.Path)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", d.Redis.KeyPrefix)
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", d.Log.MaxSize)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age", d.Log.MaxAge)
	v.SetDefault("log.compress", false)

	for name, t := range d.Targets {
		prefix := "targets." + name + "."
		v.SetDefault(prefix+"document", t.Document)
		v.SetDefault(prefix+"csv", t.CSV)
		v.SetDefault(prefix+"preview_limit", t.PreviewLimit)
		v.SetDefault(prefix+"list_limit", t.ListLimit)
		v.SetDefault(prefix+"name_width", t.NameWidth)
		v.SetDefault(prefix+"label", t.Label)
		v.SetDefault(prefix+"sample", t.Sample)
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints, the selected target and the settings
// the selected backend needs.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, describe(fe))
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if _, ok := c.Targets[c.Target]; !ok {
		return fmt.Errorf("%w: unknown target %q (available: %s)", ErrInvalid, c.Target, strings.Join(c.TargetNames(), ", "))
	}

	switch store.Kind(c.Backend) {
	case store.KindSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("%w: sqlite.path is required for the sqlite backend", ErrInvalid)
		}
	case store.KindRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("%w: redis.addr is required for the redis backend", ErrInvalid)
		}
	case store.KindPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("%w: postgres.dsn is required for the postgres backend", ErrInvalid)
		}
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %q validation", field, fe.Tag())
	}
}

// File returns the path of the config file that was read, or "".
func (c *Config) File() string {
	return c.file
}

// TargetNames returns the configured target names in sorted order.
func (c *Config) TargetNames() []string {
	names := make([]string, 0, len(c.Targets))
	for name := range c.Targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ActiveTarget returns the selected target preset.
func (c *Config) ActiveTarget() Target {
	return c.Targets[c.Target]
}

// Kind returns the selected backend.
func (c *Config) Kind() store.Kind {
	return store.Kind(c.Backend)
}

// Ref returns the document the selected target maps to.
func (c *Config) Ref() store.DocRef {
	return store.DocRef{Collection: c.Collection, Document: c.ActiveTarget().Document}
}

// StoreOptions returns the connection settings for every backend.
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		CredentialsFile: c.Firestore.Credentials,
		ProjectID:       c.Firestore.ProjectID,
		Path:            c.SQLite.Path,
		Addr:            c.Redis.Addr,
		Password:        c.Redis.Password,
		DB:              c.Redis.DB,
		KeyPrefix:       c.Redis.KeyPrefix,
		DSN:             c.Postgres.DSN,
	}
}
