// Package redis provides a document store backed by Redis hashes.
//
// Each document is one hash at key "<prefix><collection>/<document>". The
// list field holds the JSON-encoded records and lastUpdated holds the Redis
// server time of the last write in Unix milliseconds. A merge-write runs as a
// Lua script so both fields change together; other hash fields are left
// alone.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/markvii/modelsync/internal/catalog"
	"github.com/markvii/modelsync/internal/store"
)

func init() {
	store.Register(store.KindRedis, open)
}

// DefaultKeyPrefix namespaces document keys.
const DefaultKeyPrefix = "modelsync:"

// mergeScript sets the list and stamps the write with the server clock.
// KEYS[1] is the document key, ARGV[1] the JSON list.
var mergeScript = goredis.NewScript(`
local now = redis.call('TIME')
local usec = tonumber(now[2])
local ms = tonumber(now[1]) * 1000 + (usec - usec % 1000) / 1000
redis.call('HSET', KEYS[1], 'list', ARGV[1], 'lastUpdated', tostring(ms))
return ms
`)

// Store is a Redis-backed document store.
type Store struct {
	client *goredis.Client
	prefix string
}

func open(ctx context.Context, opts store.Options) (store.Store, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("%w: redis address is required", store.ErrNotConfigured)
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	s, err := New(ctx, client, opts.KeyPrefix)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing client. An empty prefix selects DefaultKeyPrefix.
// The store takes ownership of the client and closes it on Close.
func New(ctx context.Context, client *goredis.Client, prefix string) (*Store, error) {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &Store{client: client, prefix: prefix}, nil
}

// Key returns the hash key holding the document at ref.
func (s *Store) Key(ref store.DocRef) string {
	return s.prefix + ref.String()
}

// MergeEnvelope implements store.Store.
func (s *Store) MergeEnvelope(ctx context.Context, ref store.DocRef, env catalog.Envelope) error {
	if err := ref.Validate(); err != nil {
		return err
	}

	list, err := store.EncodeList(env)
	if err != nil {
		return err
	}

	if err := mergeScript.Run(ctx, s.client, []string{s.Key(ref)}, string(list)).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", ref, err)
	}
	return nil
}

// ReadEnvelope implements store.Store.
func (s *Store) ReadEnvelope(ctx context.Context, ref store.DocRef) (*store.Snapshot, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	fields, err := s.client.HGetAll(ctx, s.Key(ref)).Result()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("failed to read %s: %w", ref, err)
	}

	snap := &store.Snapshot{List: []catalog.RemoteModel{}}
	if len(fields) == 0 {
		return snap, nil
	}
	snap.Exists = true

	if raw, ok := fields[store.FieldList]; ok {
		list, err := store.DecodeList([]byte(raw))
		if err != nil {
			return nil, err
		}
		snap.HasList = true
		snap.List = list
	}

	if raw, ok := fields[store.FieldLastUpdated]; ok && raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", store.FieldLastUpdated, err)
		}
		snap.LastUpdated = time.UnixMilli(ms).UTC()
	}

	return snap, nil
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}
