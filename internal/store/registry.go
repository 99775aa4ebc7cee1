package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Constructor opens a backend from options.
// Implementations register themselves with the registry using Register().
type Constructor func(ctx context.Context, opts Options) (Store, error)

var (
	registry      = make(map[Kind]Constructor)
	registryMutex sync.RWMutex
)

// Register registers a backend constructor.
// This is called from init() functions in backend packages.
//
// Example:
//
//	func init() {
//	    store.Register(store.KindSQLite, open)
//	}
func Register(kind Kind, constructor Constructor) {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if constructor == nil {
		panic(fmt.Sprintf("store: Register constructor is nil for kind %s", kind))
	}
	if _, exists := registry[kind]; exists {
		panic(fmt.Sprintf("store: Register called twice for kind %s", kind))
	}

	registry[kind] = constructor
}

// Kinds returns the registered backend kinds in sorted order.
func Kinds() []Kind {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	kinds := make([]Kind, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Open opens the backend registered for kind.
// The caller MUST call Close() on the returned store.
func Open(ctx context.Context, kind Kind, opts Options) (Store, error) {
	registryMutex.RLock()
	constructor := registry[kind]
	registryMutex.RUnlock()

	if constructor == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, kind)
	}

	st, err := constructor(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", kind.DisplayName(), err)
	}
	return st, nil
}
