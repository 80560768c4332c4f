// Package storage provides keyed snapshot persistence for the sync core.
package storage

import "context"

// KV is the key-value persistence interface backing the snapshot cache.
// Absence is reported through the ok flag, not an error; errors are reserved
// for genuine backend failures.
type KV interface {
	// Get returns the value for key, with ok=false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set stores the value under key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error
	// Remove deletes the key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
	// ListKeys returns all keys with the given prefix.
	ListKeys(ctx context.Context, prefix string) ([]string, error)
}

// Component is the lifecycle interface implemented by KV backends.
type Component interface {
	Initialize(ctx context.Context) error
	Close(ctx context.Context) error
	Health(ctx context.Context) error
}

// Store is a KV backend together with its lifecycle.
type Store interface {
	KV
	Component
}
