package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

var _ Store = (*MemoryKV)(nil)

// MemoryKV provides an in-memory KV implementation. It is used when no redis
// backend is configured and as the fixture store in tests.
type MemoryKV struct {
	mu    sync.RWMutex
	data  map[string]string
	ready bool
}

// NewMemoryKV creates a new in-memory KV store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		data: make(map[string]string),
	}
}

// Initialize initializes the store.
func (s *MemoryKV) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = true
	return nil
}

// Close closes the store and drops its contents.
func (s *MemoryKV) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = false
	s.data = make(map[string]string)
	return nil
}

// Health checks store health.
func (s *MemoryKV) Health(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ready {
		return fmt.Errorf("store not ready")
	}
	return nil
}

// Get returns the value for key.
func (s *MemoryKV) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.ready {
		return "", false, fmt.Errorf("store not ready")
	}
	value, ok := s.data[key]
	return value, ok, nil
}

// Set stores the value under key.
func (s *MemoryKV) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return fmt.Errorf("store not ready")
	}
	s.data[key] = value
	return nil
}

// Remove deletes the key.
func (s *MemoryKV) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return fmt.Errorf("store not ready")
	}
	delete(s.data, key)
	return nil
}

// ListKeys returns all keys with the given prefix.
func (s *MemoryKV) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.ready {
		return nil, fmt.Errorf("store not ready")
	}
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}
