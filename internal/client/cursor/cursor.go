// Package cursor persists per-stream sync watermarks (e.g. the last pulled
// remote timestamp) so pulls stay incremental. The native backing is a small
// bbolt file; when that is unavailable the store degrades to an in-memory
// map for the process lifetime.
package cursor

import (
	"context"
	"sync"
)

// Store is the durable key-value surface for sync watermarks. Keys are
// stream names (per table or direction); values are opaque watermarks. No
// history is kept: SetCursor overwrites.
type Store interface {
	// GetCursor returns the stored value for key, or "" when absent.
	GetCursor(ctx context.Context, key string) (string, error)

	// SetCursor overwrites the value for key.
	SetCursor(ctx context.Context, key, value string) error

	// ClearCursor removes one key.
	ClearCursor(ctx context.Context, key string) error

	// ResetCursors removes every key in the current namespace.
	ResetCursors(ctx context.Context) error

	// Close releases the backing store.
	Close() error
}

// MemoryStore is the process-lifetime fallback used on platforms without a
// native key-value engine or when the native store fails to open.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) GetCursor(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key], nil
}

func (s *MemoryStore) SetCursor(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryStore) ClearCursor(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func (s *MemoryStore) ResetCursors(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]string)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
