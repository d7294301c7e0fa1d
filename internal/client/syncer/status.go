// Package syncer orchestrates push/pull cycles over the outbox and owns
// their scheduling.
package syncer

import (
	"sync"
	"time"
)

// Status is the coarse engine state surfaced to a consuming UI.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSyncing Status = "syncing"
	StatusError   Status = "error"
)

// State is the ephemeral sync snapshot. It is rebuilt on process restart and
// never persisted.
type State struct {
	Status       Status
	QueueSize    int
	LastSyncedAt time.Time
	LastError    string
}

// StatusStore is the shared, concurrency-safe holder of the current State.
type StatusStore struct {
	mu    sync.RWMutex
	state State
}

func NewStatusStore() *StatusStore {
	return &StatusStore{state: State{Status: StatusIdle}}
}

// Snapshot returns a copy of the current state.
func (s *StatusStore) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *StatusStore) setSyncing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Status = StatusSyncing
}

func (s *StatusStore) setIdle(queueSize int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Status = StatusIdle
	s.state.QueueSize = queueSize
	s.state.LastError = ""
}

func (s *StatusStore) setError(msg string, queueSize int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Status = StatusError
	s.state.QueueSize = queueSize
	s.state.LastError = msg
}

func (s *StatusStore) markSynced(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LastSyncedAt = t
}
