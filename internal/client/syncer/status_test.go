package syncer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusStore_Transitions(t *testing.T) {
	s := NewStatusStore()

	got := s.Snapshot()
	assert.Equal(t, StatusIdle, got.Status)
	assert.Zero(t, got.QueueSize)
	assert.Empty(t, got.LastError)
	assert.True(t, got.LastSyncedAt.IsZero())

	s.setSyncing()
	assert.Equal(t, StatusSyncing, s.Snapshot().Status)

	s.setError("push failed", 4)
	got = s.Snapshot()
	assert.Equal(t, StatusError, got.Status)
	assert.Equal(t, 4, got.QueueSize)
	assert.Equal(t, "push failed", got.LastError)

	// a clean cycle wipes the previous error
	s.setIdle(0)
	got = s.Snapshot()
	assert.Equal(t, StatusIdle, got.Status)
	assert.Zero(t, got.QueueSize)
	assert.Empty(t, got.LastError)

	now := time.Now().UTC()
	s.markSynced(now)
	assert.True(t, s.Snapshot().LastSyncedAt.Equal(now))
}
