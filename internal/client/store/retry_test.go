//go:build !js

package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyRecoverable(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want recoveryClass
	}{
		{"nil", nil, recoveryNone},
		{"conn done", sql.ErrConnDone, recoveryBadConn},
		{"bad conn", driver.ErrBadConn, recoveryBadConn},
		{"wrapped conn done", fmt.Errorf("query: %w", sql.ErrConnDone), recoveryBadConn},
		{"closed handle", errors.New("database is closed"), recoveryClosedHandle},
		{"prepare", errors.New("failed to prepare statement"), recoveryPrepare},
		{"interrupted", errors.New("interrupted (9)"), recoveryPrepare},
		{"unrelated", errors.New("UNIQUE constraint failed"), recoveryNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyRecoverable(tt.in))
		})
	}
}

func TestWithRetry_SucceedsFirstTry(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, ":memory:", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	resets := 0
	s.OnReset(func() { resets++ })

	calls := 0
	err = s.WithRetry(ctx, func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, resets)
}

func TestWithRetry_ResetsOnceAndRetries(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, ":memory:", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	resets := 0
	s.OnReset(func() { resets++ })

	calls := 0
	err = s.WithRetry(ctx, func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("database is closed")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, resets)
}

func TestWithRetry_SecondFailurePropagates(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, ":memory:", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	stale := errors.New("database is closed")
	calls := 0
	err = s.WithRetry(ctx, func(ctx context.Context) error {
		calls++
		return stale
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, stale)
	// exactly one reset, never a retry loop
	assert.Equal(t, 2, calls)
}

func TestWithRetry_NonRecoverableSkipsReset(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, ":memory:", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	resets := 0
	s.OnReset(func() { resets++ })

	boom := errors.New("UNIQUE constraint failed: habits.id")
	calls := 0
	err = s.WithRetry(ctx, func(ctx context.Context) error {
		calls++
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, resets)
}

func TestWithRetry_RecoversARealClosedHandle(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, ":memory:", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	// simulate the runtime handing us a dead handle
	require.NoError(t, s.DB().Close())

	var n int
	err = s.WithRetry(ctx, func(ctx context.Context) error {
		return s.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM habits`).Scan(&n)
	})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
