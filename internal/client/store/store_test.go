//go:build !js

package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/habitsync/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestOpen_AppliesMigrations(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, ":memory:", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	assert.True(t, s.Supported())

	for _, table := range []string{"habits", "habit_entries", "reminders", "devices", "outbox"} {
		var n int
		err := s.DB().QueryRow(
			`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "table %s should exist", table)
	}
}

func TestOpen_IsIdempotentOnExistingFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "habitsync.db")

	s, err := Open(ctx, path, testLogger())
	require.NoError(t, err)
	_, err = s.DB().ExecContext(ctx,
		`INSERT INTO habits (id, user_id, name, created_at, updated_at) VALUES ('h1', 'u1', 'Read', ?, ?)`,
		"2026-01-10 12:00:00", "2026-01-10 12:00:00")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// reopening runs goose.Up again, which must be a no-op on a current schema
	s, err = Open(ctx, path, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	var n int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM habits`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestReset_ReplacesHandleAndNotifiesSubscribers(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "habitsync.db")

	s, err := Open(ctx, path, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	notified := 0
	s.OnReset(func() { notified++ })

	old := s.DB()
	require.NoError(t, s.Reset(ctx))

	assert.Equal(t, 1, notified)
	require.NotNil(t, s.DB())
	assert.NotSame(t, old, s.DB())

	// the new handle is fully usable
	var n int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM habits`).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestClose_IsSafeToCallTwice(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, ":memory:", testLogger())
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}
