package data

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/habitsync/internal/client/cursor"
	"github.com/dmitrijs2005/habitsync/internal/client/models"
	"github.com/dmitrijs2005/habitsync/internal/client/outbox"
	"github.com/dmitrijs2005/habitsync/internal/client/repo"
	"github.com/dmitrijs2005/habitsync/internal/client/repositories"
	"github.com/dmitrijs2005/habitsync/internal/client/store"
	"github.com/dmitrijs2005/habitsync/internal/logging"
	"github.com/dmitrijs2005/habitsync/pkg/api"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func setupService(t *testing.T) (*Service, *store.Store, cursor.Store) {
	t.Helper()
	st, err := store.Open(context.Background(), ":memory:", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cursors := cursor.NewMemoryStore()
	return NewService(st, cursors, "u1", testLogger()), st, cursors
}

func pending(t *testing.T, st *store.Store) []models.OutboxRecord {
	t.Helper()
	records, err := outbox.New(st.DB(), testLogger()).GetPending(context.Background(), 100)
	require.NoError(t, err)
	return records
}

func TestCreateHabit_WritesRowAndOutboxTogether(t *testing.T) {
	svc, st, _ := setupService(t)
	ctx := context.Background()

	h := &models.Habit{Name: "Read", GoalPerDay: 2}
	require.NoError(t, svc.CreateHabit(ctx, h))
	require.NotEmpty(t, h.ID)
	assert.Equal(t, "u1", h.UserID)

	records := pending(t, st)
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, models.TableHabits, rec.TableName)
	assert.Equal(t, h.ID, rec.RowID)
	assert.Equal(t, models.OpInsert, rec.Operation)
	assert.EqualValues(t, 1, rec.Version)

	// the queued payload is the local (camelCase) row snapshot
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(rec.PayloadJSON), &payload))
	assert.Equal(t, "Read", payload["name"])
	assert.Equal(t, float64(2), payload["goalPerDay"])
	assert.Equal(t, "u1", payload["userId"])
}

func TestCreateHabit_FailureLeavesNoOutboxRecord(t *testing.T) {
	svc, st, _ := setupService(t)
	ctx := context.Background()

	h := &models.Habit{Name: "Read"}
	require.NoError(t, svc.CreateHabit(ctx, h))

	// same id again: the insert fails and the whole transaction rolls back
	dup := &models.Habit{Name: "Run"}
	dup.ID = h.ID
	err := svc.CreateHabit(ctx, dup)
	require.Error(t, err)
	assert.ErrorIs(t, err, repo.ErrUniqueViolation)

	assert.Len(t, pending(t, st), 1)

	habits, err := svc.ListHabits(ctx)
	require.NoError(t, err)
	require.Len(t, habits, 1)
	assert.Equal(t, "Read", habits[0].Name)
}

func TestUpdateHabit_QueuesUpdatedSnapshot(t *testing.T) {
	svc, st, _ := setupService(t)
	ctx := context.Background()

	h := &models.Habit{Name: "Read"}
	require.NoError(t, svc.CreateHabit(ctx, h))
	require.NoError(t, svc.UpdateHabit(ctx, h.ID, map[string]any{"name": "Read books"}))

	records := pending(t, st)
	require.Len(t, records, 2)
	rec := records[1]
	assert.Equal(t, models.OpUpdate, rec.Operation)
	assert.EqualValues(t, 2, rec.Version)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(rec.PayloadJSON), &payload))
	assert.Equal(t, "Read books", payload["name"])
	assert.Equal(t, float64(2), payload["version"])
}

func TestDeleteHabit_QueuesTombstone(t *testing.T) {
	svc, st, _ := setupService(t)
	ctx := context.Background()

	h := &models.Habit{Name: "Read"}
	require.NoError(t, svc.CreateHabit(ctx, h))
	require.NoError(t, svc.DeleteHabit(ctx, h.ID))

	records := pending(t, st)
	require.Len(t, records, 2)
	rec := records[1]
	assert.Equal(t, models.OpDelete, rec.Operation)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(rec.PayloadJSON), &payload))
	assert.NotNil(t, payload["deletedAt"])

	habits, err := svc.ListHabits(ctx)
	require.NoError(t, err)
	assert.Empty(t, habits)
}

func TestLogEntry_And_ListEntriesFiltersByHabit(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	e1 := &models.HabitEntry{HabitID: "h1", EntryDate: "2026-01-10", Value: 1}
	e2 := &models.HabitEntry{HabitID: "h1", EntryDate: "2026-01-11", Value: 1}
	e3 := &models.HabitEntry{HabitID: "h2", EntryDate: "2026-01-10", Value: 1}
	require.NoError(t, svc.LogEntry(ctx, e1))
	require.NoError(t, svc.LogEntry(ctx, e2))
	require.NoError(t, svc.LogEntry(ctx, e3))
	require.NoError(t, svc.DeleteEntry(ctx, e2.ID))

	entries, err := svc.ListEntries(ctx, "h1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, e1.ID, entries[0].ID)
}

func TestRegisterDevice_IsUpsert(t *testing.T) {
	svc, st, _ := setupService(t)
	ctx := context.Background()

	d := &models.Device{Platform: "android", PushToken: "tok1"}
	require.NoError(t, svc.RegisterDevice(ctx, d))

	again := &models.Device{Platform: "android", PushToken: "tok2"}
	again.ID = d.ID
	require.NoError(t, svc.RegisterDevice(ctx, again))

	records := pending(t, st)
	assert.Len(t, records, 2)

	got, err := repositories.New(st.DB(), testLogger()).Devices.FindByID(ctx, d.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "tok2", got.PushToken)
}

func TestRemoveDevice_HardDeletesAndQueuesSnapshot(t *testing.T) {
	svc, st, _ := setupService(t)
	ctx := context.Background()

	d := &models.Device{Platform: "ios", PushToken: "tok"}
	require.NoError(t, svc.RegisterDevice(ctx, d))
	require.NoError(t, svc.RemoveDevice(ctx, d.ID))

	got, err := repositories.New(st.DB(), testLogger()).Devices.FindByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	records := pending(t, st)
	require.Len(t, records, 2)
	rec := records[1]
	assert.Equal(t, models.OpDelete, rec.Operation)

	// the snapshot was taken before the row vanished
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(rec.PayloadJSON), &payload))
	assert.Equal(t, "tok", payload["pushToken"])
}

func TestRemoveDevice_NotFound(t *testing.T) {
	svc, _, _ := setupService(t)

	err := svc.RemoveDevice(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestApplyRemote_UpsertsMappedRows(t *testing.T) {
	svc, st, _ := setupService(t)
	ctx := context.Background()

	rows := []api.RemoteRow{
		{
			Table: models.TableHabits,
			Payload: map[string]any{
				"id":           "h-remote",
				"user_id":      "u1",
				"name":         "Meditate",
				"goal_per_day": 1,
				"version":      4,
				"created_at":   "2026-01-01T00:00:00Z",
				"updated_at":   "2026-01-05T00:00:00Z",
			},
		},
		{
			Table:   "bogus_table",
			Payload: map[string]any{"id": "x"},
		},
	}

	applied, err := svc.ApplyRemote(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	got, err := repositories.New(st.DB(), testLogger()).Habits.FindByID(ctx, "h-remote")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Meditate", got.Name)
	assert.EqualValues(t, 4, got.Version)

	// pulled rows never feed back into the outbox
	assert.Empty(t, pending(t, st))
}

func TestApplyRemote_OverwritesLocalRow(t *testing.T) {
	svc, st, _ := setupService(t)
	ctx := context.Background()

	h := &models.Habit{Name: "Read"}
	require.NoError(t, svc.CreateHabit(ctx, h))

	_, err := svc.ApplyRemote(ctx, []api.RemoteRow{{
		Table: models.TableHabits,
		Payload: map[string]any{
			"id":      h.ID,
			"user_id": "u1",
			"name":    "Read (merged)",
			"version": 7,
		},
	}})
	require.NoError(t, err)

	got, err := repositories.New(st.DB(), testLogger()).Habits.FindByID(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, "Read (merged)", got.Name)
	assert.EqualValues(t, 7, got.Version)
}

func TestPendingCount(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	n, err := svc.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, svc.CreateHabit(ctx, &models.Habit{Name: "a"}))
	require.NoError(t, svc.CreateHabit(ctx, &models.Habit{Name: "b"}))

	n, err = svc.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestReset_ClearsOutboxAndCursors(t *testing.T) {
	svc, _, cursors := setupService(t)
	ctx := context.Background()

	require.NoError(t, svc.CreateHabit(ctx, &models.Habit{Name: "a"}))
	require.NoError(t, cursors.SetCursor(ctx, CursorKeyPull, "w1"))

	require.NoError(t, svc.Reset(ctx))

	n, err := svc.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	got, err := cursors.GetCursor(ctx, CursorKeyPull)
	require.NoError(t, err)
	assert.Equal(t, "", got)
}
