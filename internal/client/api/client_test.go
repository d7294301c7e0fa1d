package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/habitsync/internal/client/models"
	"github.com/dmitrijs2005/habitsync/internal/logging"
	"github.com/dmitrijs2005/habitsync/pkg/api"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPush_MapsPayloadToRemoteShape(t *testing.T) {
	var got api.PushRequest
	var gotPath, gotUser string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser = r.Header.Get(UserIDHeaderName)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "u42", testLogger())
	records := []models.OutboxRecord{{
		ID:          "ob1",
		TableName:   models.TableHabits,
		RowID:       "h1",
		Operation:   models.OpInsert,
		PayloadJSON: `{"id":"h1","userId":"u42","name":"Read","goalPerDay":2,"deletedAt":null}`,
		Version:     1,
	}}

	require.NoError(t, c.Push(context.Background(), records))

	assert.Equal(t, "/api/v1/sync/push", gotPath)
	assert.Equal(t, "u42", gotUser)
	require.Len(t, got.Rows, 1)

	row := got.Rows[0]
	assert.Equal(t, models.TableHabits, row.Table)
	assert.Equal(t, "h1", row.RowID)
	assert.Equal(t, "insert", row.Operation)
	assert.EqualValues(t, 1, row.Version)

	assert.Equal(t, "Read", row.Payload["name"])
	assert.Equal(t, float64(2), row.Payload["goal_per_day"])
	assert.Equal(t, "u42", row.Payload["user_id"])
	assert.Contains(t, row.Payload, "deleted_at")
	assert.Nil(t, row.Payload["deleted_at"])
	assert.NotContains(t, row.Payload, "goalPerDay")
}

func TestPush_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "u1", testLogger())
	err := c.Push(context.Background(), []models.OutboxRecord{{
		ID: "ob1", TableName: models.TableHabits, RowID: "h1",
		Operation: models.OpInsert, PayloadJSON: `{"id":"h1"}`, Version: 1,
	}})
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())
}

func TestPush_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad payload", http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "u1", testLogger())
	err := c.Push(context.Background(), []models.OutboxRecord{{
		ID: "ob1", TableName: models.TableHabits, RowID: "h1",
		Operation: models.OpInsert, PayloadJSON: `{"id":"h1"}`, Version: 1,
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.EqualValues(t, 1, calls.Load())
}

func TestPush_BadPayloadJSONFailsFast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "u1", testLogger())
	err := c.Push(context.Background(), []models.OutboxRecord{{
		ID: "ob1", TableName: models.TableHabits, PayloadJSON: `{not json`,
	}})
	require.Error(t, err)
}

func TestPullSince_SendsCursorAndDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/sync/pull", r.URL.Path)
		assert.Equal(t, "2026-01-10T12:00:00Z", r.URL.Query().Get("since"))
		assert.Equal(t, "u1", r.Header.Get(UserIDHeaderName))

		resp := api.PullResponse{
			Rows: []api.RemoteRow{{
				Table:   models.TableHabits,
				Payload: map[string]any{"id": "h1", "name": "Read"},
			}},
			Cursor: "2026-01-11T00:00:00Z",
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "u1", testLogger())
	resp, err := c.PullSince(context.Background(), "2026-01-10T12:00:00Z")
	require.NoError(t, err)
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, "h1", resp.Rows[0].Payload["id"])
	assert.Equal(t, "2026-01-11T00:00:00Z", resp.Cursor)
}

func TestPullSince_EmptyCursorOmitsParam(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("since"))
		require.NoError(t, json.NewEncoder(w).Encode(api.PullResponse{}))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "u1", testLogger())
	_, err := c.PullSince(context.Background(), "")
	require.NoError(t, err)
}
