// Package api defines the JSON wire types of the sync endpoints, shared
// between this client and the backend.
package api

// PushRow is one queued mutation in remote shape: snake_case keys, user_id
// already stamped.
type PushRow struct {
	Table     string         `json:"table"`
	RowID     string         `json:"row_id"`
	Operation string         `json:"operation"`
	Version   int64          `json:"version"`
	Payload   map[string]any `json:"payload"`
}

// PushRequest carries one outbox batch. The server upserts rows by primary
// key, so replaying a batch after a partial failure is safe.
type PushRequest struct {
	Rows []PushRow `json:"rows"`
}

// RemoteRow is one changed row returned by pull, still in remote shape.
type RemoteRow struct {
	Table   string         `json:"table"`
	Payload map[string]any `json:"payload"`
}

// PullResponse returns rows changed since the requested cursor plus the new
// cursor to store after applying them.
type PullResponse struct {
	Rows   []RemoteRow `json:"rows"`
	Cursor string      `json:"cursor"`
}
