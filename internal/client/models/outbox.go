package models

import "time"

// Operation classifies a queued mutation.
type Operation string

const (
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// OutboxRecord is one durable, not-yet-acknowledged local mutation.
//
// Records are immutable after enqueue except for Attempts, which is
// incremented after each failed push. A record is deleted once the remote
// push for it succeeds.
type OutboxRecord struct {
	ID          string    `json:"id"`
	TableName   string    `json:"tableName"`
	RowID       string    `json:"rowId"`
	Operation   Operation `json:"operation"`
	PayloadJSON string    `json:"payloadJson"` // row snapshot at mutation time
	Version     int64     `json:"version"`     // domain record version at enqueue
	Attempts    int64     `json:"attempts"`
	CreatedAt   time.Time `json:"createdAt"`
}
