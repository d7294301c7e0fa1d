// Package outbox implements the durable queue of pending local mutations.
// Every domain write enqueues one record here, in the same transaction, and
// the sync engine drains them oldest-first.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/habitsync/internal/client/models"
	"github.com/dmitrijs2005/habitsync/internal/dbx"
	"github.com/dmitrijs2005/habitsync/internal/logging"
)

// DefaultBatchLimit bounds one push cycle when the caller does not pass an
// explicit limit.
const DefaultBatchLimit = 100

const columns = "id, table_name, row_id, operation, payload_json, version, attempts, created_at"

// Outbox provides queue operations over a dbx.DBTX. Bind it to a
// transaction (WithTx) to make an enqueue atomic with its domain write.
type Outbox struct {
	db  dbx.DBTX
	log logging.Logger
}

func New(db dbx.DBTX, log logging.Logger) *Outbox {
	return &Outbox{db: db, log: log}
}

// WithTx returns a copy bound to tx.
func (o *Outbox) WithTx(tx dbx.DBTX) *Outbox {
	return &Outbox{db: tx, log: o.log}
}

// EnqueueParams describes one mutation to queue. Payload is the row snapshot
// at mutation time, serialized on enqueue.
type EnqueueParams struct {
	TableName string
	RowID     string
	Operation models.Operation
	Payload   map[string]any
	Version   int64
}

// Enqueue generates an id, serializes the payload and inserts the record
// with attempts = 0.
func (o *Outbox) Enqueue(ctx context.Context, p EnqueueParams) (*models.OutboxRecord, error) {
	payload, err := json.Marshal(p.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize outbox payload: %w", err)
	}

	rec := &models.OutboxRecord{
		ID:          uuid.NewString(),
		TableName:   p.TableName,
		RowID:       p.RowID,
		Operation:   p.Operation,
		PayloadJSON: string(payload),
		Version:     p.Version,
		Attempts:    0,
		CreatedAt:   time.Now().UTC(),
	}

	query := `INSERT INTO outbox (` + columns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = o.db.ExecContext(ctx, query,
		rec.ID, rec.TableName, rec.RowID, string(rec.Operation),
		rec.PayloadJSON, rec.Version, rec.Attempts, rec.CreatedAt)
	if err != nil {
		o.log.Error(ctx, "outbox enqueue failed", "table", p.TableName, "row_id", p.RowID, "error", err)
		return nil, fmt.Errorf("failed to enqueue outbox record: %w", err)
	}
	return rec, nil
}

// GetPending returns up to limit records ordered by created_at ascending
// (FIFO). limit <= 0 falls back to DefaultBatchLimit.
func (o *Outbox) GetPending(ctx context.Context, limit int) ([]models.OutboxRecord, error) {
	if limit <= 0 {
		limit = DefaultBatchLimit
	}

	query := `SELECT ` + columns + ` FROM outbox ORDER BY created_at ASC LIMIT ?`
	rows, err := o.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending outbox records: %w", err)
	}
	defer rows.Close()

	var result []models.OutboxRecord
	for rows.Next() {
		var rec models.OutboxRecord
		var op string
		if err := rows.Scan(&rec.ID, &rec.TableName, &rec.RowID, &op,
			&rec.PayloadJSON, &rec.Version, &rec.Attempts, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Operation = models.Operation(op)
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// MarkProcessed deletes the given records in one statement. An empty id list
// is a guaranteed no-op: without this guard the generated IN () clause
// degenerates and a naive implementation deletes everything.
func (o *Outbox) MarkProcessed(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := fmt.Sprintf(`DELETE FROM outbox WHERE id IN (%s)`,
		strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", "))

	if _, err := o.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete processed outbox records: %w", err)
	}
	return nil
}

// IncrementAttempt bumps the attempts counter of one record after a failed
// push.
func (o *Outbox) IncrementAttempt(ctx context.Context, id string) error {
	_, err := o.db.ExecContext(ctx, `UPDATE outbox SET attempts = attempts + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to increment outbox attempts: %w", err)
	}
	return nil
}

// ClearTable drops all queued records for one table. Used for local resets.
func (o *Outbox) ClearTable(ctx context.Context, tableName string) error {
	_, err := o.db.ExecContext(ctx, `DELETE FROM outbox WHERE table_name = ?`, tableName)
	if err != nil {
		return fmt.Errorf("failed to clear outbox for table %s: %w", tableName, err)
	}
	return nil
}

// ClearAll drops the whole queue. Used on sign-out.
func (o *Outbox) ClearAll(ctx context.Context) error {
	if _, err := o.db.ExecContext(ctx, `DELETE FROM outbox`); err != nil {
		return fmt.Errorf("failed to clear outbox: %w", err)
	}
	return nil
}

// Depth returns the current number of queued records.
func (o *Outbox) Depth(ctx context.Context) (int, error) {
	var n int
	if err := o.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outbox`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count outbox records: %w", err)
	}
	return n, nil
}
