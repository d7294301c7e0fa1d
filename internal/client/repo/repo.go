// Package repo implements a generic per-table repository with automatic
// timestamping, version bumping and configurable soft delete. One
// Repository is instantiated per domain table, bound to a concrete row type
// and column set at compile time.
package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/habitsync/internal/client/models"
	"github.com/dmitrijs2005/habitsync/internal/dbx"
	"github.com/dmitrijs2005/habitsync/internal/logging"
)

// RowScanner is satisfied by *sql.Row and *sql.Rows.
type RowScanner interface {
	Scan(dest ...any) error
}

// Schema binds a Repository to one table: its column set, primary key and
// the optional bookkeeping columns. Values and Scan translate between the
// row struct and the column list; both must be aligned with Columns.
type Schema[T any] struct {
	Table   string
	PK      string
	Columns []string

	// Optional columns; empty string disables the behavior.
	CreatedAtCol string
	UpdatedAtCol string
	DeletedAtCol string // "" means Remove issues a hard delete
	VersionCol   string

	Values func(*T) []any
	Scan   func(RowScanner) (*T, error)
}

// Repository is the generic CRUD layer over a single table. It is bound to
// a dbx.DBTX, so the same instance logic works over *sql.DB or inside a
// caller-owned transaction (see WithTx).
type Repository[T any, PT interface {
	*T
	models.Syncable
}] struct {
	db     dbx.DBTX
	schema Schema[T]
	log    logging.Logger
}

func New[T any, PT interface {
	*T
	models.Syncable
}](db dbx.DBTX, schema Schema[T], log logging.Logger) *Repository[T, PT] {
	return &Repository[T, PT]{db: db, schema: schema, log: log}
}

// WithTx returns a copy of the repository bound to tx. Used to run a domain
// write and its outbox enqueue in one transaction.
func (r *Repository[T, PT]) WithTx(tx dbx.DBTX) *Repository[T, PT] {
	return &Repository[T, PT]{db: tx, schema: r.schema, log: r.log}
}

// stamp fills bookkeeping fields before a write. CreatedAt is only filled
// when absent so imported/pulled rows keep their origin time.
func (r *Repository[T, PT]) stamp(rec PT) {
	m := rec.Meta()
	now := time.Now().UTC()
	if r.schema.CreatedAtCol != "" && m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if r.schema.UpdatedAtCol != "" {
		m.UpdatedAt = now
	}
	if m.Version == 0 {
		m.Version = 1
	}
}

// Insert writes a new row, stamping created/updated timestamps. Constraint
// violations are translated into descriptive errors.
func (r *Repository[T, PT]) Insert(ctx context.Context, rec PT) error {
	r.stamp(rec)

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		r.schema.Table,
		strings.Join(r.schema.Columns, ", "),
		placeholders(len(r.schema.Columns)),
	)
	if _, err := r.db.ExecContext(ctx, query, r.schema.Values((*T)(rec))...); err != nil {
		r.log.Error(ctx, "insert failed", "table", r.schema.Table, "error", err)
		return fmt.Errorf("failed to insert into %s: %w", r.schema.Table, translateConstraint(err))
	}
	return nil
}

// Upsert writes the row, updating all non-key columns on primary-key
// conflict. Timestamping is the same as Insert.
func (r *Repository[T, PT]) Upsert(ctx context.Context, rec PT) error {
	r.stamp(rec)

	assignments := make([]string, 0, len(r.schema.Columns))
	for _, col := range r.schema.Columns {
		if col == r.schema.PK {
			continue
		}
		assignments = append(assignments, fmt.Sprintf("%s = excluded.%s", col, col))
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(%s) DO UPDATE SET %s",
		r.schema.Table,
		strings.Join(r.schema.Columns, ", "),
		placeholders(len(r.schema.Columns)),
		r.schema.PK,
		strings.Join(assignments, ", "),
	)
	if _, err := r.db.ExecContext(ctx, query, r.schema.Values((*T)(rec))...); err != nil {
		r.log.Error(ctx, "upsert failed", "table", r.schema.Table, "error", err)
		return fmt.Errorf("failed to upsert into %s: %w", r.schema.Table, translateConstraint(err))
	}
	return nil
}

// Update applies a partial column set to the row with the given id, stamps
// updated_at and bumps version by exactly 1. Returns ErrNotFound when no row
// matches.
func (r *Repository[T, PT]) Update(ctx context.Context, id string, fields map[string]any) error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == r.schema.PK {
			continue
		}
		keys = append(keys, k)
	}
	// deterministic SQL simplifies debugging and tests
	sort.Strings(keys)

	clauses := make([]string, 0, len(keys)+2)
	args := make([]any, 0, len(keys)+1)
	for _, k := range keys {
		clauses = append(clauses, fmt.Sprintf("%s = ?", k))
		args = append(args, fields[k])
	}
	if c := r.schema.UpdatedAtCol; c != "" {
		if _, ok := fields[c]; !ok {
			clauses = append(clauses, fmt.Sprintf("%s = ?", c))
			args = append(args, time.Now().UTC())
		}
	}
	if c := r.schema.VersionCol; c != "" {
		clauses = append(clauses, fmt.Sprintf("%s = %s + 1", c, c))
	}
	if len(clauses) == 0 {
		return nil
	}
	args = append(args, id)

	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s = ?",
		r.schema.Table, strings.Join(clauses, ", "), r.schema.PK,
	)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.log.Error(ctx, "update failed", "table", r.schema.Table, "id", id, "error", err)
		return fmt.Errorf("failed to update %s: %w", r.schema.Table, translateConstraint(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("failed to update %s %q: %w", r.schema.Table, id, ErrNotFound)
	}
	return nil
}

// Remove soft-deletes the row (sets the deleted-at column) when the schema
// configures one, otherwise issues a hard delete by primary key.
func (r *Repository[T, PT]) Remove(ctx context.Context, id string) error {
	if c := r.schema.DeletedAtCol; c != "" {
		return r.Update(ctx, id, map[string]any{c: time.Now().UTC()})
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", r.schema.Table, r.schema.PK)
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		r.log.Error(ctx, "delete failed", "table", r.schema.Table, "id", id, "error", err)
		return fmt.Errorf("failed to delete from %s: %w", r.schema.Table, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("failed to delete %s %q: %w", r.schema.Table, id, ErrNotFound)
	}
	return nil
}

// FindByID returns the row with the given id, or nil when absent.
func (r *Repository[T, PT]) FindByID(ctx context.Context, id string) (*T, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s = ?",
		strings.Join(r.schema.Columns, ", "), r.schema.Table, r.schema.PK,
	)
	row := r.db.QueryRowContext(ctx, query, id)

	rec, err := r.schema.Scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error(ctx, "select by id failed", "table", r.schema.Table, "id", id, "error", err)
		return nil, fmt.Errorf("failed to select from %s: %w", r.schema.Table, err)
	}
	return rec, nil
}

// All returns the full, unfiltered row set. Callers filter soft-deleted rows
// themselves when needed.
func (r *Repository[T, PT]) All(ctx context.Context) ([]*T, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM %s",
		strings.Join(r.schema.Columns, ", "), r.schema.Table,
	)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.log.Error(ctx, "select all failed", "table", r.schema.Table, "error", err)
		return nil, fmt.Errorf("failed to select from %s: %w", r.schema.Table, err)
	}
	defer rows.Close()

	var result []*T
	for rows.Next() {
		rec, err := r.schema.Scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
