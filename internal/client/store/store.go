//go:build !js

// Package store owns the embedded SQLite connection: opening, schema
// migrations, stale-handle recovery and the process-wide reset event.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/habitsync/internal/logging"
	"github.com/dmitrijs2005/habitsync/pkg/metrics"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Store wraps the process-wide *sql.DB. The handle is lazily replaceable:
// Reset closes and reopens it when a stale-handle error is detected.
type Store struct {
	mu  sync.Mutex
	db  *sql.DB
	dsn string
	log logging.Logger

	resetMu sync.Mutex
	onReset []func()
}

// Open opens the database at dsn (":memory:" works for tests), applies
// connection pragmas and runs pending goose migrations. Migrations are
// versioned and idempotent: when the schema is current, Up is a no-op.
func Open(ctx context.Context, dsn string, log logging.Logger) (*Store, error) {
	s := &Store{dsn: dsn, log: log}

	db, err := openDB(ctx, dsn)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	s.db = db
	return s, nil
}

func openDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// single writer; SQLite serializes writes anyway
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	return db, nil
}

func runMigrations(db *sql.DB) error {
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	goose.SetBaseFS(embedMigrations)

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("goose up failed: %w", err)
	}
	return nil
}

// Supported reports whether the embedded engine is available on this build
// target.
func (s *Store) Supported() bool { return true }

// DB returns the current database handle.
func (s *Store) DB() *sql.DB {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// OnReset registers fn to be called after every forced reopen, so dependent
// in-memory caches can invalidate.
func (s *Store) OnReset(fn func()) {
	s.resetMu.Lock()
	defer s.resetMu.Unlock()
	s.onReset = append(s.onReset, fn)
}

// Reset forcibly closes and reopens the connection, re-running migrations,
// and then notifies OnReset subscribers.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	if s.db != nil {
		_ = s.db.Close()
		s.db = nil
	}

	db, err := openDB(ctx, s.dsn)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to reopen database: %w", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		s.mu.Unlock()
		return fmt.Errorf("failed to migrate reopened database: %w", err)
	}
	s.db = db
	s.mu.Unlock()

	metrics.DatabaseReopens.Inc()
	s.log.Warn(ctx, "database connection was reset")

	s.resetMu.Lock()
	subs := make([]func(), len(s.onReset))
	copy(subs, s.onReset)
	s.resetMu.Unlock()
	for _, fn := range subs {
		fn()
	}
	return nil
}
