//go:build js

// On js/wasm there is no embedded SQL engine. Schema setup silently skips,
// while every mutation path fails fast with ErrUnsupportedPlatform so
// callers never silently no-op a write.
package store

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/habitsync/internal/logging"
)

type Store struct {
	log logging.Logger
}

func Open(ctx context.Context, dsn string, log logging.Logger) (*Store, error) {
	log.Info(ctx, "embedded database unavailable on this platform, schema setup skipped")
	return &Store{log: log}, nil
}

func (s *Store) Supported() bool { return false }

func (s *Store) DB() *sql.DB { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) OnReset(fn func()) {}

func (s *Store) Reset(ctx context.Context) error { return ErrUnsupportedPlatform }

func (s *Store) WithRetry(ctx context.Context, op func(ctx context.Context) error) error {
	return ErrUnsupportedPlatform
}
