//go:build !js

package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
)

// recoveryClass is the closed set of stale-handle error categories that
// justify reopening the connection and retrying once. Anything outside the
// set propagates unchanged.
type recoveryClass int

const (
	recoveryNone recoveryClass = iota
	recoveryClosedHandle
	recoveryBadConn
	recoveryPrepare
)

// staleHandleSubstrings is the fallback for drivers that surface stale
// handles only as message text. The match set is deliberately small.
var staleHandleSubstrings = map[string]recoveryClass{
	"database is closed":                    recoveryClosedHandle,
	"connection is already closed":          recoveryClosedHandle,
	"invalid memory address or nil pointer": recoveryClosedHandle,
	"failed to prepare":                     recoveryPrepare,
	"interrupted":                           recoveryPrepare,
}

func classifyRecoverable(err error) recoveryClass {
	if err == nil {
		return recoveryNone
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) {
		return recoveryBadConn
	}
	msg := err.Error()
	for sub, class := range staleHandleSubstrings {
		if strings.Contains(msg, sub) {
			return class
		}
	}
	return recoveryNone
}

// WithRetry runs op, and if it fails with a recognized stale-handle error,
// resets the connection and retries exactly once. A second failure, or a
// non-recoverable first failure, propagates to the caller. Callers that
// issue direct queries against the handle (the sync engine's persistence
// calls) wrap themselves in this.
func (s *Store) WithRetry(ctx context.Context, op func(ctx context.Context) error) error {
	err := op(ctx)
	if err == nil {
		return nil
	}

	class := classifyRecoverable(err)
	if class == recoveryNone {
		return err
	}

	s.log.Warn(ctx, "recoverable database error, resetting connection", "error", err, "class", int(class))
	if rerr := s.Reset(ctx); rerr != nil {
		return errors.Join(err, rerr)
	}

	return op(ctx)
}
