package syncer

import (
	"context"
	"time"

	"github.com/dmitrijs2005/habitsync/internal/client/models"
	"github.com/dmitrijs2005/habitsync/internal/client/outbox"
	"github.com/dmitrijs2005/habitsync/internal/client/store"
	"github.com/dmitrijs2005/habitsync/internal/logging"
	"github.com/dmitrijs2005/habitsync/pkg/metrics"
)

// PushFunc sends one outbox batch to the remote store. It is all-or-nothing:
// a failed batch is fully retried next cycle, which is safe because remote
// writes are idempotent by primary key.
type PushFunc func(ctx context.Context, records []models.OutboxRecord) error

// PullFunc fetches remote changes since the stored cursor and applies them
// locally.
type PullFunc func(ctx context.Context) error

// Engine runs one push+pull cycle. It keeps no state across calls except
// through the shared StatusStore; the transport is injected so the engine
// stays transport-agnostic.
type Engine struct {
	store     *store.Store
	status    *StatusStore
	push      PushFunc
	pull      PullFunc // optional
	batchSize int
	log       logging.Logger
}

// EngineOption tweaks Engine construction.
type EngineOption func(*Engine)

// WithBatchSize bounds how many outbox records one push cycle drains.
func WithBatchSize(n int) EngineOption {
	return func(e *Engine) { e.batchSize = n }
}

// WithPull installs the optional pull collaborator.
func WithPull(pull PullFunc) EngineOption {
	return func(e *Engine) { e.pull = pull }
}

func NewEngine(st *store.Store, status *StatusStore, push PushFunc, log logging.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		store:     st,
		status:    status,
		push:      push,
		batchSize: outbox.DefaultBatchLimit,
		log:       log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ProcessOutbox drains one pending batch. On push failure every record in
// the batch gets its attempts counter bumped, the status store records the
// error, and the original push error propagates so the caller decides
// whether to retry later.
func (e *Engine) ProcessOutbox(ctx context.Context) error {
	e.status.setSyncing()

	// the outbox view is rebuilt per call so a reset handle is picked up
	var records []models.OutboxRecord
	err := e.store.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		records, err = outbox.New(e.store.DB(), e.log).GetPending(ctx, e.batchSize)
		return err
	})
	if err != nil {
		e.status.setError(err.Error(), 0)
		return err
	}

	metrics.OutboxBacklog.Set(float64(len(records)))
	if len(records) == 0 {
		e.status.setIdle(0)
		return nil
	}

	started := time.Now()
	if err := e.push(ctx, records); err != nil {
		for _, rec := range records {
			id := rec.ID
			ierr := e.store.WithRetry(ctx, func(ctx context.Context) error {
				return outbox.New(e.store.DB(), e.log).IncrementAttempt(ctx, id)
			})
			if ierr != nil {
				e.log.Warn(ctx, "failed to increment outbox attempts", "id", id, "error", ierr)
			}
		}
		e.status.setError(err.Error(), len(records))
		metrics.SyncRuns.WithLabelValues("error").Inc()
		e.log.Error(ctx, "push batch failed", "size", len(records), "error", err)
		return err
	}
	metrics.PushBatchDuration.Observe(time.Since(started).Seconds())

	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}
	var remaining int
	err = e.store.WithRetry(ctx, func(ctx context.Context) error {
		ob := outbox.New(e.store.DB(), e.log)
		if err := ob.MarkProcessed(ctx, ids); err != nil {
			return err
		}
		n, err := ob.Depth(ctx)
		remaining = n
		return err
	})
	if err != nil {
		e.status.setError(err.Error(), len(records))
		return err
	}

	metrics.PushedRecords.Add(float64(len(records)))
	e.status.setIdle(remaining)
	e.log.Info(ctx, "outbox batch pushed", "size", len(records))
	return nil
}

// RunSync runs one full cycle: drain the outbox, then pull when a pull
// collaborator was supplied. Push errors propagate; they are not swallowed
// here.
func (e *Engine) RunSync(ctx context.Context) error {
	if err := e.ProcessOutbox(ctx); err != nil {
		return err
	}

	if e.pull != nil {
		if err := e.pull(ctx); err != nil {
			e.status.setError(err.Error(), e.status.Snapshot().QueueSize)
			metrics.SyncRuns.WithLabelValues("error").Inc()
			e.log.Error(ctx, "pull failed", "error", err)
			return err
		}
	}

	e.status.markSynced(time.Now().UTC())
	metrics.SyncRuns.WithLabelValues("ok").Inc()
	return nil
}
