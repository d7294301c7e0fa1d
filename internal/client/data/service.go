// Package data is the mutation layer: every local write goes through here,
// pairing the domain row change with its outbox enqueue in one transaction.
package data

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/habitsync/internal/client/cursor"
	"github.com/dmitrijs2005/habitsync/internal/client/mapper"
	"github.com/dmitrijs2005/habitsync/internal/client/models"
	"github.com/dmitrijs2005/habitsync/internal/client/outbox"
	"github.com/dmitrijs2005/habitsync/internal/client/repo"
	"github.com/dmitrijs2005/habitsync/internal/client/repositories"
	"github.com/dmitrijs2005/habitsync/internal/client/store"
	"github.com/dmitrijs2005/habitsync/internal/dbx"
	"github.com/dmitrijs2005/habitsync/internal/logging"
	"github.com/dmitrijs2005/habitsync/pkg/api"
	"github.com/dmitrijs2005/habitsync/pkg/metrics"
)

// CursorKeyPull is the sync-stream name of the shared pull watermark.
const CursorKeyPull = "pull"

// Service owns the local mutation API for all domain tables. It is scoped
// to one authenticated user; callers must Reset on sign-out.
type Service struct {
	store   *store.Store
	cursors cursor.Store
	userID  string
	log     logging.Logger
}

func NewService(st *store.Store, cursors cursor.Store, userID string, log logging.Logger) *Service {
	return &Service{store: st, cursors: cursors, userID: userID, log: log}
}

// guard fails fast on platforms without an embedded SQL engine instead of
// silently dropping a write.
func (s *Service) guard() error {
	if !s.store.Supported() {
		return store.ErrUnsupportedPlatform
	}
	return nil
}

// payloadMap renders a record as its local (camelCase) payload shape via
// its JSON tags.
func payloadMap(rec any) (map[string]any, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize record: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("failed to build payload map: %w", err)
	}
	return m, nil
}

// enqueue snapshots rec and queues the mutation on the same transaction as
// the domain write.
func (s *Service) enqueue(ctx context.Context, tx dbx.DBTX, table, rowID string, op models.Operation, rec models.Syncable) error {
	payload, err := payloadMap(rec)
	if err != nil {
		return err
	}
	_, err = outbox.New(tx, s.log).Enqueue(ctx, outbox.EnqueueParams{
		TableName: table,
		RowID:     rowID,
		Operation: op,
		Payload:   payload,
		Version:   rec.Meta().Version,
	})
	return err
}

// inTx runs fn inside one transaction, with stale-handle retry around the
// whole unit.
func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context, repos *repositories.Repositories, tx dbx.DBTX) error) error {
	if err := s.guard(); err != nil {
		return err
	}
	return s.store.WithRetry(ctx, func(ctx context.Context) error {
		return dbx.WithTx(ctx, s.store.DB(), nil, func(ctx context.Context, tx dbx.DBTX) error {
			return fn(ctx, repositories.New(tx, s.log), tx)
		})
	})
}

// ---- habits ----

func (s *Service) CreateHabit(ctx context.Context, h *models.Habit) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	h.UserID = s.userID

	return s.inTx(ctx, func(ctx context.Context, repos *repositories.Repositories, tx dbx.DBTX) error {
		if err := repos.Habits.Insert(ctx, h); err != nil {
			return err
		}
		return s.enqueue(ctx, tx, models.TableHabits, h.ID, models.OpInsert, h)
	})
}

func (s *Service) UpdateHabit(ctx context.Context, id string, fields map[string]any) error {
	return s.inTx(ctx, func(ctx context.Context, repos *repositories.Repositories, tx dbx.DBTX) error {
		if err := repos.Habits.Update(ctx, id, fields); err != nil {
			return err
		}
		updated, err := repos.Habits.FindByID(ctx, id)
		if err != nil {
			return err
		}
		return s.enqueue(ctx, tx, models.TableHabits, id, models.OpUpdate, updated)
	})
}

func (s *Service) DeleteHabit(ctx context.Context, id string) error {
	return s.inTx(ctx, func(ctx context.Context, repos *repositories.Repositories, tx dbx.DBTX) error {
		if err := repos.Habits.Remove(ctx, id); err != nil {
			return err
		}
		// soft delete keeps the tombstone readable for the snapshot
		deleted, err := repos.Habits.FindByID(ctx, id)
		if err != nil {
			return err
		}
		return s.enqueue(ctx, tx, models.TableHabits, id, models.OpDelete, deleted)
	})
}

// ListHabits returns habits that are not soft-deleted.
func (s *Service) ListHabits(ctx context.Context) ([]*models.Habit, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	var result []*models.Habit
	err := s.store.WithRetry(ctx, func(ctx context.Context) error {
		all, err := repositories.New(s.store.DB(), s.log).Habits.All(ctx)
		if err != nil {
			return err
		}
		result = result[:0]
		for _, h := range all {
			if h.DeletedAt == nil {
				result = append(result, h)
			}
		}
		return nil
	})
	return result, err
}

// ---- habit entries ----

func (s *Service) LogEntry(ctx context.Context, e *models.HabitEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.UserID = s.userID

	return s.inTx(ctx, func(ctx context.Context, repos *repositories.Repositories, tx dbx.DBTX) error {
		if err := repos.Entries.Insert(ctx, e); err != nil {
			return err
		}
		return s.enqueue(ctx, tx, models.TableEntries, e.ID, models.OpInsert, e)
	})
}

func (s *Service) UpdateEntry(ctx context.Context, id string, fields map[string]any) error {
	return s.inTx(ctx, func(ctx context.Context, repos *repositories.Repositories, tx dbx.DBTX) error {
		if err := repos.Entries.Update(ctx, id, fields); err != nil {
			return err
		}
		updated, err := repos.Entries.FindByID(ctx, id)
		if err != nil {
			return err
		}
		return s.enqueue(ctx, tx, models.TableEntries, id, models.OpUpdate, updated)
	})
}

func (s *Service) DeleteEntry(ctx context.Context, id string) error {
	return s.inTx(ctx, func(ctx context.Context, repos *repositories.Repositories, tx dbx.DBTX) error {
		if err := repos.Entries.Remove(ctx, id); err != nil {
			return err
		}
		deleted, err := repos.Entries.FindByID(ctx, id)
		if err != nil {
			return err
		}
		return s.enqueue(ctx, tx, models.TableEntries, id, models.OpDelete, deleted)
	})
}

// ListEntries returns non-deleted entries for one habit.
func (s *Service) ListEntries(ctx context.Context, habitID string) ([]*models.HabitEntry, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	var result []*models.HabitEntry
	err := s.store.WithRetry(ctx, func(ctx context.Context) error {
		all, err := repositories.New(s.store.DB(), s.log).Entries.All(ctx)
		if err != nil {
			return err
		}
		result = result[:0]
		for _, e := range all {
			if e.DeletedAt == nil && e.HabitID == habitID {
				result = append(result, e)
			}
		}
		return nil
	})
	return result, err
}

// ---- reminders ----

func (s *Service) CreateReminder(ctx context.Context, r *models.Reminder) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.UserID = s.userID

	return s.inTx(ctx, func(ctx context.Context, repos *repositories.Repositories, tx dbx.DBTX) error {
		if err := repos.Reminders.Insert(ctx, r); err != nil {
			return err
		}
		return s.enqueue(ctx, tx, models.TableReminders, r.ID, models.OpInsert, r)
	})
}

func (s *Service) UpdateReminder(ctx context.Context, id string, fields map[string]any) error {
	return s.inTx(ctx, func(ctx context.Context, repos *repositories.Repositories, tx dbx.DBTX) error {
		if err := repos.Reminders.Update(ctx, id, fields); err != nil {
			return err
		}
		updated, err := repos.Reminders.FindByID(ctx, id)
		if err != nil {
			return err
		}
		return s.enqueue(ctx, tx, models.TableReminders, id, models.OpUpdate, updated)
	})
}

func (s *Service) DeleteReminder(ctx context.Context, id string) error {
	return s.inTx(ctx, func(ctx context.Context, repos *repositories.Repositories, tx dbx.DBTX) error {
		if err := repos.Reminders.Remove(ctx, id); err != nil {
			return err
		}
		deleted, err := repos.Reminders.FindByID(ctx, id)
		if err != nil {
			return err
		}
		return s.enqueue(ctx, tx, models.TableReminders, id, models.OpDelete, deleted)
	})
}

// ---- devices ----

// RegisterDevice upserts the installation record. Devices have no
// deleted-at column, so RemoveDevice hard-deletes.
func (s *Service) RegisterDevice(ctx context.Context, d *models.Device) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	d.UserID = s.userID

	return s.inTx(ctx, func(ctx context.Context, repos *repositories.Repositories, tx dbx.DBTX) error {
		if err := repos.Devices.Upsert(ctx, d); err != nil {
			return err
		}
		return s.enqueue(ctx, tx, models.TableDevices, d.ID, models.OpInsert, d)
	})
}

func (s *Service) RemoveDevice(ctx context.Context, id string) error {
	return s.inTx(ctx, func(ctx context.Context, repos *repositories.Repositories, tx dbx.DBTX) error {
		// snapshot before the hard delete removes the row
		d, err := repos.Devices.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if d == nil {
			return fmt.Errorf("device %q: %w", id, repo.ErrNotFound)
		}
		if err := repos.Devices.Remove(ctx, id); err != nil {
			return err
		}
		return s.enqueue(ctx, tx, models.TableDevices, id, models.OpDelete, d)
	})
}

// ---- pull / reset ----

// ApplyRemote writes pulled rows into the local store, mapping each back to
// local shape and upserting by primary key. Rows that fail to decode are
// skipped with a warning so one bad row does not wedge the pull stream.
func (s *Service) ApplyRemote(ctx context.Context, rows []api.RemoteRow) (int, error) {
	if err := s.guard(); err != nil {
		return 0, err
	}

	applied := 0
	err := s.store.WithRetry(ctx, func(ctx context.Context) error {
		applied = 0
		return dbx.WithTx(ctx, s.store.DB(), nil, func(ctx context.Context, tx dbx.DBTX) error {
			repos := repositories.New(tx, s.log)
			for _, row := range rows {
				local := mapper.MapRowToLocal(row.Table, row.Payload)
				if err := applyRow(ctx, repos, row.Table, local); err != nil {
					s.log.Warn(ctx, "skipping remote row", "table", row.Table, "error", err)
					continue
				}
				applied++
			}
			return nil
		})
	})
	if err != nil {
		return 0, err
	}

	metrics.PulledRecords.Add(float64(applied))
	return applied, nil
}

func applyRow(ctx context.Context, repos *repositories.Repositories, table string, local map[string]any) error {
	b, err := json.Marshal(local)
	if err != nil {
		return fmt.Errorf("failed to encode row: %w", err)
	}

	switch table {
	case models.TableHabits:
		var h models.Habit
		if err := json.Unmarshal(b, &h); err != nil {
			return fmt.Errorf("failed to decode habit: %w", err)
		}
		return repos.Habits.Upsert(ctx, &h)
	case models.TableEntries:
		var e models.HabitEntry
		if err := json.Unmarshal(b, &e); err != nil {
			return fmt.Errorf("failed to decode habit entry: %w", err)
		}
		return repos.Entries.Upsert(ctx, &e)
	case models.TableReminders:
		var r models.Reminder
		if err := json.Unmarshal(b, &r); err != nil {
			return fmt.Errorf("failed to decode reminder: %w", err)
		}
		return repos.Reminders.Upsert(ctx, &r)
	case models.TableDevices:
		var d models.Device
		if err := json.Unmarshal(b, &d); err != nil {
			return fmt.Errorf("failed to decode device: %w", err)
		}
		return repos.Devices.Upsert(ctx, &d)
	default:
		return fmt.Errorf("unknown table %q", table)
	}
}

// PendingCount returns the current outbox depth.
func (s *Service) PendingCount(ctx context.Context) (int, error) {
	if err := s.guard(); err != nil {
		return 0, err
	}
	var n int
	err := s.store.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		n, err = outbox.New(s.store.DB(), s.log).Depth(ctx)
		return err
	})
	return n, err
}

// Reset clears the outbox and all cursors for the current user. Call on
// sign-out: neither layer enforces multi-user isolation.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.guard(); err != nil {
		return err
	}
	if err := s.store.WithRetry(ctx, func(ctx context.Context) error {
		return outbox.New(s.store.DB(), s.log).ClearAll(ctx)
	}); err != nil {
		return err
	}
	return s.cursors.ResetCursors(ctx)
}
