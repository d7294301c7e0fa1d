// Package repositories instantiates the generic repository once per domain
// table, binding row types to their column sets.
package repositories

import (
	"database/sql"
	"time"

	"github.com/dmitrijs2005/habitsync/internal/client/models"
	"github.com/dmitrijs2005/habitsync/internal/client/repo"
	"github.com/dmitrijs2005/habitsync/internal/dbx"
	"github.com/dmitrijs2005/habitsync/internal/logging"
)

// Repositories bundles the per-table repository instances.
type Repositories struct {
	Habits    *repo.Repository[models.Habit, *models.Habit]
	Entries   *repo.Repository[models.HabitEntry, *models.HabitEntry]
	Reminders *repo.Repository[models.Reminder, *models.Reminder]
	Devices   *repo.Repository[models.Device, *models.Device]
}

// New binds all repositories to the given handle. Pass a transaction to get
// a transaction-scoped set.
func New(db dbx.DBTX, log logging.Logger) *Repositories {
	return &Repositories{
		Habits:    repo.New[models.Habit, *models.Habit](db, HabitSchema(), log),
		Entries:   repo.New[models.HabitEntry, *models.HabitEntry](db, EntrySchema(), log),
		Reminders: repo.New[models.Reminder, *models.Reminder](db, ReminderSchema(), log),
		Devices:   repo.New[models.Device, *models.Device](db, DeviceSchema(), log),
	}
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

// HabitSchema binds the habits table.
func HabitSchema() repo.Schema[models.Habit] {
	return repo.Schema[models.Habit]{
		Table: models.TableHabits,
		PK:    "id",
		Columns: []string{
			"id", "user_id", "name", "color", "icon", "schedule", "goal_per_day",
			"created_at", "updated_at", "version", "deleted_at",
		},
		CreatedAtCol: "created_at",
		UpdatedAtCol: "updated_at",
		DeletedAtCol: "deleted_at",
		VersionCol:   "version",
		Values: func(h *models.Habit) []any {
			return []any{
				h.ID, h.UserID, h.Name, h.Color, h.Icon, h.Schedule, h.GoalPerDay,
				h.CreatedAt, h.UpdatedAt, h.Version, nullableTime(h.DeletedAt),
			}
		},
		Scan: func(s repo.RowScanner) (*models.Habit, error) {
			var h models.Habit
			var deletedAt sql.NullTime
			if err := s.Scan(
				&h.ID, &h.UserID, &h.Name, &h.Color, &h.Icon, &h.Schedule, &h.GoalPerDay,
				&h.CreatedAt, &h.UpdatedAt, &h.Version, &deletedAt,
			); err != nil {
				return nil, err
			}
			h.DeletedAt = timePtr(deletedAt)
			return &h, nil
		},
	}
}

// EntrySchema binds the habit_entries table.
func EntrySchema() repo.Schema[models.HabitEntry] {
	return repo.Schema[models.HabitEntry]{
		Table: models.TableEntries,
		PK:    "id",
		Columns: []string{
			"id", "user_id", "habit_id", "entry_date", "value", "note",
			"created_at", "updated_at", "version", "deleted_at",
		},
		CreatedAtCol: "created_at",
		UpdatedAtCol: "updated_at",
		DeletedAtCol: "deleted_at",
		VersionCol:   "version",
		Values: func(e *models.HabitEntry) []any {
			return []any{
				e.ID, e.UserID, e.HabitID, e.EntryDate, e.Value, e.Note,
				e.CreatedAt, e.UpdatedAt, e.Version, nullableTime(e.DeletedAt),
			}
		},
		Scan: func(s repo.RowScanner) (*models.HabitEntry, error) {
			var e models.HabitEntry
			var deletedAt sql.NullTime
			if err := s.Scan(
				&e.ID, &e.UserID, &e.HabitID, &e.EntryDate, &e.Value, &e.Note,
				&e.CreatedAt, &e.UpdatedAt, &e.Version, &deletedAt,
			); err != nil {
				return nil, err
			}
			e.DeletedAt = timePtr(deletedAt)
			return &e, nil
		},
	}
}

// ReminderSchema binds the reminders table.
func ReminderSchema() repo.Schema[models.Reminder] {
	return repo.Schema[models.Reminder]{
		Table: models.TableReminders,
		PK:    "id",
		Columns: []string{
			"id", "user_id", "habit_id", "time_of_day", "days_mask", "enabled",
			"created_at", "updated_at", "version", "deleted_at",
		},
		CreatedAtCol: "created_at",
		UpdatedAtCol: "updated_at",
		DeletedAtCol: "deleted_at",
		VersionCol:   "version",
		Values: func(r *models.Reminder) []any {
			return []any{
				r.ID, r.UserID, r.HabitID, r.TimeOfDay, r.DaysMask, r.Enabled,
				r.CreatedAt, r.UpdatedAt, r.Version, nullableTime(r.DeletedAt),
			}
		},
		Scan: func(s repo.RowScanner) (*models.Reminder, error) {
			var r models.Reminder
			var deletedAt sql.NullTime
			if err := s.Scan(
				&r.ID, &r.UserID, &r.HabitID, &r.TimeOfDay, &r.DaysMask, &r.Enabled,
				&r.CreatedAt, &r.UpdatedAt, &r.Version, &deletedAt,
			); err != nil {
				return nil, err
			}
			r.DeletedAt = timePtr(deletedAt)
			return &r, nil
		},
	}
}

// DeviceSchema binds the devices table. Devices are registration records,
// not user content, so they have no deleted-at column and Remove
// hard-deletes them.
func DeviceSchema() repo.Schema[models.Device] {
	return repo.Schema[models.Device]{
		Table: models.TableDevices,
		PK:    "id",
		Columns: []string{
			"id", "user_id", "platform", "push_token", "app_version", "last_seen_at",
			"created_at", "updated_at", "version", "deleted_at",
		},
		CreatedAtCol: "created_at",
		UpdatedAtCol: "updated_at",
		VersionCol:   "version",
		Values: func(d *models.Device) []any {
			return []any{
				d.ID, d.UserID, d.Platform, d.PushToken, d.AppVersion, nullableTime(d.LastSeenAt),
				d.CreatedAt, d.UpdatedAt, d.Version, nullableTime(d.DeletedAt),
			}
		},
		Scan: func(s repo.RowScanner) (*models.Device, error) {
			var d models.Device
			var lastSeen, deletedAt sql.NullTime
			if err := s.Scan(
				&d.ID, &d.UserID, &d.Platform, &d.PushToken, &d.AppVersion, &lastSeen,
				&d.CreatedAt, &d.UpdatedAt, &d.Version, &deletedAt,
			); err != nil {
				return nil, err
			}
			d.LastSeenAt = timePtr(lastSeen)
			d.DeletedAt = timePtr(deletedAt)
			return &d, nil
		},
	}
}
