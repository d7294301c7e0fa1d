// Package models defines the client-side data model: domain records carrying
// the sync envelope (id, user id, timestamps, version, tombstone) and the
// outbox records that queue their mutations for the server.
package models

import "time"

// Local table names. They double as the outbox table_name discriminator.
const (
	TableHabits    = "habits"
	TableEntries   = "habit_entries"
	TableReminders = "reminders"
	TableDevices   = "devices"
)

// SyncMeta is the envelope embedded by every synchronized record.
//
// Version starts at 1 and strictly increases with each local write.
// DeletedAt is a tombstone: set once by delete operations, never cleared.
type SyncMeta struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Version   int64      `json:"version"`
	DeletedAt *time.Time `json:"deletedAt"`
}

// Meta exposes the envelope for generic repository stamping.
func (m *SyncMeta) Meta() *SyncMeta { return m }

// Syncable is implemented by every domain record via the embedded SyncMeta.
type Syncable interface {
	Meta() *SyncMeta
}

// Habit is a tracked habit definition.
type Habit struct {
	SyncMeta
	Name       string `json:"name"`
	Color      string `json:"color"`
	Icon       string `json:"icon"`
	Schedule   string `json:"schedule"` // JSON-encoded days-of-week mask
	GoalPerDay int64  `json:"goalPerDay"`
}

// HabitEntry is one completion record of a habit for a calendar day.
type HabitEntry struct {
	SyncMeta
	HabitID   string `json:"habitId"`
	EntryDate string `json:"entryDate"` // YYYY-MM-DD
	Value     int64  `json:"value"`
	Note      string `json:"note"`
}

// Reminder schedules a local notification for a habit.
type Reminder struct {
	SyncMeta
	HabitID   string `json:"habitId"`
	TimeOfDay string `json:"timeOfDay"` // HH:MM
	DaysMask  int64  `json:"daysMask"`
	Enabled   bool   `json:"enabled"`
}

// Device identifies an installation for push delivery.
type Device struct {
	SyncMeta
	Platform   string     `json:"platform"`
	PushToken  string     `json:"pushToken"`
	AppVersion string     `json:"appVersion"`
	LastSeenAt *time.Time `json:"lastSeenAt"`
}
