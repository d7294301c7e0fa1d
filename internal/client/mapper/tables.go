package mapper

import "github.com/dmitrijs2005/habitsync/internal/client/models"

// localToRemote holds the per-table key mappings. Entity-specific foreign
// keys (habitId, pushToken) map onto their fixed remote column names.
var localToRemote = map[string]map[string]string{
	models.TableHabits: {
		"id":         "id",
		"userId":     "user_id",
		"name":       "name",
		"color":      "color",
		"icon":       "icon",
		"schedule":   "schedule",
		"goalPerDay": "goal_per_day",
		"createdAt":  "created_at",
		"updatedAt":  "updated_at",
		"version":    "version",
		"deletedAt":  "deleted_at",
	},
	models.TableEntries: {
		"id":        "id",
		"userId":    "user_id",
		"habitId":   "habit_id",
		"entryDate": "entry_date",
		"value":     "value",
		"note":      "note",
		"createdAt": "created_at",
		"updatedAt": "updated_at",
		"version":   "version",
		"deletedAt": "deleted_at",
	},
	models.TableReminders: {
		"id":        "id",
		"userId":    "user_id",
		"habitId":   "habit_id",
		"timeOfDay": "time_of_day",
		"daysMask":  "days_mask",
		"enabled":   "enabled",
		"createdAt": "created_at",
		"updatedAt": "updated_at",
		"version":   "version",
		"deletedAt": "deleted_at",
	},
	models.TableDevices: {
		"id":         "id",
		"userId":     "user_id",
		"platform":   "platform",
		"pushToken":  "push_token",
		"appVersion": "app_version",
		"lastSeenAt": "last_seen_at",
		"createdAt":  "created_at",
		"updatedAt":  "updated_at",
		"version":    "version",
		"deletedAt":  "deleted_at",
	},
}

var remoteToLocal = reverseMappings(localToRemote)

func reverseMappings(in map[string]map[string]string) map[string]map[string]string {
	out := make(map[string]map[string]string, len(in))
	for table, mapping := range in {
		rev := make(map[string]string, len(mapping))
		for local, remote := range mapping {
			rev[remote] = local
		}
		out[table] = rev
	}
	return out
}
