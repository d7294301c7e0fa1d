package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config with values from environment variables,
// loading a .env file first when one exists. Unset or malformed variables
// leave the current value untouched.
func parseEnv(cfg *Config) {
	// missing .env is the normal case
	_ = godotenv.Load()

	if v := os.Getenv("HABITSYNC_SERVER_ADDR"); v != "" {
		cfg.ServerEndpointAddr = v
	}
	if v := os.Getenv("HABITSYNC_USER_ID"); v != "" {
		cfg.UserID = v
	}
	if v := os.Getenv("HABITSYNC_DB_PATH"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("HABITSYNC_CURSOR_PATH"); v != "" {
		cfg.CursorPath = v
	}
	if v := os.Getenv("HABITSYNC_SYNC_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SyncInterval = d
		}
	}
	if v := os.Getenv("HABITSYNC_SYNC_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.SyncEnabled = b
		}
	}
	if v := os.Getenv("HABITSYNC_SYNC_AUTOSTART"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.SyncAutoStart = b
		}
	}
	if v := os.Getenv("HABITSYNC_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BatchSize = n
		}
	}
}
