// Package config loads runtime settings for the habitsync client.
package config

import "time"

// Config holds runtime settings for the habitsync client.
//
// Units: SyncInterval is a time.Duration (e.g., 5*time.Minute).
type Config struct {
	ServerEndpointAddr string
	UserID             string
	DatabasePath       string
	CursorPath         string
	SyncInterval       time.Duration
	SyncEnabled        bool
	SyncAutoStart      bool
	BatchSize          int
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:8080"
	c.DatabasePath = "habitsync.db"
	c.CursorPath = "habitsync-cursors.db"
	c.SyncInterval = 5 * time.Minute
	c.SyncEnabled = true
	c.SyncAutoStart = true
	c.BatchSize = 100
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from the environment (including a .env file, if present) and finally
// command-line flags. Later sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
