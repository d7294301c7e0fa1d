package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:8080", cfg.ServerEndpointAddr)
	assert.Equal(t, "habitsync.db", cfg.DatabasePath)
	assert.Equal(t, "habitsync-cursors.db", cfg.CursorPath)
	assert.Equal(t, 5*time.Minute, cfg.SyncInterval)
	assert.True(t, cfg.SyncEnabled)
	assert.True(t, cfg.SyncAutoStart)
	assert.Equal(t, 100, cfg.BatchSize)
}

func TestParseEnv_OverridesDefaults(t *testing.T) {
	t.Setenv("HABITSYNC_SERVER_ADDR", "http://sync.example.com")
	t.Setenv("HABITSYNC_USER_ID", "u1")
	t.Setenv("HABITSYNC_SYNC_INTERVAL", "90s")
	t.Setenv("HABITSYNC_SYNC_ENABLED", "false")
	t.Setenv("HABITSYNC_BATCH_SIZE", "25")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, "http://sync.example.com", cfg.ServerEndpointAddr)
	assert.Equal(t, "u1", cfg.UserID)
	assert.Equal(t, 90*time.Second, cfg.SyncInterval)
	assert.False(t, cfg.SyncEnabled)
	assert.Equal(t, 25, cfg.BatchSize)
}

func TestParseEnv_MalformedValuesAreIgnored(t *testing.T) {
	t.Setenv("HABITSYNC_SYNC_INTERVAL", "not-a-duration")
	t.Setenv("HABITSYNC_SYNC_ENABLED", "not-a-bool")
	t.Setenv("HABITSYNC_BATCH_SIZE", "-3")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, 5*time.Minute, cfg.SyncInterval)
	assert.True(t, cfg.SyncEnabled)
	assert.Equal(t, 100, cfg.BatchSize)
}

func TestParseFlags_OverridesDefaults(t *testing.T) {
	origArgs := os.Args
	defer func() { os.Args = origArgs }()
	os.Args = []string{"habitsync", "-a", "http://flag.example.com", "-u", "u2", "-i", "30", "list"}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseFlags(cfg)

	assert.Equal(t, "http://flag.example.com", cfg.ServerEndpointAddr)
	assert.Equal(t, "u2", cfg.UserID)
	assert.Equal(t, 30*time.Second, cfg.SyncInterval)
}

func TestParseFlags_IgnoresSubcommandArguments(t *testing.T) {
	origArgs := os.Args
	defer func() { os.Args = origArgs }()
	os.Args = []string{"habitsync", "add-habit", "Read", "-u", "u3"}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseFlags(cfg)

	assert.Equal(t, "u3", cfg.UserID)
	assert.Equal(t, "http://127.0.0.1:8080", cfg.ServerEndpointAddr)
}
