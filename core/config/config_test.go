package config_test

import (
	"testing"

	"scene-archiver/core/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := config.LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "s3.amazonaws.com", cfg.Storage.Endpoint)
	assert.True(t, cfg.Storage.UseSSL)
	assert.Equal(t, 4, cfg.Pool.MaxConnections)
	assert.Equal(t, 900, cfg.Pool.MaxAgeSeconds)
	assert.Equal(t, "./archive", cfg.Archive.Root)
	assert.Equal(t, 360, cfg.Archive.CacheTTLMinutes)
	assert.Equal(t, 4, cfg.Archive.MaxAttempts)
	assert.False(t, cfg.Scheduler.Enabled)
	assert.Equal(t, []int{16}, cfg.Scheduler.Satellites)
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	t.Setenv("POOL_MAX_CONNECTIONS", "8")
	t.Setenv("ARCHIVE_ROOT", "/srv/scenes")
	t.Setenv("SCHEDULER_BANDS", "8,13")
	t.Setenv("STORAGE_USE_SSL", "false")

	cfg, err := config.LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Pool.MaxConnections)
	assert.Equal(t, "/srv/scenes", cfg.Archive.Root)
	assert.Equal(t, []int{8, 13}, cfg.Scheduler.Bands)
	assert.False(t, cfg.Storage.UseSSL)
}
