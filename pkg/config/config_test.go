package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 1150, cfg.StatsAPI.InstitutionID)
	assert.Equal(t, "https://dbh.hkdir.no", cfg.StatsAPI.BaseURL)
	assert.Equal(t, 2019, cfg.Sync.LegacyCutoffYear)
	assert.Equal(t, 8, cfg.Sync.MaxPageAttempts)
	assert.Equal(t, 2000, cfg.Sync.FallbackFloorYear)
	assert.Equal(t, 5, cfg.Sync.FallbackWindowYears)
	assert.Equal(t, 24*time.Hour, cfg.Cache.SnapshotTTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SYNC_LEGACY_CUTOFF_YEAR", "2017")
	t.Setenv("STATS_API_BASE_URL", "http://localhost:9000/")
	t.Setenv("SNAPSHOT_CACHE_TTL", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2017, cfg.Sync.LegacyCutoffYear)
	assert.Equal(t, "http://localhost:9000", cfg.StatsAPI.BaseURL)
	assert.Equal(t, 24*time.Hour, cfg.Cache.SnapshotTTL)
}
