package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"ESP_TOKEN", "ESP_TIMEOUT_S", "AREA_CACHE_TTL_S", "SCHEDULE_CACHE_TTL_S", "CACHE_MAX_ENTRIES",
		"POLL_INTERVAL_S", "POLL_WORKERS", "MERCHANTS_SHEET", "DB_DRIVER", "SQLITE_PATH", "TZ_NAME"} {
		t.Setenv(k, "")
	}
	c := FromEnv()
	assert.Equal(t, 10*time.Second, c.ESPTimeout)
	assert.Equal(t, 24*time.Hour, c.AreaTTL)
	assert.Equal(t, 30*time.Minute, c.ScheduleTTL)
	assert.Equal(t, 1000, c.CacheMaxEntries)
	assert.Equal(t, time.Minute, c.PollInterval)
	assert.Equal(t, 1, c.PollWorkers)
	assert.Equal(t, "data", c.MerchantsSheet)
	assert.Equal(t, "sqlite3", c.DBDriver)
	assert.Equal(t, "merchants.db", c.SQLitePath)
	assert.Equal(t, time.Local, c.Location)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("ESP_TOKEN", "tok")
	t.Setenv("SCHEDULE_CACHE_TTL_S", "600")
	t.Setenv("POLL_WORKERS", "-3")
	t.Setenv("TZ_NAME", "Africa/Johannesburg")
	t.Setenv("DB_DRIVER", "postgres")
	c := FromEnv()
	assert.Equal(t, "tok", c.ESPToken)
	assert.Equal(t, 10*time.Minute, c.ScheduleTTL)
	assert.Equal(t, 1, c.PollWorkers, "non-positive falls back to default")
	assert.Equal(t, "Africa/Johannesburg", c.Location.String())
	assert.Equal(t, "postgres", c.DBDriver)
}

func TestValidate(t *testing.T) {
	c := Config{DBDriver: "sqlite3"}
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ESP token")
	assert.Contains(t, err.Error(), "merchants file")

	c = Config{ESPToken: "t", MerchantsFile: "m.xlsx", DBDriver: "mysql", ESPTestView: "past"}
	err = c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ESP_TEST_VIEW")
	assert.Contains(t, err.Error(), "DB_DRIVER")

	c = Config{ESPToken: "t", MerchantsFile: "m.xlsx", DBDriver: "postgres", ESPTestView: "future"}
	assert.NoError(t, c.Validate())
}

func TestLoadDotenv(t *testing.T) {
	p := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(p, []byte("ESP_BASE_URL=http://localhost:9999\n"), 0o600))
	t.Setenv("ESP_BASE_URL", "")
	require.NoError(t, os.Unsetenv("ESP_BASE_URL"))
	LoadDotenv(filepath.Join(t.TempDir(), "missing.env"), p)
	assert.Equal(t, "http://localhost:9999", FromEnv().ESPBaseURL)
}
