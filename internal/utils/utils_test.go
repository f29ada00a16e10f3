package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSNFromEnv(t *testing.T) {
	t.Setenv("PG_HOST", "db")
	t.Setenv("PG_PORT", "6543")
	t.Setenv("PG_USER", "svc")
	t.Setenv("PG_PASSWORD", "secret")
	t.Setenv("PG_DB", "")
	t.Setenv("PG_SSLMODE", "require")
	assert.Equal(t, "postgres://svc:secret@db:6543/loadshed?sslmode=require", BuildPostgresDSNFromEnv())
}

func TestOpenDatabaseRejectsUnknownDriver(t *testing.T) {
	_, err := OpenDatabase("mysql", "")
	assert.Error(t, err)
}

func TestOpenSQLiteInTempDir(t *testing.T) {
	db, err := OpenSQLite(t.TempDir() + "/m.db")
	require.NoError(t, err)
	defer db.Close()
	assert.NoError(t, db.Ping())
}

func TestOpenRedisFromEnvDisabled(t *testing.T) {
	t.Setenv("REDIS_ENABLED", "")
	assert.Nil(t, OpenRedisFromEnv())

	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_DB", "2")
	rc := OpenRedisFromEnv()
	require.NotNil(t, rc)
	defer rc.Close()
	assert.Equal(t, "cache:6380", rc.Options().Addr)
	assert.Equal(t, 2, rc.Options().DB)
}
