package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("SESSION_TTL_HOURS", "")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "salonbook", cfg.MongoDatabase)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/salonbook")
	t.Setenv("DB_MAX_CONNS", "32")
	t.Setenv("SESSION_TTL_HOURS", "2")
	t.Setenv("RECONCILE_SCHEDULE", "@hourly")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, 32, cfg.DBMaxConns)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "@hourly", cfg.ReconcileSchedule)
}

func TestFromEnv_Rejects(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := FromEnv()
	require.Error(t, err)

	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")
	_, err = FromEnv()
	require.Error(t, err)

	t.Setenv("STORE_DRIVER", "sqlite")
	_, err = FromEnv()
	require.Error(t, err)
}
