package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg := LoadConfig()

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.False(t, cfg.Database.UseSSL)
	assert.Equal(t, 3*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 6, cfg.Auth.PasswordMinLength)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, BackendNone, cfg.MQ.Backend)
	assert.Equal(t, BackendNone, cfg.Storage.Backend)
	assert.False(t, cfg.ExportsEnabled())
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("DB_USE_SSL", "true")
	t.Setenv("JWT_TTL", "90m")
	t.Setenv("AUTH_PASSWORD_MIN_LENGTH", "8")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, http://localhost:5173 ,")
	t.Setenv("MQ_BACKEND", "rabbitmq")
	t.Setenv("STORAGE_BACKEND", "minio")

	cfg := LoadConfig()

	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.True(t, cfg.Database.UseSSL)
	assert.Equal(t, 90*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, 8, cfg.Auth.PasswordMinLength)
	assert.Equal(t, []string{"https://app.example.com", "http://localhost:5173"}, cfg.CORS.AllowedOrigins)
	assert.True(t, cfg.ExportsEnabled())
	require.NoError(t, cfg.Validate())
}

func TestValidateCollectsProblems(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("SERVER_PORT", "70000")
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("MQ_BACKEND", "pubsub")
	t.Setenv("STORAGE_BACKEND", "s3")

	err := LoadConfig().Validate()

	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "SERVER_PORT")
	assert.Contains(t, msg, "DB_DRIVER")
	assert.Contains(t, msg, "JWT_SECRET is required")
	assert.Contains(t, msg, "PUBSUB_PROJECT_ID")
	assert.Contains(t, msg, "STORAGE_BACKEND")
}

func TestValidateRejectsExportsOnMemoryStore(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("MQ_BACKEND", "rabbitmq")
	t.Setenv("STORAGE_BACKEND", "minio")

	cfg := LoadConfig()
	require.True(t, cfg.ExportsEnabled())
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DRIVER=memory")

	t.Setenv("STORAGE_BACKEND", "none")
	require.NoError(t, LoadConfig().Validate())
}
