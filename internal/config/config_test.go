package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(env string) Config {
	return Config{
		App:   AppConfig{Env: env, Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "prospera"},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret"},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APP_ENV is required")
	assert.Contains(t, err.Error(), "JWT_SECRET is required")
}

func TestValidate_ProductionRequiresSSLModeAndIssuer(t *testing.T) {
	c := validConfig("production")
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_SSLMODE is required in production")
	assert.Contains(t, err.Error(), "JWT_ISSUER is required in production")
	assert.Contains(t, err.Error(), "JWT_SECRET must be at least 32 bytes")
}

func TestValidate_LocalDefaults(t *testing.T) {
	c := validConfig("local")
	require.NoError(t, c.Validate())
	assert.Equal(t, "disable", c.DB.SSLMode)
	assert.Equal(t, 15*time.Minute, c.Auth.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, c.Auth.RefreshTokenTTL)
}

func TestValidate_RefreshMustOutliveAccess(t *testing.T) {
	c := validConfig("dev")
	c.Auth.AccessTokenTTL = time.Hour
	c.Auth.RefreshTokenTTL = time.Minute
	assert.Error(t, c.Validate())
}

func setRequiredEnv(t *testing.T) {
	t.Setenv("ENV_FILE", "")
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_NAME", "prospera")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("JWT_SECRET", "secret")
}

func TestLoad_FromEnvironment(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("JWT_ACCESS_TTL", "5m")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", c.HTTPAddr())
	assert.Equal(t, "cache:6379", c.RedisAddr())
	assert.Equal(t, 5*time.Minute, c.Auth.AccessTokenTTL)
	assert.Contains(t, c.PostgresDSN(), "dbname=prospera")
}

func TestLoad_ReportsBadIntegersAndDurations(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_PORT", "eighty")
	t.Setenv("JWT_ACCESS_TTL", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APP_PORT must be an integer")
	assert.Contains(t, err.Error(), "JWT_ACCESS_TTL must be a duration")
}

func TestLoad_ReadsEnvFile(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DB_HOST", "")
	// godotenv never overrides variables that are already set, even when empty.
	require.NoError(t, os.Unsetenv("DB_HOST"))
	t.Cleanup(func() { _ = os.Unsetenv("DB_HOST") })

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DB_HOST=from-file\n"), 0o600))
	t.Setenv("ENV_FILE", path)

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", c.DB.Host)
}

func TestLoad_MissingEnvFile(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	_, err := Load()
	assert.Error(t, err)
}
