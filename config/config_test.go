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
	t.Setenv("APP_ENV", "local")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET_KEY", "")
	t.Setenv("TOKEN_TTL", "")
	t.Setenv("PORT", "")
	t.Setenv("APP_PORT", "")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "/api", cfg.APIPrefix)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.NotEmpty(t, cfg.Auth.Secret)
	assert.Contains(t, cfg.Database.DSN, "dbname=digital_menu")
	assert.False(t, cfg.Media.Enabled())
}

func TestFromEnvRequiresSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET_KEY", "")

	_, err := FromEnv()
	assert.Error(t, err)
}

func TestLoadReadsDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("DATABASE_URL=postgres://menu@db/menu\nCLOUDINARY_URL=cloudinary://k:s@demo\n"), 0o600))

	// t.Setenv restores the variables godotenv sets during the test.
	t.Setenv("DATABASE_URL", "")
	t.Setenv("CLOUDINARY_URL", "")
	os.Unsetenv("DATABASE_URL")
	os.Unsetenv("CLOUDINARY_URL")
	t.Setenv("APP_ENV", "test")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://menu@db/menu", cfg.Database.DSN)
	assert.True(t, cfg.Media.Enabled())
}

func TestLoadIgnoresMissingFile(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}

func TestFromEnvRejectsBadTTL(t *testing.T) {
	t.Setenv("TOKEN_TTL", "forever")
	_, err := FromEnv()
	assert.Error(t, err)
}
