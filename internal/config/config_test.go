package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"interviewhub/backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "memory", cfg.RateLimit.Backend)
	assert.Equal(t, 30, cfg.RateLimit.Events)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 4000, cfg.Chat.MaxContent)
	assert.Equal(t, 50, cfg.Chat.HistoryLimit)
	assert.Equal(t, 10, cfg.Chat.ContextLimit)
	assert.Equal(t, 72*time.Hour, cfg.Auth.TokenTTL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("INTERVIEWHUB_CHAT_MAX_CONTENT", "100")
	t.Setenv("INTERVIEWHUB_AUTH_SECRET", "s3cret")
	t.Setenv("INTERVIEWHUB_RATELIMIT_WINDOW", "30s")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Chat.MaxContent)
	assert.Equal(t, "s3cret", cfg.Auth.Secret)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.yaml")
	yaml := `
http:
  addr: ":9090"
ratelimit:
  events: 5
  window: 10s
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, 5, cfg.RateLimit.Events)
	assert.Equal(t, 10*time.Second, cfg.RateLimit.Window)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
}

func TestValidate(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.secret")

	cfg.Auth.Secret = "x"
	assert.NoError(t, cfg.Validate())

	cfg.RateLimit.Backend = "redis"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis.addr")

	cfg.RateLimit.Backend = "carrier-pigeon"
	cfg.Chat.MaxContent = 0
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown ratelimit.backend")
	assert.Contains(t, err.Error(), "chat limits")
}
