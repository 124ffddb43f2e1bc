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
	assert.Equal(t, "sid", cfg.Session.CookieName)
	assert.True(t, cfg.AllowUserIDHeader)
	assert.Equal(t, 30*24*time.Hour, cfg.Trash.Retention)
	assert.Equal(t, 24*time.Hour, cfg.Trash.SweepInterval)
	assert.Equal(t, int64(10*1024*1024), cfg.Upload.MaxFileSizeBytes)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TRASH_RETENTION", "48h")
	t.Setenv("ALLOW_USER_ID_HEADER", "false")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("FRONTEND_URL", "https://apply.example/")
	t.Setenv("SESSION_TTL", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 48*time.Hour, cfg.Trash.Retention)
	assert.False(t, cfg.AllowUserIDHeader)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "https://apply.example", cfg.FrontendURL)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
}
