package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	"PORT", "BIND_ADDR", "DATA_DIR", "FFMPEG_PATH", "FFPROBE_PATH", "SETTINGS_BACKEND",
	"API_TOKEN_HASH", "WATCH_DIRS", "WATCH_SETTLE", "KILL_GRACE", "RATE_LIMIT_RPM",
	"LOG_LEVEL", "LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7890, cfg.Port)
	assert.Equal(t, "127.0.0.1:7890", cfg.Addr())
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, "data/previews", cfg.PreviewDir())
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, "ffprobe", cfg.FFprobePath)
	assert.Equal(t, BackendSQLite, cfg.SettingsBackend)
	assert.Empty(t, cfg.APITokenHash)
	assert.Empty(t, cfg.WatchDirs)
	assert.Equal(t, 2*time.Second, cfg.WatchSettle)
	assert.Equal(t, 5*time.Second, cfg.KillGrace)
	assert.Equal(t, 120, cfg.RateLimitRPM)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("BIND_ADDR", "::1")
	t.Setenv("SETTINGS_BACKEND", "JSON")
	t.Setenv("WATCH_DIRS", "/in/a: /in/b ::")
	t.Setenv("WATCH_SETTLE", "500ms")
	t.Setenv("KILL_GRACE", "1s")
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("API_TOKEN_HASH", "$2a$10$abc")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "[::1]:9000", cfg.Addr())
	assert.Equal(t, BackendJSON, cfg.SettingsBackend)
	assert.Equal(t, []string{"/in/a", "/in/b"}, cfg.WatchDirs)
	assert.Equal(t, 500*time.Millisecond, cfg.WatchSettle)
	assert.Equal(t, time.Second, cfg.KillGrace)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, "$2a$10$abc", cfg.APITokenHash)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"PORT":             "abc",
		"RATE_LIMIT_RPM":   "many",
		"WATCH_SETTLE":     "soon",
		"KILL_GRACE":       "-1s",
		"SETTINGS_BACKEND": "postgres",
		"LOG_FORMAT":       "xml",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}

	clearEnv(t)
	t.Setenv("PORT", "70000")
	_, err := Load()
	assert.ErrorContains(t, err, "out of range")
}
