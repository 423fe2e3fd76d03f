package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/mediaconv/config"
	"github.com/bnema/mediaconv/internal/adapter/storage/memory"
	"github.com/bnema/mediaconv/internal/domain"
)

func TestOpenSettingsStore(t *testing.T) {
	for _, backend := range []string{config.BackendSQLite, config.BackendJSON} {
		t.Run(backend, func(t *testing.T) {
			cfg := &config.Config{DataDir: filepath.Join(t.TempDir(), "data"), SettingsBackend: backend}

			store, closeStore, err := openSettingsStore(cfg)
			require.NoError(t, err)
			t.Cleanup(func() { assert.NoError(t, closeStore()) })

			require.NoError(t, store.Set("quality", "80"))
			v, ok, err := store.Get("quality")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "80", v)
		})
	}
}

func TestNewApp(t *testing.T) {
	cfg := &config.Config{
		DataDir:     t.TempDir(),
		FFmpegPath:  "/nonexistent/ffmpeg",
		FFprobePath: "/nonexistent/ffprobe",
		KillGrace:   time.Second,
	}
	require.NoError(t, os.MkdirAll(cfg.PreviewDir(), 0o755))
	stale := filepath.Join(cfg.PreviewDir(), "stale.jpg")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o644))

	a, err := newApp(cfg, appOptions{settingsStore: memory.NewStore(), previews: true})
	require.NoError(t, err)
	closed := false
	a.closers = append(a.closers, func() error { closed = true; return nil })

	assert.NoFileExists(t, stale, "stale previews are purged on start")

	src := filepath.Join(t.TempDir(), "clip.mov")
	require.NoError(t, os.WriteFile(src, []byte("not really a movie"), 0o644))

	item, err := a.registry.Ingest(src, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.MediaTypeVideo, item.MediaType)
	assert.Equal(t, int64(18), item.OriginalSize)

	_, err = a.registry.Ingest(src, 0)
	assert.ErrorIs(t, err, domain.ErrAlreadyIngested)

	require.NoError(t, a.registry.Remove(item.ID))
	assert.Empty(t, a.registry.Snapshot(domain.MediaTypeVideo))

	a.Close()
	assert.True(t, closed)
}
