package preview

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, w, h int) string {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 40, B: 40, A: 255})
	path := filepath.Join(t.TempDir(), "photo.png")
	require.NoError(t, imaging.Save(img, path))
	return path
}

func TestInspector_DimensionsAndThumbnail(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	insp := NewInspector(store, zerolog.Nop())

	info, err := insp.Inspect(context.Background(), writePNG(t, 1200, 600))
	require.NoError(t, err)

	assert.Equal(t, 1200, info.Width)
	assert.Equal(t, 600, info.Height)
	require.NotEmpty(t, info.Thumbnail)
	assert.Equal(t, store.Root(), filepath.Dir(info.Thumbnail))

	f, err := os.Open(info.Thumbnail)
	require.NoError(t, err)
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 320, cfg.Width)
	assert.Equal(t, 160, cfg.Height)
}

func TestInspector_WithoutStore(t *testing.T) {
	info, err := NewInspector(nil, zerolog.Nop()).Inspect(context.Background(), writePNG(t, 10, 20))
	require.NoError(t, err)
	assert.Equal(t, 10, info.Width)
	assert.Empty(t, info.Thumbnail)
}

func TestInspector_Undecodable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.heic")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))

	_, err := NewInspector(nil, zerolog.Nop()).Inspect(context.Background(), path)
	assert.ErrorContains(t, err, "decode image header")

	_, err = NewInspector(nil, zerolog.Nop()).Inspect(context.Background(), filepath.Join(t.TempDir(), "missing.png"))
	assert.ErrorContains(t, err, "open image")
}
