package outpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_ClaimsAndSuffixes(t *testing.T) {
	r := NewResolver(nil)

	first, err := r.Resolve("/a/clip.mov", "/out", "mp4")
	require.NoError(t, err)
	assert.Equal(t, "/out/clip.mp4", first)

	again, err := r.Resolve("/a/clip.mov", "/out", "mp4")
	require.NoError(t, err)
	assert.Equal(t, first, again, "the owner gets its own claim back")

	other, err := r.Resolve("/b/clip.mkv", "/out", "mp4")
	require.NoError(t, err)
	assert.Equal(t, "/out/clip (1).mp4", other)

	third, err := r.Resolve("/c/clip.avi", "/out", "mp4")
	require.NoError(t, err)
	assert.Equal(t, "/out/clip (2).mp4", third)
}

func TestResolver_ExistingFileOnDisk(t *testing.T) {
	onDisk := map[string]bool{"/v/clip.mp4": true, "/v/clip (1).mp4": true}
	r := NewResolver(func(p string) bool { return onDisk[p] })

	got, err := r.Resolve("/v/clip.mov", "", "mp4")
	require.NoError(t, err)
	assert.Equal(t, "/v/clip (2).mp4", got)
}

func TestResolver_NeverReturnsSource(t *testing.T) {
	r := NewResolver(nil)
	got, err := r.Resolve("/v/clip.mp4", "", "mp4")
	require.NoError(t, err)
	assert.Equal(t, "/v/clip (1).mp4", got)
}

func TestResolver_Forget(t *testing.T) {
	r := NewResolver(nil)
	_, err := r.Resolve("/a/x.wav", "/out", "mp3")
	require.NoError(t, err)

	r.Forget("/a/x.wav")

	got, err := r.Resolve("/b/x.flac", "/out", "mp3")
	require.NoError(t, err)
	assert.Equal(t, "/out/x.mp3", got)
}

func TestResolver_PropagatesJoinErrors(t *testing.T) {
	r := NewResolver(nil)
	_, err := r.Resolve("/a/x.wav", "relative", "mp3")
	assert.ErrorIs(t, err, ErrInvalidOverride)
}
