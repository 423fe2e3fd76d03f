package fs

import (
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.mp3")
	require.NoError(t, os.WriteFile(file, []byte("12345"), 0o644))

	fsys := New()

	size, err := fsys.Size(file)
	require.NoError(t, err)
	assert.Equal(t, int64(5), size)

	_, err = fsys.Size(dir)
	assert.Error(t, err)

	_, err = fsys.Size(filepath.Join(dir, "missing"))
	assert.True(t, errors.Is(err, iofs.ErrNotExist))

	assert.True(t, fsys.Exists(file))
	assert.True(t, fsys.Exists(dir))
	assert.False(t, fsys.Exists(filepath.Join(dir, "missing")))

	link := filepath.Join(dir, "dangling")
	require.NoError(t, os.Symlink(filepath.Join(dir, "nowhere"), link))
	assert.True(t, fsys.Exists(link))
}
