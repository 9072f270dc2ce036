package fsutil

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSFileSystem_Exists(t *testing.T) {
	fs := OSFileSystem{}

	assert.True(t, fs.Exists("filesystem.go"))
	assert.False(t, fs.Exists("nonexistent_file_xyz.go"))
}

func TestOSFileSystem_ListFiles(t *testing.T) {
	dir := t.TempDir()
	fs := OSFileSystem{}

	require.NoError(t, fs.WriteFile(filepath.Join(dir, "b.tensor"), []byte("b"), 0644))
	require.NoError(t, fs.WriteFile(filepath.Join(dir, "a.tensor"), []byte("a"), 0644))
	require.NoError(t, fs.MkdirAll(filepath.Join(dir, "sub"), 0755))

	names, err := fs.ListFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.tensor", "b.tensor"}, names)
}

func TestMemoryFileSystem_WriteAndRead(t *testing.T) {
	mfs := NewMemoryFileSystem()

	require.NoError(t, mfs.WriteFile("/test.txt", []byte("hello, world"), 0644))

	data, err := mfs.ReadFile("/test.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello, world", string(data))

	f, err := mfs.Open("/test.txt")
	require.NoError(t, err)
	defer f.Close()
	got, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "hello, world", string(got))
}

func TestMemoryFileSystem_ReadMissing(t *testing.T) {
	mfs := NewMemoryFileSystem()

	_, err := mfs.ReadFile("/missing")
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = mfs.Open("/missing")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMemoryFileSystem_ListFiles(t *testing.T) {
	mfs := NewMemoryFileSystem()
	require.NoError(t, mfs.MkdirAll("/out/tiles", 0755))
	require.NoError(t, mfs.WriteFile("/out/tiles/x_2.tensor", nil, 0644))
	require.NoError(t, mfs.WriteFile("/out/tiles/x_1.tensor", nil, 0644))
	require.NoError(t, mfs.WriteFile("/out/other.txt", nil, 0644))

	names, err := mfs.ListFiles("/out/tiles")
	require.NoError(t, err)
	assert.Equal(t, []string{"x_1.tensor", "x_2.tensor"}, names)

	assert.True(t, mfs.Exists("/out"))
	assert.Equal(t, []string{"/out/tiles/x_1.tensor", "/out/tiles/x_2.tensor"}, mfs.PathsWithPrefix("/out/tiles/"))

	_, err = mfs.ListFiles("/nope")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
