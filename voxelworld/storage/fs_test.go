package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSFileSystemRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "brick.bin")

	var fs OSFileSystem
	f, err := fs.Open(path, ReadOnly|WriteOnly|Create)
	require.NoError(t, err)

	n, err := f.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	length, err := f.Length()
	require.NoError(t, err)
	assert.Equal(t, int64(5), length)

	require.NoError(t, f.Truncate(2))
	length, err = f.Length()
	require.NoError(t, err)
	assert.Equal(t, int64(2), length)

	require.NoError(t, f.Close())
}

func TestOSMkdirCreatesNested(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b", "c")
	require.NoError(t, OSMkdir(nested))

	var fs OSFileSystem
	f, err := fs.Open(filepath.Join(nested, "x"), ReadOnly|WriteOnly|Create)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}
