package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCacheReusesResidentHandle(t *testing.T) {
	fs := NewMemFileSystem()
	fc := NewFileCache(fs, 4)

	f1, err := fc.Acquire("a", ReadOnly|WriteOnly|Create)
	require.NoError(t, err)
	f2, err := fc.Acquire("a", ReadOnly|WriteOnly|Create)
	require.NoError(t, err)
	assert.Same(t, f1, f2)
	assert.Equal(t, 1, fc.Len())

	require.NoError(t, fc.Release("a"))
	require.NoError(t, fc.Release("a"))
}

func TestFileCacheEvictsOverBudgetOnlyWhenUnreferenced(t *testing.T) {
	fs := NewMemFileSystem()
	fc := NewFileCache(fs, 2)

	_, err := fc.Acquire("a", ReadOnly|WriteOnly|Create)
	require.NoError(t, err)
	_, err = fc.Acquire("b", ReadOnly|WriteOnly|Create)
	require.NoError(t, err)
	assert.Equal(t, 2, fc.Len())

	// c pushes the cache over budget; a and b both have outstanding
	// references (never released), so neither can be evicted yet.
	_, err = fc.Acquire("c", ReadOnly|WriteOnly|Create)
	require.NoError(t, err)
	assert.Equal(t, 3, fc.Len())

	require.NoError(t, fc.Release("a"))
	// Releasing a while the cache is over budget evicts it at once (it is
	// the only zero-ref entry), so acquiring d brings the count back to 3.
	_, err = fc.Acquire("d", ReadOnly|WriteOnly|Create)
	require.NoError(t, err)
	assert.Equal(t, 3, fc.Len())

	_, err = fc.Acquire("a", ReadOnly|WriteOnly|Create)
	require.NoError(t, err)
}

func TestFileCacheCloseAll(t *testing.T) {
	fs := NewMemFileSystem()
	fc := NewFileCache(fs, 4)

	_, err := fc.Acquire("a", ReadOnly|WriteOnly|Create)
	require.NoError(t, err)
	_, err = fc.Acquire("b", ReadOnly|WriteOnly|Create)
	require.NoError(t, err)

	require.NoError(t, fc.CloseAll())
	assert.Equal(t, 0, fc.Len())
}

func TestFileCacheReleaseUnknownPathErrors(t *testing.T) {
	fc := NewFileCache(NewMemFileSystem(), 2)
	assert.Error(t, fc.Release("missing"))
}
