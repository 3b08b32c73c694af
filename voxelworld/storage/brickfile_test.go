package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voxelkeep/voxelworld/brick"
)

func TestBrickFileRoundTrip(t *testing.T) {
	fs := NewMemFileSystem()
	bf, err := OpenBrickFile(fs, "tree/lod0/0_0_0", ReadOnly|WriteOnly|Create)
	require.NoError(t, err)

	b, err := brick.New(4, 4, 4, 1)
	require.NoError(t, err)
	require.NoError(t, b.Fill(nil, []byte{42}))

	var hist [256]int64
	hist[42] = int64(b.W * b.H * b.D)
	require.NoError(t, bf.WriteBrick(b, &hist))

	out, err := brick.New(4, 4, 4, 1)
	require.NoError(t, err)
	var gotHist [256]int64
	require.NoError(t, bf.ReadBrick(out, &gotHist))

	assert.True(t, out.IsFull(nil))
	assert.Equal(t, byte(42), out.FullMaterial())
	assert.Equal(t, hist, gotHist)
}

func TestBrickFileWriteBackTruncatesTail(t *testing.T) {
	fs := NewMemFileSystem()
	bf, err := OpenBrickFile(fs, "tree/lod0/0_0_0", ReadOnly|WriteOnly|Create)
	require.NoError(t, err)

	big, err := brick.New(8, 8, 8, 1)
	require.NoError(t, err)
	// Fill with varied, poorly-compressible content so the first write is
	// large relative to the second, smaller write below.
	for i := range big.Data {
		big.Data[i] = byte(i)
	}
	big.Invalidate()
	var hist [256]int64
	require.NoError(t, bf.WriteBrick(big, &hist))
	firstLen, err := bf.Length()
	require.NoError(t, err)

	small, err := brick.New(8, 8, 8, 1)
	require.NoError(t, err)
	var smallHist [256]int64
	smallHist[0] = int64(len(small.Data))
	require.NoError(t, bf.WriteBrick(small, &smallHist))
	secondLen, err := bf.Length()
	require.NoError(t, err)

	assert.Less(t, secondLen, firstLen)

	readBack, err := brick.New(8, 8, 8, 1)
	require.NoError(t, err)
	var readHist [256]int64
	require.NoError(t, bf.ReadBrick(readBack, &readHist))
	assert.True(t, readBack.IsEmpty(nil))
}

func TestBrickFileReadRejectsSizeMismatch(t *testing.T) {
	fs := NewMemFileSystem()
	bf, err := OpenBrickFile(fs, "tree/lod0/0_0_0", ReadOnly|WriteOnly|Create)
	require.NoError(t, err)

	written, err := brick.New(2, 2, 2, 1)
	require.NoError(t, err)
	var hist [256]int64
	require.NoError(t, bf.WriteBrick(written, &hist))

	wrongSize, err := brick.New(4, 4, 4, 1)
	require.NoError(t, err)
	var gotHist [256]int64
	err = bf.ReadBrick(wrongSize, &gotHist)
	assert.Error(t, err)
}
