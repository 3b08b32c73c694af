package brick

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voxelkeep/voxelworld/geom"
)

func mustBrick(t *testing.T, w, h, d, c int) *Brick {
	t.Helper()
	b, err := New(w, h, d, c)
	require.NoError(t, err)
	return b
}

func TestNewBrickIsEmpty(t *testing.T) {
	b := mustBrick(t, 4, 4, 4, 1)
	assert.True(t, b.IsEmpty(nil))
	assert.False(t, b.IsFull(nil))
}

func TestFillWholeBrickIsFull(t *testing.T) {
	b := mustBrick(t, 4, 4, 4, 1)
	require.NoError(t, b.Fill(nil, []byte{7}))
	assert.True(t, b.IsFull(nil))
	assert.False(t, b.IsEmpty(nil))
	assert.Equal(t, byte(7), b.FullMaterial())
}

func TestFillSubRectIsNotFull(t *testing.T) {
	b := mustBrick(t, 4, 4, 4, 1)
	r := geom.RectFromSize(geom.Vec3i{}, 2, 2, 2)
	require.NoError(t, b.Fill(&r, []byte{1}))
	assert.False(t, b.IsFull(nil))
	assert.False(t, b.IsEmpty(nil))
	assert.True(t, b.IsFull(&r))
}

func TestFillCountingDelta(t *testing.T) {
	b := mustBrick(t, 2, 2, 2, 1)
	delta, err := b.FillCounting(nil, 255)
	require.NoError(t, err)
	assert.Equal(t, 8, delta)

	delta, err = b.FillCounting(nil, 0)
	require.NoError(t, err)
	assert.Equal(t, -8, delta)
}

func TestFillCountingPartialOverwrite(t *testing.T) {
	b := mustBrick(t, 4, 1, 1, 1)
	whole := geom.RectFromSize(geom.Vec3i{}, 4, 1, 1)
	_, err := b.FillCounting(&whole, 255)
	require.NoError(t, err)

	half := geom.RectFromSize(geom.Vec3i{}, 2, 1, 1)
	delta, err := b.FillCounting(&half, 0)
	require.NoError(t, err)
	assert.Equal(t, -2, delta)
}

func TestCopyClampsToMinExtent(t *testing.T) {
	dst := mustBrick(t, 8, 8, 8, 1)
	src := mustBrick(t, 4, 4, 4, 1)
	require.NoError(t, src.Fill(nil, []byte{9}))

	dstRect := geom.RectFromSize(geom.Vec3i{}, 6, 6, 6)
	srcRect := geom.RectFromSize(geom.Vec3i{}, 4, 4, 4)
	require.NoError(t, dst.Copy(&dstRect, &srcRect, src))

	// Copied extent is componentwise min(6,4)=4, so voxel (5,5,5) must be
	// untouched even though dstRect reached to 6.
	assert.Equal(t, byte(9), dst.VoxelAt(3, 3, 3)[0])
	assert.Equal(t, byte(0), dst.VoxelAt(5, 5, 5)[0])
}

func TestCopyNarrowsChannelCount(t *testing.T) {
	dst := mustBrick(t, 2, 2, 2, 1)
	src := mustBrick(t, 2, 2, 2, 3)
	require.NoError(t, src.Fill(nil, []byte{1, 2, 3}))
	require.NoError(t, dst.Copy(nil, nil, src))
	assert.Equal(t, byte(1), dst.VoxelAt(0, 0, 0)[0])
}

func TestCopyCountingDelta(t *testing.T) {
	dst := mustBrick(t, 2, 1, 1, 1)
	src := mustBrick(t, 2, 1, 1, 1)
	require.NoError(t, src.Fill(nil, []byte{255}))
	delta, err := dst.CopyCounting(nil, nil, src)
	require.NoError(t, err)
	assert.Equal(t, 2, delta)

	empty := mustBrick(t, 2, 1, 1, 1)
	delta, err = dst.CopyCounting(nil, nil, empty)
	require.NoError(t, err)
	assert.Equal(t, -2, delta)
}

func TestCopyHistogramTracksMaterials(t *testing.T) {
	dst := mustBrick(t, 2, 1, 1, 1)
	src := mustBrick(t, 2, 1, 1, 1)
	require.NoError(t, src.VoxelAtSet(0, 0, 0, 5))
	require.NoError(t, src.VoxelAtSet(1, 0, 0, 6))
	src.Invalidate()

	var hist [256]int64
	require.NoError(t, dst.CopyHistogram(nil, nil, src, &hist))
	assert.Equal(t, int64(1), hist[5])
	assert.Equal(t, int64(1), hist[6])
	assert.Equal(t, int64(0), hist[0])

	// A second accumulation into the same histogram adds on top, since
	// hist is an output accumulator the caller resets between regions.
	require.NoError(t, dst.CopyHistogram(nil, nil, src, &hist))
	assert.Equal(t, int64(2), hist[5])
	assert.Equal(t, int64(2), hist[6])
}

func TestFillHistogramCountsWholeRect(t *testing.T) {
	b := mustBrick(t, 2, 2, 1, 1)
	var hist [256]int64
	require.NoError(t, b.FillHistogram(nil, 3, &hist))
	assert.Equal(t, int64(4), hist[3])
}

func TestHistogramCountsWithoutMutating(t *testing.T) {
	b := mustBrick(t, 2, 1, 1, 1)
	require.NoError(t, b.VoxelAtSet(0, 0, 0, 5))
	require.NoError(t, b.VoxelAtSet(1, 0, 0, 5))
	hist := b.Histogram(nil)
	assert.Equal(t, int64(2), hist[5])
	assert.Equal(t, byte(5), b.VoxelAt(0, 0, 0)[0])
}

func TestIsEmptyMemoizedAndInvalidated(t *testing.T) {
	b := mustBrick(t, 2, 2, 2, 1)
	assert.True(t, b.IsEmpty(nil))
	require.NoError(t, b.Fill(nil, []byte{1}))
	assert.False(t, b.IsEmpty(nil))
}

// VoxelAtSet is a tiny test helper living in the package so CopyHistogram
// tests can set arbitrary single voxels without going through Fill.
func (b *Brick) VoxelAtSet(x, y, z int, v byte) error {
	vv := b.VoxelAt(x, y, z)
	vv[0] = v
	b.Invalidate()
	return nil
}
