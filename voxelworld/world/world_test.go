package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxelkeep/voxelworld/geom"
	"github.com/voxelkeep/voxelworld/octree"
	"github.com/voxelkeep/voxelworld/storage"
)

func mustWorld(t *testing.T, usage octree.Usage) *World {
	t.Helper()
	w, err := New(Config{
		FS:          storage.NewMemFileSystem(),
		Mkdir:       func(string) error { return nil },
		Prefix:      "w",
		W:           2,
		H:           2,
		D:           2,
		NLod:        2,
		Usage:       usage,
		CreateTrees: true,
	})
	require.NoError(t, err)
	return w
}

// mustLodWorld uses a brick size large enough that a single destination
// voxel's bordered fetch window fits in one scratch1 allocation, so
// GenerateLOD tests exercise the intended buffer-reuse path rather than the
// single-voxel fallback allocation (which mustWorld's W=H=D=2 always hits).
func mustLodWorld(t *testing.T, usage octree.Usage) *World {
	t.Helper()
	w, err := New(Config{
		FS:          storage.NewMemFileSystem(),
		Mkdir:       func(string) error { return nil },
		Prefix:      "w",
		W:           8,
		H:           8,
		D:           8,
		NLod:        2,
		Usage:       usage,
		CreateTrees: true,
	})
	require.NoError(t, err)
	return w
}

func TestTreeKeyFloorDivideHandlesNegativeCoordinates(t *testing.T) {
	w := mustWorld(t, octree.Density)
	// treeExtent = W<<maxDepth = 2<<1 = 4 along every axis.
	assert.Equal(t, geom.Vec3i{X: 0, Y: 0, Z: 0}, w.treeKey(geom.Vec3i{X: 0, Y: 0, Z: 0}))
	assert.Equal(t, geom.Vec3i{X: 0, Y: 0, Z: 0}, w.treeKey(geom.Vec3i{X: 3, Y: 3, Z: 3}))
	assert.Equal(t, geom.Vec3i{X: 1, Y: 0, Z: 0}, w.treeKey(geom.Vec3i{X: 4, Y: 0, Z: 0}))
	assert.Equal(t, geom.Vec3i{X: -1, Y: 0, Z: 0}, w.treeKey(geom.Vec3i{X: -1, Y: 0, Z: 0}))
	assert.Equal(t, geom.Vec3i{X: -1, Y: 0, Z: 0}, w.treeKey(geom.Vec3i{X: -4, Y: 0, Z: 0}))
	assert.Equal(t, geom.Vec3i{X: -2, Y: 0, Z: 0}, w.treeKey(geom.Vec3i{X: -5, Y: 0, Z: 0}))
}

func TestFetchTreesCreatesOnDemandWhenConfigured(t *testing.T) {
	w := mustWorld(t, octree.Density)
	trees, err := w.FetchTrees(0, geom.RectFromSize(geom.Vec3i{}, 2, 2, 2))
	require.NoError(t, err)
	require.Len(t, trees, 1)
	assert.Len(t, w.trees, 1)
}

func TestFetchTreesSpansMultipleTrees(t *testing.T) {
	w := mustWorld(t, octree.Density)
	// treeExtent is 4 along every axis; a rect from x=3 to x=5 straddles the
	// boundary between tree (0,0,0) and tree (1,0,0).
	rect := geom.Rect(geom.Vec3i{X: 3, Y: 0, Z: 0}, geom.Vec3i{X: 5, Y: 1, Z: 1})
	trees, err := w.FetchTrees(0, rect)
	require.NoError(t, err)
	assert.Len(t, trees, 2)
}

func TestFetchTreesWithoutCreateTreesSkipsMissingKeys(t *testing.T) {
	w := mustWorld(t, octree.Density)
	w.createTrees = false
	trees, err := w.FetchTrees(0, geom.RectFromSize(geom.Vec3i{}, 2, 2, 2))
	require.NoError(t, err)
	assert.Empty(t, trees)
	assert.Empty(t, w.trees)
}

func TestGetRegionOnEmptyWorldReadsAllZero(t *testing.T) {
	w := mustWorld(t, octree.Density)
	out := make([]byte, 8)
	require.NoError(t, w.GetRegion(0, geom.RectFromSize(geom.Vec3i{}, 2, 2, 2), out))
	for _, b := range out {
		assert.Equal(t, byte(0), b)
	}
	// A read-only GetRegion must not have materialized any tree.
	assert.Empty(t, w.trees)
}

func TestSetRegionThenGetRegionRoundTripsAcrossTreeBoundary(t *testing.T) {
	w := mustWorld(t, octree.Density)
	rect := geom.Rect(geom.Vec3i{X: 3, Y: 0, Z: 0}, geom.Vec3i{X: 5, Y: 1, Z: 1})
	data := []byte{11, 22}
	require.NoError(t, w.SetRegion(0, rect, data))

	out := make([]byte, 2)
	require.NoError(t, w.GetRegion(0, rect, out))
	assert.Equal(t, data, out)
	assert.Equal(t, 2, len(w.trees))
}

func TestFillRegionDispatchesAndRecordsUpdate(t *testing.T) {
	w := mustWorld(t, octree.Density)
	rect := geom.RectFromSize(geom.Vec3i{}, 2, 2, 2)
	require.NoError(t, w.FillRegion(0, rect, 255))

	out := make([]byte, 8)
	require.NoError(t, w.GetRegion(0, rect, out))
	for _, b := range out {
		assert.Equal(t, byte(255), b)
	}
	assert.Equal(t, 1, w.PendingUpdatedRegions())
}

func TestStatAggregatesAcrossTrees(t *testing.T) {
	w := mustWorld(t, octree.Density)
	// treeExtent is 4 along every axis; this rect spans exactly two trees'
	// whole footprints (0,0,0)-(4,4,4) and (4,0,0)-(8,4,4).
	rect := geom.Rect(geom.Vec3i{X: 0, Y: 0, Z: 0}, geom.Vec3i{X: 8, Y: 4, Z: 4})
	assert.Equal(t, StatusEmpty, w.Stat(0, rect))

	require.NoError(t, w.FillRegion(0, geom.Rect(geom.Vec3i{X: 0, Y: 0, Z: 0}, geom.Vec3i{X: 4, Y: 4, Z: 4}), 9))
	// One tree's whole footprint is now Full, the other is still entirely
	// untouched (implicitly Empty) — the aggregate must be Mixed, not Full.
	assert.Equal(t, StatusMixed, w.Stat(0, rect))

	require.NoError(t, w.FillRegion(0, geom.Rect(geom.Vec3i{X: 4, Y: 0, Z: 0}, geom.Vec3i{X: 8, Y: 4, Z: 4}), 9))
	assert.Equal(t, StatusFull, w.Stat(0, rect))

	// Stat must never materialize trees it only read.
	w2 := mustWorld(t, octree.Density)
	assert.Equal(t, StatusEmpty, w2.Stat(0, rect))
	assert.Empty(t, w2.trees)
}

func TestStatPartialFillWithinATreeIsMixed(t *testing.T) {
	w := mustWorld(t, octree.Density)
	rect := geom.RectFromSize(geom.Vec3i{}, 4, 4, 4)
	require.NoError(t, w.FillRegion(0, geom.RectFromSize(geom.Vec3i{}, 1, 1, 1), 9))
	assert.Equal(t, StatusMixed, w.Stat(0, rect))
}

func TestFetchNodesComposesAcrossTrees(t *testing.T) {
	w := mustWorld(t, octree.Density)
	rect := geom.Rect(geom.Vec3i{X: 0, Y: 0, Z: 0}, geom.Vec3i{X: 8, Y: 1, Z: 1})
	require.NoError(t, w.FillRegion(0, geom.Rect(geom.Vec3i{X: 0, Y: 0, Z: 0}, geom.Vec3i{X: 2, Y: 2, Z: 2}), 5))
	require.NoError(t, w.FillRegion(0, geom.Rect(geom.Vec3i{X: 4, Y: 0, Z: 0}, geom.Vec3i{X: 6, Y: 2, Z: 2}), 6))

	nodes, err := w.FetchNodes(0, rect)
	require.NoError(t, err)
	assert.Len(t, nodes, 2)
	// FetchNodes is read-only; must not create trees.
	assert.Len(t, w.trees, 2)
}

func TestRingPushPopFIFOOrder(t *testing.T) {
	r := newRing(4)
	for i := 0; i < 3; i++ {
		r.push(updatedRegion{Level: i})
	}
	assert.Equal(t, 3, r.len())
	for i := 0; i < 3; i++ {
		v, err := r.pop()
		require.NoError(t, err)
		assert.Equal(t, i, v.Level)
	}
	_, err := r.pop()
	assert.Error(t, err)
}

func TestRingOverflowIsLossyOldestFirst(t *testing.T) {
	const capacity = 4
	r := newRing(capacity)
	for i := 0; i < capacity+3; i++ {
		r.push(updatedRegion{Level: i})
	}
	assert.Equal(t, capacity, r.len())
	for i := 3; i < capacity+3; i++ {
		v, err := r.pop()
		require.NoError(t, err)
		assert.Equal(t, i, v.Level)
	}
}

func TestWorldRingDefaultCapacityFromConfig(t *testing.T) {
	w, err := New(Config{
		FS: storage.NewMemFileSystem(), Prefix: "w",
		W: 2, H: 2, D: 2, NLod: 1, CreateTrees: true,
	})
	require.NoError(t, err)
	for i := 0; i < defaultRingCapacity+5; i++ {
		w.AddUpdatedRegion(0, geom.RectFromSize(geom.Vec3i{}, 1, 1, 1))
	}
	assert.Equal(t, defaultRingCapacity, w.PendingUpdatedRegions())
}

func TestSyncAllFlushesEveryTree(t *testing.T) {
	w := mustWorld(t, octree.Density)
	require.NoError(t, w.FillRegion(0, geom.RectFromSize(geom.Vec3i{}, 2, 2, 2), 1))
	require.NoError(t, w.SyncAll())
}

func TestGenerateLODEmptySourceFillsDestinationEmpty(t *testing.T) {
	w := mustLodWorld(t, octree.Density)
	dst := geom.RectFromSize(geom.Vec3i{}, 1, 1, 1)
	touched, err := w.GenerateLOD(0, dst)
	require.NoError(t, err)
	assert.Equal(t, dst, touched)

	out := make([]byte, 1)
	require.NoError(t, w.GetRegion(1, dst, out))
	assert.Equal(t, byte(0), out[0])
}

func TestGenerateLODFullSourceFillsDestinationWithSamplePattern(t *testing.T) {
	w := mustLodWorld(t, octree.Density)
	// Fill exactly one child octant's footprint (the tree root is 16^3,
	// children split it in half) so it collapses straight to Full; pick a
	// destination voxel whose bordered fetch window stays inside it,
	// clear of the tree's own edge.
	require.NoError(t, w.FillRegion(0, geom.RectFromSize(geom.Vec3i{}, 8, 8, 8), 255))

	dst := geom.RectFromSize(geom.Vec3i{X: 1, Y: 1, Z: 1}, 1, 1, 1)
	touched, err := w.GenerateLOD(0, dst)
	require.NoError(t, err)
	assert.Equal(t, dst, touched)

	out := make([]byte, 1)
	require.NoError(t, w.GetRegion(1, dst, out))
	assert.Equal(t, byte(255), out[0])
}

func TestGenerateLODMixedSourceBlendsDensity(t *testing.T) {
	w := mustLodWorld(t, octree.Density)
	// Fill part of the level-0 source window with 255, leave the rest 0: a
	// genuinely mixed source, forcing the trilinear kernel path rather than
	// a Stat-driven short circuit.
	require.NoError(t, w.FillRegion(0, geom.RectFromSize(geom.Vec3i{}, 2, 8, 8), 255))

	dst := geom.RectFromSize(geom.Vec3i{}, 1, 1, 1)
	touched, err := w.GenerateLOD(0, dst)
	require.NoError(t, err)
	assert.Equal(t, dst, touched)

	out := make([]byte, 1)
	require.NoError(t, w.GetRegion(1, dst, out))
	assert.Greater(t, out[0], byte(0))
	assert.Less(t, out[0], byte(255))
}

func TestManifestSaveLoadRoundTrip(t *testing.T) {
	fs := storage.NewMemFileSystem()
	cfg := Config{
		FS: fs, Mkdir: func(string) error { return nil }, Prefix: "w",
		W: 2, H: 2, D: 2, NLod: 2, Usage: octree.Density, CreateTrees: true,
	}
	w, err := New(cfg)
	require.NoError(t, err)
	rect := geom.Rect(geom.Vec3i{X: 3, Y: 0, Z: 0}, geom.Vec3i{X: 5, Y: 1, Z: 1})
	require.NoError(t, w.SetRegion(0, rect, []byte{1, 2}))
	require.NoError(t, w.SyncAll())
	require.NoError(t, w.SaveManifest())

	w2, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, w2.LoadManifest())
	assert.Equal(t, 2, len(w2.Trees()))

	out := make([]byte, 2)
	require.NoError(t, w2.GetRegion(0, rect, out))
	assert.Equal(t, []byte{1, 2}, out)
}

func TestManifestLoadRejectsMismatchedConfig(t *testing.T) {
	fs := storage.NewMemFileSystem()
	w, err := New(Config{FS: fs, Mkdir: func(string) error { return nil }, Prefix: "w", W: 2, H: 2, D: 2, NLod: 2, CreateTrees: true})
	require.NoError(t, err)
	require.NoError(t, w.SaveManifest())

	w2, err := New(Config{FS: fs, Mkdir: func(string) error { return nil }, Prefix: "w", W: 4, H: 2, D: 2, NLod: 2, CreateTrees: true})
	require.NoError(t, err)
	assert.Error(t, w2.LoadManifest())
}
