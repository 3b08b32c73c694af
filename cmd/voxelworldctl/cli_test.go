package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/voxelkeep/voxelworld/geom"
	"github.com/voxelkeep/voxelworld/octree"
)

func TestWorldFlagsUsageKind(t *testing.T) {
	wf := &worldFlags{usage: "density"}
	got, err := wf.usageKind()
	assert.NoError(t, err)
	assert.Equal(t, octree.Density, got)

	wf.usage = "material"
	got, err = wf.usageKind()
	assert.NoError(t, err)
	assert.Equal(t, octree.Material, got)

	wf.usage = "nonsense"
	_, err = wf.usageKind()
	assert.Error(t, err)
}

func TestRegionFlagsRect(t *testing.T) {
	rf := &regionFlags{x: 1, y: 2, z: 3, sx: 4, sy: 5, sz: 6}
	want := geom.RectFromSize(geom.Vec3i{X: 1, Y: 2, Z: 3}, 4, 5, 6)
	assert.Equal(t, want, rf.rect())
}
