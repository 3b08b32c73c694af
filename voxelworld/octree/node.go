// Package octree implements the per-region sparse voxel octree: node state
// machine (Empty/Full/Leaf/Interior), region read/write/fill, a bounded LRU
// of decompressed bricks, and preorder (de)serialization of the tree
// topology to an index file (spec.md §3, §4.4).
package octree

import (
	"github.com/voxelkeep/voxelworld/brick"
	"github.com/voxelkeep/voxelworld/geom"
)

// Usage selects how a world's byte-valued voxels are interpreted: as a
// thresholded density (occupancy tracked by a single counter) or as a
// material ID (occupancy tracked by a 256-bin histogram), spec.md §3.
type Usage int

const (
	Density Usage = iota
	Material
)

// Status is an octree node's tag (spec.md §3: "a tagged variant with four
// states").
type Status int

const (
	StatusEmpty Status = iota
	StatusFull
	StatusLeaf
	StatusInterior
)

func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "Empty"
	case StatusFull:
		return "Full"
	case StatusLeaf:
		return "Leaf"
	case StatusInterior:
		return "Interior"
	default:
		return "Invalid"
	}
}

// RegionStatus is the coarse, aggregated occupancy classification used by
// LOD generation's short-circuit path (spec.md §4.6, §9 — renamed from the
// source's misleadingly-named GetRegionStatus sentinel per the Open
// Question decision recorded in SPEC_FULL.md §7).
type RegionStatus int

const (
	RegionEmpty RegionStatus = iota
	RegionFull
	RegionMixed
)

// Node is one octree node. Interior nodes may additionally carry an
// aggregate brick at their own (coarser) level when the tree has been
// explicitly populated there by LOD generation (spec.md §4.4.1, §9);
// brick/cached/dirty apply to that aggregate brick in the Interior case
// and to the leaf's own brick in the Leaf case.
//
// Nodes intentionally hold no pointer back to their parent or owning tree
// (spec.md §9): all tree-context operations are methods on *Octree that
// take the node as an explicit argument.
type Node struct {
	status Status
	level  int
	origin geom.Vec3i

	material byte
	inVolume int64
	hist     [256]int64

	children [8]*Node

	brick  *brick.Brick
	cached bool
	dirty  bool

	lruPrev, lruNext *Node
}

func newEmptyNode(level int, origin geom.Vec3i) *Node {
	return &Node{status: StatusEmpty, level: level, origin: origin}
}

func newFullNode(level int, origin geom.Vec3i, material byte) *Node {
	return &Node{status: StatusFull, level: level, origin: origin, material: material}
}

// childOriginAt computes child i's origin given the parent's origin and the
// per-level brick extent (w,h,d) — spec.md §3: "child origin = parent
// origin + (bit(i,0)·w, bit(i,1)·h, bit(i,2)·d)".
func childOriginAt(parent geom.Vec3i, i, w, h, d int) geom.Vec3i {
	return geom.Vec3i{
		X: parent.X + (i&1)*w,
		Y: parent.Y + ((i>>1)&1)*h,
		Z: parent.Z + ((i>>2)&1)*d,
	}
}

// levelRect returns the node's rectangle in its own level's integer
// coordinate space (origin, origin+(w,h,d)).
func levelRect(origin geom.Vec3i, w, h, d int) geom.IntRect3 {
	return geom.RectFromSize(origin, w, h, d)
}

// toLevel0 converts a rect in the node's own level coordinates to level-0
// coordinates (spec.md §4.4.1 descent carries "the current node's rectangle
// in level-0 coordinates").
func toLevel0(r geom.IntRect3, level int) geom.IntRect3 {
	return r.Scale(level)
}

func fromLevel0(r geom.IntRect3, level int) geom.IntRect3 {
	return r.Scale(-level)
}
