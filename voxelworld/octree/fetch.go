package octree

import "github.com/voxelkeep/voxelworld/geom"

// FetchedNode is one hit from FetchNodes: a node at the caller's level
// together with its footprint in level-0 coordinates, ready for the mesh
// extractor to read (spec.md §4.4.3).
type FetchedNode struct {
	Node     *Node
	Status   Status
	Material byte
	Rect0    geom.IntRect3
}

// FetchNodes descends like GetRegion but, instead of copying voxels,
// appends every node at level whose footprint intersects rect — the
// primary interface for a mesh extractor wanting every non-Empty
// leaf/interior at a given LOD touching a world-space box (spec.md
// §4.4.3).
func (t *Octree) FetchNodes(level int, rect geom.IntRect3) []FetchedNode {
	if rect.Empty() {
		return nil
	}
	rect0 := rect.Scale(level)
	var out []FetchedNode
	t.fetchNodes(t.root, t.RootRect0(), level, rect0, &out)
	return out
}

func (t *Octree) fetchNodes(n *Node, nodeRect0 geom.IntRect3, level int, rect0 geom.IntRect3, out *[]FetchedNode) {
	if !nodeRect0.Intersects(rect0) {
		return
	}
	if n.status == StatusEmpty {
		return
	}
	if n.level == level {
		*out = append(*out, FetchedNode{Node: n, Status: n.status, Material: n.material, Rect0: nodeRect0})
		return
	}
	if n.status != StatusInterior {
		// Node is coarser than the caller's level but has no finer
		// children on disk; report it at its own (coarser) resolution so
		// the caller can still mesh the approximate shape.
		*out = append(*out, FetchedNode{Node: n, Status: n.status, Material: n.material, Rect0: nodeRect0})
		return
	}
	for _, c := range n.children {
		childRect0 := levelRectToLevel0(c.origin, c.level, t.w, t.h, t.d)
		t.fetchNodes(c, childRect0, level, rect0, out)
	}
}

// RegionStatusAt aggregates the node states intersecting rect at level into
// a single coarse classification (spec.md §4.6's LOD short-circuit driver,
// surfaced at octree granularity; World.Stat composes this across trees). A
// rect spanning both Full and Empty children of the same Interior node must
// report RegionMixed, not RegionFull, or GenerateLOD's Full short-circuit
// would overwrite the Empty half with the full pattern.
func (t *Octree) RegionStatusAt(level int, rect geom.IntRect3) RegionStatus {
	if rect.Empty() {
		return RegionEmpty
	}
	rect0 := rect.Scale(level)
	sawEmpty, sawFull, sawOther := false, false, false
	t.regionStatus(t.root, t.RootRect0(), rect0, &sawEmpty, &sawFull, &sawOther)
	switch {
	case sawOther || (sawEmpty && sawFull):
		return RegionMixed
	case sawFull:
		return RegionFull
	default:
		return RegionEmpty
	}
}

func (t *Octree) regionStatus(n *Node, nodeRect0, rect0 geom.IntRect3, sawEmpty, sawFull, sawOther *bool) {
	if !nodeRect0.Intersects(rect0) {
		return
	}
	switch n.status {
	case StatusEmpty:
		*sawEmpty = true
	case StatusFull:
		*sawFull = true
	case StatusLeaf:
		*sawOther = true
	case StatusInterior:
		for _, c := range n.children {
			childRect0 := levelRectToLevel0(c.origin, c.level, t.w, t.h, t.d)
			t.regionStatus(c, childRect0, rect0, sawEmpty, sawFull, sawOther)
		}
	}
}
