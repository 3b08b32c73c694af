package octree

import (
	"fmt"

	"github.com/voxelkeep/voxelworld/geom"
	"github.com/voxelkeep/voxelworld/storage"
	"github.com/voxelkeep/voxelworld/vserr"
)

// Octree is one sparse octree over a single fixed-size region of the world
// (a "tree", spec.md §3). It owns a root node, a per-tree LRU of
// decompressed bricks, and the filesystem/file-cache plumbing needed to
// materialize and load node bricks on demand.
type Octree struct {
	fs        storage.FileSystem
	fileCache *storage.FileCache
	mkdir     storage.MkdirFunc
	prefix    string

	maxDepth int
	usage    Usage
	w, h, d  int // per-node brick extent, constant at every level

	origin geom.Vec3i // tree (root node) origin in the root level's (maxDepth) coordinates
	root   *Node

	maxCached   int
	cachedCount int
	lruHead     *Node
	lruTail     *Node
}

// Config bundles an Octree's fixed, load-invariant parameters.
type Config struct {
	FS        storage.FileSystem
	FileCache *storage.FileCache
	Mkdir     storage.MkdirFunc
	Prefix    string // {world_prefix}/region_{rx}_{ry}_{rz}
	MaxDepth  int
	Usage     Usage
	W, H, D   int
	Origin    geom.Vec3i
	MaxCached int
}

// New creates an empty tree (root = Empty) ready to accept writes.
func New(cfg Config) (*Octree, error) {
	const op = "octree.New"
	if cfg.W <= 0 || cfg.H <= 0 || cfg.D <= 0 {
		return nil, vserr.New(vserr.InvalidArgument, op, "brick dimensions must be positive")
	}
	if cfg.MaxDepth < 0 {
		return nil, vserr.New(vserr.InvalidArgument, op, "max depth must be non-negative")
	}
	maxCached := cfg.MaxCached
	if maxCached < 1 {
		maxCached = 1
	}
	return &Octree{
		fs:        cfg.FS,
		fileCache: cfg.FileCache,
		mkdir:     cfg.Mkdir,
		prefix:    cfg.Prefix,
		maxDepth:  cfg.MaxDepth,
		usage:     cfg.Usage,
		w:         cfg.W,
		h:         cfg.H,
		d:         cfg.D,
		origin:    cfg.Origin,
		root:      newEmptyNode(cfg.MaxDepth, cfg.Origin),
		maxCached: maxCached,
	}, nil
}

func (t *Octree) volume() int { return t.w * t.h * t.d }
func (t *Octree) half() int   { return t.volume() / 2 }

func (t *Octree) path(level int, origin geom.Vec3i) string {
	return fmt.Sprintf("%s/lod%d/%d_%d_%d", t.prefix, level, origin.X, origin.Y, origin.Z)
}

// RootRect0 is the tree's footprint expressed in level-0 coordinates.
func (t *Octree) RootRect0() geom.IntRect3 {
	return levelRectToLevel0(t.root.origin, t.root.level, t.w, t.h, t.d)
}

func levelRectToLevel0(origin geom.Vec3i, level, w, h, d int) geom.IntRect3 {
	return levelRect(origin, w, h, d).Scale(level)
}

// ---- GetRegion --------------------------------------------------------

// GetRegion fills out with the voxel bytes in rect at level, descending
// from the root (spec.md §4.4.1). out must be sized for rect.Volume()
// voxels of a single byte each, laid out in (x + y*W + z*W*H) scan order
// local to rect.
func (t *Octree) GetRegion(level int, rect geom.IntRect3, out []byte) error {
	if rect.Empty() {
		return nil
	}
	rect0 := rect.Scale(level)
	t.getRegion(t.root, t.RootRect0(), level, rect, rect0, out)
	return nil
}

func (t *Octree) getRegion(n *Node, nodeRect0 geom.IntRect3, level int, rect, rect0 geom.IntRect3, out []byte) {
	inter0 := nodeRect0.Intersect(rect0)
	if inter0.Empty() {
		return
	}

	switch n.status {
	case StatusEmpty:
		t.fillOut(out, rect, inter0.Scale(-level), 0)
	case StatusFull:
		t.fillOut(out, rect, inter0.Scale(-level), n.material)
	case StatusLeaf:
		if n.level == level {
			t.readIntoOut(n, out, rect, inter0.Scale(-level))
		} else {
			pattern := byte(0)
			if n.inVolume > int64(t.half()) {
				pattern = t.fullPattern(n)
			}
			t.fillOut(out, rect, inter0.Scale(-level), pattern)
		}
	case StatusInterior:
		if n.level == level {
			if n.brick != nil || n.cached {
				t.readIntoOut(n, out, rect, inter0.Scale(-level))
			} else {
				// No aggregate brick populated at this level yet: treat
				// as approximate, occupancy-driven fill like a coarse Leaf.
				pattern := byte(0)
				if n.inVolume > int64(t.half()) {
					pattern = t.fullPattern(n)
				}
				t.fillOut(out, rect, inter0.Scale(-level), pattern)
			}
			return
		}
		for _, c := range n.children {
			childRect0 := levelRectToLevel0(c.origin, c.level, t.w, t.h, t.d)
			t.getRegion(c, childRect0, level, rect, rect0, out)
		}
	}
}

// fullPattern returns the byte to report for a coarse, whole-node read: the
// dominant material for Material usage, 255 for Density. A node loaded from
// the index but not yet cached carries a zeroed hist (spec.md §4.4.5 doesn't
// persist histograms), so an all-zero hist falls back to n.material, the
// dominant-material hint readNode/writeNode carry for exactly this case.
func (t *Octree) fullPattern(n *Node) byte {
	if t.usage == Material {
		best, bestCount := byte(0), int64(0)
		for m := 1; m < 256; m++ {
			if n.hist[m] > bestCount {
				best, bestCount = byte(m), n.hist[m]
			}
		}
		if bestCount == 0 {
			return n.material
		}
		return best
	}
	return 255
}

// fillOut fills the portion of out (rect-local, scan order) covered by
// localInter (in the same rect-local coordinate space) with value.
func (t *Octree) fillOut(out []byte, rect geom.IntRect3, localInter geom.IntRect3, value byte) {
	w, h := rect.Width(), rect.Height()
	rel := localInter.Translate(rect.P1)
	for z := rel.P1.Z; z < rel.P2.Z; z++ {
		for y := rel.P1.Y; y < rel.P2.Y; y++ {
			base := (rel.P1.X) + y*w + z*w*h
			for x := rel.P1.X; x < rel.P2.X; x++ {
				out[base] = value
				base++
			}
		}
	}
}

// readIntoOut copies node-local brick voxels into the caller's output
// buffer. localInter is expressed in absolute `level` (not level-0, not
// rect-local) coordinates, covering both rect and n's own footprint at that
// level — the same space n.origin lives in, since this is only called when
// n.level == level.
func (t *Octree) readIntoOut(n *Node, out []byte, rect geom.IntRect3, localInter geom.IntRect3) {
	if err := t.CacheNode(n); err != nil {
		return
	}
	w, h := rect.Width(), rect.Height()
	rel := localInter.Translate(rect.P1)
	b := n.brick
	for z := rel.P1.Z; z < rel.P2.Z; z++ {
		for y := rel.P1.Y; y < rel.P2.Y; y++ {
			base := rel.P1.X + y*w + z*w*h
			for x := rel.P1.X; x < rel.P2.X; x++ {
				worldX, worldY, worldZ := x+rect.P1.X, y+rect.P1.Y, z+rect.P1.Z
				nx, ny, nz := worldX-n.origin.X, worldY-n.origin.Y, worldZ-n.origin.Z
				v := b.VoxelAt(nx, ny, nz)
				out[base] = v[0]
				base++
			}
		}
	}
}
