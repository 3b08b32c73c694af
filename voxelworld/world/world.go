// Package world implements the region router above voxelworld/octree: it
// maps world-space reads/writes onto the overlapping trees, tracks which
// regions changed via a bounded ring buffer, drives LOD pyramid
// regeneration, and persists the world manifest (spec.md §3, §4.5, §4.6).
package world

import (
	"fmt"

	"github.com/voxelkeep/voxelworld/geom"
	"github.com/voxelkeep/voxelworld/internal/applog"
	"github.com/voxelkeep/voxelworld/octree"
	"github.com/voxelkeep/voxelworld/storage"
	"github.com/voxelkeep/voxelworld/vserr"
)

// Status is the coarse aggregated occupancy classification World.Stat
// reports, composed across every tree touching a rect (spec.md §9 — renamed
// from the source's misleadingly-named GetRegionStatus sentinel, per the
// Open Question decision recorded in SPEC_FULL.md §7).
type Status int

const (
	StatusEmpty Status = iota
	StatusFull
	StatusMixed
)

func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "Empty"
	case StatusFull:
		return "Full"
	case StatusMixed:
		return "Mixed"
	default:
		return "Invalid"
	}
}

// Config bundles a World's fixed, load-invariant parameters.
type Config struct {
	FS     storage.FileSystem
	Mkdir  storage.MkdirFunc
	Prefix string // world_prefix, filesystem root

	W, H, D int // per-node brick extent, shared by every tree
	NLod    int // number of LOD levels; each tree's max_depth = NLod-1
	Usage   octree.Usage

	MaxOpenFiles   int // FileCache bound, shared across every tree
	MaxCachedBrick int // per-tree brick LRU bound
	RingCapacity   int // updated-region ring capacity, 0 = spec.md default (128)
	CreateTrees    bool

	Logger applog.Logger
}

// World is a sparse map of region-coordinate → Octree, plus the shared
// file cache, the updated-region ring, and the scratch buffers
// GenerateLOD uses (spec.md §3).
type World struct {
	fs        storage.FileSystem
	fileCache *storage.FileCache
	mkdir     storage.MkdirFunc
	prefix    string

	w, h, d     int
	maxDepth    int
	usage       octree.Usage
	maxCached   int
	createTrees bool
	log         applog.Logger

	trees map[geom.Vec3i]*octree.Octree
	ring  *ring

	// scratch1 is sized for one brick's worth of bytes (the LOD source
	// region); scratch2 is one eighth that, the destination region at the
	// next-coarser level (spec.md §3).
	scratch1 []byte
	scratch2 []byte
}

// New constructs a World with no trees loaded. Call FetchTrees or
// LoadManifest to populate it.
func New(cfg Config) (*World, error) {
	const op = "world.New"
	if cfg.W <= 0 || cfg.H <= 0 || cfg.D <= 0 {
		return nil, vserr.New(vserr.InvalidArgument, op, "brick dimensions must be positive")
	}
	if cfg.NLod <= 0 {
		return nil, vserr.New(vserr.InvalidArgument, op, "n_lod must be positive")
	}
	maxOpen := cfg.MaxOpenFiles
	if maxOpen < 1 {
		maxOpen = 64
	}
	logger := cfg.Logger
	if logger == nil {
		logger = applog.Nop()
	}
	volume := cfg.W * cfg.H * cfg.D
	return &World{
		fs:          cfg.FS,
		fileCache:   storage.NewFileCache(cfg.FS, maxOpen),
		mkdir:       cfg.Mkdir,
		prefix:      cfg.Prefix,
		w:           cfg.W,
		h:           cfg.H,
		d:           cfg.D,
		maxDepth:    cfg.NLod - 1,
		usage:       cfg.Usage,
		maxCached:   cfg.MaxCachedBrick,
		createTrees: cfg.CreateTrees,
		log:         logger,
		trees:       make(map[geom.Vec3i]*octree.Octree),
		ring:        newRing(cfg.RingCapacity),
		scratch1:    make([]byte, volume),
		scratch2:    make([]byte, volume/8),
	}, nil
}

// treeExtent is the level-0 footprint of a single tree along each axis.
func (w *World) treeExtent() (int, int, int) {
	shift := uint(w.maxDepth)
	return w.w << shift, w.h << shift, w.d << shift
}

// treeKey floor-divides a level-0 world coordinate by the tree extent
// (spec.md §4.5: "negative coordinates use mathematical floor").
func (w *World) treeKey(p geom.Vec3i) geom.Vec3i {
	ex, ey, ez := w.treeExtent()
	return geom.Vec3i{
		X: geom.FloorDiv(p.X, ex),
		Y: geom.FloorDiv(p.Y, ey),
		Z: geom.FloorDiv(p.Z, ez),
	}
}

func (w *World) regionPrefix(key geom.Vec3i) string {
	return fmt.Sprintf("%s/region_%d_%d_%d", w.prefix, key.X, key.Y, key.Z)
}

// newTree constructs (but does not register) the Octree for region key,
// creating its on-disk directory and one lod{level}/ subdirectory per level
// first (spec.md §6: region_{rx}_{ry}_{rz}/ and its level directories must
// exist before the tree's index/brick files can be opened for Create).
func (w *World) newTree(key geom.Vec3i) (*octree.Octree, error) {
	if w.mkdir != nil {
		if err := w.mkdir(w.regionPrefix(key)); err != nil {
			return nil, vserr.Wrap(vserr.IO, "world.newTree", err)
		}
		for level := 0; level <= w.maxDepth; level++ {
			if err := w.mkdir(fmt.Sprintf("%s/lod%d", w.regionPrefix(key), level)); err != nil {
				return nil, vserr.Wrap(vserr.IO, "world.newTree", err)
			}
		}
	}
	return octree.New(octree.Config{
		FS:        w.fs,
		FileCache: w.fileCache,
		Mkdir:     w.mkdir,
		Prefix:    w.regionPrefix(key),
		MaxDepth:  w.maxDepth,
		Usage:     w.usage,
		W:         w.w,
		H:         w.h,
		D:         w.d,
		Origin:    geom.Vec3i{X: key.X * w.w, Y: key.Y * w.h, Z: key.Z * w.d},
		MaxCached: w.maxCached,
	})
}

// FetchTrees returns every existing tree whose footprint intersects rect
// (given at level), creating empty trees for missing keys when
// createTrees is enabled (spec.md §4.5).
func (w *World) FetchTrees(level int, rect geom.IntRect3) ([]*octree.Octree, error) {
	if rect.Empty() {
		return nil, nil
	}
	rect0 := rect.Scale(level)
	k1 := w.treeKey(rect0.P1)
	k2 := w.treeKey(geom.Vec3i{X: rect0.P2.X - 1, Y: rect0.P2.Y - 1, Z: rect0.P2.Z - 1})

	var out []*octree.Octree
	for kx := k1.X; kx <= k2.X; kx++ {
		for ky := k1.Y; ky <= k2.Y; ky++ {
			for kz := k1.Z; kz <= k2.Z; kz++ {
				key := geom.Vec3i{X: kx, Y: ky, Z: kz}
				t, ok := w.trees[key]
				if !ok {
					if !w.createTrees {
						continue
					}
					var err error
					t, err = w.newTree(key)
					if err != nil {
						return nil, err
					}
					w.trees[key] = t
				}
				out = append(out, t)
			}
		}
	}
	return out, nil
}

// GetRegion fills out with rect's voxels at level, dispatching across every
// overlapping tree; territory outside any tree reads as empty (spec.md
// §4.4.1: "the World layer fills them with empty before dispatch").
func (w *World) GetRegion(level int, rect geom.IntRect3, out []byte) error {
	if rect.Empty() {
		return nil
	}
	if len(out) != rect.Volume() {
		return vserr.New(vserr.InvalidArgument, "World.GetRegion", "out length must equal rect volume")
	}
	for i := range out {
		out[i] = 0
	}
	createTrees := w.createTrees
	w.createTrees = false
	trees, err := w.FetchTrees(level, rect)
	w.createTrees = createTrees
	if err != nil {
		return err
	}
	for _, t := range trees {
		if err := t.GetRegion(level, rect, out); err != nil {
			return err
		}
	}
	return nil
}

// SetRegion writes data into rect at level across every overlapping tree
// (created on demand if configured), then records the edit on the
// updated-region ring (spec.md §4.5).
func (w *World) SetRegion(level int, rect geom.IntRect3, data []byte) error {
	if rect.Empty() {
		return nil
	}
	trees, err := w.FetchTrees(level, rect)
	if err != nil {
		return err
	}
	for _, t := range trees {
		if err := t.SetRegion(level, rect, data); err != nil {
			return err
		}
	}
	w.ring.push(updatedRegion{Level: level, Rect: rect})
	return nil
}

// Set is the internal spelling LOD generation's writeback uses (spec.md
// §4.6: "written with World.Set(level+1, dst, bytes)").
func (w *World) Set(level int, rect geom.IntRect3, data []byte) error {
	return w.SetRegion(level, rect, data)
}

// FillRegion writes a single material byte into rect at level across every
// overlapping tree, then records the edit (spec.md §4.5).
func (w *World) FillRegion(level int, rect geom.IntRect3, material byte) error {
	if rect.Empty() {
		return nil
	}
	trees, err := w.FetchTrees(level, rect)
	if err != nil {
		return err
	}
	for _, t := range trees {
		if err := t.FillRegion(level, rect, material); err != nil {
			return err
		}
	}
	w.ring.push(updatedRegion{Level: level, Rect: rect})
	return nil
}

// Stat aggregates the occupancy of every tree touching rect at level into a
// single coarse classification, used by GenerateLOD's short-circuit path
// (spec.md §4.6, §9). A key in rect's tree-key range with no registered
// tree counts as RegionEmpty for that slice of the rect — it must not be
// silently skipped the way a read-only FetchTrees call skips it, or a rect
// half-covered by a Full tree and half by untouched territory would
// misreport as StatusFull instead of StatusMixed.
func (w *World) Stat(level int, rect geom.IntRect3) Status {
	if rect.Empty() {
		return StatusEmpty
	}
	rect0 := rect.Scale(level)
	k1 := w.treeKey(rect0.P1)
	k2 := w.treeKey(geom.Vec3i{X: rect0.P2.X - 1, Y: rect0.P2.Y - 1, Z: rect0.P2.Z - 1})

	sawEmpty, sawFull, sawOther := false, false, false
	for kx := k1.X; kx <= k2.X; kx++ {
		for ky := k1.Y; ky <= k2.Y; ky++ {
			for kz := k1.Z; kz <= k2.Z; kz++ {
				t, ok := w.trees[geom.Vec3i{X: kx, Y: ky, Z: kz}]
				if !ok {
					sawEmpty = true
					continue
				}
				switch t.RegionStatusAt(level, rect) {
				case octree.RegionEmpty:
					sawEmpty = true
				case octree.RegionFull:
					sawFull = true
				case octree.RegionMixed:
					sawOther = true
				}
			}
		}
	}
	switch {
	case sawOther || (sawEmpty && sawFull):
		return StatusMixed
	case sawFull:
		return StatusFull
	default:
		return StatusEmpty
	}
}

// FetchNodes collects every non-Empty node at level touching rect across
// every overlapping tree. No offsetting is needed: each Rect0 is already in
// absolute level-0 coordinates, so results from different trees compose directly
// (spec.md §4.4.3, surfaced at World granularity for the mesh extractor).
func (w *World) FetchNodes(level int, rect geom.IntRect3) ([]octree.FetchedNode, error) {
	if rect.Empty() {
		return nil, nil
	}
	createTrees := w.createTrees
	w.createTrees = false
	trees, err := w.FetchTrees(level, rect)
	w.createTrees = createTrees
	if err != nil {
		return nil, err
	}
	var out []octree.FetchedNode
	for _, t := range trees {
		out = append(out, t.FetchNodes(level, rect)...)
	}
	return out, nil
}

// AddUpdatedRegion pushes (level, rect) onto the ring directly, for callers
// that bypass SetRegion/FillRegion (e.g. a host replaying an externally
// tracked edit log).
func (w *World) AddUpdatedRegion(level int, rect geom.IntRect3) {
	w.ring.push(updatedRegion{Level: level, Rect: rect})
}

// GetNextUpdatedRegion pops the oldest pending (level, rect) pair.
func (w *World) GetNextUpdatedRegion() (int, geom.IntRect3, error) {
	v, err := w.ring.pop()
	return v.Level, v.Rect, err
}

// PendingUpdatedRegions reports how many (level, rect) pairs are queued.
func (w *World) PendingUpdatedRegions() int { return w.ring.len() }

// SyncAll flushes every tree's dirty bricks and rewrites its index file
// (octree.bin), required before the process exits cleanly (spec.md §4.3, §5).
func (w *World) SyncAll() error {
	for _, t := range w.trees {
		if err := t.SyncCache(); err != nil {
			return err
		}
		if err := t.Save(); err != nil {
			return err
		}
	}
	return nil
}

// Trees exposes the live region map for the manifest writer and CLI
// inspection tooling.
func (w *World) Trees() map[geom.Vec3i]*octree.Octree { return w.trees }
