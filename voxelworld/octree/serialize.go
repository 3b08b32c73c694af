package octree

import (
	"github.com/voxelkeep/voxelworld/codec"
	"github.com/voxelkeep/voxelworld/geom"
	"github.com/voxelkeep/voxelworld/storage"
	"github.com/voxelkeep/voxelworld/vserr"
)

// indexPath is the tree's topology file, {tree_prefix}/octree.bin
// (spec.md §4.5).
func (t *Octree) indexPath() string { return t.prefix + "/octree.bin" }

// Save serializes the tree's header and preorder topology to its index
// file (spec.md §4.4.5, §6).
func (t *Octree) Save() error {
	const op = "Octree.Save"
	f, err := t.fs.Open(t.indexPath(), storage.WriteOnly|storage.Create)
	if err != nil {
		return vserr.Wrap(vserr.IO, op, err)
	}
	if err := f.Truncate(0); err != nil {
		_ = f.Close()
		return vserr.Wrap(vserr.IO, op, err)
	}

	w := codec.NewWriter(f)
	w.PutUint32(uint32(t.maxDepth))
	w.PutUint32(uint32(t.usage))
	w.PutInt32(int32(t.origin.X))
	w.PutInt32(int32(t.origin.Y))
	w.PutInt32(int32(t.origin.Z))
	w.PutUint32(uint32(t.w))
	w.PutUint32(uint32(t.h))
	w.PutUint32(uint32(t.d))
	t.writeNode(w, t.root)
	if err := w.Err(); err != nil {
		_ = f.Close()
		return vserr.Wrap(vserr.IO, op, err)
	}
	return vserr.Wrap(vserr.IO, op, f.Close())
}

func (t *Octree) writeNode(w *codec.Writer, n *Node) {
	w.PutUint32(uint32(n.status))
	switch n.status {
	case StatusEmpty:
	case StatusFull:
		w.PutUint32(uint32(n.material))
	case StatusLeaf:
		w.PutUint32(uint32(t.occupiedCount(n)))
		w.PutUint32(uint32(t.dominantMaterial(n)))
	case StatusInterior:
		w.PutUint32(uint32(t.occupiedCount(n)))
		w.PutUint32(uint32(t.dominantMaterial(n)))
		for _, c := range n.children {
			t.writeNode(w, c)
		}
	}
}

// occupiedCount reads n.inVolume directly: for Density it's the live
// threshold-crossing counter, for Material it's kept in sync with
// total-hist[0] by applyLeafWrite. Either way it's the same field Load
// reconstructs from the persisted index (spec.md §4.4.5 carries no
// histogram), so a load-then-save round trip reproduces the original count
// even before the brick itself is re-cached.
func (t *Octree) occupiedCount(n *Node) int64 {
	return n.inVolume
}

// dominantMaterial mirrors the coarse-read pattern GetRegion falls back to
// for a Leaf/Interior it can't or won't load the brick for (spec.md
// §4.4.1), so a freshly loaded index is immediately useful for approximate
// reads even before any brick is cached.
func (t *Octree) dominantMaterial(n *Node) byte {
	if t.occupiedCount(n) > int64(t.half()) {
		return t.fullPattern(n)
	}
	return 0
}

// Load replaces the tree's contents with the header and topology found at
// its index file.
func (t *Octree) Load() error {
	const op = "Octree.Load"
	f, err := t.fs.Open(t.indexPath(), storage.ReadOnly)
	if err != nil {
		return vserr.Wrap(vserr.IO, op, err)
	}
	defer f.Close()

	r := codec.NewReader(f)
	maxDepth := r.Uint32()
	usage := r.Uint32()
	ox := r.Int32()
	oy := r.Int32()
	oz := r.Int32()
	w := r.Uint32()
	h := r.Uint32()
	d := r.Uint32()
	if err := r.Err(); err != nil {
		return vserr.Wrap(vserr.IO, op, err)
	}
	if maxDepth > 1<<20 {
		return vserr.New(vserr.CorruptedArchive, op, "absurd max_depth in octree index")
	}
	if w == 0 || h == 0 || d == 0 {
		return vserr.New(vserr.CorruptedArchive, op, "zero brick extent in octree index")
	}

	t.maxDepth = int(maxDepth)
	t.usage = Usage(usage)
	t.origin = geom.Vec3i{X: int(ox), Y: int(oy), Z: int(oz)}
	t.w, t.h, t.d = int(w), int(h), int(d)
	t.lruHead, t.lruTail = nil, nil
	t.cachedCount = 0

	root, err := t.readNode(r, t.maxDepth, t.origin)
	if err != nil {
		return err
	}
	if err := r.Err(); err != nil {
		return vserr.Wrap(vserr.IO, op, err)
	}
	t.root = root
	return nil
}

func (t *Octree) readNode(r *codec.Reader, level int, origin geom.Vec3i) (*Node, error) {
	const op = "Octree.Load"
	status := Status(r.Uint32())
	n := &Node{status: status, level: level, origin: origin}
	switch status {
	case StatusEmpty:
	case StatusFull:
		n.material = byte(r.Uint32())
	case StatusLeaf:
		// inVolume carries the persisted occupied-voxel count for both
		// usages; hist itself isn't persisted and stays zeroed until
		// CacheNode reloads the brick and rebuilds it.
		n.inVolume = int64(r.Uint32())
		n.material = byte(r.Uint32())
	case StatusInterior:
		n.inVolume = int64(r.Uint32())
		n.material = byte(r.Uint32())
		origins := t.childOrigins(n)
		for i := 0; i < 8; i++ {
			c, err := t.readNode(r, level-1, origins[i])
			if err != nil {
				return nil, err
			}
			n.children[i] = c
		}
	default:
		return nil, vserr.New(vserr.CorruptedArchive, op, "invalid node status tag")
	}
	return n, nil
}
