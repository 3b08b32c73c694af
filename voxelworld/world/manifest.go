package world

import (
	"github.com/voxelkeep/voxelworld/codec"
	"github.com/voxelkeep/voxelworld/geom"
	"github.com/voxelkeep/voxelworld/octree"
	"github.com/voxelkeep/voxelworld/storage"
	"github.com/voxelkeep/voxelworld/vserr"
)

// manifestPath is the world's single top-level metadata file (spec.md §6):
// u32 W, u32 H, u32 D, u32 n_lod, u32 usage, u32 n_trees, then
// n_trees · (i32 rx, i32 ry, i32 rz).
func (w *World) manifestPath() string { return w.prefix + "/world.bin" }

// SaveManifest persists (W,H,D), n_lod, usage and the set of tree keys to
// the world manifest. It does not sync individual trees; call SyncAll first
// if their bricks and index files need to reach disk too (spec.md §4.3, §5).
func (w *World) SaveManifest() error {
	const op = "World.SaveManifest"
	if w.mkdir != nil {
		if err := w.mkdir(w.prefix); err != nil {
			return vserr.Wrap(vserr.IO, op, err)
		}
	}
	f, err := w.fs.Open(w.manifestPath(), storage.WriteOnly|storage.Create)
	if err != nil {
		return vserr.Wrap(vserr.IO, op, err)
	}
	if err := f.Truncate(0); err != nil {
		_ = f.Close()
		return vserr.Wrap(vserr.IO, op, err)
	}

	cw := codec.NewWriter(f)
	cw.PutUint32(uint32(w.w))
	cw.PutUint32(uint32(w.h))
	cw.PutUint32(uint32(w.d))
	cw.PutUint32(uint32(w.maxDepth + 1))
	cw.PutUint32(uint32(w.usage))
	cw.PutUint32(uint32(len(w.trees)))
	for key := range w.trees {
		cw.PutInt32(int32(key.X))
		cw.PutInt32(int32(key.Y))
		cw.PutInt32(int32(key.Z))
	}
	if err := cw.Err(); err != nil {
		_ = f.Close()
		return vserr.Wrap(vserr.IO, op, err)
	}
	return vserr.Wrap(vserr.IO, op, f.Close())
}

// LoadManifest replaces the World's tree map with the set recorded in its
// manifest, opening (but not caching any bricks of) each tree's own index.
// W, H, D, n_lod and usage found on disk must match the World's own
// configuration; a mismatch means this manifest belongs to a differently
// configured world and is reported as CorruptedArchive.
func (w *World) LoadManifest() error {
	const op = "World.LoadManifest"
	f, err := w.fs.Open(w.manifestPath(), storage.ReadOnly)
	if err != nil {
		return vserr.Wrap(vserr.IO, op, err)
	}
	defer f.Close()

	cr := codec.NewReader(f)
	mw := cr.Uint32()
	mh := cr.Uint32()
	md := cr.Uint32()
	nLod := cr.Uint32()
	usage := cr.Uint32()
	nTrees := cr.Uint32()
	if err := cr.Err(); err != nil {
		return vserr.Wrap(vserr.IO, op, err)
	}
	if int(mw) != w.w || int(mh) != w.h || int(md) != w.d {
		return vserr.New(vserr.CorruptedArchive, op, "manifest brick dimensions don't match configured World")
	}
	if int(nLod) != w.maxDepth+1 {
		return vserr.New(vserr.CorruptedArchive, op, "manifest n_lod doesn't match configured World")
	}
	if octree.Usage(usage) != w.usage {
		return vserr.New(vserr.CorruptedArchive, op, "manifest usage doesn't match configured World")
	}
	if nTrees > 1<<20 {
		return vserr.New(vserr.CorruptedArchive, op, "absurd tree count in world manifest")
	}

	trees := make(map[geom.Vec3i]*octree.Octree, nTrees)
	for i := uint32(0); i < nTrees; i++ {
		rx := cr.Int32()
		ry := cr.Int32()
		rz := cr.Int32()
		if err := cr.Err(); err != nil {
			return vserr.Wrap(vserr.IO, op, err)
		}
		key := geom.Vec3i{X: int(rx), Y: int(ry), Z: int(rz)}
		t, err := w.newTree(key)
		if err != nil {
			return err
		}
		if err := t.Load(); err != nil {
			return err
		}
		trees[key] = t
	}
	w.trees = trees
	return nil
}
