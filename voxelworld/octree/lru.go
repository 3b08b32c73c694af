package octree

import (
	"github.com/voxelkeep/voxelworld/brick"
	"github.com/voxelkeep/voxelworld/storage"
	"github.com/voxelkeep/voxelworld/vserr"
)

// CacheNode ensures n.brick is resident, decompressing it from disk (or
// instantiating it fresh, for a not-yet-written file) if necessary, and
// moves n to the MRU end of the tree's brick LRU (spec.md §4.4.4).
func (t *Octree) CacheNode(n *Node) error {
	const op = "Octree.CacheNode"
	if n.status != StatusLeaf && n.status != StatusInterior {
		return vserr.New(vserr.InvalidArgument, op, "only Leaf/Interior nodes carry a brick")
	}
	if n.cached {
		t.touch(n)
		return nil
	}

	b, err := brick.New(t.w, t.h, t.d, 1)
	if err != nil {
		return vserr.Wrap(vserr.OutOfMemory, op, err)
	}

	path := t.path(n.level, n.origin)
	f, err := t.fileCache.Acquire(path, storage.ReadOnly|storage.WriteOnly|storage.Create)
	if err != nil {
		return err
	}
	bf := storage.FromHandle(path, f)
	length, err := bf.Length()
	if err != nil {
		_ = t.fileCache.Release(path)
		return err
	}
	if length > 0 {
		if err := bf.ReadBrick(b, &n.hist); err != nil {
			_ = t.fileCache.Release(path)
			return err
		}
	} else if n.status == StatusFull {
		_ = b.Fill(nil, []byte{n.material})
	}
	if err := t.fileCache.Release(path); err != nil {
		return err
	}

	n.brick = b
	n.cached = true
	n.dirty = false
	t.appendMRU(n)
	t.cachedCount++

	return t.UpdateCache()
}

// UpdateCache walks the LRU from the head (least-recently-used) and evicts
// until the cached-brick count is at or below max_cached, writing back any
// dirty brick before dropping its in-memory buffer (spec.md §4.4.4).
func (t *Octree) UpdateCache() error {
	n := t.lruHead
	for t.cachedCount > t.maxCached && n != nil {
		next := n.lruNext
		if err := t.evictNode(n); err != nil {
			return err
		}
		n = next
	}
	return nil
}

// SyncCache flushes every dirty brick without evicting it from memory,
// required before the process exits cleanly (spec.md §4.3).
func (t *Octree) SyncCache() error {
	for n := t.lruHead; n != nil; n = n.lruNext {
		if n.dirty {
			if err := t.writeBack(n); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *Octree) writeBack(n *Node) error {
	path := t.path(n.level, n.origin)
	f, err := t.fileCache.Acquire(path, storage.ReadOnly|storage.WriteOnly|storage.Create)
	if err != nil {
		return err
	}
	bf := storage.FromHandle(path, f)
	if err := bf.WriteBrick(n.brick, &n.hist); err != nil {
		_ = t.fileCache.Release(path)
		return err
	}
	if err := t.fileCache.Release(path); err != nil {
		return err
	}
	n.dirty = false
	return nil
}

func (t *Octree) evictNode(n *Node) error {
	if n.dirty {
		if err := t.writeBack(n); err != nil {
			return err
		}
	}
	t.unlink(n)
	n.brick = nil
	n.cached = false
	t.cachedCount--
	return nil
}

// CacheStats reports the brick LRU's bound (max_cached), how many bricks are
// currently resident, and how many of those are dirty and awaiting
// write-back — exposed so the CLI and tests can assert the bound from
// spec.md §8 scenario 6 directly instead of reaching into internals.
type CacheStats struct {
	Cached int
	Max    int
	Dirty  int
}

func (t *Octree) CacheStats() CacheStats {
	dirty := 0
	for n := t.lruHead; n != nil; n = n.lruNext {
		if n.dirty {
			dirty++
		}
	}
	return CacheStats{Cached: t.cachedCount, Max: t.maxCached, Dirty: dirty}
}

// markDirty flags n's brick as needing write-back and touches its LRU
// position, mirroring "every mutator sets sync = false" (spec.md §4.4.4).
func (t *Octree) markDirty(n *Node) {
	n.dirty = true
	t.touch(n)
}

func (t *Octree) appendMRU(n *Node) {
	n.lruPrev = t.lruTail
	n.lruNext = nil
	if t.lruTail != nil {
		t.lruTail.lruNext = n
	}
	t.lruTail = n
	if t.lruHead == nil {
		t.lruHead = n
	}
}

func (t *Octree) touch(n *Node) {
	if n == t.lruTail {
		return
	}
	t.unlink(n)
	t.appendMRU(n)
}

func (t *Octree) unlink(n *Node) {
	if n.lruPrev != nil {
		n.lruPrev.lruNext = n.lruNext
	} else if t.lruHead == n {
		t.lruHead = n.lruNext
	}
	if n.lruNext != nil {
		n.lruNext.lruPrev = n.lruPrev
	} else if t.lruTail == n {
		t.lruTail = n.lruPrev
	}
	n.lruPrev, n.lruNext = nil, nil
}

// forgetNode removes a collapsing node's brick from the LRU and truncates its
// backing file to zero length (the file itself stays on disk; CacheNode
// treats a zero-length file as holding no brick), used when a
// Leaf/Interior-with-aggregate reclassifies to Empty or Full.
func (t *Octree) forgetNode(n *Node) error {
	if n.cached {
		t.unlink(n)
		n.cached = false
		n.dirty = false
		n.brick = nil
		t.cachedCount--
	}
	path := t.path(n.level, n.origin)
	f, err := t.fs.Open(path, storage.WriteOnly|storage.Create)
	if err != nil {
		return vserr.Wrap(vserr.IO, "Octree.forgetNode", err)
	}
	if err := f.Truncate(0); err != nil {
		_ = f.Close()
		return vserr.Wrap(vserr.IO, "Octree.forgetNode", err)
	}
	return vserr.Wrap(vserr.IO, "Octree.forgetNode", f.Close())
}
