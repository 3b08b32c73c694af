package octree

import (
	"github.com/voxelkeep/voxelworld/brick"
	"github.com/voxelkeep/voxelworld/geom"
	"github.com/voxelkeep/voxelworld/vserr"
)

// SetRegion writes data (rect.Volume() bytes, scan order local to rect)
// into rect at level, subdividing and collapsing as needed (spec.md
// §4.4.2).
func (t *Octree) SetRegion(level int, rect geom.IntRect3, data []byte) error {
	const op = "Octree.SetRegion"
	if rect.Empty() {
		return nil
	}
	if len(data) != rect.Volume() {
		return vserr.New(vserr.InvalidArgument, op, "data length must equal rect volume")
	}
	rect0 := rect.Scale(level)
	wop := writeOp{data: data}
	return t.writeRegion(t.root, t.RootRect0(), level, rect, rect0, wop)
}

// FillRegion writes a single material byte across rect at level (spec.md
// §4.4.2), honoring the fast path of a no-op when filling an Empty subtree
// with zero.
func (t *Octree) FillRegion(level int, rect geom.IntRect3, material byte) error {
	if rect.Empty() {
		return nil
	}
	rect0 := rect.Scale(level)
	op := writeOp{isFill: true, fillValue: material}
	return t.writeRegion(t.root, t.RootRect0(), level, rect, rect0, op)
}

// writeOp captures the payload of a region write: either a caller data
// buffer (SetRegion) or a single repeated fill byte (FillRegion).
type writeOp struct {
	isFill    bool
	fillValue byte
	data      []byte
}

// sub returns the data bytes for a destination sub-rect (in `level`-space,
// absolute coordinates shared with rect), or nil if this is a fill op.
func (o writeOp) sub(rect, dst geom.IntRect3) []byte {
	if o.isFill {
		return nil
	}
	w, h := rect.Width(), rect.Height()
	local := dst.Translate(rect.P1)
	out := make([]byte, local.Volume())
	i := 0
	for z := local.P1.Z; z < local.P2.Z; z++ {
		for y := local.P1.Y; y < local.P2.Y; y++ {
			base := local.P1.X + y*w + z*w*h
			for x := local.P1.X; x < local.P2.X; x++ {
				out[i] = o.data[base]
				i++
				base++
			}
		}
	}
	return out
}

func (o writeOp) isZeroOver(rect, dst geom.IntRect3) bool {
	if o.isFill {
		return o.fillValue == 0
	}
	for _, b := range o.sub(rect, dst) {
		if b != 0 {
			return false
		}
	}
	return true
}

func (t *Octree) writeRegion(n *Node, nodeRect0 geom.IntRect3, level int, rect, rect0 geom.IntRect3, op writeOp) error {
	inter0 := nodeRect0.Intersect(rect0)
	if inter0.Empty() {
		return nil
	}
	dst := inter0.Scale(-level) // destination sub-rect in absolute `level` coordinates

	switch n.status {
	case StatusEmpty:
		return t.writeEmpty(n, nodeRect0, level, rect, rect0, dst, op)
	case StatusFull:
		return t.writeFull(n, nodeRect0, level, rect, rect0, dst, op)
	case StatusLeaf:
		return t.writeLeaf(n, level, dst, op, rect)
	case StatusInterior:
		return t.writeInterior(n, nodeRect0, level, rect, rect0, dst, op)
	}
	return nil
}

func (t *Octree) writeEmpty(n *Node, nodeRect0 geom.IntRect3, level int, rect, rect0, dst geom.IntRect3, op writeOp) error {
	if op.isZeroOver(rect, dst) {
		return nil
	}
	nodeRectAtLevel := levelRect(n.origin, t.w, t.h, t.d)
	if n.level == level && nodeRectAtLevel.Inside(dst) && op.isFill {
		// incoming fill fully covers the node: collapse directly to Full,
		// no file ever created (spec.md §4.4.2).
		n.status = StatusFull
		n.material = op.fillValue
		return nil
	}
	return t.materializeAndWrite(n, nodeRect0, level, rect, rect0, dst, op, 0)
}

func (t *Octree) writeFull(n *Node, nodeRect0 geom.IntRect3, level int, rect, rect0, dst geom.IntRect3, op writeOp) error {
	nodeRectAtLevel := levelRect(n.origin, t.w, t.h, t.d)
	if n.level == level && nodeRectAtLevel.Inside(dst) && op.isFill && op.fillValue == n.material {
		return nil
	}
	return t.materializeAndWrite(n, nodeRect0, level, rect, rect0, dst, op, n.material)
}

// materializeAndWrite turns an Empty/Full node into either a populated
// Leaf (if n.level == level) or an Interior subdivided into eight children
// carrying the node's prior uniform value (spec.md §4.4.2).
func (t *Octree) materializeAndWrite(n *Node, nodeRect0 geom.IntRect3, level int, rect, rect0, dst geom.IntRect3, op writeOp, priorMaterial byte) error {
	if n.level == level {
		b, err := brick.New(t.w, t.h, t.d, 1)
		if err != nil {
			return vserr.Wrap(vserr.OutOfMemory, "Octree.materializeAndWrite", err)
		}
		if priorMaterial != 0 {
			_ = b.Fill(nil, []byte{priorMaterial})
		}
		// The bulk fill above bypasses the counting helpers applyLeafWrite
		// uses, so seed n's occupancy as if the whole (still-empty) brick had
		// just been counted-filled with priorMaterial; applyLeafWrite then
		// only needs to account for the delta the caller's own write makes
		// on top of that uniform baseline.
		if t.usage == Density {
			if priorMaterial >= brick.DensityThreshold {
				n.inVolume = int64(t.volume())
			}
		} else if priorMaterial != 0 {
			n.hist[priorMaterial] = int64(t.volume())
		} else {
			n.hist[0] = int64(t.volume())
		}
		n.status = StatusLeaf
		n.brick = b
		n.cached = true
		t.appendMRU(n)
		t.cachedCount++
		if err := t.applyLeafWrite(n, dst, op, rect, true); err != nil {
			return err
		}
		return t.UpdateCache()
	}

	origins := t.childOrigins(n)
	n.status = StatusInterior
	for i := range n.children {
		if priorMaterial != 0 {
			n.children[i] = newFullNode(n.level-1, origins[i], priorMaterial)
		} else {
			n.children[i] = newEmptyNode(n.level-1, origins[i])
		}
	}
	if err := t.recurseChildren(n, level, rect, rect0, op); err != nil {
		return err
	}
	t.recomputeInteriorOccupancy(n)
	t.tryCollapse(n)
	return nil
}

func (t *Octree) writeLeaf(n *Node, level int, dst geom.IntRect3, op writeOp, rect geom.IntRect3) error {
	if n.level == level {
		if err := t.CacheNode(n); err != nil {
			return err
		}
		return t.applyLeafWrite(n, dst, op, rect, true)
	}
	// n.level > level: the caller wants finer detail than this leaf carries.
	// Subdivide, discarding the leaf's own brick (spec.md §4.4.2 — "lossy
	// coarsening that the implementation accepts as inherent").
	priorMaterial := byte(0)
	if n.inVolume > int64(t.half()) {
		priorMaterial = t.fullPattern(n)
	}
	if n.cached {
		t.unlink(n)
		n.cached = false
		n.brick = nil
		t.cachedCount--
	}
	origins := t.childOrigins(n)
	n.status = StatusInterior
	n.inVolume = 0
	n.hist = [256]int64{}
	for i := range n.children {
		if priorMaterial != 0 {
			n.children[i] = newFullNode(n.level-1, origins[i], priorMaterial)
		} else {
			n.children[i] = newEmptyNode(n.level-1, origins[i])
		}
	}
	rect0 := rect.Scale(level)
	if err := t.recurseChildren(n, level, rect, rect0, op); err != nil {
		return err
	}
	t.recomputeInteriorOccupancy(n)
	t.tryCollapse(n)
	return nil
}

func (t *Octree) writeInterior(n *Node, nodeRect0 geom.IntRect3, level int, rect, rect0, dst geom.IntRect3, op writeOp) error {
	if n.level == level {
		// Interior node hit exactly at the target level: write into its
		// aggregate brick (populated by LOD generation) without disturbing
		// the finer children underneath — spec.md §4.4.1's LOD-read
		// fast-path depends on this brick staying in sync independently of
		// child content.
		if err := t.CacheNode(n); err != nil {
			return err
		}
		return t.applyLeafWrite(n, dst, op, rect, false)
	}
	if err := t.recurseChildren(n, level, rect, rect0, op); err != nil {
		return err
	}
	t.recomputeInteriorOccupancy(n)
	t.tryCollapse(n)
	return nil
}

// recomputeInteriorOccupancy re-derives n's own inVolume from its eight
// children so a structural Interior node (no aggregate brick populated at
// its own level) still satisfies the Occupancy invariant (spec.md §8):
// GetRegion's coarse fallback (octree.go) and writeLeaf's subdivide path
// both read n.inVolume against t.half() to decide whether an
// aggregate-less node reads back as predominantly full. Each child's
// contribution is expressed on the same 0..t.volume() scale every node's
// own inVolume uses, regardless of level, since every node's per-level
// brick has the same fixed extent (w,h,d).
func (t *Octree) recomputeInteriorOccupancy(n *Node) {
	var sum int64
	for _, c := range n.children {
		switch c.status {
		case StatusFull:
			if t.materialQualifies(c.material) {
				sum += int64(t.volume())
			}
		case StatusLeaf, StatusInterior:
			sum += c.inVolume
		}
	}
	n.inVolume = sum / 8
}

// materialQualifies reports whether a uniform Full node's material counts
// as "occupied" on the same terms applyLeafWrite's per-voxel counters use:
// at/above brick.DensityThreshold for Density usage, non-zero for Material
// usage.
func (t *Octree) materialQualifies(material byte) bool {
	if t.usage == Material {
		return material != 0
	}
	return material >= brick.DensityThreshold
}

func (t *Octree) recurseChildren(n *Node, level int, rect, rect0 geom.IntRect3, op writeOp) error {
	for _, c := range n.children {
		childRect0 := levelRectToLevel0(c.origin, c.level, t.w, t.h, t.d)
		if err := t.writeRegion(c, childRect0, level, rect, rect0, op); err != nil {
			return err
		}
	}
	return nil
}

// applyLeafWrite copies/fills op's payload into n's already-cached brick at
// the node-local sub-rect corresponding to dst (absolute `level`
// coordinates, within rect — the original caller rect whose coordinate
// frame op's data buffer is laid out in), updates occupancy counters and
// reclassifies.
func (t *Octree) applyLeafWrite(n *Node, dst geom.IntRect3, op writeOp, rect geom.IntRect3, reclassify bool) error {
	local := geom.Rect(dst.P1.Sub(n.origin), dst.P2.Sub(n.origin))
	b := n.brick

	var oldZero int64
	if t.usage == Material {
		oldHist := b.Histogram(&local)
		oldZero = oldHist[0]
		for m, c := range oldHist {
			n.hist[m] -= c
		}
	}

	var err error
	if op.isFill {
		if t.usage == Density {
			delta, e := b.FillCounting(&local, op.fillValue)
			err = e
			n.inVolume += int64(delta)
		} else {
			var newHist [256]int64
			err = b.FillHistogram(&local, op.fillValue, &newHist)
			for m, c := range newHist {
				n.hist[m] += c
			}
			n.inVolume += oldZero - newHist[0]
		}
	} else {
		src, e := brick.New(local.Width(), local.Height(), local.Depth(), 1)
		if e != nil {
			return vserr.Wrap(vserr.OutOfMemory, "Octree.applyLeafWrite", e)
		}
		copy(src.Data, op.sub(rect, dst))
		srcRect := geom.RectFromSize(geom.Vec3i{}, src.W, src.H, src.D)
		if t.usage == Density {
			delta, e := b.CopyCounting(&local, &srcRect, src)
			err = e
			n.inVolume += int64(delta)
		} else {
			var newHist [256]int64
			err = b.CopyHistogram(&local, &srcRect, src, &newHist)
			for m, c := range newHist {
				n.hist[m] += c
			}
			n.inVolume += oldZero - newHist[0]
		}
	}
	if err != nil {
		return err
	}

	t.markDirty(n)
	if reclassify {
		return t.reclassifyNode(n)
	}
	return nil
}

// reclassifyNode checks n's brick against the whole-brick empty/full memoized
// tests and, if uniform, collapses the node to Empty/Full, dropping its
// brick and truncating its file to zero length (spec.md §3 invariant).
func (t *Octree) reclassifyNode(n *Node) error {
	b := n.brick
	if b.IsEmpty(nil) {
		n.status = StatusEmpty
		n.material = 0
		n.inVolume = 0
		n.hist = [256]int64{}
		return t.forgetNode(n)
	}
	if b.IsFull(nil) {
		material := b.FullMaterial()
		n.status = StatusFull
		n.material = material
		n.inVolume = 0
		n.hist = [256]int64{}
		return t.forgetNode(n)
	}
	return nil
}

// tryCollapse folds an Interior node back to Empty/Full if all eight
// children now agree (spec.md §3 invariant, checked after every write that
// touches children).
func (t *Octree) tryCollapse(n *Node) {
	allEmpty := true
	allFullSame := true
	material := n.children[0].material
	if n.children[0].status != StatusFull {
		allFullSame = false
	}
	for _, c := range n.children {
		if c.status != StatusEmpty {
			allEmpty = false
		}
		if c.status != StatusFull || c.material != material {
			allFullSame = false
		}
	}
	if allEmpty {
		n.status = StatusEmpty
		n.material = 0
		n.children = [8]*Node{}
		return
	}
	if allFullSame {
		n.status = StatusFull
		n.material = material
		n.children = [8]*Node{}
	}
}

// childOrigins computes the eight child origins for n, expressed in the
// children's own (one-level-finer) coordinate space (spec.md §3).
func (t *Octree) childOrigins(n *Node) [8]geom.Vec3i {
	po := geom.Vec3i{X: n.origin.X * 2, Y: n.origin.Y * 2, Z: n.origin.Z * 2}
	var origins [8]geom.Vec3i
	for i := 0; i < 8; i++ {
		origins[i] = childOriginAt(po, i, t.w, t.h, t.d)
	}
	return origins
}
