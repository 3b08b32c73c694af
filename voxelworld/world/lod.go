package world

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/voxelkeep/voxelworld/geom"
	"github.com/voxelkeep/voxelworld/octree"
)

// fetchWindow returns the level-L source rect a single-level LOD step needs
// to derive dst (given at level+1): dst scaled down one level, with a
// one-voxel border on each face (spec.md §4.6: "src = dst·2 ± 1").
func fetchWindow(dst geom.IntRect3) geom.IntRect3 {
	scaled := dst.Scale(1)
	return geom.Rect(
		scaled.P1.Sub(geom.Vec3i{X: 1, Y: 1, Z: 1}),
		scaled.P2.Add(geom.Vec3i{X: 1, Y: 1, Z: 1}),
	)
}

// axisWeight is the per-axis trilinear tap weight: 2 at the voxel directly
// under the destination sample, 1 at its neighbour on either side. The
// product over three axes reproduces the corner:edge:face:center ratio of
// 1:2:4:8 spec.md §4.6 describes, normalized by the constant sum below
// rather than by a literal 1/8, so border taps that fall outside the world
// (read as zero) still pull the average down proportionally to their
// distance from center.
func axisWeight(offset int) int {
	if offset == 0 {
		return 2
	}
	return 1
}

const trilinearWeightSum = 64 // (2+1+1)^3, constant regardless of clamping

// sampleAt reads one byte from src (covering srcRect) at absolute level-L
// position p, or 0 if p falls outside srcRect.
func sampleAt(src []byte, srcRect geom.IntRect3, p geom.Vec3i) byte {
	lx, ly, lz := p.X-srcRect.P1.X, p.Y-srcRect.P1.Y, p.Z-srcRect.P1.Z
	if lx < 0 || lx >= srcRect.Width() || ly < 0 || ly >= srcRect.Height() || lz < 0 || lz >= srcRect.Depth() {
		return 0
	}
	idx := lx + ly*srcRect.Width() + lz*srcRect.Width()*srcRect.Height()
	return src[idx]
}

// densityKernel computes the trilinear-weighted downsample of the 3x3x3
// neighbourhood centered on dstAbs's own corresponding source voxel
// (spec.md §4.6).
func densityKernel(src []byte, srcRect geom.IntRect3, dstAbs geom.Vec3i) byte {
	anchor := geom.Vec3i{X: dstAbs.X * 2, Y: dstAbs.Y * 2, Z: dstAbs.Z * 2}
	sum := 0
	for oz := -1; oz <= 1; oz++ {
		for oy := -1; oy <= 1; oy++ {
			for ox := -1; ox <= 1; ox++ {
				weight := mgl32.Vec3{
					float32(axisWeight(ox)),
					float32(axisWeight(oy)),
					float32(axisWeight(oz)),
				}
				w := int(weight.X() * weight.Y() * weight.Z())
				p := anchor.Add(geom.Vec3i{X: ox, Y: oy, Z: oz})
				sum += int(sampleAt(src, srcRect, p)) * w
			}
		}
	}
	v := sum / trilinearWeightSum
	if v > 255 {
		v = 255
	}
	return byte(v)
}

// materialSample is nearest-center sampling: the destination byte is
// whatever the source's own corresponding center voxel holds, with no
// blending (spec.md §4.6: material usage never averages across materials).
func materialSample(src []byte, srcRect geom.IntRect3, dstAbs geom.Vec3i) byte {
	center := geom.Vec3i{X: dstAbs.X*2 + 1, Y: dstAbs.Y*2 + 1, Z: dstAbs.Z*2 + 1}
	return sampleAt(src, srcRect, center)
}

// GenerateLOD derives level+1 voxels from level voxels inside dst's
// fetch window, writing the result back via Set. It returns the rect it
// actually touched at level+1 (equal to dst unless dst had to be split to
// stay within the pre-allocated scratch buffers, in which case it's the
// union of the recursive halves) (spec.md §4.6).
func (w *World) GenerateLOD(level int, dst geom.IntRect3) (geom.IntRect3, error) {
	if dst.Empty() {
		return geom.IntRect3{}, nil
	}

	src := fetchWindow(dst)
	// A single destination voxel can't be split further; for brick
	// dimensions small enough that even its bordered fetch window exceeds
	// scratch1, fall through to a one-off allocation below rather than
	// looping forever trying to shrink an already-minimal rect.
	if dst.Volume() > 1 && (src.Volume() > len(w.scratch1) || dst.Volume() > len(w.scratch2)) {
		a, b := dst.SplitLongestAxis()
		ra, err := w.GenerateLOD(level, a)
		if err != nil {
			return geom.IntRect3{}, err
		}
		rb, err := w.GenerateLOD(level, b)
		if err != nil {
			return geom.IntRect3{}, err
		}
		return ra.Union(rb), nil
	}

	switch w.Stat(level, src) {
	case StatusEmpty:
		if err := w.FillRegion(level+1, dst, 0); err != nil {
			return geom.IntRect3{}, err
		}
		return dst, nil
	case StatusFull:
		sample := w.scratch1[:1]
		if err := w.GetRegion(level, geom.RectFromSize(src.P1, 1, 1, 1), sample); err != nil {
			return geom.IntRect3{}, err
		}
		if err := w.FillRegion(level+1, dst, sample[0]); err != nil {
			return geom.IntRect3{}, err
		}
		return dst, nil
	}

	var srcBuf []byte
	if src.Volume() > len(w.scratch1) {
		srcBuf = make([]byte, src.Volume())
	} else {
		srcBuf = w.scratch1[:src.Volume()]
	}
	if err := w.GetRegion(level, src, srcBuf); err != nil {
		return geom.IntRect3{}, err
	}

	var dstBuf []byte
	if dst.Volume() > len(w.scratch2) {
		dstBuf = make([]byte, dst.Volume())
	} else {
		dstBuf = w.scratch2[:dst.Volume()]
	}
	dw, dh := dst.Width(), dst.Height()
	sample := materialSample
	if w.usage == octree.Density {
		sample = densityKernel
	}
	for z := 0; z < dst.Depth(); z++ {
		for y := 0; y < dh; y++ {
			for x := 0; x < dw; x++ {
				abs := geom.Vec3i{X: dst.P1.X + x, Y: dst.P1.Y + y, Z: dst.P1.Z + z}
				dstBuf[x+y*dw+z*dw*dh] = sample(srcBuf, src, abs)
			}
		}
	}

	if err := w.Set(level+1, dst, dstBuf); err != nil {
		return geom.IntRect3{}, err
	}
	return dst, nil
}

// GenerateAllLOD runs GenerateLOD repeatedly from levelStart up through the
// coarsest level, each step's output rect (expressed at level+1) feeding the
// next call as its source (spec.md §4.6: "a single updated region cascades
// upward one level at a time"). It returns the rect touched at the coarsest
// level reached; intermediate levels are left for GenerateLOD's own return
// value if a caller needs per-level dirty tracking.
func (w *World) GenerateAllLOD(levelStart int, rect geom.IntRect3) (geom.IntRect3, error) {
	batchID := uuid.NewString()
	w.log.Debugf("GenerateAllLOD batch=%s levelStart=%d rect=%s", batchID, levelStart, rect)

	cur := rect
	for level := levelStart; level < w.maxDepth; level++ {
		next, err := w.GenerateLOD(level, cur.Scale(-1))
		if err != nil {
			return geom.IntRect3{}, err
		}
		if next.Empty() {
			break
		}
		cur = next
	}
	w.log.Debugf("GenerateAllLOD batch=%s done, final=%s", batchID, cur)
	return cur, nil
}
