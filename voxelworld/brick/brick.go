// Package brick implements the fixed-size 3D voxel array that is both the
// unit of on-disk storage and the unit of the octree's in-memory LRU
// (spec.md §3, §4.1). A Brick owns a contiguous W·H·D·C byte buffer; voxel
// (x,y,z) occupies C consecutive bytes starting at
// (x + y*W + z*W*H) * C.
package brick

import (
	"fmt"

	"github.com/voxelkeep/voxelworld/geom"
	"github.com/voxelkeep/voxelworld/vserr"
)

// DensityThreshold is the first-byte value at and above which a density
// voxel counts as "inside the volume" (spec.md §3).
const DensityThreshold = 128

// Brick is a fixed-dimension voxel grid. Its dimensions are immutable once
// allocated (spec.md §3 invariant); the two cached booleans are lazily
// computed and invalidated by every mutator, per spec.md §9's guidance to
// model them as explicit fields rather than atomics — there is exactly one
// thread of execution touching any given Brick (spec.md §5).
type Brick struct {
	W, H, D, C int
	Data       []byte

	emptyValid, fullValid bool
	empty, full           bool
}

// New allocates a zeroed Brick of the given dimensions. A freshly allocated
// brick is entirely zero, i.e. empty.
func New(w, h, d, c int) (*Brick, error) {
	const op = "brick.New"
	if w <= 0 || h <= 0 || d <= 0 || c <= 0 {
		return nil, vserr.New(vserr.InvalidArgument, op, "brick dimensions must be positive")
	}
	n := w * h * d * c
	data := make([]byte, n)
	return &Brick{W: w, H: h, D: d, C: c, Data: data, emptyValid: true, empty: true, fullValid: false}, nil
}

// wholeRect returns the brick's full extent in its own local coordinates.
func (b *Brick) wholeRect() geom.IntRect3 {
	return geom.RectFromSize(geom.Vec3i{}, b.W, b.H, b.D)
}

// resolveRect returns rect if non-nil, otherwise the whole brick.
func (b *Brick) resolveRect(rect *geom.IntRect3) geom.IntRect3 {
	if rect == nil {
		return b.wholeRect()
	}
	return *rect
}

func (b *Brick) invalidateCache() {
	b.emptyValid = false
	b.fullValid = false
}

// offset returns the byte offset of voxel (x,y,z)'s first channel byte.
func (b *Brick) offset(x, y, z int) int {
	return (x + y*b.W + z*b.W*b.H) * b.C
}

// VoxelAt returns the C-byte slice for voxel (x,y,z), backed by the brick's
// own buffer — mutating it mutates the brick, mirroring the C source's
// `offset(x,y,z) -> &mut byte` (spec.md §4.1). Callers that use this to
// mutate data directly are responsible for calling Invalidate afterwards.
func (b *Brick) VoxelAt(x, y, z int) []byte {
	o := b.offset(x, y, z)
	return b.Data[o : o+b.C]
}

// Invalidate clears the memoized empty/full flags. Exposed for callers that
// mutate through VoxelAt directly.
func (b *Brick) Invalidate() { b.invalidateCache() }

func clampCopyExtent(dst, src geom.IntRect3) (w, h, d int) {
	w = min3(dst.Width(), src.Width())
	h = min3(dst.Height(), src.Height())
	d = min3(dst.Depth(), src.Depth())
	return
}

func min3(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Fill writes pattern (len == b.C) into every voxel of rect (whole brick if
// nil).
func (b *Brick) Fill(rect *geom.IntRect3, pattern []byte) error {
	const op = "Brick.Fill"
	if len(pattern) != b.C {
		return vserr.New(vserr.InvalidArgument, op, "pattern length must equal channel count")
	}
	r := b.resolveRect(rect)
	for z := r.P1.Z; z < r.P2.Z; z++ {
		for y := r.P1.Y; y < r.P2.Y; y++ {
			for x := r.P1.X; x < r.P2.X; x++ {
				copy(b.VoxelAt(x, y, z), pattern)
			}
		}
	}
	b.invalidateCache()
	return nil
}

// FillCounting fills rect with a single first-channel byte value and
// returns the signed change in the density in-volume count (voxels whose
// first byte crosses the 128 threshold), per spec.md §4.1.
func (b *Brick) FillCounting(rect *geom.IntRect3, value byte) (int, error) {
	r := b.resolveRect(rect)
	if r.Empty() {
		return 0, nil
	}
	delta := 0
	newlyInside := value >= DensityThreshold
	for z := r.P1.Z; z < r.P2.Z; z++ {
		for y := r.P1.Y; y < r.P2.Y; y++ {
			for x := r.P1.X; x < r.P2.X; x++ {
				v := b.VoxelAt(x, y, z)
				wasInside := v[0] >= DensityThreshold
				if wasInside != newlyInside {
					if newlyInside {
						delta++
					} else {
						delta--
					}
				}
				v[0] = value
				for i := 1; i < b.C; i++ {
					v[i] = 0
				}
			}
		}
	}
	b.invalidateCache()
	return delta, nil
}

// FillHistogram fills rect with value and adds, for each of the 256
// possible first-byte values, the resulting count of voxels in rect holding
// that value into hist (material-usage bookkeeping, spec.md §4.1). hist is
// an output accumulator: it records the post-fill state of rect, not a
// delta against rect's prior contents — the caller (the octree node) is
// responsible for combining this with whatever it already knew about the
// region being overwritten.
func (b *Brick) FillHistogram(rect *geom.IntRect3, value byte, hist *[256]int64) error {
	r := b.resolveRect(rect)
	if r.Empty() {
		return nil
	}
	hist[value] += int64(r.Volume())
	for z := r.P1.Z; z < r.P2.Z; z++ {
		for y := r.P1.Y; y < r.P2.Y; y++ {
			for x := r.P1.X; x < r.P2.X; x++ {
				v := b.VoxelAt(x, y, z)
				v[0] = value
				for i := 1; i < b.C; i++ {
					v[i] = 0
				}
			}
		}
	}
	b.invalidateCache()
	return nil
}

// Copy copies the componentwise-minimum overlap of dstRect and srcRect from
// src into b, voxel by voxel, copying min(src.C, dst.C) bytes per voxel
// (spec.md §4.1: "widths of the two rectangles may differ — the copied
// extent is their componentwise minimum").
func (b *Brick) Copy(dstRect, srcRect *geom.IntRect3, src *Brick) error {
	dr := b.resolveRect(dstRect)
	sr := src.resolveRect(srcRect)
	w, h, d := clampCopyExtent(dr, sr)
	if w <= 0 || h <= 0 || d <= 0 {
		return nil
	}
	nc := min3(b.C, src.C)
	for z := 0; z < d; z++ {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				dv := b.VoxelAt(dr.P1.X+x, dr.P1.Y+y, dr.P1.Z+z)
				sv := src.VoxelAt(sr.P1.X+x, sr.P1.Y+y, sr.P1.Z+z)
				copy(dv[:nc], sv[:nc])
			}
		}
	}
	b.invalidateCache()
	return nil
}

// CopyCounting is Copy's density-counting counterpart: it returns the
// signed change in b's in-volume count caused by the copy.
func (b *Brick) CopyCounting(dstRect, srcRect *geom.IntRect3, src *Brick) (int, error) {
	dr := b.resolveRect(dstRect)
	sr := src.resolveRect(srcRect)
	w, h, d := clampCopyExtent(dr, sr)
	if w <= 0 || h <= 0 || d <= 0 {
		return 0, nil
	}
	nc := min3(b.C, src.C)
	delta := 0
	for z := 0; z < d; z++ {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				dv := b.VoxelAt(dr.P1.X+x, dr.P1.Y+y, dr.P1.Z+z)
				sv := src.VoxelAt(sr.P1.X+x, sr.P1.Y+y, sr.P1.Z+z)
				wasInside := dv[0] >= DensityThreshold
				copy(dv[:nc], sv[:nc])
				nowInside := dv[0] >= DensityThreshold
				if wasInside != nowInside {
					if nowInside {
						delta++
					} else {
						delta--
					}
				}
			}
		}
	}
	b.invalidateCache()
	return delta, nil
}

// CopyHistogram is Copy's material-histogram counterpart: hist[m] is
// incremented by the number of voxels in the copied destination extent that
// end up holding material m (spec.md §4.1), following the same
// output-accumulator convention as FillHistogram.
func (b *Brick) CopyHistogram(dstRect, srcRect *geom.IntRect3, src *Brick, hist *[256]int64) error {
	dr := b.resolveRect(dstRect)
	sr := src.resolveRect(srcRect)
	w, h, d := clampCopyExtent(dr, sr)
	if w <= 0 || h <= 0 || d <= 0 {
		return nil
	}
	nc := min3(b.C, src.C)
	for z := 0; z < d; z++ {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				dv := b.VoxelAt(dr.P1.X+x, dr.P1.Y+y, dr.P1.Z+z)
				sv := src.VoxelAt(sr.P1.X+x, sr.P1.Y+y, sr.P1.Z+z)
				copy(dv[:nc], sv[:nc])
				hist[dv[0]]++
			}
		}
	}
	b.invalidateCache()
	return nil
}

// Histogram returns the per-first-byte-value voxel counts of rect (whole
// brick if nil), a pure read with no side effect on the cached empty/full
// flags. Octree nodes use this to snapshot a sub-rect's distribution before
// overwriting it, so the node's persistent histogram can be updated by
// subtracting the old counts and adding FillHistogram/CopyHistogram's
// post-state counts.
func (b *Brick) Histogram(rect *geom.IntRect3) [256]int64 {
	var hist [256]int64
	r := b.resolveRect(rect)
	for z := r.P1.Z; z < r.P2.Z; z++ {
		for y := r.P1.Y; y < r.P2.Y; y++ {
			for x := r.P1.X; x < r.P2.X; x++ {
				hist[b.VoxelAt(x, y, z)[0]]++
			}
		}
	}
	return hist
}

// IsEmpty reports whether every voxel in rect (whole brick if nil) has a
// zero first byte. The whole-brick result is memoized until the next
// mutator (spec.md §4.1).
func (b *Brick) IsEmpty(rect *geom.IntRect3) bool {
	whole := rect == nil
	if whole && b.emptyValid {
		return b.empty
	}
	r := b.resolveRect(rect)
	result := true
scan:
	for z := r.P1.Z; z < r.P2.Z; z++ {
		for y := r.P1.Y; y < r.P2.Y; y++ {
			for x := r.P1.X; x < r.P2.X; x++ {
				if b.VoxelAt(x, y, z)[0] != 0 {
					result = false
					break scan
				}
			}
		}
	}
	if whole {
		b.empty = result
		b.emptyValid = true
	}
	return result
}

// IsFull reports whether every voxel in rect shares the same non-zero first
// byte as voxel (r.P1). An empty rect is vacuously not full.
func (b *Brick) IsFull(rect *geom.IntRect3) bool {
	whole := rect == nil
	if whole && b.fullValid {
		return b.full
	}
	r := b.resolveRect(rect)
	result := false
	if !r.Empty() {
		result = true
		first := b.VoxelAt(r.P1.X, r.P1.Y, r.P1.Z)[0]
		if first == 0 {
			result = false
		} else {
		scan:
			for z := r.P1.Z; z < r.P2.Z; z++ {
				for y := r.P1.Y; y < r.P2.Y; y++ {
					for x := r.P1.X; x < r.P2.X; x++ {
						if b.VoxelAt(x, y, z)[0] != first {
							result = false
							break scan
						}
					}
				}
			}
		}
	}
	if whole {
		b.full = result
		b.fullValid = true
	}
	return result
}

// FullMaterial returns the shared first-byte value of a whole-brick-full
// brick. Callers must have already checked IsFull(nil).
func (b *Brick) FullMaterial() byte { return b.Data[0] }

func (b *Brick) String() string {
	return fmt.Sprintf("Brick{%dx%dx%dx%d}", b.W, b.H, b.D, b.C)
}
