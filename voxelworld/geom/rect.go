// Package geom implements the integer 3D geometry primitives the voxel
// storage core uses to describe regions: axis-aligned, inclusive-exclusive
// rectangles shared between world coordinates, tree-local coordinates and
// per-LOD-level coordinates.
package geom

import "fmt"

// Vec3i is an integer 3D coordinate, used for rectangle corners and for
// octree/tree keys.
type Vec3i struct {
	X, Y, Z int
}

func (v Vec3i) Add(o Vec3i) Vec3i { return Vec3i{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3i) Sub(o Vec3i) Vec3i { return Vec3i{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// IntRect3 is an axis-aligned box with an inclusive minimum corner (P1) and
// an exclusive maximum corner (P2): P1 < P2 componentwise for a non-empty
// rect. This is the region type used throughout spec.md §3/§4 for GetRegion/
// SetRegion/FillRegion arguments at any LOD level.
type IntRect3 struct {
	P1, P2 Vec3i
}

// Rect constructs an IntRect3 from two corners.
func Rect(p1, p2 Vec3i) IntRect3 { return IntRect3{P1: p1, P2: p2} }

// RectFromSize builds a rect of the given extent with its minimum corner at
// origin.
func RectFromSize(origin Vec3i, w, h, d int) IntRect3 {
	return IntRect3{P1: origin, P2: Vec3i{origin.X + w, origin.Y + h, origin.Z + d}}
}

func (r IntRect3) String() string {
	return fmt.Sprintf("(%d,%d,%d)-(%d,%d,%d)", r.P1.X, r.P1.Y, r.P1.Z, r.P2.X, r.P2.Y, r.P2.Z)
}

// Width, Height and Depth are zero for a degenerate or inverted rect.
func (r IntRect3) Width() int  { return maxInt(0, r.P2.X-r.P1.X) }
func (r IntRect3) Height() int { return maxInt(0, r.P2.Y-r.P1.Y) }
func (r IntRect3) Depth() int  { return maxInt(0, r.P2.Z-r.P1.Z) }

// Volume is the number of unit cells covered by the rect.
func (r IntRect3) Volume() int { return r.Width() * r.Height() * r.Depth() }

// Empty reports whether the rect covers zero cells.
func (r IntRect3) Empty() bool { return r.Volume() == 0 }

// Translate returns r shifted so that its origin is relative to o's minimum
// corner — "origin-relative shift" in spec.md §3, used to turn a region
// expressed in a node's parent rectangle into node-local voxel offsets.
func (r IntRect3) Translate(o Vec3i) IntRect3 {
	return IntRect3{P1: r.P1.Sub(o), P2: r.P2.Sub(o)}
}

// Scale multiplies every coordinate by 2^shift. A positive shift expands a
// coarse-LOD rectangle into finer-LOD coordinates; a negative shift
// (via ScaleDown) halves it. This implements the "power-of-two scaling"
// logical coordinate transform between LOD levels from spec.md §3.
func (r IntRect3) Scale(shift int) IntRect3 {
	if shift >= 0 {
		m := 1 << uint(shift)
		return IntRect3{
			P1: Vec3i{r.P1.X * m, r.P1.Y * m, r.P1.Z * m},
			P2: Vec3i{r.P2.X * m, r.P2.Y * m, r.P2.Z * m},
		}
	}
	return r.ScaleDown(uint(-shift))
}

// ScaleDown divides every coordinate by 2^shift, rounding the minimum
// corner down and the maximum corner up so the result still covers the
// original rect.
func (r IntRect3) ScaleDown(shift uint) IntRect3 {
	m := 1 << shift
	return IntRect3{
		P1: Vec3i{floorDiv(r.P1.X, m), floorDiv(r.P1.Y, m), floorDiv(r.P1.Z, m)},
		P2: Vec3i{ceilDiv(r.P2.X, m), ceilDiv(r.P2.Y, m), ceilDiv(r.P2.Z, m)},
	}
}

// Intersect returns the overlap of r and o. The result may be empty (check
// with Empty()).
func (r IntRect3) Intersect(o IntRect3) IntRect3 {
	p1 := Vec3i{maxInt(r.P1.X, o.P1.X), maxInt(r.P1.Y, o.P1.Y), maxInt(r.P1.Z, o.P1.Z)}
	p2 := Vec3i{minInt(r.P2.X, o.P2.X), minInt(r.P2.Y, o.P2.Y), minInt(r.P2.Z, o.P2.Z)}
	if p1.X >= p2.X || p1.Y >= p2.Y || p1.Z >= p2.Z {
		return IntRect3{}
	}
	return IntRect3{P1: p1, P2: p2}
}

// Inside reports whether r is fully contained in o.
func (r IntRect3) Inside(o IntRect3) bool {
	if r.Empty() {
		return true
	}
	return r.P1.X >= o.P1.X && r.P1.Y >= o.P1.Y && r.P1.Z >= o.P1.Z &&
		r.P2.X <= o.P2.X && r.P2.Y <= o.P2.Y && r.P2.Z <= o.P2.Z
}

// Contains reports whether o is fully contained in r. It is the mirror of
// Inside, used at octree write sites where "does the incoming rect fully
// contain this node" is the more natural phrasing (spec.md §4.4.2).
func (r IntRect3) Contains(o IntRect3) bool { return o.Inside(r) }

// Intersects reports whether r and o overlap on a non-empty volume.
func (r IntRect3) Intersects(o IntRect3) bool { return !r.Intersect(o).Empty() }

// SplitLongestAxis splits r in half along its longest axis, returning two
// rects whose union is r and whose volumes differ by at most one slab. Used
// by LOD generation (spec.md §4.6) to keep the working set bounded to the
// pre-allocated scratch buffers; see SPEC_FULL.md §7 for the termination
// argument.
func (r IntRect3) SplitLongestAxis() (IntRect3, IntRect3) {
	w, h, d := r.Width(), r.Height(), r.Depth()
	switch {
	case w >= h && w >= d:
		mid := r.P1.X + w/2
		if mid <= r.P1.X {
			mid = r.P1.X + 1
		}
		a := r
		a.P2.X = mid
		b := r
		b.P1.X = mid
		return a, b
	case h >= w && h >= d:
		mid := r.P1.Y + h/2
		if mid <= r.P1.Y {
			mid = r.P1.Y + 1
		}
		a := r
		a.P2.Y = mid
		b := r
		b.P1.Y = mid
		return a, b
	default:
		mid := r.P1.Z + d/2
		if mid <= r.P1.Z {
			mid = r.P1.Z + 1
		}
		a := r
		a.P2.Z = mid
		b := r
		b.P1.Z = mid
		return a, b
	}
}

// Union returns the smallest rect containing both r and o. An empty operand
// is ignored so that folding Union over a sequence of possibly-empty update
// rects behaves like a no-op identity element.
func (r IntRect3) Union(o IntRect3) IntRect3 {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	return IntRect3{
		P1: Vec3i{minInt(r.P1.X, o.P1.X), minInt(r.P1.Y, o.P1.Y), minInt(r.P1.Z, o.P1.Z)},
		P2: Vec3i{maxInt(r.P2.X, o.P2.X), maxInt(r.P2.Y, o.P2.Y), maxInt(r.P2.Z, o.P2.Z)},
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// floorDiv is integer division rounding toward negative infinity, needed
// throughout for negative world/tree coordinates (spec.md §4.5).
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func ceilDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) == (b < 0)) {
		q++
	}
	return q
}

// FloorDiv exposes floorDiv for callers outside this package (tree-key
// computation in voxelworld/world).
func FloorDiv(a, b int) int { return floorDiv(a, b) }
