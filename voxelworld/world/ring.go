package world

import (
	"github.com/voxelkeep/voxelworld/geom"
	"github.com/voxelkeep/voxelworld/vserr"
)

// updatedRegion is one entry pushed onto the ring: a (level, rect) pair a
// writer touched, for a mesh extractor or LOD driver to drain later.
type updatedRegion struct {
	Level int
	Rect  geom.IntRect3
}

// ring is the single-producer/single-consumer, fixed-capacity,
// overwrite-on-overflow queue backing World's updated-region tracking
// (spec.md §4.5, §9 — "reimplement as a small fixed-capacity queue with
// the same overwrite-on-overflow contract"). first==last holds both when
// empty and when full, so both states are detected by count, not by
// wasting a slot.
type ring struct {
	buf         []updatedRegion
	first, last int
	count       int
}

const defaultRingCapacity = 128

func newRing(capacity int) *ring {
	if capacity <= 0 {
		capacity = defaultRingCapacity
	}
	return &ring{buf: make([]updatedRegion, capacity)}
}

// push appends v, silently overwriting the oldest entry if the ring is at
// capacity (spec.md §4.5: "the oldest entry is silently overwritten").
func (r *ring) push(v updatedRegion) {
	cap := len(r.buf)
	if r.count == cap {
		r.buf[r.last] = v
		r.last = (r.last + 1) % cap
		r.first = r.last
		return
	}
	r.buf[r.last] = v
	r.last = (r.last + 1) % cap
	r.count++
}

// pop removes and returns the oldest entry, or an InvalidArgument error if
// the ring is empty (spec.md §7).
func (r *ring) pop() (updatedRegion, error) {
	if r.count == 0 {
		return updatedRegion{}, vserr.New(vserr.InvalidArgument, "world.ring.pop", "pop from empty updated-region ring")
	}
	v := r.buf[r.first]
	r.buf[r.first] = updatedRegion{}
	r.first = (r.first + 1) % len(r.buf)
	r.count--
	return v, nil
}

func (r *ring) len() int { return r.count }
