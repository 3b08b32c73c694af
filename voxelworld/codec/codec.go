// Package codec provides little-endian fixed-width encode/decode helpers
// over a byte stream, the only serialization format the on-disk world
// manifest, octree index and brick histogram headers use (spec.md §4.4.5,
// §6: "little-endian everywhere; this is the only format the loader
// accepts").
package codec

import (
	"encoding/binary"
	"io"
)

// Writer wraps an io.Writer with little-endian fixed-width primitives,
// threading the first write error through every subsequent call so callers
// can issue a sequence of writes and check err once at the end — the same
// shape as bufio.Writer's error-sticky convention.
type Writer struct {
	w   io.Writer
	err error
}

func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

func (w *Writer) Err() error { return w.err }

func (w *Writer) write(b []byte) {
	if w.err != nil {
		return
	}
	_, w.err = w.w.Write(b)
}

func (w *Writer) PutUint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.write(b[:])
}

func (w *Writer) PutInt32(v int32) { w.PutUint32(uint32(v)) }

func (w *Writer) PutUint64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.write(b[:])
}

func (w *Writer) PutInt64(v int64) { w.PutUint64(uint64(v)) }

func (w *Writer) PutBytes(b []byte) { w.write(b) }

// Reader is the decode-side counterpart of Writer.
type Reader struct {
	r   io.Reader
	err error
}

func NewReader(r io.Reader) *Reader { return &Reader{r: r} }

func (r *Reader) Err() error { return r.err }

func (r *Reader) read(b []byte) {
	if r.err != nil {
		return
	}
	_, r.err = io.ReadFull(r.r, b)
}

func (r *Reader) Uint32() uint32 {
	var b [4]byte
	r.read(b[:])
	if r.err != nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b[:])
}

func (r *Reader) Int32() int32 { return int32(r.Uint32()) }

func (r *Reader) Uint64() uint64 {
	var b [8]byte
	r.read(b[:])
	if r.err != nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b[:])
}

func (r *Reader) Int64() int64 { return int64(r.Uint64()) }

func (r *Reader) Bytes(n int) []byte {
	b := make([]byte, n)
	r.read(b)
	if r.err != nil {
		return nil
	}
	return b
}

// PutUint32At/Uint32At and PutInt64At/Int64At encode/decode directly
// into/from a byte slice at a given offset. The brick histogram header,
// built in memory before one write, uses the Int64 pair.
func PutUint32At(b []byte, off int, v uint32) { binary.LittleEndian.PutUint32(b[off:], v) }
func PutInt64At(b []byte, off int, v int64)   { binary.LittleEndian.PutUint64(b[off:], uint64(v)) }
func Uint32At(b []byte, off int) uint32       { return binary.LittleEndian.Uint32(b[off:]) }
func Int64At(b []byte, off int) int64         { return int64(binary.LittleEndian.Uint64(b[off:])) }
