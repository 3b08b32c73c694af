package storage

import (
	"compress/zlib"
	"io"

	"github.com/voxelkeep/voxelworld/brick"
	"github.com/voxelkeep/voxelworld/codec"
	"github.com/voxelkeep/voxelworld/vserr"
)

// HistogramHeaderSize is the fixed size, in bytes, of the 256-entry
// signed-64-bit little-endian histogram header every brick file starts
// with (spec.md §4.2, §6).
const HistogramHeaderSize = 256 * 8

// BrickFile is the on-disk representation of a single octree node's brick:
// a fixed histogram header followed by a zlib-deflate-compressed payload of
// the raw W·H·D·C brick bytes (spec.md §4.2).
type BrickFile struct {
	file File
	path string
}

// OpenBrickFile opens (and, with storage.Create, creates) the brick file at
// path. The implementation need not keep the handle open continuously —
// that decision belongs to FileCache (spec.md §4.2).
func OpenBrickFile(fs FileSystem, path string, flag OpenFlag) (*BrickFile, error) {
	f, err := fs.Open(path, flag)
	if err != nil {
		return nil, vserr.Wrap(vserr.IO, "BrickFile.Open", err)
	}
	return &BrickFile{file: f, path: path}, nil
}

// FromHandle wraps an already-open File (as handed out by FileCache) as a
// BrickFile without performing another fs.Open.
func FromHandle(path string, f File) *BrickFile {
	return &BrickFile{file: f, path: path}
}

func (bf *BrickFile) Path() string { return bf.path }

func (bf *BrickFile) Close() error {
	if err := bf.file.Close(); err != nil {
		return vserr.Wrap(vserr.IO, "BrickFile.Close", err)
	}
	return nil
}

func (bf *BrickFile) Length() (int64, error) {
	n, err := bf.file.Length()
	if err != nil {
		return 0, vserr.Wrap(vserr.IO, "BrickFile.Length", err)
	}
	return n, nil
}

// Rewind seeks to the start of the file.
func (bf *BrickFile) Rewind() error {
	if _, err := bf.file.Seek(0, io.SeekStart); err != nil {
		return vserr.Wrap(vserr.IO, "BrickFile.Rewind", err)
	}
	return nil
}

func (bf *BrickFile) Truncate(n int64) error {
	if err := bf.file.Truncate(n); err != nil {
		return vserr.Wrap(vserr.IO, "BrickFile.Truncate", err)
	}
	return nil
}

func (bf *BrickFile) Seek(offset int64, whence int) (int64, error) {
	n, err := bf.file.Seek(offset, whence)
	if err != nil {
		return 0, vserr.Wrap(vserr.IO, "BrickFile.Seek", err)
	}
	return n, nil
}

func (bf *BrickFile) Read(p []byte) (int, error) {
	n, err := bf.file.Read(p)
	if err != nil && err != io.EOF {
		return n, vserr.Wrap(vserr.IO, "BrickFile.Read", err)
	}
	return n, err
}

func (bf *BrickFile) Write(p []byte) (int, error) {
	n, err := bf.file.Write(p)
	if err != nil {
		return n, vserr.Wrap(vserr.IO, "BrickFile.Write", err)
	}
	return n, nil
}

// ReadBrick reads the histogram header into hist and the decompressed
// payload into b.Data, failing with CorruptedArchive if the decompressed
// size doesn't exactly match W·H·D·C (spec.md §6).
func (bf *BrickFile) ReadBrick(b *brick.Brick, hist *[256]int64) error {
	const op = "BrickFile.ReadBrick"
	if err := bf.Rewind(); err != nil {
		return err
	}

	header := make([]byte, HistogramHeaderSize)
	if _, err := io.ReadFull(bf.file, header); err != nil {
		return vserr.Wrap(vserr.IO, op, err)
	}
	for i := 0; i < 256; i++ {
		hist[i] = codec.Int64At(header, i*8)
	}

	zr, err := zlib.NewReader(bf.file)
	if err != nil {
		return vserr.Wrap(vserr.CorruptedArchive, op, err)
	}
	defer zr.Close()

	want := len(b.Data)
	n, err := io.ReadFull(zr, b.Data)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return vserr.Wrap(vserr.IO, op, err)
	}
	if n != want {
		return vserr.New(vserr.CorruptedArchive, op, "decompressed brick size does not match W*H*D*C")
	}
	// Any further bytes would mean the brick carries trailing garbage;
	// confirm the stream is exhausted.
	var extra [1]byte
	if m, _ := zr.Read(extra[:]); m != 0 {
		return vserr.New(vserr.CorruptedArchive, op, "decompressed brick payload longer than W*H*D*C")
	}
	b.Invalidate()
	return nil
}

// WriteBrick truncates the file, then writes a fresh histogram header
// followed by the zlib-compressed brick payload. Truncating first is
// required (spec.md §4.2) so a smaller compressed payload never leaves
// tail bytes from a previous, larger version.
func (bf *BrickFile) WriteBrick(b *brick.Brick, hist *[256]int64) error {
	const op = "BrickFile.WriteBrick"
	if err := bf.Rewind(); err != nil {
		return err
	}
	if err := bf.Truncate(0); err != nil {
		return err
	}

	header := make([]byte, HistogramHeaderSize)
	for i := 0; i < 256; i++ {
		codec.PutInt64At(header, i*8, hist[i])
	}
	if _, err := bf.file.Write(header); err != nil {
		return vserr.Wrap(vserr.IO, op, err)
	}

	zw := zlib.NewWriter(bf.file)
	if _, err := zw.Write(b.Data); err != nil {
		zw.Close()
		return vserr.Wrap(vserr.IO, op, err)
	}
	if err := zw.Close(); err != nil {
		return vserr.Wrap(vserr.IO, op, err)
	}
	return nil
}
