package storage

import (
	"io"
)

// memFile is an in-memory File backed by a growable byte buffer, used by
// tests and by embedders that don't need real disk persistence.
type memFile struct {
	buf []byte
	pos int64
}

func (m *memFile) Read(p []byte) (int, error) {
	if m.pos >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(p, m.buf[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *memFile) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.buf)) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	n := copy(m.buf[m.pos:end], p)
	m.pos = end
	return n, nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = m.pos
	case io.SeekEnd:
		base = int64(len(m.buf))
	}
	m.pos = base + offset
	return m.pos, nil
}

func (m *memFile) Close() error { return nil }

func (m *memFile) Truncate(size int64) error {
	if size <= int64(len(m.buf)) {
		m.buf = m.buf[:size]
		return nil
	}
	grown := make([]byte, size)
	copy(grown, m.buf)
	m.buf = grown
	return nil
}

func (m *memFile) Length() (int64, error) { return int64(len(m.buf)), nil }

// MemFileSystem is an in-process FileSystem, grounded on the same
// open/read/write/seek/close/length/truncate contract as OSFileSystem but
// never touching disk — used by package tests across storage/octree/world.
type MemFileSystem struct {
	files map[string]*memFile
}

func NewMemFileSystem() *MemFileSystem {
	return &MemFileSystem{files: make(map[string]*memFile)}
}

func (m *MemFileSystem) Open(path string, flag OpenFlag) (File, error) {
	f, ok := m.files[path]
	if !ok {
		if flag&Create == 0 {
			return nil, &notFoundError{path: path}
		}
		f = &memFile{}
		m.files[path] = f
	}
	// Every Open starts at offset 0, as a freshly opened OS handle does.
	f.pos = 0
	return f, nil
}

type notFoundError struct{ path string }

func (e *notFoundError) Error() string { return "file not found: " + e.path }
