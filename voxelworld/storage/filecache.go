package storage

import (
	"github.com/voxelkeep/voxelworld/vserr"
)

// fileCacheEntry is one open handle, kept in a doubly-linked list ordered by
// recency of use (most-recently-used at head), mirroring the
// insertFront/unlinkEntry shape of a production in-memory LRU — adapted here
// for refcounted file handles instead of arbitrary cached values.
type fileCacheEntry struct {
	path string
	file File
	refs int

	next, prev *fileCacheEntry
}

// FileCache is a bounded LRU of open File handles, shared process-wide
// across octrees (spec.md §4.3: "a single shared FileCache bounds the number
// of file descriptors held open at once, independent of how many octrees
// are live"). Acquire/Release are reference-counted: an entry with
// outstanding references is never evicted, even if the cache is over
// budget, because a concurrent reader still holds its File value.
//
// The storage layer runs under the single cooperative thread of execution
// spec.md §5 describes, so FileCache carries no internal locking.
type FileCache struct {
	fs      FileSystem
	maxOpen int
	open    int

	entries    map[string]*fileCacheEntry
	head, tail *fileCacheEntry
}

// NewFileCache returns a FileCache that opens files through fs and keeps at
// most maxOpen handles with zero outstanding references resident.
func NewFileCache(fs FileSystem, maxOpen int) *FileCache {
	if maxOpen < 1 {
		maxOpen = 1
	}
	return &FileCache{
		fs:      fs,
		maxOpen: maxOpen,
		entries: make(map[string]*fileCacheEntry),
	}
}

// Acquire returns the File for path, opening it via fs if it is not already
// resident, and increments its reference count. Callers must call Release
// exactly once per successful Acquire.
func (fc *FileCache) Acquire(path string, flag OpenFlag) (File, error) {
	const op = "FileCache.Acquire"
	if e, ok := fc.entries[path]; ok {
		e.refs++
		fc.touch(e)
		return e.file, nil
	}

	f, err := fc.fs.Open(path, flag)
	if err != nil {
		return nil, vserr.Wrap(vserr.IO, op, err)
	}

	e := &fileCacheEntry{path: path, file: f, refs: 1}
	fc.entries[path] = e
	fc.insertFront(e)
	fc.open++

	fc.evictExcess()
	return f, nil
}

// Release decrements path's reference count. Once it reaches zero the entry
// becomes eligible for eviction, but stays open (and in the LRU) until the
// cache is over budget.
func (fc *FileCache) Release(path string) error {
	const op = "FileCache.Release"
	e, ok := fc.entries[path]
	if !ok {
		return vserr.New(vserr.InvalidArgument, op, "path not held by cache: "+path)
	}
	if e.refs > 0 {
		e.refs--
	}
	fc.evictExcess()
	return nil
}

// evictExcess closes least-recently-used, zero-refcount entries until the
// cache is at or below its budget.
func (fc *FileCache) evictExcess() {
	e := fc.tail
	for fc.open > fc.maxOpen && e != nil {
		prev := e.prev
		if e.refs == 0 {
			fc.evict(e)
		}
		e = prev
	}
}

func (fc *FileCache) evict(e *fileCacheEntry) {
	fc.unlink(e)
	delete(fc.entries, e.path)
	fc.open--
	_ = e.file.Close()
}

// CloseAll force-closes every entry, regardless of outstanding references.
// Used at process shutdown.
func (fc *FileCache) CloseAll() error {
	var firstErr error
	for e := fc.head; e != nil; {
		next := e.next
		if err := e.file.Close(); err != nil && firstErr == nil {
			firstErr = vserr.Wrap(vserr.IO, "FileCache.CloseAll", err)
		}
		e = next
	}
	fc.entries = make(map[string]*fileCacheEntry)
	fc.head, fc.tail = nil, nil
	fc.open = 0
	return firstErr
}

// Len reports the number of handles currently resident, used by tests to
// assert the LRU bound holds.
func (fc *FileCache) Len() int { return fc.open }

func (fc *FileCache) touch(e *fileCacheEntry) {
	if e == fc.head {
		return
	}
	fc.unlink(e)
	fc.insertFront(e)
}

func (fc *FileCache) insertFront(e *fileCacheEntry) {
	e.next = fc.head
	e.prev = nil
	if fc.head != nil {
		fc.head.prev = e
	}
	fc.head = e
	if fc.tail == nil {
		fc.tail = e
	}
}

func (fc *FileCache) unlink(e *fileCacheEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		fc.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		fc.tail = e.prev
	}
	e.next, e.prev = nil, nil
}
