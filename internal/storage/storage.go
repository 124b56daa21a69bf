package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/elastic/go-freelru"

	"toypf/internal/base"
)

// DefaultHandleCache is the number of OS file handles kept open at once.
const DefaultHandleCache = 16

// pagedFile is the bookkeeping for one open file. The OS handle lives in the
// handle cache and may be closed and reopened behind it.
type pagedFile struct {
	path     string
	numPages int
}

// Storage maps (file, page) to byte ranges of plain page files. A file holds
// numPages*PageSize bytes and nothing else.
//
// Open files are tracked by FileID. At most the handle cache capacity of OS
// descriptors are held; the least recently used one is closed when another
// file needs a descriptor and reopened on its next access.
type Storage struct {
	files   map[base.FileID]*pagedFile
	handles *freelru.LRU[base.FileID, *os.File]
	nextID  base.FileID
	log     base.Logger

	// Stats counters
	reads  atomic.Uint64
	writes atomic.Uint64
	opens  atomic.Uint64
}

func hashFileID(id base.FileID) uint32 {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(id))
	return uint32(xxhash.Sum64(b[:]))
}

// New creates a storage backend that keeps up to handleCache descriptors open.
func New(handleCache int, log base.Logger) (*Storage, error) {
	if handleCache <= 0 {
		return nil, fmt.Errorf("handle cache size %d: %w", handleCache, base.ErrInvalidParameter)
	}
	if log == nil {
		log = base.DiscardLogger{}
	}

	handles, err := freelru.NewWithSize[base.FileID, *os.File](
		uint32(handleCache), tableSize(handleCache), hashFileID)
	if err != nil {
		return nil, err
	}
	handles.SetOnEvict(func(id base.FileID, f *os.File) {
		if err := f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			log.Warn("closing evicted file handle", "file", id, "error", err)
		}
	})

	return &Storage{
		files:   make(map[base.FileID]*pagedFile),
		handles: handles,
		nextID:  1,
		log:     log,
	}, nil
}

// tableSize rounds n up to a power of two for the handle cache hash table.
func tableSize(n int) uint32 {
	size := uint32(1)
	for size < uint32(n) {
		size <<= 1
	}
	return size
}

// Create makes a new empty page file. It fails with ErrFileExists if path
// already exists.
func (s *Storage) Create(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("create %s: %w", path, base.ErrFileExists)
		}
		return err
	}
	return f.Close()
}

// Open opens an existing page file and returns its id. The same path may be
// opened more than once; every open gets a distinct id.
func (s *Storage) Open(path string) (base.FileID, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, err
	}
	f, err := s.openHandle(abs)
	if err != nil {
		return 0, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return 0, err
	}
	if info.Size()%base.PageSize != 0 {
		f.Close()
		return 0, fmt.Errorf("open %s: size %d is not a multiple of %d: %w",
			path, info.Size(), base.PageSize, base.ErrCorruption)
	}

	id := s.nextID
	s.nextID++
	s.files[id] = &pagedFile{path: abs, numPages: int(info.Size() / base.PageSize)}
	s.handles.Add(id, f)
	s.log.Info("opened page file", "file", id, "path", abs, "pages", s.files[id].numPages)
	return id, nil
}

func (s *Storage) openHandle(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	s.opens.Add(1)
	if err := adviseRandom(f); err != nil {
		s.log.Warn("fadvise failed", "path", path, "error", err)
	}
	return f, nil
}

// handle returns the OS descriptor of id, reopening it if it was evicted.
func (s *Storage) handle(id base.FileID) (*pagedFile, *os.File, error) {
	pf, ok := s.files[id]
	if !ok {
		return nil, nil, fmt.Errorf("file %d: %w", id, base.ErrFileNotOpen)
	}
	if f, ok := s.handles.Get(id); ok {
		return pf, f, nil
	}

	f, err := s.openHandle(pf.path)
	if err != nil {
		return nil, nil, fmt.Errorf("reopen %s: %w", pf.path, err)
	}
	s.handles.Add(id, f)
	return pf, f, nil
}

// Close forgets id and closes its descriptor.
func (s *Storage) Close(id base.FileID) error {
	pf, ok := s.files[id]
	if !ok {
		return fmt.Errorf("close file %d: %w", id, base.ErrFileNotOpen)
	}
	delete(s.files, id)

	f, ok := s.handles.Peek(id)
	if !ok {
		return nil
	}
	s.handles.Remove(id)
	if err := f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("close %s: %w", pf.path, err)
	}
	s.log.Info("closed page file", "file", id, "path", pf.path)
	return nil
}

// Destroy removes the file at path. It fails with ErrFileOpen while any id
// still refers to it.
func (s *Storage) Destroy(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	for id, pf := range s.files {
		if pf.path == abs {
			return fmt.Errorf("destroy %s (file %d): %w", path, id, base.ErrFileOpen)
		}
	}
	return os.Remove(abs)
}

// IsOpen reports whether id refers to an open file.
func (s *Storage) IsOpen(id base.FileID) bool {
	_, ok := s.files[id]
	return ok
}

// Files returns the ids of every open file in ascending order.
func (s *Storage) Files() []base.FileID {
	return slices.Sorted(maps.Keys(s.files))
}

// NumPages returns the page extent of id.
func (s *Storage) NumPages(id base.FileID) (int, error) {
	pf, ok := s.files[id]
	if !ok {
		return 0, fmt.Errorf("file %d: %w", id, base.ErrFileNotOpen)
	}
	return pf.numPages, nil
}

// CheckPage returns ErrInvalidPage unless page is within the extent of id.
func (s *Storage) CheckPage(id base.FileID, page base.PageNum) error {
	n, err := s.NumPages(id)
	if err != nil {
		return err
	}
	if page < 0 || int(page) >= n {
		return fmt.Errorf("file %d page %d of %d: %w", id, page, n, base.ErrInvalidPage)
	}
	return nil
}

// AllocPage grows id by one zeroed page and returns its number.
func (s *Storage) AllocPage(id base.FileID) (base.PageNum, error) {
	pf, f, err := s.handle(id)
	if err != nil {
		return 0, err
	}
	if err := f.Truncate(int64(pf.numPages+1) * base.PageSize); err != nil {
		return 0, fmt.Errorf("extend %s: %w", pf.path, err)
	}
	pf.numPages++
	return base.PageNum(pf.numPages - 1), nil
}

// ReadPage fills buf with the contents of page. Bytes past the end of the
// file read as zero.
func (s *Storage) ReadPage(id base.FileID, page base.PageNum, buf []byte) error {
	if err := s.CheckPage(id, page); err != nil {
		return err
	}
	_, f, err := s.handle(id)
	if err != nil {
		return err
	}

	s.reads.Add(1)
	n, err := f.ReadAt(buf[:base.PageSize], int64(page)*base.PageSize)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	clear(buf[n:base.PageSize])
	return nil
}

// WritePage writes buf as page.
func (s *Storage) WritePage(id base.FileID, page base.PageNum, buf []byte) error {
	if err := s.CheckPage(id, page); err != nil {
		return err
	}
	_, f, err := s.handle(id)
	if err != nil {
		return err
	}

	s.writes.Add(1)
	n, err := f.WriteAt(buf[:base.PageSize], int64(page)*base.PageSize)
	if err != nil {
		return err
	}
	if n != base.PageSize {
		return fmt.Errorf("short write: wrote %d bytes, expected %d", n, base.PageSize)
	}
	return nil
}

// Sync flushes written pages of id to stable storage.
func (s *Storage) Sync(id base.FileID) error {
	_, f, err := s.handle(id)
	if err != nil {
		return err
	}
	return datasync(f)
}

// Stats holds I/O statistics
type Stats struct {
	Reads  uint64
	Writes uint64
	Opens  uint64 // descriptors opened, reopens after eviction included
}

// Stats returns I/O statistics. Safe to call from any goroutine.
func (s *Storage) Stats() Stats {
	return Stats{
		Reads:  s.reads.Load(),
		Writes: s.writes.Load(),
		Opens:  s.opens.Load(),
	}
}

// Handles returns the number of descriptors currently open.
func (s *Storage) Handles() int {
	return s.handles.Len()
}
