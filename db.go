package toypf

import (
	"errors"
	"fmt"

	"toypf/internal/base"
	"toypf/internal/buffer"
	"toypf/internal/storage"
)

const (
	// PageSize is the size of every page, on disk and in a frame.
	PageSize = base.PageSize

	// MaxFrames is the largest buffer pool capacity.
	MaxFrames = base.MaxFrames

	// DefaultFrames is the capacity used when WithCapacity is not given.
	DefaultFrames = base.DefaultFrames
)

type (
	FileID    = base.FileID
	PageNum   = base.PageNum
	Policy    = buffer.Policy
	Stats     = buffer.Stats
	FrameInfo = buffer.FrameInfo
)

//goland:noinspection GoUnusedGlobalVariable
var (
	LRU = buffer.LRU
	MRU = buffer.MRU
)

// ParsePolicy maps "lru" or "mru" to a Policy.
func ParsePolicy(name string) (Policy, error) {
	return buffer.ParsePolicy(name)
}

// DB is a paged-file manager: a set of open page files sharing one buffer
// pool. A page must be fixed (GetThisPage, AllocPage) before its bytes are
// touched and unfixed (UnfixPage) afterwards; the returned slice is only
// valid while the page is fixed.
//
// A DB is not safe for concurrent use. The collector returned by Collector
// may be scraped from another goroutine.
type DB struct {
	store *storage.Storage
	pool  *buffer.Pool
	log   Logger

	syncOnClose bool
	closed      bool
}

// New creates a DB with no open files.
func New(options ...Option) (*DB, error) {
	// Apply options
	opts := DefaultOptions()
	for _, opt := range options {
		opt(&opts)
	}
	if opts.logger == nil {
		opts.logger = DiscardLogger{}
	}

	store, err := storage.New(opts.fileCache, opts.logger)
	if err != nil {
		return nil, err
	}
	pool, err := buffer.New(opts.capacity, opts.policy, store, opts.logger)
	if err != nil {
		return nil, err
	}

	return &DB{
		store:       store,
		pool:        pool,
		log:         opts.logger,
		syncOnClose: opts.syncOnClose,
	}, nil
}

// Configure changes the pool capacity and replacement policy and zeroes the
// statistics. See buffer.Pool.Configure for shrinking.
func (d *DB) Configure(capacity int, policy Policy) error {
	if d.closed {
		return ErrDatabaseClosed
	}
	return d.pool.Configure(capacity, policy)
}

// CreateFile creates an empty page file. It fails if path exists.
func (d *DB) CreateFile(path string) error {
	if d.closed {
		return ErrDatabaseClosed
	}
	return d.store.Create(path)
}

// OpenFile opens a page file and returns its descriptor.
func (d *DB) OpenFile(path string) (FileID, error) {
	if d.closed {
		return 0, ErrDatabaseClosed
	}
	return d.store.Open(path)
}

// CloseFile writes back and drops every buffered page of fd, then closes it.
// If a page of fd is still fixed, the file stays open and ErrPageFixed is
// returned; pages released before the fixed one stay released.
func (d *DB) CloseFile(fd FileID) error {
	if !d.store.IsOpen(fd) {
		return fmt.Errorf("close file %d: %w", fd, ErrFileNotOpen)
	}
	if err := d.pool.ReleaseFile(fd); err != nil {
		return err
	}
	if d.syncOnClose {
		if err := d.store.Sync(fd); err != nil {
			return fmt.Errorf("sync file %d: %w", fd, err)
		}
	}
	return d.store.Close(fd)
}

// DestroyFile removes a page file. It fails while the file is open.
func (d *DB) DestroyFile(path string) error {
	if d.closed {
		return ErrDatabaseClosed
	}
	return d.store.Destroy(path)
}

// GetThisPage fixes page of fd and returns its bytes. A page outside the
// file fails with ErrInvalidPage without touching the pool. A page that is
// already fixed returns its bytes together with ErrAlreadyFixed.
func (d *DB) GetThisPage(fd FileID, page PageNum) ([]byte, error) {
	if d.closed {
		return nil, ErrDatabaseClosed
	}
	if err := d.store.CheckPage(fd, page); err != nil {
		return nil, err
	}
	return d.pool.Fix(fd, page)
}

// AllocPage appends a page to fd and returns it fixed and zeroed. The caller
// initializes it and unfixes it dirty.
func (d *DB) AllocPage(fd FileID) (PageNum, []byte, error) {
	if d.closed {
		return 0, nil, ErrDatabaseClosed
	}
	page, err := d.store.AllocPage(fd)
	if err != nil {
		return 0, nil, err
	}
	data, err := d.pool.Alloc(fd, page)
	if err != nil {
		return 0, nil, err
	}
	return page, data, nil
}

// UnfixPage releases a page fixed by GetThisPage or AllocPage. dirty marks
// the page for write-back.
func (d *DB) UnfixPage(fd FileID, page PageNum, dirty bool) error {
	if d.closed {
		return ErrDatabaseClosed
	}
	return d.pool.Unfix(fd, page, dirty)
}

// MarkUsed marks a fixed page dirty and most recently used.
func (d *DB) MarkUsed(fd FileID, page PageNum) error {
	if d.closed {
		return ErrDatabaseClosed
	}
	return d.pool.MarkUsed(fd, page)
}

// NumPages returns the number of pages in fd.
func (d *DB) NumPages(fd FileID) (int, error) {
	if d.closed {
		return 0, ErrDatabaseClosed
	}
	return d.store.NumPages(fd)
}

// Stats returns the buffer pool counters since the last Configure.
func (d *DB) Stats() Stats {
	return d.pool.Stats()
}

// Frames lists the resident pages from most to least recently used.
func (d *DB) Frames() []FrameInfo {
	return d.pool.Frames()
}

// Close closes every open file. Files with a fixed page stay open and are
// reported in the returned error; the DB remains usable so the pages can be
// unfixed and Close retried.
func (d *DB) Close() error {
	if d.closed {
		return nil
	}

	var errs []error
	for _, fd := range d.store.Files() {
		if err := d.CloseFile(fd); err != nil {
			d.log.Error("closing file", "file", fd, "error", err)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	d.closed = true
	return nil
}

// withPage runs fn on a fixed page and unfixes it on every exit path, dirty
// if fn reports a modification.
func (d *DB) withPage(fd FileID, page PageNum, fn func(data []byte) (dirty bool, err error)) (err error) {
	data, err := d.GetThisPage(fd, page)
	if err != nil {
		return err
	}

	dirty := false
	defer func() {
		if uerr := d.pool.Unfix(fd, page, dirty); uerr != nil && err == nil {
			err = uerr
		}
	}()
	dirty, err = fn(data)
	return err
}

// withNewPage is withPage for a freshly allocated page. The page is always
// unfixed dirty since it does not exist on disk yet.
func (d *DB) withNewPage(fd FileID, fn func(page PageNum, data []byte) error) (err error) {
	page, data, err := d.AllocPage(fd)
	if err != nil {
		return err
	}

	defer func() {
		if uerr := d.pool.Unfix(fd, page, true); uerr != nil && err == nil {
			err = uerr
		}
	}()
	return fn(page, data)
}
