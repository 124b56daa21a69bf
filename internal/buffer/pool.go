package buffer

import (
	"container/list"
	"fmt"

	"toypf/internal/base"
)

// Pager is the persistence layer the pool loads pages from and writes dirty
// pages back to. buf is always exactly base.PageSize bytes.
type Pager interface {
	ReadPage(file base.FileID, page base.PageNum, buf []byte) error
	WritePage(file base.FileID, page base.PageNum, buf []byte) error
}

// frame is one in-memory page buffer. A frame is either resident (elem is
// set and the page table maps key to it) or on the free list (elem is nil
// and key is meaningless).
type frame struct {
	key   base.PageKey
	data  []byte
	fixed bool
	dirty bool
	elem  *list.Element
}

// FrameInfo describes a resident frame, see Pool.Frames.
type FrameInfo struct {
	Key   base.PageKey
	Fixed bool
	Dirty bool
}

// Pool is a fixed-capacity page buffer with fix/unfix discipline.
//
// A fixed page is never evicted and cannot be fixed a second time until it is
// unfixed. Recency is maintained on the used list: every fix, alloc, unfix and
// mark-used moves the frame to the front. The pool is not safe for concurrent
// use; only Stats may be called from another goroutine.
type Pool struct {
	pager    Pager
	policy   Policy
	capacity int
	frames   int // frames allocated and still owned by the pool

	table map[base.PageKey]*frame
	used  *list.List // front=MRU, back=LRU
	free  []*frame

	stats counters
	log   base.Logger
}

// New creates an empty pool. Frames are allocated lazily up to capacity.
func New(capacity int, policy Policy, pager Pager, log base.Logger) (*Pool, error) {
	if err := validate(capacity, policy); err != nil {
		return nil, err
	}
	if pager == nil {
		return nil, fmt.Errorf("nil pager: %w", base.ErrInvalidParameter)
	}
	if log == nil {
		log = base.DiscardLogger{}
	}

	return &Pool{
		pager:    pager,
		policy:   policy,
		capacity: capacity,
		table:    make(map[base.PageKey]*frame, capacity),
		used:     list.New(),
		log:      log,
	}, nil
}

func validate(capacity int, policy Policy) error {
	if capacity <= 0 || capacity > base.MaxFrames {
		return fmt.Errorf("capacity %d outside [1, %d]: %w", capacity, base.MaxFrames, base.ErrInvalidParameter)
	}
	if policy == nil {
		return fmt.Errorf("nil replacement policy: %w", base.ErrInvalidParameter)
	}
	return nil
}

// Configure sets the capacity and replacement policy and zeroes the counters.
// Shrinking below the number of allocated frames drops free frames first and
// then evicts unfixed frames with the new policy. On error no frame is dropped
// and the capacity and policy are kept. Victims written back before a failing
// write-back stay resident, clean.
func (p *Pool) Configure(capacity int, policy Policy) error {
	if err := validate(capacity, policy); err != nil {
		return err
	}
	if p.frames > capacity {
		if err := p.shrink(capacity, policy); err != nil {
			return err
		}
	}

	p.capacity = capacity
	p.policy = policy
	p.stats.reset()
	p.log.Info("buffer pool configured", "capacity", capacity, "policy", policy.String())
	return nil
}

func (p *Pool) shrink(capacity int, policy Policy) error {
	fixed := 0
	for e := p.used.Front(); e != nil; e = e.Next() {
		if e.Value.(*frame).fixed {
			fixed++
		}
	}
	if fixed > capacity {
		return fmt.Errorf("shrink to %d frames with %d fixed: %w", capacity, fixed, base.ErrNoBufferSpace)
	}

	excess := p.frames - capacity
	drop := min(excess, len(p.free))

	// Victims are chosen and written back before any frame is given up, so a
	// failed write-back leaves every frame in place.
	chosen := make(map[*frame]bool, excess-drop)
	victims := make([]*frame, 0, excess-drop)
	for len(victims) < excess-drop {
		e := policy.Victim(p.used, func(e *list.Element) bool {
			f := e.Value.(*frame)
			return !f.fixed && !chosen[f]
		})
		if e == nil {
			return fmt.Errorf("shrink to %d frames: %w", capacity, base.ErrNoBufferSpace)
		}
		f := e.Value.(*frame)
		chosen[f] = true
		victims = append(victims, f)
	}
	for _, f := range victims {
		if err := p.writeBack(f); err != nil {
			return fmt.Errorf("shrink: evict %s: %w", f.key, err)
		}
	}

	for i := 0; i < drop; i++ {
		p.free[len(p.free)-1] = nil
		p.free = p.free[:len(p.free)-1]
	}
	for _, f := range victims {
		p.unlink(f)
	}
	p.frames -= excess
	return nil
}

// Fix pins a page in the buffer, loading it through the pager on a miss, and
// returns its bytes. If the page is already fixed, the bytes are returned
// together with ErrAlreadyFixed.
func (p *Pool) Fix(file base.FileID, page base.PageNum) ([]byte, error) {
	key := base.PageKey{File: file, Page: page}
	p.stats.logicalReads.Add(1)

	if f, ok := p.table[key]; ok {
		if f.fixed {
			return f.data, fmt.Errorf("fix %s: %w", key, base.ErrAlreadyFixed)
		}
		f.fixed = true
		p.used.MoveToFront(f.elem)
		p.stats.pageHits.Add(1)
		return f.data, nil
	}

	f, err := p.grab()
	if err != nil {
		return nil, fmt.Errorf("fix %s: %w", key, err)
	}

	p.stats.physReads.Add(1)
	if err := p.pager.ReadPage(file, page, f.data); err != nil {
		p.release(f)
		return nil, fmt.Errorf("fix %s: %w", key, err)
	}

	p.install(f, key)
	p.stats.pageMisses.Add(1)
	return f.data, nil
}

// Alloc claims a frame for a page that does not exist on disk yet. The
// returned bytes are zeroed and the frame is fixed and clean; the caller
// initializes the contents and unfixes it dirty.
func (p *Pool) Alloc(file base.FileID, page base.PageNum) ([]byte, error) {
	key := base.PageKey{File: file, Page: page}
	if _, ok := p.table[key]; ok {
		return nil, fmt.Errorf("alloc %s: %w", key, base.ErrPageAlreadyBuffered)
	}

	f, err := p.grab()
	if err != nil {
		return nil, fmt.Errorf("alloc %s: %w", key, err)
	}
	clear(f.data)
	p.install(f, key)
	return f.data, nil
}

// Unfix releases a fixed page. dirty=true marks the page as modified; a dirty
// page stays dirty until it is written back, so a later clean unfix does not
// reset it.
func (p *Pool) Unfix(file base.FileID, page base.PageNum, dirty bool) error {
	f, err := p.fixedFrame("unfix", file, page)
	if err != nil {
		return err
	}

	if dirty {
		f.dirty = true
		p.stats.logicalWrites.Add(1)
	}
	f.fixed = false
	p.used.MoveToFront(f.elem)
	return nil
}

// MarkUsed marks a fixed page dirty and most recently used without unfixing it.
func (p *Pool) MarkUsed(file base.FileID, page base.PageNum) error {
	f, err := p.fixedFrame("mark used", file, page)
	if err != nil {
		return err
	}

	f.dirty = true
	p.stats.logicalWrites.Add(1)
	p.used.MoveToFront(f.elem)
	return nil
}

func (p *Pool) fixedFrame(op string, file base.FileID, page base.PageNum) (*frame, error) {
	key := base.PageKey{File: file, Page: page}
	f, ok := p.table[key]
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", op, key, base.ErrNotInBuffer)
	}
	if !f.fixed {
		return nil, fmt.Errorf("%s %s: %w", op, key, base.ErrNotFixed)
	}
	return f, nil
}

// ReleaseFile writes back and frees every resident page of file. The used
// list is walked from the front and the walk stops at the first fixed page of
// file with ErrPageFixed; pages released before that point stay released.
func (p *Pool) ReleaseFile(file base.FileID) error {
	for e := p.used.Front(); e != nil; {
		f := e.Value.(*frame)
		next := e.Next()
		if f.key.File != file {
			e = next
			continue
		}

		if f.fixed {
			p.log.Warn("release stopped at fixed page", "file", file, "page", f.key.Page)
			return fmt.Errorf("release %s: %w", f.key, base.ErrPageFixed)
		}
		if err := p.writeBack(f); err != nil {
			return fmt.Errorf("release %s: %w", f.key, err)
		}
		p.unlink(f)
		p.release(f)
		e = next
	}
	return nil
}

// grab returns an unlinked frame: from the free list, freshly allocated while
// under capacity, or evicted from the used list.
func (p *Pool) grab() (*frame, error) {
	if n := len(p.free); n > 0 {
		f := p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		return f, nil
	}
	if p.frames < p.capacity {
		p.frames++
		return &frame{data: make([]byte, base.PageSize)}, nil
	}
	return p.evict()
}

func (p *Pool) evict() (*frame, error) {
	e := p.policy.Victim(p.used, func(e *list.Element) bool {
		return !e.Value.(*frame).fixed
	})
	if e == nil {
		p.log.Warn("no unfixed frame to evict", "resident", p.used.Len(), "policy", p.policy.String())
		return nil, base.ErrNoBufferSpace
	}

	f := e.Value.(*frame)
	if err := p.writeBack(f); err != nil {
		return nil, fmt.Errorf("evict %s: %w", f.key, err)
	}
	p.unlink(f)
	return f, nil
}

func (p *Pool) writeBack(f *frame) error {
	if !f.dirty {
		return nil
	}
	p.stats.physWrites.Add(1)
	if err := p.pager.WritePage(f.key.File, f.key.Page, f.data); err != nil {
		p.log.Error("page write-back failed", "file", f.key.File, "page", f.key.Page, "error", err)
		return err
	}
	f.dirty = false
	return nil
}

func (p *Pool) install(f *frame, key base.PageKey) {
	f.key = key
	f.fixed = true
	f.dirty = false
	f.elem = p.used.PushFront(f)
	p.table[key] = f
}

func (p *Pool) unlink(f *frame) {
	if p.table[f.key] != f {
		panic(fmt.Sprintf("buffer: page table has no entry for resident %s", f.key))
	}
	delete(p.table, f.key)
	p.used.Remove(f.elem)
	f.elem = nil
}

func (p *Pool) release(f *frame) {
	f.key = base.PageKey{}
	f.fixed = false
	f.dirty = false
	p.free = append(p.free, f)
}

// Stats returns a snapshot of the counters.
func (p *Pool) Stats() Stats {
	return p.stats.snapshot()
}

// Frames lists the resident pages from most to least recently used.
func (p *Pool) Frames() []FrameInfo {
	out := make([]FrameInfo, 0, p.used.Len())
	for e := p.used.Front(); e != nil; e = e.Next() {
		f := e.Value.(*frame)
		out = append(out, FrameInfo{Key: f.key, Fixed: f.fixed, Dirty: f.dirty})
	}
	return out
}

// Resident returns the number of frames holding a page.
func (p *Pool) Resident() int { return p.used.Len() }

// Free returns the number of frames on the free list.
func (p *Pool) Free() int { return len(p.free) }

// Capacity returns the configured maximum number of frames.
func (p *Pool) Capacity() int { return p.capacity }

// Policy returns the active replacement policy.
func (p *Pool) Policy() Policy { return p.policy }
