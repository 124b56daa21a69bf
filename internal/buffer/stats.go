package buffer

import "sync/atomic"

// Stats is a point-in-time copy of the pool counters.
type Stats struct {
	LogicalReads  uint64 // Fix calls
	LogicalWrites uint64 // Unfix(dirty=true) and MarkUsed calls
	PhysReads     uint64 // page loads through the pager
	PhysWrites    uint64 // write-backs through the pager
	PageHits      uint64
	PageMisses    uint64
}

// HitRate returns hits over successful fixes, or 0 before the first fix.
func (s Stats) HitRate() float64 {
	total := s.PageHits + s.PageMisses
	if total == 0 {
		return 0
	}
	return float64(s.PageHits) / float64(total)
}

// counters are atomics so that a metrics scrape from another goroutine can
// read them while the owning goroutine drives the pool.
type counters struct {
	logicalReads  atomic.Uint64
	logicalWrites atomic.Uint64
	physReads     atomic.Uint64
	physWrites    atomic.Uint64
	pageHits      atomic.Uint64
	pageMisses    atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		LogicalReads:  c.logicalReads.Load(),
		LogicalWrites: c.logicalWrites.Load(),
		PhysReads:     c.physReads.Load(),
		PhysWrites:    c.physWrites.Load(),
		PageHits:      c.pageHits.Load(),
		PageMisses:    c.pageMisses.Load(),
	}
}

func (c *counters) reset() {
	c.logicalReads.Store(0)
	c.logicalWrites.Store(0)
	c.physReads.Store(0)
	c.physWrites.Store(0)
	c.pageHits.Store(0)
	c.pageMisses.Store(0)
}
