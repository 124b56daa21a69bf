package buffer

import (
	"container/list"
	"fmt"
	"strings"

	"toypf/internal/base"
)

// Policy chooses the frame to evict. Implementations only decide the scan
// order over the recency list (front=MRU, back=LRU); whether a frame may be
// evicted at all is decided by the pool through the evictable predicate.
type Policy interface {
	// Victim returns the first element accepted by evictable, or nil.
	Victim(recency *list.List, evictable func(*list.Element) bool) *list.Element
	String() string
}

var (
	// LRU evicts the least recently touched unfixed frame.
	LRU Policy = lru{}
	// MRU evicts the most recently touched unfixed frame.
	MRU Policy = mru{}
)

type lru struct{}

func (lru) Victim(recency *list.List, evictable func(*list.Element) bool) *list.Element {
	for e := recency.Back(); e != nil; e = e.Prev() {
		if evictable(e) {
			return e
		}
	}
	return nil
}

func (lru) String() string { return "LRU" }

type mru struct{}

func (mru) Victim(recency *list.List, evictable func(*list.Element) bool) *list.Element {
	for e := recency.Front(); e != nil; e = e.Next() {
		if evictable(e) {
			return e
		}
	}
	return nil
}

func (mru) String() string { return "MRU" }

// ParsePolicy maps "lru" or "mru" (any case) to a Policy.
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "lru":
		return LRU, nil
	case "mru":
		return MRU, nil
	default:
		return nil, fmt.Errorf("replacement policy %q: %w", name, base.ErrInvalidParameter)
	}
}
