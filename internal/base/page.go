package base

import "fmt"

const (
	// PageSize is the size of every page on disk and of every frame in memory.
	PageSize = 4096

	// MaxFrames is the hard ceiling on the number of frames a pool may hold.
	MaxFrames = 1024

	// DefaultFrames matches the PF layer's historical buffer count.
	DefaultFrames = 20
)

// FileID identifies an open paged file. IDs are never reused within a process.
type FileID uint32

// PageNum is the zero-based index of a page within its file.
type PageNum int32

// PageKey is the page table key: the identity of a resident page.
type PageKey struct {
	File FileID
	Page PageNum
}

func (k PageKey) String() string {
	return fmt.Sprintf("file %d page %d", k.File, k.Page)
}
