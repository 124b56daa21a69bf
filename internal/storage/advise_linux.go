//go:build linux

package storage

import (
	"os"

	"golang.org/x/sys/unix"
)

// adviseRandom tells the kernel page accesses are random so it skips
// readahead; the buffer pool does its own caching.
func adviseRandom(f *os.File) error {
	return unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_RANDOM)
}

func datasync(f *os.File) error {
	return unix.Fdatasync(int(f.Fd()))
}
