//go:build !linux

package storage

import "os"

func adviseRandom(*os.File) error { return nil }

func datasync(f *os.File) error {
	return f.Sync()
}
