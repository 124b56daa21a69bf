// Package test provides integration tests for toypf.
package test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"toypf"
)

// setup creates a DB and an empty open page file in a temporary directory.
func setup(t *testing.T, opts ...toypf.Option) (*toypf.DB, toypf.FileID, string) {
	t.Helper()

	db, err := toypf.New(opts...)
	require.NoError(t, err, "Failed to create DB")
	t.Cleanup(func() { _ = db.Close() })

	path := filepath.Join(t.TempDir(), t.Name()+".pf")
	require.NoError(t, db.CreateFile(path), "Failed to create page file")
	fd, err := db.OpenFile(path)
	require.NoError(t, err, "Failed to open page file")
	return db, fd, path
}

// reopen closes db and opens path in a fresh DB.
func reopen(t *testing.T, db *toypf.DB, path string, opts ...toypf.Option) (*toypf.DB, toypf.FileID) {
	t.Helper()

	require.NoError(t, db.Close(), "Failed to close DB")
	db2, err := toypf.New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db2.Close() })

	fd, err := db2.OpenFile(path)
	require.NoError(t, err, "Failed to reopen page file")
	return db2, fd
}
