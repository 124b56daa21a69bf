package test

import (
	"encoding/binary"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toypf"
)

// TestTruncatedFile checks that a file whose size is not a whole number of
// pages is refused.
func TestTruncatedFile(t *testing.T) {
	t.Parallel()

	db, fd, path := setup(t)
	for i := 0; i < 2; i++ {
		page, _, err := db.AllocPage(fd)
		require.NoError(t, err)
		require.NoError(t, db.UnfixPage(fd, page, true))
	}
	require.NoError(t, db.CloseFile(fd))

	require.NoError(t, os.Truncate(path, toypf.PageSize+100))
	_, err := db.OpenFile(path)
	assert.ErrorIs(t, err, toypf.ErrCorruption)

	require.NoError(t, os.Truncate(path, toypf.PageSize))
	fd, err = db.OpenFile(path)
	require.NoError(t, err, "whole pages open again")
	n, err := db.NumPages(fd)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// TestCorruptSlotDirectory overwrites the slot count of page 0 and checks
// that reads report it while inserts move on to a healthy page.
func TestCorruptSlotDirectory(t *testing.T) {
	t.Parallel()

	db, fd, path := setup(t)
	rs := db.Records(fd)
	rid, err := rs.Insert([]byte("victim"))
	require.NoError(t, err)
	require.NoError(t, db.CloseFile(fd))

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)
	var bad [4]byte
	binary.LittleEndian.PutUint32(bad[:], 0x7fffffff)
	_, err = f.WriteAt(bad[:], toypf.PageSize-4)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	fd, err = db.OpenFile(path)
	require.NoError(t, err)
	rs = db.Records(fd)

	_, err = rs.Get(rid)
	assert.ErrorIs(t, err, toypf.ErrCorruption)
	_, err = rs.PageUsedBytes(0)
	assert.ErrorIs(t, err, toypf.ErrCorruption)

	rid2, err := rs.Insert([]byte("survivor"))
	require.NoError(t, err)
	assert.Equal(t, toypf.RID{Page: 1, Slot: 0}, rid2)

	sc := rs.Scan()
	assert.False(t, sc.Next())
	assert.ErrorIs(t, sc.Err(), toypf.ErrCorruption)
	require.NoError(t, sc.Close())

	for _, fi := range db.Frames() {
		assert.False(t, fi.Fixed, "no page stays fixed after a corrupt read")
	}
}
