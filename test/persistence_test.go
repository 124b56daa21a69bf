package test

import (
	"encoding/binary"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toypf"
)

func TestRecordsPersist(t *testing.T) {
	t.Parallel()

	db, fd, path := setup(t, toypf.WithCapacity(2))
	rs := db.Records(fd)

	rids := make([]toypf.RID, 300)
	for i := range rids {
		rid, err := rs.Insert([]byte(fmt.Sprintf("record-%04d-%s", i, string(make([]byte, i%50)))))
		require.NoError(t, err, "Failed to insert %d", i)
		rids[i] = rid
	}
	for i := 0; i < len(rids); i += 3 {
		require.NoError(t, rs.Delete(rids[i]))
	}
	before, err := rs.Usage()
	require.NoError(t, err)

	db2, fd2 := reopen(t, db, path, toypf.WithCapacity(2))
	rs2 := db2.Records(fd2)

	after, err := rs2.Usage()
	require.NoError(t, err)
	assert.Equal(t, before, after)

	for i, rid := range rids {
		rec, err := rs2.Get(rid)
		if i%3 == 0 {
			assert.ErrorIs(t, err, toypf.ErrRecordDeleted, "record %d", i)
			continue
		}
		require.NoError(t, err, "record %d", i)
		assert.Equal(t, fmt.Sprintf("record-%04d-%s", i, string(make([]byte, i%50))), string(rec))
	}
}

func TestRestartPersistence(t *testing.T) {
	t.Parallel()

	db, fd, path := setup(t)
	for i := 0; i < 5; i++ {
		page, buf, err := db.AllocPage(fd)
		require.NoError(t, err)
		copy(buf, fmt.Sprintf("page %d", page))
		require.NoError(t, db.UnfixPage(fd, page, true))
	}

	for round := 0; round < 3; round++ {
		db, fd = reopen(t, db, path)
		n, err := db.NumPages(fd)
		require.NoError(t, err)
		require.Equal(t, 5+round, n, "round %d", round)

		page, buf, err := db.AllocPage(fd)
		require.NoError(t, err)
		copy(buf, fmt.Sprintf("page %d", page))
		require.NoError(t, db.UnfixPage(fd, page, true))
	}

	for page := toypf.PageNum(0); page < 8; page++ {
		buf, err := db.GetThisPage(fd, page)
		require.NoError(t, err)
		want := fmt.Sprintf("page %d", page)
		assert.Equal(t, want, string(buf[:len(want)]))
		require.NoError(t, db.UnfixPage(fd, page, false))
	}
}

func TestFileFormat(t *testing.T) {
	t.Parallel()

	db, fd, path := setup(t)
	rs := db.Records(fd)
	_, err := rs.Insert([]byte("hello"))
	require.NoError(t, err)
	_, err = rs.Insert([]byte("pf"))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, data, toypf.PageSize)

	le := binary.LittleEndian
	assert.Equal(t, uint32(11), le.Uint32(data[0:4]), "free start")
	assert.Equal(t, "hellopf", string(data[4:11]))
	assert.Equal(t, uint32(2), le.Uint32(data[4092:4096]), "slot count")
	assert.Equal(t, []uint32{4, 5}, []uint32{le.Uint32(data[4084:]), le.Uint32(data[4088:])}, "slot 0")
	assert.Equal(t, []uint32{9, 2}, []uint32{le.Uint32(data[4076:]), le.Uint32(data[4080:])}, "slot 1")
	for _, b := range data[11:4076] {
		if !assert.Zero(t, b) {
			break
		}
	}
}
