package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/ini.v1"

	"toypf"
)

func newBenchDB(t *testing.T) *toypf.DB {
	t.Helper()
	db, err := toypf.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRunSequentialFlooding(t *testing.T) {
	t.Parallel()

	db := newBenchDB(t)
	dir := t.TempDir()

	lru, err := run(db, dir, experiment{Pool: 2, Policy: toypf.LRU, Ops: 6, Pages: 3})
	require.NoError(t, err)
	assert.Equal(t, toypf.Stats{
		LogicalReads:  6,
		LogicalWrites: 3,
		PhysReads:     6,
		PhysWrites:    3,
		PageHits:      0,
		PageMisses:    6,
	}, lru.Stats, "LRU misses every access of a loop larger than the pool")

	mru, err := run(db, dir, experiment{Pool: 2, Policy: toypf.MRU, Ops: 6, Pages: 3})
	require.NoError(t, err)
	assert.Equal(t, toypf.Stats{
		LogicalReads:  6,
		LogicalWrites: 3,
		PhysReads:     3,
		PhysWrites:    3,
		PageHits:      3,
		PageMisses:    3,
	}, mru.Stats)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch file is destroyed")
}

func TestRunDeterministic(t *testing.T) {
	t.Parallel()

	db := newBenchDB(t)
	e := experiment{Pool: 4, Policy: toypf.LRU, Ops: 500, Pages: 12, WriteFrac: 0.4}

	a, err := run(db, t.TempDir(), e)
	require.NoError(t, err)
	b, err := run(db, t.TempDir(), e)
	require.NoError(t, err)
	assert.Equal(t, a.Stats, b.Stats)

	assert.Equal(t, uint64(500), a.Stats.LogicalReads)
	assert.Equal(t, a.Stats.LogicalReads, a.Stats.PageHits+a.Stats.PageMisses)
	assert.Greater(t, a.Stats.LogicalWrites, uint64(12))
	assert.Less(t, a.Stats.LogicalWrites, uint64(512))
}

func TestRunValidates(t *testing.T) {
	t.Parallel()

	db := newBenchDB(t)
	_, err := run(db, t.TempDir(), experiment{Pool: 2, Policy: toypf.LRU, Ops: 1, Pages: 0})
	assert.Error(t, err)
	_, err = run(db, t.TempDir(), experiment{Pool: 2, Policy: toypf.LRU, Ops: 1, Pages: 1, WriteFrac: 1.5})
	assert.Error(t, err)
	_, err = run(db, t.TempDir(), experiment{Pool: 0, Policy: toypf.LRU, Ops: 1, Pages: 1})
	assert.ErrorIs(t, err, toypf.ErrInvalidParameter)
}

func TestParseMatrix(t *testing.T) {
	t.Parallel()

	f, err := ini.Load([]byte(`
[experiment]
pool       = 3, 5
policy     = lru, MRU
ops        = 100
pages      = 8
write_frac = 0.0, 0.5
out        = results.csv

[log]
level = error
`))
	require.NoError(t, err)

	m, err := parseMatrix(f)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 5}, m.Pools)
	assert.Equal(t, []toypf.Policy{toypf.LRU, toypf.MRU}, m.Policies)
	assert.Equal(t, []float64{0.0, 0.5}, m.WriteFracs)
	assert.Equal(t, "results.csv", m.Out)
	assert.Equal(t, "error", m.LogLevel)
	assert.Empty(t, m.LogFormat, "unset keys leave the command line values alone")

	exps := m.experiments()
	require.Len(t, exps, 8)
	assert.Equal(t, experiment{Pool: 3, Policy: toypf.LRU, Ops: 100, Pages: 8, WriteFrac: 0}, exps[0])
	assert.Equal(t, toypf.MRU, exps[1].Policy, "policy varies fastest")
	assert.Equal(t, experiment{Pool: 5, Policy: toypf.MRU, Ops: 100, Pages: 8, WriteFrac: 0.5}, exps[7])

	f, err = ini.Load([]byte("[experiment]\npolicy = clock\n"))
	require.NoError(t, err)
	_, err = parseMatrix(f)
	assert.ErrorIs(t, err, toypf.ErrInvalidParameter)

	m, err = parseMatrix(ini.Empty())
	require.NoError(t, err)
	assert.Empty(t, m.LogLevel)
	assert.Empty(t, m.LogFormat)
	assert.Equal(t, []experiment{{Pool: 5, Policy: toypf.LRU, Ops: 50, Pages: 10, WriteFrac: 0.3}}, m.experiments())
}

func TestCSVOutput(t *testing.T) {
	t.Parallel()

	res := result{
		experiment: experiment{Pool: 5, Policy: toypf.MRU, Ops: 50, Pages: 10, WriteFrac: 0.3},
		Stats:      toypf.Stats{LogicalReads: 50, LogicalWrites: 25, PhysReads: 7, PhysWrites: 9, PageHits: 43, PageMisses: 7},
	}

	var buf bytes.Buffer
	require.NoError(t, writeCSV(&buf, []result{res}, true))
	assert.Equal(t,
		"policy,pool,ops,pages,write_frac,logical_reads,logical_writes,phys_reads,phys_writes,page_hits,page_misses\n"+
			"MRU,5,50,10,0.30,50,25,7,9,43,7\n",
		buf.String())

	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, appendCSV(path, []result{res}))
	require.NoError(t, appendCSV(path, []result{res, res}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 4, "header is written once")
	assert.True(t, strings.HasPrefix(lines[0], "policy,"))
}
