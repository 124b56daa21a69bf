package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/ini.v1"

	"toypf"
)

// experiment is one run of the access workload.
type experiment struct {
	Pool      int
	Policy    toypf.Policy
	Ops       int
	Pages     int
	WriteFrac float64
}

type result struct {
	experiment
	Stats toypf.Stats
}

var csvHeader = []string{
	"policy", "pool", "ops", "pages", "write_frac",
	"logical_reads", "logical_writes", "phys_reads", "phys_writes", "page_hits", "page_misses",
}

func (r result) row() []string {
	u := func(v uint64) string { return strconv.FormatUint(v, 10) }
	return []string{
		r.Policy.String(),
		strconv.Itoa(r.Pool),
		strconv.Itoa(r.Ops),
		strconv.Itoa(r.Pages),
		strconv.FormatFloat(r.WriteFrac, 'f', 2, 64),
		u(r.Stats.LogicalReads),
		u(r.Stats.LogicalWrites),
		u(r.Stats.PhysReads),
		u(r.Stats.PhysWrites),
		u(r.Stats.PageHits),
		u(r.Stats.PageMisses),
	}
}

func (e experiment) validate() error {
	if e.Ops < 0 || e.Pages <= 0 {
		return fmt.Errorf("ops=%d pages=%d: need ops >= 0 and pages > 0", e.Ops, e.Pages)
	}
	if e.WriteFrac < 0 || e.WriteFrac > 1 {
		return fmt.Errorf("write fraction %.2f outside [0, 1]", e.WriteFrac)
	}
	return nil
}

// run reconfigures db, builds a file of e.Pages pages and touches page
// i%Pages for i in [0, Ops). A seeded generator decides which accesses
// dirty the page, so runs with equal parameters are identical. Counters
// cover the page build as well as the accesses.
func run(db *toypf.DB, dir string, e experiment) (result, error) {
	if err := e.validate(); err != nil {
		return result{}, err
	}
	if err := db.Configure(e.Pool, e.Policy); err != nil {
		return result{}, err
	}

	path := filepath.Join(dir, fmt.Sprintf("pfbench-%d.pf", os.Getpid()))
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return result{}, err
	}
	if err := db.CreateFile(path); err != nil {
		return result{}, err
	}
	defer db.DestroyFile(path)

	fd, err := db.OpenFile(path)
	if err != nil {
		return result{}, err
	}
	if err := workload(db, fd, e); err != nil {
		_ = db.CloseFile(fd)
		return result{}, err
	}

	res := result{experiment: e, Stats: db.Stats()}
	return res, db.CloseFile(fd)
}

func workload(db *toypf.DB, fd toypf.FileID, e experiment) error {
	for i := 0; i < e.Pages; i++ {
		page, buf, err := db.AllocPage(fd)
		if err != nil {
			return fmt.Errorf("alloc: %w", err)
		}
		copy(buf, fmt.Sprintf("page-%d", i))
		if err := db.UnfixPage(fd, page, true); err != nil {
			return fmt.Errorf("unfix: %w", err)
		}
	}

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < e.Ops; i++ {
		p := toypf.PageNum(i % e.Pages)
		buf, err := db.GetThisPage(fd, p)
		if err != nil {
			return fmt.Errorf("get page %d: %w", p, err)
		}
		dirty := rng.Float64() < e.WriteFrac
		if dirty {
			copy(buf, fmt.Sprintf("page-%d-mod-%d", p, i))
		}
		if err := db.UnfixPage(fd, p, dirty); err != nil {
			return fmt.Errorf("unfix page %d: %w", p, err)
		}
	}
	return nil
}

// matrix is an experiment file: every combination of the listed values is
// run once.
//
//	[experiment]
//	pool       = 3, 5, 10
//	policy     = lru, mru
//	ops        = 1000
//	pages      = 20
//	write_frac = 0.0, 0.3, 0.7
//	out        = results.csv
//
//	[log]
//	level  = warn
//	format = console
type matrix struct {
	Pools      []int
	Policies   []toypf.Policy
	Ops        []int
	Pages      []int
	WriteFracs []float64
	Out        string
	LogLevel   string // empty unless set in the file
	LogFormat  string
}

func loadMatrix(path string) (matrix, error) {
	f, err := ini.Load(path)
	if err != nil {
		return matrix{}, err
	}
	return parseMatrix(f)
}

func parseMatrix(f *ini.File) (matrix, error) {
	sec := f.Section("experiment")
	m := matrix{
		Pools:      sec.Key("pool").Ints(","),
		Ops:        sec.Key("ops").Ints(","),
		Pages:      sec.Key("pages").Ints(","),
		WriteFracs: sec.Key("write_frac").Float64s(","),
		Out:        sec.Key("out").String(),
		LogLevel:   f.Section("log").Key("level").String(),
		LogFormat:  f.Section("log").Key("format").String(),
	}
	for _, name := range sec.Key("policy").Strings(",") {
		p, err := toypf.ParsePolicy(name)
		if err != nil {
			return matrix{}, err
		}
		m.Policies = append(m.Policies, p)
	}

	if len(m.Pools) == 0 {
		m.Pools = []int{5}
	}
	if len(m.Policies) == 0 {
		m.Policies = []toypf.Policy{toypf.LRU}
	}
	if len(m.Ops) == 0 {
		m.Ops = []int{50}
	}
	if len(m.Pages) == 0 {
		m.Pages = []int{10}
	}
	if len(m.WriteFracs) == 0 {
		m.WriteFracs = []float64{0.3}
	}
	return m, nil
}

// experiments expands the matrix, policy varying fastest.
func (m matrix) experiments() []experiment {
	var out []experiment
	for _, pool := range m.Pools {
		for _, ops := range m.Ops {
			for _, pages := range m.Pages {
				for _, wf := range m.WriteFracs {
					for _, policy := range m.Policies {
						out = append(out, experiment{Pool: pool, Policy: policy, Ops: ops, Pages: pages, WriteFrac: wf})
					}
				}
			}
		}
	}
	return out
}

// appendCSV appends rows to path, writing the header first when the file
// is new or empty.
func appendCSV(path string, results []result) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	if err := writeCSV(f, results, info.Size() == 0); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeCSV(w io.Writer, results []result, header bool) error {
	cw := csv.NewWriter(w)
	if header {
		if err := cw.Write(csvHeader); err != nil {
			return err
		}
	}
	for _, r := range results {
		if err := cw.Write(r.row()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
