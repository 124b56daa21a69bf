package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"text/tabwriter"

	"github.com/cespare/xxhash/v2"

	"toypf"
)

// generate returns n records of 1..maxrec bytes cycling through A..Z. The
// generator is seeded so every invocation yields the same records.
func generate(n, maxrec int) [][]byte {
	rng := rand.New(rand.NewSource(42))
	recs := make([][]byte, n)
	for i := range recs {
		rec := make([]byte, 1+rng.Intn(maxrec))
		for j := range rec {
			rec[j] = 'A' + byte((i+j)%26)
		}
		recs[i] = rec
	}
	return recs
}

// readLines reads at most n records from r, one per non-empty line, with
// line terminators stripped.
func readLines(r io.Reader, n int) ([][]byte, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), toypf.PageSize)

	var recs [][]byte
	for len(recs) < n && sc.Scan() {
		line := sc.Bytes()
		for len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
		}
		if len(line) == 0 {
			continue
		}
		recs = append(recs, append([]byte(nil), line...))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, errors.New("no records read")
	}
	return recs, nil
}

type fixedRow struct {
	Slot      int
	PerPage   int
	Pages     int
	Util      float64
	Oversized int
}

// fixedSlots computes what a fixed-length layout with slot sizes 32..256
// would need to hold records of the given lengths.
func fixedSlots(lens []int, userBytes int64) []fixedRow {
	var rows []fixedRow
	for slot := 32; slot <= 256; slot *= 2 {
		row := fixedRow{Slot: slot, PerPage: toypf.PageSize / slot}
		for _, l := range lens {
			if l > slot {
				row.Oversized++
			}
		}
		if row.Oversized == 0 && len(lens) > 0 {
			row.Pages = (len(lens) + row.PerPage - 1) / row.PerPage
			row.Util = float64(userBytes) / float64(row.Pages*toypf.PageSize)
		}
		rows = append(rows, row)
	}
	return rows
}

type report struct {
	Inserted  int
	Scanned   int
	Usage     toypf.Usage
	UserBytes int64
	Digest    uint64
	Fixed     []fixedRow
}

// exercise inserts recs into a fresh file at path, scans them back, deletes
// every other record and measures the remaining space use.
func exercise(db *toypf.DB, path string, recs [][]byte) (report, error) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return report{}, err
	}
	if err := db.CreateFile(path); err != nil {
		return report{}, err
	}
	fd, err := db.OpenFile(path)
	if err != nil {
		return report{}, err
	}
	defer db.CloseFile(fd)

	var rep report
	store := db.Records(fd)
	rids := make([]toypf.RID, 0, len(recs))
	for i, rec := range recs {
		rid, err := store.Insert(rec)
		if err != nil {
			return rep, fmt.Errorf("insert %d: %w", i, err)
		}
		rids = append(rids, rid)
	}
	rep.Inserted = len(rids)

	sc := store.Scan()
	for sc.Next() {
		rep.Scanned++
	}
	_ = sc.Close()
	if err := sc.Err(); err != nil {
		return rep, fmt.Errorf("scan: %w", err)
	}

	for i := 0; i < len(rids); i += 2 {
		if err := store.Delete(rids[i]); err != nil {
			return rep, fmt.Errorf("delete %s: %w", rids[i], err)
		}
	}
	if rep.Usage, err = store.Usage(); err != nil {
		return rep, err
	}

	h := xxhash.New()
	lens := make([]int, len(recs))
	for i, rec := range recs {
		_, _ = h.Write(rec)
		lens[i] = len(rec)
		rep.UserBytes += int64(len(rec))
	}
	rep.Digest = h.Sum64()
	rep.Fixed = fixedSlots(lens, rep.UserBytes)
	return rep, nil
}

func (r report) print(w io.Writer) error {
	fmt.Fprintf(w, "Inserted %d records; scanned %d records\n", r.Inserted, r.Scanned)
	fmt.Fprintf(w, "Pages used: %d, total used bytes: %d, avg util per page: %.2f%%\n",
		r.Usage.Pages, r.Usage.UsedBytes, 100*r.Usage.Utilization())
	fmt.Fprintf(w, "Live records: %d, deleted slots: %d\n", r.Usage.Records, r.Usage.Deleted)
	fmt.Fprintf(w, "Total user bytes (sum of record lengths): %d, digest %016x\n", r.UserBytes, r.Digest)
	fmt.Fprintf(w, "\nStatic fixed-slot comparison (M = slot size in bytes)\n")

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "M\tslots/page\tpages_needed\tutilization(%)\tnotes")
	for _, row := range r.Fixed {
		if row.Oversized > 0 {
			fmt.Fprintf(tw, "%d\t%d\t-\t-\tinapplicable: %d records exceed slot size\n", row.Slot, row.PerPage, row.Oversized)
			continue
		}
		fmt.Fprintf(tw, "%d\t%d\t%d\t%.2f\t-\n", row.Slot, row.PerPage, row.Pages, 100*row.Util)
	}
	return tw.Flush()
}
