package toypf

import (
	"fmt"
	"path/filepath"
	"testing"
)

func benchFile(b *testing.B, db *DB, pages int) FileID {
	path := filepath.Join(b.TempDir(), "bench.pf")
	if err := db.CreateFile(path); err != nil {
		b.Fatalf("Failed to create file: %v", err)
	}
	fd, err := db.OpenFile(path)
	if err != nil {
		b.Fatalf("Failed to open file: %v", err)
	}
	for i := 0; i < pages; i++ {
		page, _, err := db.AllocPage(fd)
		if err != nil {
			b.Fatalf("Failed to alloc page: %v", err)
		}
		if err := db.UnfixPage(fd, page, true); err != nil {
			b.Fatalf("Failed to unfix page: %v", err)
		}
	}
	return fd
}

func benchDB(b *testing.B, opts ...Option) *DB {
	db, err := New(opts...)
	if err != nil {
		b.Fatalf("Failed to create DB: %v", err)
	}
	b.Cleanup(func() { _ = db.Close() })
	return db
}

func BenchmarkGetThisPageHit(b *testing.B) {
	db := benchDB(b, WithCapacity(16))
	fd := benchFile(b, db, 16)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		page := PageNum((i * 7) % 16)
		if _, err := db.GetThisPage(fd, page); err != nil {
			b.Fatalf("get failed: %v", err)
		}
		if err := db.UnfixPage(fd, page, false); err != nil {
			b.Fatalf("unfix failed: %v", err)
		}
	}
}

func BenchmarkGetThisPageMiss(b *testing.B) {
	for _, policy := range []Policy{LRU, MRU} {
		b.Run(policy.String(), func(b *testing.B) {
			db := benchDB(b, WithCapacity(8), WithPolicy(policy))
			fd := benchFile(b, db, 9)

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				page := PageNum(i % 9)
				if _, err := db.GetThisPage(fd, page); err != nil {
					b.Fatalf("get failed: %v", err)
				}
				if err := db.UnfixPage(fd, page, i%4 == 0); err != nil {
					b.Fatalf("unfix failed: %v", err)
				}
			}
			b.StopTimer()
			b.ReportMetric(db.Stats().HitRate(), "hitrate")
		})
	}
}

func BenchmarkRecordInsert(b *testing.B) {
	for _, size := range []int{16, 256, 2048} {
		b.Run(fmt.Sprintf("%dB", size), func(b *testing.B) {
			db := benchDB(b)
			rs := db.Records(benchFile(b, db, 0))
			rec := make([]byte, size)

			b.SetBytes(int64(size))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := rs.Insert(rec); err != nil {
					b.Fatalf("insert failed: %v", err)
				}
			}
		})
	}
}

func BenchmarkRecordScan(b *testing.B) {
	db := benchDB(b)
	rs := db.Records(benchFile(b, db, 0))
	for i := 0; i < 5000; i++ {
		if _, err := rs.Insert([]byte(fmt.Sprintf("value%08d", i))); err != nil {
			b.Fatalf("Failed to populate: %v", err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		n := 0
		sc := rs.Scan()
		for sc.Next() {
			n++
		}
		if sc.Err() != nil || n != 5000 {
			b.Fatalf("scan: %d records, err %v", n, sc.Err())
		}
	}
}
