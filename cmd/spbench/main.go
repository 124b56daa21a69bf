// Command spbench stores variable-length records in slotted pages, deletes
// half of them and reports space utilization next to what fixed-length
// slots would have needed.
//
//	spbench -n 500 -maxrec 120
//	spbench -datafile names.txt
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"toypf"
	"toypf/logger"
)

func main() {
	var (
		n         = flag.Int("n", 200, "number of records")
		maxrec    = flag.Int("maxrec", 200, "maximum generated record length")
		datafile  = flag.String("datafile", "", "read records from this file, one per line")
		dir       = flag.String("dir", os.TempDir(), "directory for the scratch record file")
		pool      = flag.Int("pool", toypf.DefaultFrames, "buffer pool size in frames")
		logLevel  = flag.String("log-level", "warn", "log level")
		logFormat = flag.String("log-format", "console", "log format: console or json")
	)
	flag.Parse()

	zl, err := logger.BuildZap(logger.ZapConfig{Level: *logLevel, Format: *logFormat})
	if err != nil {
		fatal(err)
	}
	defer zl.Sync()

	if *n <= 0 || *maxrec <= 0 || *maxrec > toypf.MaxRecordSize {
		fatal(fmt.Errorf("need n > 0 and 0 < maxrec <= %d", toypf.MaxRecordSize))
	}

	var recs [][]byte
	if *datafile != "" {
		f, err := os.Open(*datafile)
		if err != nil {
			fatal(err)
		}
		recs, err = readLines(f, *n)
		f.Close()
		if err != nil {
			fatal(fmt.Errorf("%s: %w", *datafile, err))
		}
	} else {
		recs = generate(*n, *maxrec)
	}

	db, err := toypf.New(toypf.WithCapacity(*pool), toypf.WithLogger(logger.NewZap(zl)))
	if err != nil {
		fatal(err)
	}
	defer db.Close()

	path := filepath.Join(*dir, fmt.Sprintf("spbench-%d.sp", os.Getpid()))
	defer db.DestroyFile(path)

	rep, err := exercise(db, path, recs)
	if err != nil {
		zl.Error("record workload failed", zap.String("file", path), zap.Int("inserted", rep.Inserted), zap.Error(err))
		fatal(err)
	}
	if rep.Scanned != rep.Inserted {
		zl.Warn("scan count differs from inserts", zap.Int("inserted", rep.Inserted), zap.Int("scanned", rep.Scanned))
	}
	if err := rep.print(os.Stdout); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "spbench:", err)
	os.Exit(1)
}
