// Command pfbench measures buffer pool behavior under a synthetic page
// access workload and prints one CSV row of counters per run.
//
//	pfbench -pool 5 -policy mru -ops 1000 -pages 20 -write-frac 0.3
//	pfbench -config experiments.ini
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"toypf"
	"toypf/logger"
)

func main() {
	var (
		pool        = flag.Int("pool", 5, "buffer pool size in frames")
		policyName  = flag.String("policy", "lru", "replacement policy: lru or mru")
		ops         = flag.Int("ops", 50, "number of page accesses")
		pages       = flag.Int("pages", 10, "number of distinct pages")
		writeFrac   = flag.Float64("write-frac", 0.3, "fraction of accesses that dirty the page")
		out         = flag.String("out", "", "append CSV rows to this file")
		configPath  = flag.String("config", "", "INI experiment file; runs every combination")
		dir         = flag.String("dir", os.TempDir(), "directory for the scratch page file")
		metricsAddr = flag.String("metrics-addr", "", "serve prometheus metrics on this address while running")
		linger      = flag.Duration("linger", 0, "keep serving metrics this long after the last run")
		logLevel    = flag.String("log-level", "warn", "log level")
		logFormat   = flag.String("log-format", "console", "log format: console or json")
	)
	flag.Parse()

	var exps []experiment
	if *configPath != "" {
		m, err := loadMatrix(*configPath)
		if err != nil {
			fatal(err)
		}
		exps = m.experiments()
		if *out == "" {
			*out = m.Out
		}
		if m.LogLevel != "" {
			*logLevel = m.LogLevel
		}
		if m.LogFormat != "" {
			*logFormat = m.LogFormat
		}
	} else {
		policy, err := toypf.ParsePolicy(*policyName)
		if err != nil {
			fatal(err)
		}
		exps = []experiment{{Pool: *pool, Policy: policy, Ops: *ops, Pages: *pages, WriteFrac: *writeFrac}}
	}

	zl, err := logger.BuildZap(logger.ZapConfig{Level: *logLevel, Format: *logFormat})
	if err != nil {
		fatal(err)
	}
	defer zl.Sync()

	db, err := toypf.New(toypf.WithCapacity(exps[0].Pool), toypf.WithLogger(logger.NewZap(zl)))
	if err != nil {
		fatal(err)
	}
	defer db.Close()

	if *metricsAddr != "" {
		srv := serveMetrics(*metricsAddr, db, zl)
		defer func() {
			time.Sleep(*linger)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	results := make([]result, 0, len(exps))
	for _, e := range exps {
		res, err := run(db, *dir, e)
		if err != nil {
			zl.Error("experiment failed",
				zap.String("policy", e.Policy.String()), zap.Int("pool", e.Pool), zap.Error(err))
			continue
		}
		results = append(results, res)
	}

	if err := writeCSV(os.Stdout, results, true); err != nil {
		fatal(err)
	}
	if *out != "" {
		if err := appendCSV(*out, results); err != nil {
			fatal(err)
		}
	}
	if len(results) != len(exps) {
		zl.Warn("some experiments failed", zap.Int("ok", len(results)), zap.Int("total", len(exps)))
	}
}

func serveMetrics(addr string, db *toypf.DB, zl *zap.Logger) *http.Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(db.Collector())

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Error("metrics server", zap.Error(err))
		}
	}()
	return srv
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "pfbench:", err)
	os.Exit(1)
}
