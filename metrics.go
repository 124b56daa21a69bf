package toypf

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "toypf"

type collector struct {
	db *DB

	logicalReads  *prometheus.Desc
	logicalWrites *prometheus.Desc
	physReads     *prometheus.Desc
	physWrites    *prometheus.Desc
	pageHits      *prometheus.Desc
	pageMisses    *prometheus.Desc

	storageReads  *prometheus.Desc
	storageWrites *prometheus.Desc
	storageOpens  *prometheus.Desc
}

func bufferDesc(name, help string) *prometheus.Desc {
	return prometheus.NewDesc(prometheus.BuildFQName(metricsNamespace, "buffer", name), help, nil, nil)
}

func storageDesc(name, help string) *prometheus.Desc {
	return prometheus.NewDesc(prometheus.BuildFQName(metricsNamespace, "storage", name), help, nil, nil)
}

// Collector returns a prometheus collector over the buffer pool counters and
// the storage I/O counters. The buffer counters restart from zero on
// Configure.
func (d *DB) Collector() prometheus.Collector {
	return &collector{
		db:            d,
		logicalReads:  bufferDesc("logical_reads_total", "Page fix requests."),
		logicalWrites: bufferDesc("logical_writes_total", "Pages unfixed dirty or marked used."),
		physReads:     bufferDesc("physical_reads_total", "Pages loaded from disk."),
		physWrites:    bufferDesc("physical_writes_total", "Dirty pages written back to disk."),
		pageHits:      bufferDesc("page_hits_total", "Fixes served from a resident frame."),
		pageMisses:    bufferDesc("page_misses_total", "Fixes that loaded the page."),
		storageReads:  storageDesc("reads_total", "Page reads issued to the file system."),
		storageWrites: storageDesc("writes_total", "Page writes issued to the file system."),
		storageOpens:  storageDesc("opens_total", "File descriptors opened, reopens included."),
	}
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.logicalReads
	ch <- c.logicalWrites
	ch <- c.physReads
	ch <- c.physWrites
	ch <- c.pageHits
	ch <- c.pageMisses
	ch <- c.storageReads
	ch <- c.storageWrites
	ch <- c.storageOpens
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	s := c.db.pool.Stats()
	counter := func(desc *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v))
	}
	counter(c.logicalReads, s.LogicalReads)
	counter(c.logicalWrites, s.LogicalWrites)
	counter(c.physReads, s.PhysReads)
	counter(c.physWrites, s.PhysWrites)
	counter(c.pageHits, s.PageHits)
	counter(c.pageMisses, s.PageMisses)

	st := c.db.store.Stats()
	counter(c.storageReads, st.Reads)
	counter(c.storageWrites, st.Writes)
	counter(c.storageOpens, st.Opens)
}
