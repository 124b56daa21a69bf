package test

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toypf"
)

// TestScrapeDuringWorkload gathers metrics from another goroutine while the
// owning goroutine drives the pool.
func TestScrapeDuringWorkload(t *testing.T) {
	t.Parallel()

	db, fd, _ := setup(t, toypf.WithCapacity(4))
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(db.Collector()))

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			_, err := reg.Gather()
			assert.NoError(t, err)
		}
	}()

	rs := db.Records(fd)
	for i := 0; i < 2000; i++ {
		_, err := rs.Insert(make([]byte, 1+i%300))
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()

	families, err := reg.Gather()
	require.NoError(t, err)
	values := make(map[string]float64, len(families))
	for _, mf := range families {
		values[mf.GetName()] = mf.GetMetric()[0].GetCounter().GetValue()
	}

	s := db.Stats()
	assert.Equal(t, float64(s.LogicalReads), values["toypf_buffer_logical_reads_total"])
	assert.Equal(t, float64(s.PageHits+s.PageMisses), values["toypf_buffer_logical_reads_total"])
	assert.Positive(t, values["toypf_buffer_physical_writes_total"])
}
