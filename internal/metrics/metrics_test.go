package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.StoreOp("memory", "get", nil)
		m.Snapshot("manual")
		m.Evicted()
		m.Restore("key", errors.New("boom"))
		m.ScheduledSkipped()
	})
}

func TestCountersRecord(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.StoreOp("memory", "put", nil)
	m.StoreOp("memory", "put", errors.New("disk full"))
	m.Snapshot("scheduled")
	m.Evicted()
	m.Restore("payload", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreOps.WithLabelValues("memory", "put", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreOps.WithLabelValues("memory", "put", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Snapshots.WithLabelValues("scheduled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Evictions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Restores.WithLabelValues("payload", "ok")))
}
