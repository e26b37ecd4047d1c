// Package metrics holds the Prometheus collectors exported by linkshelf.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Key-value store operations
	StoreOps *prometheus.CounterVec // linkshelf_store_operations_total{driver,op,result}

	// Backups
	Snapshots *prometheus.CounterVec // linkshelf_backup_snapshots_total{trigger}
	Evictions prometheus.Counter
	Restores  *prometheus.CounterVec // linkshelf_backup_restores_total{source,result}
	Skipped   prometheus.Counter

	// HTTP
	Requests        *prometheus.CounterVec   // linkshelf_http_requests_total{route,method,code}
	RequestDuration *prometheus.HistogramVec // linkshelf_http_request_duration_seconds{route,method}
}

// New registers all collectors with registry. If registry is nil the default
// Prometheus registerer is used.
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	f := promauto.With(registry)
	return &Metrics{
		StoreOps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "linkshelf_store_operations_total",
			Help: "Key-value store operations by driver, operation and result",
		}, []string{"driver", "op", "result"}),

		Snapshots: f.NewCounterVec(prometheus.CounterOpts{
			Name: "linkshelf_backup_snapshots_total",
			Help: "Backup records written, by trigger",
		}, []string{"trigger"}),

		Evictions: f.NewCounter(prometheus.CounterOpts{
			Name: "linkshelf_backup_evictions_total",
			Help: "Backup records deleted by the retention cap",
		}),

		Restores: f.NewCounterVec(prometheus.CounterOpts{
			Name: "linkshelf_backup_restores_total",
			Help: "Restore attempts by source (key or payload) and result",
		}, []string{"source", "result"}),

		Skipped: f.NewCounter(prometheus.CounterOpts{
			Name: "linkshelf_backup_scheduled_skipped_total",
			Help: "Scheduled triggers that fell outside the maintenance window",
		}),

		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "linkshelf_http_requests_total",
			Help: "HTTP requests by route template, method and status code",
		}, []string{"route", "method", "code"}),

		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "linkshelf_http_request_duration_seconds",
			Help:    "HTTP request latency by route template and method",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// StoreOp counts one store operation.
func (m *Metrics) StoreOp(driver, op string, err error) {
	if m == nil {
		return
	}
	m.StoreOps.WithLabelValues(driver, op, result(err)).Inc()
}

// Snapshot counts one written backup record.
func (m *Metrics) Snapshot(trigger string) {
	if m == nil {
		return
	}
	m.Snapshots.WithLabelValues(trigger).Inc()
}

// Evicted counts one retention eviction.
func (m *Metrics) Evicted() {
	if m == nil {
		return
	}
	m.Evictions.Inc()
}

// Restore counts one restore attempt.
func (m *Metrics) Restore(source string, err error) {
	if m == nil {
		return
	}
	m.Restores.WithLabelValues(source, result(err)).Inc()
}

// ScheduledSkipped counts one scheduled trigger outside the window.
func (m *Metrics) ScheduledSkipped() {
	if m == nil {
		return
	}
	m.Skipped.Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
