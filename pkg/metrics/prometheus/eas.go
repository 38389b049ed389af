// Package prometheus provides the Prometheus-backed implementations of
// the metrics interfaces.
package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/veilmail/easgate/pkg/metrics"
)

// easMetrics is the Prometheus implementation of metrics.EASMetrics.
// A nil receiver is a no-op, so callers never need an enabled check.
type easMetrics struct {
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	inFlight      *prometheus.GaugeVec
	syncBatchSize prometheus.Histogram
	payloadBytes  *prometheus.HistogramVec
}

// NewEASMetrics creates a new Prometheus-backed EASMetrics instance.
//
// Returns a no-op instance if metrics are not enabled (InitRegistry not
// called).
func NewEASMetrics() metrics.EASMetrics {
	if !metrics.IsEnabled() {
		return (*easMetrics)(nil)
	}

	reg := metrics.GetRegistry()

	return &easMetrics{
		requests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "easgate_requests_total",
				Help: "Total ActiveSync requests by command and HTTP status",
			},
			[]string{"cmd", "status"},
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "easgate_request_duration_seconds",
				Help:    "ActiveSync request duration by command",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"cmd"},
		),
		inFlight: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "easgate_requests_in_flight",
				Help: "ActiveSync requests currently being processed, by command",
			},
			[]string{"cmd"},
		),
		syncBatchSize: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "easgate_sync_batch_items",
				Help:    "Items delivered per Sync batch",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		payloadBytes: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "easgate_response_payload_bytes",
				Help:    "WBXML response payload size by command",
				Buckets: prometheus.ExponentialBuckets(256, 4, 8),
			},
			[]string{"cmd"},
		),
	}
}

func (m *easMetrics) RecordRequest(cmd string, duration time.Duration, httpStatus int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(cmd, strconv.Itoa(httpStatus)).Inc()
	m.duration.WithLabelValues(cmd).Observe(duration.Seconds())
}

func (m *easMetrics) RecordRequestStart(cmd string) {
	if m == nil {
		return
	}
	m.inFlight.WithLabelValues(cmd).Inc()
}

func (m *easMetrics) RecordRequestEnd(cmd string) {
	if m == nil {
		return
	}
	m.inFlight.WithLabelValues(cmd).Dec()
}

func (m *easMetrics) RecordSyncBatch(items int) {
	if m == nil {
		return
	}
	m.syncBatchSize.Observe(float64(items))
}

func (m *easMetrics) RecordPayloadBytes(cmd string, bytes int) {
	if m == nil {
		return
	}
	m.payloadBytes.WithLabelValues(cmd).Observe(float64(bytes))
}

// RegisterActivePings exposes the suspended Ping population as a gauge
// read on scrape. No-op when metrics are disabled.
func RegisterActivePings(read func() int64) {
	if !metrics.IsEnabled() {
		return
	}
	promauto.With(metrics.GetRegistry()).NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "easgate_active_pings",
			Help: "Ping requests currently suspended waiting for changes",
		},
		func() float64 { return float64(read()) },
	)
}
