// Package metrics exposes Prometheus counters and histograms of the
// replication endpoint.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	MetricNamePushEntries     = "health_sync_push_entries_total"
	MetricNamePullEntries     = "health_sync_pull_entries_total"
	MetricNameRequestDuration = "health_sync_request_duration_seconds"

	LabelResult = "result"
	LabelOp     = "op"

	ResultAccepted = "accepted"
	ResultSkipped  = "skipped"

	OpPush = "push"
	OpPull = "pull"
)

// SyncMetrics groups the replication metrics registered on one registry.
type SyncMetrics struct {
	PushEntries     *prometheus.CounterVec
	PullEntries     prometheus.Counter
	RequestDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// NewSyncMetrics registers the replication metrics on reg. Pass
// prometheus.NewRegistry() in tests to keep them isolated.
func NewSyncMetrics(reg *prometheus.Registry) *SyncMetrics {
	factory := promauto.With(reg)

	return &SyncMetrics{
		PushEntries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricNamePushEntries,
				Help: "Pushed entries by outcome",
			},
			[]string{LabelResult},
		),
		PullEntries: factory.NewCounter(
			prometheus.CounterOpts{
				Name: MetricNamePullEntries,
				Help: "Entries served by the change feed",
			},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricNameRequestDuration,
				Help:    "Latency of push and pull requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{LabelOp},
		),
		gatherer: reg,
	}
}

// ObservePush counts the outcome of one push batch.
func (m *SyncMetrics) ObservePush(accepted, skipped int) {
	if m == nil {
		return
	}
	m.PushEntries.WithLabelValues(ResultAccepted).Add(float64(accepted))
	m.PushEntries.WithLabelValues(ResultSkipped).Add(float64(skipped))
}

// ObservePull counts entries returned by one pull page.
func (m *SyncMetrics) ObservePull(entries int) {
	if m == nil {
		return
	}
	m.PullEntries.Add(float64(entries))
}

// Middleware records the duration of every request under the op label.
func (m *SyncMetrics) Middleware(op string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			m.RequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		})
	}
}

// Handler serves the registry in the Prometheus text format. Compression is
// left to the router's gzip middleware.
func (m *SyncMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{DisableCompression: true})
}
