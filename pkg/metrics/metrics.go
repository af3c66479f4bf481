package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Sync metrics
	SyncRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outpost_sync_runs_total",
			Help: "Total sync runs by terminal state",
		},
		[]string{"state"},
	)

	SyncRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "outpost_sync_retries_total",
			Help: "Total sync retry attempts",
		},
	)

	SyncDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "outpost_sync_duration_seconds",
			Help:    "Duration of sync runs",
			Buckets: prometheus.DefBuckets,
		},
	)

	LastSyncTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "outpost_last_sync_timestamp_seconds",
			Help: "Unix time of the last successful sync",
		},
	)

	// Repository metrics
	CacheFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outpost_cache_fallbacks_total",
			Help: "Remote failures silently served from the local cache, by entity",
		},
		[]string{"entity"},
	)

	RefreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outpost_refreshes_total",
			Help: "Repository refresh operations by entity and result",
		},
		[]string{"entity", "result"},
	)

	// Alert stream metrics
	StreamConnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "outpost_stream_connects_total",
			Help: "Total alert feed connection attempts",
		},
	)

	StreamReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "outpost_stream_reconnects_total",
			Help: "Reconnects after a dropped alert feed connection",
		},
	)

	StreamParseFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "outpost_stream_parse_failures_total",
			Help: "Feed lines discarded as malformed",
		},
	)

	AlertsRoutedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outpost_alerts_routed_total",
			Help: "Alerts delivered by channel",
		},
		[]string{"channel"},
	)
)

// Register registers all metrics with Prometheus
func Register() {
	prometheus.MustRegister(
		SyncRunsTotal,
		SyncRetriesTotal,
		SyncDuration,
		LastSyncTimestamp,
		CacheFallbacksTotal,
		RefreshesTotal,
		StreamConnectsTotal,
		StreamReconnectsTotal,
		StreamParseFailuresTotal,
		AlertsRoutedTotal,
	)
}

// Handler returns the HTTP handler for the /metrics endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer helps measure operation durations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time in the given histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}
