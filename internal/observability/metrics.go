package observability

import (
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// Streaming metrics
	AudioStreamsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "audio_streams_active",
			Help: "Number of audio streams currently being served",
		},
	)

	AudioBytesStreamed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audio_bytes_streamed_total",
			Help: "Total audio bytes written to clients",
		},
	)

	AudioStreamsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audio_streams_total",
			Help: "Total audio stream responses by kind (full, partial, not_found)",
		},
		[]string{"kind"},
	)

	// Session metrics
	SessionRenewalsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "session_renewals_total",
			Help: "Total sliding-window session renewals",
		},
	)

	SessionsExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_expired_total",
			Help: "Total sessions deleted because their TTL elapsed",
		},
	)

	// Database metrics
	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_open",
			Help: "Number of open database connections",
		},
	)

	DBConnectionsInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_in_use",
			Help: "Number of database connections currently in use",
		},
	)

	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)
)

// CollectDBStats samples connection pool stats into the gauges until the done
// channel closes.
func CollectDBStats(db *sql.DB, interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			stats := db.Stats()
			DBConnectionsOpen.Set(float64(stats.OpenConnections))
			DBConnectionsInUse.Set(float64(stats.InUse))
			DBConnectionsIdle.Set(float64(stats.Idle))
		}
	}
}
