// Package metrics provides Prometheus metrics for the share server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunshare_http_requests_total",
			Help: "Total number of browse interface HTTP requests",
		},
		[]string{"method", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tunshare_http_request_duration_seconds",
			Help:    "Browse interface request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	archivesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunshare_archives_total",
			Help: "Total folder archives created",
		},
		[]string{"status"},
	)

	archiveBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tunshare_archive_bytes_total",
			Help: "Total compressed bytes written by the archiver",
		},
	)

	archiveDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tunshare_archive_duration_seconds",
			Help:    "Time to archive a folder",
			Buckets: prometheus.DefBuckets,
		},
	)

	sessionsStartedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunshare_sessions_started_total",
			Help: "Total share sessions started",
		},
		[]string{"mode"},
	)

	sessionActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tunshare_session_active",
			Help: "1 while a share session is active",
		},
	)

	tunnelFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tunshare_tunnel_failures_total",
			Help: "Total tunnel open failures (session fell back to local only)",
		},
	)

	downloadsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tunshare_downloads_total",
			Help: "Total artifact downloads served",
		},
	)

	downloadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tunshare_download_bytes_total",
			Help: "Total artifact bytes served by download servers",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records a browse interface request.
func RecordHTTPRequest(method string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordArchive records a finished (or failed) archive run.
func RecordArchive(bytes int64, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	archivesTotal.WithLabelValues(status).Inc()
	if success {
		archiveBytes.Add(float64(bytes))
		archiveDuration.Observe(duration.Seconds())
	}
}

// RecordSessionStarted records a session start; public tells whether a tunnel URL was obtained.
func RecordSessionStarted(public bool) {
	mode := "local"
	if public {
		mode = "tunnel"
	}
	sessionsStartedTotal.WithLabelValues(mode).Inc()
}

// SetSessionActive toggles the active session gauge.
func SetSessionActive(active bool) {
	if active {
		sessionActive.Set(1)
		return
	}
	sessionActive.Set(0)
}

// RecordTunnelFailure records a failed tunnel open.
func RecordTunnelFailure() {
	tunnelFailuresTotal.Inc()
}

// RecordDownload records a served artifact download.
func RecordDownload(bytes int64) {
	downloadsTotal.Inc()
	downloadBytes.Add(float64(bytes))
}
