// Package metrics exposes Prometheus instrumentation for the session
// registry and the recording rule engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SessionsActive is the number of live viewing sessions.
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "streamgate_sessions_active",
		Help: "Number of live viewing sessions",
	})

	// SessionsStarted counts successfully started viewing sessions.
	SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamgate_sessions_started_total",
		Help: "Total viewing sessions started",
	})

	// SessionsEvicted counts admission-controller evictions.
	SessionsEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamgate_sessions_evicted_total",
		Help: "Total sessions evicted to admit new requests",
	})

	// SessionsReaped counts idle-reaper stops.
	SessionsReaped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamgate_sessions_reaped_total",
		Help: "Total sessions stopped by the idle reaper",
	})

	// StartFailures counts failed start attempts by reason.
	StartFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamgate_start_failures_total",
		Help: "Total failed session start attempts by reason",
	}, []string{"reason"})

	// RecordingsActive is the number of in-progress recordings.
	RecordingsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "streamgate_recordings_active",
		Help: "Number of in-progress recordings",
	})

	// RecordingsFinished counts finished recordings by final status.
	RecordingsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamgate_recordings_finished_total",
		Help: "Total finished recordings by status",
	}, []string{"status"})

	// RetentionDeletions counts files removed by the retention sweep.
	RetentionDeletions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamgate_retention_deletions_total",
		Help: "Total recordings deleted by the retention sweep",
	})
)

// Handler returns the Prometheus scrape handler for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
