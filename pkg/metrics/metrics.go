package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlightGauge   prometheus.Gauge

	TransitionsTotal    *prometheus.CounterVec
	GuardDenialsTotal   *prometheus.CounterVec
	ReschedulesResumed  prometheus.Counter
	PartialReschedules  prometheus.Counter
	LockWaitDuration    prometheus.Histogram
	LockAcquireFailures prometheus.Counter

	DBQueryDuration *prometheus.HistogramVec
	DBConnections   prometheus.Gauge

	AuditEntriesTotal    prometheus.Counter
	HistoryDivergedTotal prometheus.Counter
}

func NewCollector(serviceName string) *Collector {
	return &Collector{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path, and status code.",
		}, []string{"method", "path", "status"}),

		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "path", "status"}),

		InFlightGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),

		TransitionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "admission",
			Name:      "transitions_total",
			Help:      "Transition requests by action and outcome (accepted or error kind).",
		}, []string{"action", "outcome"}),

		GuardDenialsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "admission",
			Name:      "guard_denials_total",
			Help:      "Guard denials by action and denial reason.",
		}, []string{"action", "reason"}),

		ReschedulesResumed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "admission",
			Name:      "reschedules_resumed_total",
			Help:      "Reschedules that resumed a pending step 2 instead of starting over.",
		}),

		PartialReschedules: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "admission",
			Name:      "partial_reschedules_total",
			Help:      "Reschedules whose second step failed, leaving the appointment in the rescheduled marker state. Alert if growing.",
		}),

		LockWaitDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "admission",
			Name:      "lock_wait_seconds",
			Help:      "Time spent waiting for the per-appointment lock.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 3.0},
		}),

		LockAcquireFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "admission",
			Name:      "lock_acquire_failures_total",
			Help:      "Per-appointment lock acquisitions that timed out or lost the race.",
		}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query latency distribution.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		}, []string{"operation", "table"}),

		DBConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "db",
			Name:      "open_connections",
			Help:      "Current number of open database connections.",
		}),

		AuditEntriesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "audit",
			Name:      "entries_total",
			Help:      "Total admission audit entries written.",
		}),

		HistoryDivergedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "audit",
			Name:      "history_diverged_total",
			Help:      "History replays that did not reduce to the materialized status. Any non-zero value is a data-integrity bug.",
		}),
	}
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
