package api

import "github.com/prometheus/client_golang/prometheus"

var (
	fetchRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wateruse_telemetry_requests_total",
			Help: "Telemetry requests by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)
	fetchLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wateruse_telemetry_request_duration_seconds",
			Help:    "Telemetry request latency including retries.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// Collectors returns the client's metrics for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{fetchRequests, fetchLatency}
}
