package batch

import "github.com/prometheus/client_golang/prometheus"

var (
	pointsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wateruse_batch_points_total",
			Help: "Points processed by batch job and outcome.",
		},
		[]string{"job", "outcome"},
	)
	pointDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wateruse_batch_point_duration_seconds",
			Help:    "Time spent assessing a single point.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"job"},
	)
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wateruse_batch_runs_total",
			Help: "Completed batch runs by job.",
		},
		[]string{"job"},
	)
	lastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wateruse_batch_last_run_timestamp_seconds",
			Help: "Unix time the last run of each job finished.",
		},
		[]string{"job"},
	)
)

// Collectors returns the batch metrics for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{pointsTotal, pointDuration, runsTotal, lastRun}
}
