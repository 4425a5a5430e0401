package coordinator

import "github.com/prometheus/client_golang/prometheus"

var (
	jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voxscribe",
			Subsystem: "jobs",
			Name:      "total",
			Help:      "Jobs by terminal outcome",
		},
		[]string{"outcome"},
	)

	inferenceDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "voxscribe",
			Subsystem: "jobs",
			Name:      "inference_duration_seconds",
			Help:      "Wall time of completed inference calls",
			Buckets:   []float64{.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"model"},
	)

	loadRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "voxscribe",
			Subsystem: "jobs",
			Name:      "load_retries_total",
			Help:      "Model load retries triggered by a failed first attempt",
		},
	)
)

func init() {
	prometheus.MustRegister(jobsTotal, inferenceDuration, loadRetriesTotal)
}
