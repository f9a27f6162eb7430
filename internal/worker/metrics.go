package worker

import "github.com/prometheus/client_golang/prometheus"

var (
	loadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nlpd",
			Subsystem: "worker",
			Name:      "loads_total",
			Help:      "Total number of pipeline loads",
		},
		[]string{"task"},
	)

	loadSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nlpd",
			Subsystem: "worker",
			Name:      "load_seconds",
			Help:      "Duration of pipeline loads in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"task"},
	)

	inferenceSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nlpd",
			Subsystem: "worker",
			Name:      "inference_seconds",
			Help:      "Duration of pipeline invocations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"task"},
	)

	cacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nlpd",
			Subsystem: "worker",
			Name:      "cache_hits_total",
			Help:      "Runs served by an already loaded pipeline",
		},
		[]string{"task"},
	)

	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nlpd",
			Subsystem: "worker",
			Name:      "errors_total",
			Help:      "Runs that ended with an error response",
		},
		[]string{"kind"},
	)

	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "nlpd",
			Subsystem: "worker",
			Name:      "queue_depth",
			Help:      "Requests waiting for the worker",
		},
	)
)

func init() {
	prometheus.MustRegister(loadsTotal, loadSeconds, inferenceSeconds, cacheHitsTotal, errorsTotal, queueDepth)
}
