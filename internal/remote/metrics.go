package remote

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notedash",
			Subsystem: "remote",
			Name:      "requests_total",
			Help:      "Requests sent to the notes API, by operation and status code.",
		},
		[]string{"op", "code"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "notedash",
			Subsystem: "remote",
			Name:      "request_duration_seconds",
			Help:      "Latency of notes API requests.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)
