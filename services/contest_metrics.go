package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queryCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "contest_query_duration_ms",
		Help:    "Processing time of contest query entry points",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	}, []string{"query"})
	queryCallErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contest_query_error_count",
		Help: "Number of failed contest queries by error kind",
	}, []string{"query", "kind"})
)

// observeQuery records the duration and outcome of one entry point call.
// It is deferred with a pointer to the named error result.
func observeQuery(query string, start time.Time, err *error) {
	queryCallDuration.WithLabelValues(query).Observe(float64(time.Since(start).Milliseconds()))
	if err != nil && *err != nil {
		queryCallErrors.WithLabelValues(query, ErrorKindName(*err)).Inc()
	}
}
