// Package metrics exposes Prometheus collectors for builds and the feed
// server.
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
	buildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "virtualdate_builds_total",
			Help: "Total number of schedule builds",
		},
		[]string{"status"},
	)

	buildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "virtualdate_build_duration_seconds",
			Help:    "Schedule build time in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	instancesPlaced = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "virtualdate_instances_placed",
			Help:    "Number of instances placed per build",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	tasksDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "virtualdate_tasks_dropped_total",
			Help: "Total number of tasks that could not be placed",
		},
	)

	validationErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "virtualdate_validation_errors_total",
			Help: "Total number of task file validation errors",
		},
	)

	feedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "virtualdate_feed_requests_total",
			Help: "Total number of calendar feed requests",
		},
		[]string{"path", "status"},
	)

	feedRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "virtualdate_feed_request_duration_seconds",
			Help:    "Calendar feed request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"path"},
	)
)

func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordBuild(status string, duration time.Duration, placed int) {
	buildsTotal.WithLabelValues(status).Inc()
	buildDuration.Observe(duration.Seconds())
	if status == "success" {
		instancesPlaced.Observe(float64(placed))
	}
}

func RecordDroppedTask() {
	tasksDropped.Inc()
}

func RecordValidationErrors(count int) {
	validationErrors.Add(float64(count))
}

func RecordFeedRequest(path string, status int, duration time.Duration) {
	feedRequests.WithLabelValues(path, strconv.Itoa(status)).Inc()
	feedRequestDuration.WithLabelValues(path).Observe(duration.Seconds())
}
