package http

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "splitledger_http_requests_total",
			Help: "HTTP requests by method, path and status code.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "splitledger_http_request_duration_seconds",
			Help:    "HTTP request latency by method and path.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	expensesCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "splitledger_expenses_created_total",
			Help: "Successfully recorded expenses.",
		},
	)

	allocationRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "splitledger_allocation_rejections_total",
			Help: "Rejected expense creations by validation kind.",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		expensesCreatedTotal,
		allocationRejectionsTotal,
	)
}

func observeRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
