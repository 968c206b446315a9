// internal/pkg/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal 按路由模板统计请求数，避免把 id 写进 label
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Number of HTTP requests handled, by route template and status code.",
	}, []string{"route", "method", "code"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by route template.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	// ReservationsTotal result: reserved | not_found | insufficient | invalid | error
	ReservationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_reservations_total",
		Help: "Reserve attempts against the inventory store, by outcome.",
	}, []string{"result"})

	// OrdersTotal status: confirmed | failed
	OrdersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_total",
		Help: "Orders recorded by the order orchestrator, by status.",
	}, []string{"status"})

	SagaStepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "order_saga_step_duration_seconds",
		Help:    "Latency of each order saga step.",
		Buckets: prometheus.DefBuckets,
	}, []string{"step"})

	OutcomePublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_outcome_publish_failures_total",
		Help: "Order outcome events that could not be published.",
	})
)
