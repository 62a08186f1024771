package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SalesInitiatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sales_initiated_total",
		Help: "Total number of sales initiated",
	})

	SalesCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sales_completed_total",
		Help: "Total number of sales fully paid and completed",
	})

	SalesCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sales_cancelled_total",
		Help: "Total number of sales cancelled",
	})

	SalesFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_failed_total",
		Help: "Total number of failed sale initiations",
	}, []string{"reason"})

	PaymentsInitializedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_initialized_total",
		Help: "Total number of gateway charges initialized",
	})

	PaymentsVerifiedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_verified_total",
		Help: "Total number of payments verified and applied",
	})

	PaymentsReplayedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_replayed_total",
		Help: "Total number of idempotent verification replays",
	})

	PaymentsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_failed_total",
		Help: "Total number of failed payment verifications",
	}, []string{"reason"})

	PaymentApplyLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "payment_apply_latency_seconds",
		Help:    "Latency of the transactional payment application",
		Buckets: prometheus.DefBuckets,
	})

	GatewayRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_request_duration_seconds",
		Help:    "Latency of payment gateway calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
