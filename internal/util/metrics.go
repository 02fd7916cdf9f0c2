package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReservationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ticket_reservations_total",
		Help: "Total number of successful ticket reservations",
	})

	ReservationsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticket_reservations_failed_total",
		Help: "Total number of failed ticket reservation attempts",
	}, []string{"reason"})

	ReservationsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ticket_reservations_expired_total",
		Help: "Total number of reservations released by the expiry sweep",
	})

	ReservationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ticket_reservation_latency_seconds",
		Help:    "Latency of reservation ledger operations",
		Buckets: prometheus.DefBuckets,
	})

	OrdersCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_completed_total",
		Help: "Total number of orders committed",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of failed order attempts",
	}, []string{"reason"})

	WorkspacesExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_workspaces_expired_total",
		Help: "Total number of checkout reads rejected due to workspace expiry",
	})

	PaymentAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_attempts_total",
		Help: "Total number of payment authorization attempts",
	})

	PaymentSuccessTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_success_total",
		Help: "Total number of successful payments",
	})

	PaymentDeclinedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_declined_total",
		Help: "Total number of gateway-declined payments",
	})

	PaymentRedirectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_redirects_total",
		Help: "Total number of off-site payment redirects issued",
	})

	PaymentFaultsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_gateway_faults_total",
		Help: "Total number of unexpected payment capability faults",
	})

	PaymentProcessingLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "payment_processing_latency_seconds",
		Help:    "Latency of payment processing",
		Buckets: prometheus.DefBuckets,
	})

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
