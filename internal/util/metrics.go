package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CartOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cart_operations_total",
		Help: "Total number of cart mutations",
	}, []string{"operation", "result"})

	CartCountCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cart_count_cache_total",
		Help: "Cart badge count cache lookups",
	}, []string{"result"})

	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_orders_created_total",
		Help: "Total number of orders created",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_orders_failed_total",
		Help: "Total number of rejected or failed order creations",
	}, []string{"reason"})

	OrderCompensationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_order_compensations_total",
		Help: "Orders deleted after their items could not be stored",
	})

	CartClearFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_cart_clear_failed_total",
		Help: "Post-order cart clears that failed and were left to the cleanup worker",
	})

	OrderStatusTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_order_status_transitions_total",
		Help: "Total number of order status transitions",
	}, []string{"from", "to"})

	PaymentAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_payment_attempts_total",
		Help: "Total number of payment confirmation requests",
	})

	PaymentSuccessTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_payment_success_total",
		Help: "Total number of confirmed payments",
	})

	PaymentFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_payment_failed_total",
		Help: "Total number of rejected or failed payment confirmations",
	}, []string{"reason"})

	PaymentProcessingLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "storefront_payment_processor_latency_seconds",
		Help:    "Latency of payment processor confirm calls",
		Buckets: prometheus.DefBuckets,
	})

	EventsPublishFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_events_publish_failed_total",
		Help: "Domain events that could not be published",
	}, []string{"event_type"})

	CartCleanupEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cart_cleanup_events_total",
		Help: "ORDER_CREATED events handled by the cart cleanup worker",
	}, []string{"result"})

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
