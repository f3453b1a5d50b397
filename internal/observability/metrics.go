// Package observability provides metrics and tracing.
package observability

import (
	"sync"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PostMutations counts successful post writes by action.
	PostMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedql_post_mutations_total",
		Help: "Total number of successful post mutations by action",
	}, []string{"action"})

	// NotificationsPublished counts post events handed to a transport.
	NotificationsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedql_notifications_published_total",
		Help: "Total number of post events published by transport and outcome",
	}, []string{"transport", "outcome"})

	// ImageCleanupFailures counts stored images that could not be removed.
	ImageCleanupFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedql_image_cleanup_failures_total",
		Help: "Total number of failed image file removals",
	})

	// ImagesStored counts uploads accepted by the image store.
	ImagesStored = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedql_images_stored_total",
		Help: "Total number of uploads by outcome",
	}, []string{"outcome"})

	// WebSocketConnections is the gauge of live feed subscribers.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "feedql_websocket_connections",
		Help: "Number of active feed WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped because a client buffer was full or closed.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedql_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"reason"})

	// GraphQLOperations counts executed GraphQL operations.
	GraphQLOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedql_graphql_operations_total",
		Help: "Total number of GraphQL operations by operation name and outcome",
	}, []string{"operation", "outcome"})

	// GraphQLDuration records GraphQL execution latency.
	GraphQLDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "feedql_graphql_duration_seconds",
		Help:    "GraphQL execution latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// RedisErrors counts Redis command failures by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedql_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})
)

// ObserveGraphQL records the outcome and latency of one GraphQL operation.
func ObserveGraphQL(operation string, start time.Time, failed bool) {
	if operation == "" {
		operation = "anonymous"
	}
	outcome := "ok"
	if failed {
		outcome = "error"
	}
	GraphQLOperations.WithLabelValues(operation, outcome).Inc()
	GraphQLDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

var (
	httpMetricsOnce sync.Once
	httpMetrics     *fiberprometheus.FiberPrometheus
)

// HTTPMetrics returns the fiberprometheus middleware. Its collectors live in
// the default registry, so it is built once per process.
func HTTPMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	httpMetricsOnce.Do(func() {
		httpMetrics = fiberprometheus.NewWithRegistry(prometheus.DefaultRegisterer, serviceName, "feedql", "http", nil)
	})
	return httpMetrics
}
