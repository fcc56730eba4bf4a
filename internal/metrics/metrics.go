package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the engine.
	Registry = prometheus.NewRegistry()

	// HTTPRequests counts requests by method, path, and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// DeliveriesEnqueued counts delivery records created per event type.
	DeliveriesEnqueued = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_deliveries_enqueued_total", Help: "Delivery records enqueued by event type."},
		[]string{"event_type"},
	)
	// DeliveryAttempts counts dispatch outcomes by terminal/retry disposition.
	DeliveryAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_delivery_attempts_total", Help: "Dispatch attempts by outcome."},
		[]string{"outcome"}, // success, retry, failed
	)
	// DeliveryLatency tracks endpoint response latencies in seconds.
	DeliveryLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "webhook_delivery_latency_seconds", Help: "Webhook endpoint latency in seconds.", Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10}},
		[]string{"outcome"},
	)
	// WorkerCycles counts poll cycles that found at least one due delivery.
	WorkerCycles = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "webhook_worker_cycles_total", Help: "Poll cycles that dispatched work."},
	)
)

var regOnce sync.Once

// Register registers all collectors on the engine registry. Safe to call
// more than once.
func Register() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(DeliveriesEnqueued)
		Registry.MustRegister(DeliveryAttempts)
		Registry.MustRegister(DeliveryLatency)
		Registry.MustRegister(WorkerCycles)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}
