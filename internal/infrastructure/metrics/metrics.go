package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "jan"
	subsystem = "support_chat"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method", "endpoint", "status"},
	)

	// Relay
	RelayFragmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "relay_fragments_total",
			Help:      "Text fragments forwarded to clients",
		},
		[]string{"model"},
	)

	RelayBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "relay_bytes_total",
			Help:      "Bytes of reply text forwarded to clients",
		},
		[]string{"model"},
	)

	FirstFragmentDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "first_fragment_seconds",
			Help:      "Time from relay start to the first forwarded fragment",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"model"},
	)

	ActiveRelays = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "active_relays",
			Help:      "Relays currently streaming",
		},
		[]string{"model"},
	)

	UpstreamErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "upstream_errors_total",
			Help:      "Completion upstream failures by phase (open|stream)",
		},
		[]string{"model", "phase"},
	)

	RelayAbortsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "relay_aborts_total",
			Help:      "Relay responses dropped mid-stream after an upstream failure",
		},
		[]string{"model"},
	)

	// Document store
	DocstoreOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "docstore_operations_total",
			Help:      "Conversation document store operations",
		},
		[]string{"backend", "op", "result"},
	)

	DocstoreCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "docstore_cache_total",
			Help:      "Conversation cache lookups (hit|miss)",
		},
		[]string{"cache", "result"},
	)
)

// RecordRequest records an HTTP request.
func RecordRequest(method, endpoint string, status int, durationSec float64) {
	code := strconv.Itoa(status)
	RequestsTotal.WithLabelValues(method, endpoint, code).Inc()
	RequestDuration.WithLabelValues(method, endpoint, code).Observe(durationSec)
}

// RecordFragment records one forwarded relay fragment.
func RecordFragment(model string, size int) {
	RelayFragmentsTotal.WithLabelValues(model).Inc()
	RelayBytesTotal.WithLabelValues(model).Add(float64(size))
}

// RecordUpstreamError records an upstream failure during open or streaming.
func RecordUpstreamError(model, phase string) {
	UpstreamErrorsTotal.WithLabelValues(model, phase).Inc()
}

// RecordRelayAbort records a relay whose connection was dropped mid-stream.
// The request metrics middleware never sees these requests.
func RecordRelayAbort(model string) {
	RelayAbortsTotal.WithLabelValues(model).Inc()
}

// RecordDocstoreOp records a document store call outcome.
func RecordDocstoreOp(backend, op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	DocstoreOpsTotal.WithLabelValues(backend, op, result).Inc()
}

// RecordCacheLookup records a cache hit or miss.
func RecordCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	DocstoreCacheTotal.WithLabelValues(cache, result).Inc()
}
