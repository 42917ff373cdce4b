package observability

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// Registry holds every client-side metric. It is separate from the default
// registry so the emulator's HTTP metrics never mix with client metrics.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// RemoteRequests counts remote service calls by service, operation and outcome.
	RemoteRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "feedsync_remote_requests_total",
		Help: "Total number of remote service calls by outcome",
	}, []string{"service", "operation", "outcome"})

	// RemoteRequestDuration records remote call latency.
	RemoteRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "feedsync_remote_request_duration_seconds",
		Help:    "Remote service call latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"service", "operation"})

	// StoreOperations counts store transitions (pending, fulfilled, rejected).
	StoreOperations = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "feedsync_store_operations_total",
		Help: "Total store operation transitions by status",
	}, []string{"store", "operation", "status"})

	// CommentCacheLookups counts comment fetch dedup cache hits and misses.
	CommentCacheLookups = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "feedsync_comment_cache_lookups_total",
		Help: "Comment fetch dedup cache lookups by result",
	}, []string{"result"})
)

// Remote call outcomes.
const (
	OutcomeOK           = "ok"
	OutcomeRemoteError  = "remote_error"
	OutcomeNetworkError = "network_error"
)

// TrackRemoteCall returns a function that records latency and outcome when called (e.g. defer).
func TrackRemoteCall(service, operation string) func(outcome string) {
	start := time.Now()
	return func(outcome string) {
		RemoteRequestDuration.WithLabelValues(service, operation).Observe(time.Since(start).Seconds())
		RemoteRequests.WithLabelValues(service, operation, outcome).Inc()
	}
}

// RecordStoreOperation increments the store transition counter.
func RecordStoreOperation(store, operation, status string) {
	StoreOperations.WithLabelValues(store, operation, status).Inc()
}

// WriteMetrics renders the client registry in the Prometheus text format.
func WriteMetrics(w io.Writer) error {
	families, err := Registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
