package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ArchiveMetrics contains Prometheus metrics for remote archive operations.
type ArchiveMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestErrors   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewArchiveMetrics creates and registers new archive client metrics.
func NewArchiveMetrics(registry *prometheus.Registry) (*ArchiveMetrics, error) {
	m := &ArchiveMetrics{}
	m.initMetrics()
	for _, c := range []prometheus.Collector{m.requestsTotal, m.requestErrors, m.requestDuration} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *ArchiveMetrics) initMetrics() {
	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_requests_total",
			Help: "Total number of remote archive requests",
		},
		[]string{"operation", "status"}, // status: success, error
	)

	m.requestErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_request_errors_total",
			Help: "Total number of archive request failures by kind",
		},
		[]string{"operation", "error_kind"}, // error_kind: compute_limit, unavailable, other
	)

	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "archive_request_duration_seconds",
			Help: "Time taken by remote archive requests",
			// Catalogue queries return quickly, reductions can run tens of seconds
			Buckets: prometheus.ExponentialBuckets(BucketStart100ms, BucketFactor2, BucketCount10),
		},
		[]string{"operation"},
	)
}

// RecordRequest records the outcome of one archive request.
func (m *ArchiveMetrics) RecordRequest(operation, status string) {
	m.requestsTotal.WithLabelValues(operation, status).Inc()
}

// RecordRequestError records a failed archive request by error kind.
func (m *ArchiveMetrics) RecordRequestError(operation, errorKind string) {
	m.requestErrors.WithLabelValues(operation, errorKind).Inc()
}

// RecordRequestDuration records how long one archive request took.
func (m *ArchiveMetrics) RecordRequestDuration(operation string, seconds float64) {
	m.requestDuration.WithLabelValues(operation).Observe(seconds)
}
