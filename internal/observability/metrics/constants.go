// Package metrics provides Prometheus metric collectors for the analysis
// pipeline and the archive client.
package metrics

// Histogram bucket configuration constants.
const (
	// BucketStart100ms is the starting bucket for 100ms histograms (100ms to ~100s range).
	BucketStart100ms = 0.1
	// BucketStart1s is the starting bucket for 1s histograms (1s to ~17min range).
	BucketStart1s = 1.0

	// BucketFactor2 is the common exponential growth factor for histogram buckets.
	BucketFactor2 = 2

	// BucketCount10 defines 10 exponential buckets.
	BucketCount10 = 10
)
