package archive

import (
	"context"
	"errors"
	"time"

	"github.com/paulmach/orb"

	"github.com/tkorpela/terraseries/internal/observability/metrics"
)

// Operation labels for archive request metrics.
const (
	opCount        = "count"
	opListImages   = "list_images"
	opFetchImage   = "fetch_image"
	opReduceRegion = "reduce_region"
)

// InstrumentedClient decorates a Client with Prometheus request metrics:
// per-operation counts, durations and failure kinds. Wrap the transport
// client directly so cache hits upstream cost no recorded request.
type InstrumentedClient struct {
	inner   Client
	metrics *metrics.ArchiveMetrics
}

// NewInstrumentedClient wraps inner, recording every call to m.
func NewInstrumentedClient(inner Client, m *metrics.ArchiveMetrics) *InstrumentedClient {
	return &InstrumentedClient{inner: inner, metrics: m}
}

func (c *InstrumentedClient) observe(operation string, start time.Time, err error) {
	c.metrics.RecordRequestDuration(operation, time.Since(start).Seconds())
	if err == nil {
		c.metrics.RecordRequest(operation, "success")
		return
	}
	c.metrics.RecordRequest(operation, "error")
	switch {
	case errors.Is(err, ErrComputeLimit):
		c.metrics.RecordRequestError(operation, "compute_limit")
	case errors.Is(err, ErrUnavailable):
		c.metrics.RecordRequestError(operation, "unavailable")
	default:
		c.metrics.RecordRequestError(operation, "other")
	}
}

// Count implements Client.
func (c *InstrumentedClient) Count(ctx context.Context, region orb.Polygon, dr DateRange, f Filter) (int, error) {
	start := time.Now()
	count, err := c.inner.Count(ctx, region, dr, f)
	c.observe(opCount, start, err)
	return count, err
}

// ListImages implements Client.
func (c *InstrumentedClient) ListImages(ctx context.Context, region orb.Polygon, dr DateRange, f Filter, limit int) ([]ImageRef, error) {
	start := time.Now()
	refs, err := c.inner.ListImages(ctx, region, dr, f, limit)
	c.observe(opListImages, start, err)
	return refs, err
}

// FetchImage implements Client.
func (c *InstrumentedClient) FetchImage(ctx context.Context, id string) (*Image, error) {
	start := time.Now()
	img, err := c.inner.FetchImage(ctx, id)
	c.observe(opFetchImage, start, err)
	return img, err
}

// ReduceRegion implements Client.
func (c *InstrumentedClient) ReduceRegion(ctx context.Context, target ReduceTarget, reducer Reducer, region orb.Polygon, scale float64, maxPixels int64) (float64, error) {
	start := time.Now()
	value, err := c.inner.ReduceRegion(ctx, target, reducer, region, scale, maxPixels)
	c.observe(opReduceRegion, start, err)
	return value, err
}
