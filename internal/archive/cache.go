package archive

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/paulmach/orb"
)

// CachingClient decorates a Client with a TTL cache for catalogue queries and
// image handles. Reductions are never cached: their cost profile is what the
// planner manages, and results depend on the full target description.
type CachingClient struct {
	inner Client
	cache *gocache.Cache
}

// NewCachingClient wraps inner with a catalogue cache using the given entry
// lifetime.
func NewCachingClient(inner Client, ttl time.Duration) *CachingClient {
	return &CachingClient{
		inner: inner,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func queryKey(kind string, region orb.Polygon, dr DateRange, f Filter, limit int) string {
	b := region.Bound()
	return fmt.Sprintf("%s|%.6f,%.6f,%.6f,%.6f|%s|%s|%s|%.1f|%d",
		kind,
		b.Min[0], b.Min[1], b.Max[0], b.Max[1],
		dr.Start.Format("2006-01-02"), dr.End.Format("2006-01-02"),
		f.Collection, f.CloudCoverMax, limit,
	)
}

// Count implements Client.
func (c *CachingClient) Count(ctx context.Context, region orb.Polygon, dr DateRange, f Filter) (int, error) {
	key := queryKey("count", region, dr, f, 0)
	if cached, found := c.cache.Get(key); found {
		return cached.(int), nil
	}
	count, err := c.inner.Count(ctx, region, dr, f)
	if err != nil {
		return 0, err
	}
	c.cache.Set(key, count, gocache.DefaultExpiration)
	return count, nil
}

// ListImages implements Client.
func (c *CachingClient) ListImages(ctx context.Context, region orb.Polygon, dr DateRange, f Filter, limit int) ([]ImageRef, error) {
	key := queryKey("list", region, dr, f, limit)
	if cached, found := c.cache.Get(key); found {
		archiveLogger.Debug("Catalogue cache hit", "key", key)
		return cached.([]ImageRef), nil
	}
	refs, err := c.inner.ListImages(ctx, region, dr, f, limit)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, refs, gocache.DefaultExpiration)
	return refs, nil
}

// FetchImage implements Client. Image metadata is immutable, so handles cache
// at the same lifetime as catalogue entries.
func (c *CachingClient) FetchImage(ctx context.Context, id string) (*Image, error) {
	key := "image|" + id
	if cached, found := c.cache.Get(key); found {
		return cached.(*Image), nil
	}
	img, err := c.inner.FetchImage(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, img, gocache.DefaultExpiration)
	return img, nil
}

// ReduceRegion implements Client, passing straight through.
func (c *CachingClient) ReduceRegion(ctx context.Context, target ReduceTarget, reducer Reducer, region orb.Polygon, scale float64, maxPixels int64) (float64, error) {
	return c.inner.ReduceRegion(ctx, target, reducer, region, scale, maxPixels)
}

// Flush drops every cached entry.
func (c *CachingClient) Flush() {
	c.cache.Flush()
}
