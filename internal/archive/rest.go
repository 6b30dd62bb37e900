package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/paulmach/orb"

	"github.com/tkorpela/terraseries/internal/conf"
)

const (
	// UserAgent string for API requests
	UserAgent = "terraseries/1.0"

	// codeComputeLimit is the error code the archive returns when a call
	// exceeds its per-call compute/memory budget.
	codeComputeLimit = "COMPUTE_LIMIT_EXCEEDED"
)

// RestClient implements Client against the archive's REST API.
type RestClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewRestClient creates a REST archive client from settings. The per-call
// timeout applies to every request; there is no transport-level retry, cost
// failures are handled by strategy escalation upstream.
func NewRestClient(settings *conf.ArchiveSettings) *RestClient {
	return &RestClient{
		endpoint: settings.Endpoint,
		apiKey:   settings.APIKey,
		httpClient: &http.Client{
			Timeout: time.Duration(settings.TimeoutSeconds) * time.Second,
		},
	}
}

// Wire types. The archive speaks GeoJSON-style coordinate arrays and ISO
// timestamps.

type regionJSON [][]float64

func encodeRegion(region orb.Polygon) regionJSON {
	if len(region) == 0 {
		return nil
	}
	coords := make(regionJSON, 0, len(region[0]))
	for _, pt := range region[0] {
		coords = append(coords, []float64{pt[0], pt[1]})
	}
	return coords
}

type queryRequest struct {
	Region        regionJSON `json:"region"`
	Start         string     `json:"start"`
	End           string     `json:"end"`
	Collection    string     `json:"collection"`
	CloudCoverMax *float64   `json:"cloud_cover_max,omitempty"`
	Limit         int        `json:"limit,omitempty"`
}

type countResponse struct {
	Count int `json:"count"`
}

type imageJSON struct {
	ID         string             `json:"id"`
	Acquired   string             `json:"acquired"`
	CloudCover float64            `json:"cloud_cover"`
	Footprint  regionJSON         `json:"footprint"`
	Bands      []string           `json:"bands,omitempty"`
	Properties map[string]float64 `json:"properties,omitempty"`
}

type listResponse struct {
	Images []imageJSON `json:"images"`
}

type reduceRequest struct {
	Images     []ImageSpec `json:"images"`
	Composite  string      `json:"composite,omitempty"`
	Expression string      `json:"expression"`
	Reducer    string      `json:"reducer"`
	Region     regionJSON  `json:"region"`
	Scale      float64     `json:"scale"`
	MaxPixels  int64       `json:"max_pixels"`
}

type reduceResponse struct {
	Value float64 `json:"value"`
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newQueryRequest(region orb.Polygon, dr DateRange, f Filter, limit int) queryRequest {
	req := queryRequest{
		Region:     encodeRegion(region),
		Start:      dr.Start.Format("2006-01-02"),
		End:        dr.End.Format("2006-01-02"),
		Collection: f.Collection,
		Limit:      limit,
	}
	if f.CloudCoverMax >= 0 {
		ccm := f.CloudCoverMax
		req.CloudCoverMax = &ccm
	}
	return req
}

// Count implements Client.
func (c *RestClient) Count(ctx context.Context, region orb.Polygon, dr DateRange, f Filter) (int, error) {
	var resp countResponse
	if err := c.post(ctx, "/catalog/count", newQueryRequest(region, dr, f, 0), &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// ListImages implements Client.
func (c *RestClient) ListImages(ctx context.Context, region orb.Polygon, dr DateRange, f Filter, limit int) ([]ImageRef, error) {
	var resp listResponse
	if err := c.post(ctx, "/catalog/list", newQueryRequest(region, dr, f, limit), &resp); err != nil {
		return nil, err
	}

	refs := make([]ImageRef, 0, len(resp.Images))
	for i := range resp.Images {
		ref, err := decodeImageRef(&resp.Images[i])
		if err != nil {
			archiveLogger.Warn("Skipping catalogue entry with malformed metadata",
				"id", resp.Images[i].ID, "error", err)
			continue
		}
		refs = append(refs, ref)
	}

	archiveLogger.Debug("Catalogue query complete",
		"collection", f.Collection,
		"start", dr.Start.Format("2006-01-02"),
		"end", dr.End.Format("2006-01-02"),
		"images", len(refs),
	)
	return refs, nil
}

// FetchImage implements Client.
func (c *RestClient) FetchImage(ctx context.Context, id string) (*Image, error) {
	var resp imageJSON
	if err := c.get(ctx, "/images/"+id, &resp); err != nil {
		return nil, err
	}
	ref, err := decodeImageRef(&resp)
	if err != nil {
		return nil, fmt.Errorf("malformed image metadata for %s: %w", id, err)
	}
	return &Image{
		Ref:        ref,
		Bands:      resp.Bands,
		Properties: resp.Properties,
	}, nil
}

// ReduceRegion implements Client.
func (c *RestClient) ReduceRegion(ctx context.Context, target ReduceTarget, reducer Reducer, region orb.Polygon, scale float64, maxPixels int64) (float64, error) {
	req := reduceRequest{
		Images:     target.Images,
		Composite:  string(target.Composite),
		Expression: target.Expression,
		Reducer:    string(reducer),
		Region:     encodeRegion(region),
		Scale:      scale,
		MaxPixels:  maxPixels,
	}

	start := time.Now()
	var resp reduceResponse
	if err := c.post(ctx, "/reduce", req, &resp); err != nil {
		return 0, err
	}

	archiveLogger.Debug("Region reduction complete",
		"images", len(target.Images),
		"reducer", string(reducer),
		"scale_m", scale,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resp.Value, nil
}

func decodeImageRef(img *imageJSON) (ImageRef, error) {
	acquired, err := time.Parse(time.RFC3339, img.Acquired)
	if err != nil {
		// catalogue entries sometimes carry date-only acquisition stamps
		acquired, err = time.Parse("2006-01-02", img.Acquired)
		if err != nil {
			return ImageRef{}, fmt.Errorf("unparseable acquisition time %q: %w", img.Acquired, err)
		}
	}

	var footprint orb.Polygon
	if len(img.Footprint) >= 3 {
		ring := make(orb.Ring, 0, len(img.Footprint))
		for _, c := range img.Footprint {
			if len(c) != 2 {
				return ImageRef{}, fmt.Errorf("malformed footprint coordinate in %s", img.ID)
			}
			ring = append(ring, orb.Point{c[0], c[1]})
		}
		footprint = orb.Polygon{ring}
	}

	return ImageRef{
		ID:         img.ID,
		AcquiredAt: acquired,
		CloudCover: img.CloudCover,
		Footprint:  footprint,
	}, nil
}

func (c *RestClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("error encoding request body: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(payload), out)
}

func (c *RestClient) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, http.NoBody, out)
}

func (c *RestClient) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response body: %v", ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return c.statusError(resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("error unmarshaling archive response: %w", err)
	}
	return nil
}

// statusError maps an archive error response to the sentinel the pipeline
// dispatches on. The compute-limit signal arrives either as HTTP 429 or as a
// structured error code in the body.
func (c *RestClient) statusError(status int, body []byte) error {
	var envelope errorEnvelope
	_ = json.Unmarshal(body, &envelope)

	switch {
	case status == http.StatusTooManyRequests || envelope.Error.Code == codeComputeLimit:
		archiveLogger.Warn("Archive signalled compute limit exceeded", "status", status)
		return fmt.Errorf("%w: %s", ErrComputeLimit, envelope.Error.Message)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, envelope.Error.Message)
	default:
		archiveLogger.Error("Archive request failed", "status", status, "code", envelope.Error.Code)
		if envelope.Error.Message != "" {
			return fmt.Errorf("%w: status %d: %s", ErrUnavailable, status, envelope.Error.Message)
		}
		return fmt.Errorf("%w: status %d", ErrUnavailable, status)
	}
}
