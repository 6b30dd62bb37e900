// Package archive defines the client interface to the remote image-archive
// service and its REST implementation. All catalogue queries and region
// reductions the pipeline performs go through the Client interface so tests
// can substitute a scripted archive.
package archive

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/paulmach/orb"

	"github.com/tkorpela/terraseries/internal/errors"
	"github.com/tkorpela/terraseries/internal/logging"
)

// Package-level logger for archive operations
var (
	archiveLogger   *slog.Logger
	archiveLevelVar = new(slog.LevelVar)
)

func init() {
	var err error
	archiveLevelVar.Set(slog.LevelDebug)

	archiveLogger, _, err = logging.NewFileLogger("logs/archive.log", "archive", archiveLevelVar)
	if err != nil {
		logging.Error("Failed to initialize archive file logger", "error", err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: archiveLevelVar})
		archiveLogger = slog.New(fbHandler).With("service", "archive")
		logging.Warn("Archive service falling back to default logger due to file logger initialization error.")
	}
}

// Sentinel errors distinguishing the archive failure modes the pipeline
// dispatches on. A compute-limit error drives tier escalation; anything else
// aborts the current request.
var (
	ErrComputeLimit = errors.NewStd("archive: per-call compute limit exceeded")
	ErrUnavailable  = errors.NewStd("archive: service unavailable")
	ErrNotFound     = errors.NewStd("archive: image not found")
)

// DateRange is a half-open acquisition interval [Start, End).
type DateRange struct {
	Start time.Time
	End   time.Time
}

// SpanYears returns the range length in fractional years.
func (dr DateRange) SpanYears() float64 {
	return dr.End.Sub(dr.Start).Hours() / 24 / 365.25
}

// Filter narrows catalogue queries server-side.
type Filter struct {
	Collection    string  // archive collection identifier, one per sensor generation
	CloudCoverMax float64 // maximum reported cloud cover percent, negative to disable
}

// ImageRef is an opaque handle to a remote image plus the catalogue metadata
// needed for filtering and selection. Never mutated after creation.
type ImageRef struct {
	ID         string
	AcquiredAt time.Time
	CloudCover float64 // archive-reported percent, -1 when unknown
	Footprint  orb.Polygon
}

// Image is a fetched image handle carrying the band inventory used for
// generation probing.
type Image struct {
	Ref        ImageRef
	Bands      []string
	Properties map[string]float64
}

// HasBand reports whether the image carries a band with the given native name.
func (img *Image) HasBand(name string) bool {
	for _, b := range img.Bands {
		if b == name {
			return true
		}
	}
	return false
}

// Reducer names a region-reduction statistic supported by the archive.
type Reducer string

const (
	ReducerMean   Reducer = "mean"
	ReducerMin    Reducer = "min"
	ReducerMax    Reducer = "max"
	ReducerStdDev Reducer = "stddev"
	ReducerCount  Reducer = "count"
)

// BandRef maps a semantic channel to a native band with the scale/offset pair
// converting raw digital values to physical units.
type BandRef struct {
	Native string  `json:"band"`
	Scale  float64 `json:"scale"`
	Offset float64 `json:"offset"`
}

// ImageSpec selects one source image and its semantic band mapping. The
// archive applies the mapping before compositing, so mixed sensor
// generations can share one reduction.
type ImageSpec struct {
	ID    string             `json:"id"`
	Bands map[string]BandRef `json:"bands"`
}

// CompositeMethod selects how multiple images collapse into one before the
// reduction runs.
type CompositeMethod string

const (
	CompositeNone CompositeMethod = ""
	CompositeMean CompositeMethod = "mean"
)

// ReduceTarget describes the server-side computation a reduction runs over:
// harmonized source images, an optional composite step, and the band
// expression evaluated per pixel.
type ReduceTarget struct {
	Images     []ImageSpec
	Composite  CompositeMethod
	Expression string
}

// Client is the pipeline's only gateway to the remote archive. All calls are
// blocking network round-trips carrying their own timeout via ctx; callers
// must treat ErrComputeLimit as retriable only by strategy escalation.
type Client interface {
	// Count returns the number of catalogue images matching the query.
	Count(ctx context.Context, region orb.Polygon, dr DateRange, f Filter) (int, error)

	// ListImages returns up to limit catalogue entries matching the query,
	// ordered by acquisition time. limit <= 0 means no limit.
	ListImages(ctx context.Context, region orb.Polygon, dr DateRange, f Filter, limit int) ([]ImageRef, error)

	// FetchImage resolves an image handle including its band inventory.
	FetchImage(ctx context.Context, id string) (*Image, error)

	// ReduceRegion runs one region reduction over the target and returns the
	// reduced value. scale is meters per pixel; maxPixels is the per-call
	// budget and must stay under the service ceiling.
	ReduceRegion(ctx context.Context, target ReduceTarget, reducer Reducer, region orb.Polygon, scale float64, maxPixels int64) (float64, error)
}
