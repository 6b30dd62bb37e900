package sensor

import (
	"context"
	"io"
	"log/slog"
	"sort"

	"github.com/paulmach/orb"

	"github.com/tkorpela/terraseries/internal/archive"
	"github.com/tkorpela/terraseries/internal/errors"
	"github.com/tkorpela/terraseries/internal/logging"
)

// Package-level logger for harmonization and collection assembly
var (
	sensorLogger   *slog.Logger
	sensorLevelVar = new(slog.LevelVar)
)

func init() {
	var err error
	sensorLevelVar.Set(slog.LevelDebug)

	sensorLogger, _, err = logging.NewFileLogger("logs/sensor.log", "sensor", sensorLevelVar)
	if err != nil {
		logging.Error("Failed to initialize sensor file logger", "error", err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: sensorLevelVar})
		sensorLogger = slog.New(fbHandler).With("service", "sensor")
	}
}

// Adapter assembles harmonized image collections across the generations of a
// sensor family. It performs read-only archive queries and holds no state
// beyond the injected client, so one adapter may serve concurrent requests.
type Adapter struct {
	client archive.Client
}

// NewAdapter creates an adapter over the given archive client.
func NewAdapter(client archive.Client) *Adapter {
	return &Adapter{client: client}
}

// AssembleCollection unions the catalogue sub-ranges of every generation of
// family whose valid span intersects dr, applying the server-side cloud-cover
// filter per generation, and returns the merged candidate set ordered by
// acquisition time.
func (a *Adapter) AssembleCollection(ctx context.Context, region orb.Polygon, dr archive.DateRange, family Family, cloudCoverMax float64) ([]archive.ImageRef, error) {
	gens := GenerationsFor(family, dr)
	if len(gens) == 0 {
		return nil, errors.Newf("no %s generation covers %s to %s: %w",
			family, dr.Start.Format("2006-01-02"), dr.End.Format("2006-01-02"), ErrNoGenerationMatch).
			Component("sensor").
			Category(errors.CategoryNoData).
			Context("family", string(family)).
			Context("start", dr.Start.Format("2006-01-02")).
			Context("end", dr.End.Format("2006-01-02")).
			Build()
	}

	var merged []archive.ImageRef
	for _, gen := range gens {
		filter := archive.Filter{
			Collection:    gen.Collection,
			CloudCoverMax: cloudCoverMax,
		}
		// radar acquisitions carry no usable cloud metadata
		if family == FamilySentinel1 {
			filter.CloudCoverMax = -1
		}

		refs, err := a.client.ListImages(ctx, region, gen.ClampRange(dr), filter, 0)
		if err != nil {
			return nil, err
		}
		sensorLogger.Debug("Assembled generation sub-collection",
			"generation", string(gen.Generation),
			"collection", gen.Collection,
			"images", len(refs),
		)
		merged = append(merged, refs...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].AcquiredAt.Before(merged[j].AcquiredAt)
	})

	sensorLogger.Info("Collection assembly complete",
		"family", string(family),
		"generations", len(gens),
		"images", len(merged),
	)
	return merged, nil
}

// Resolve attributes an image to its sensor generation. Resolution is by
// acquisition date; where mission spans overlap the distinguishing band is
// probed once through FetchImage and dispatched via the catalogue table.
func (a *Adapter) Resolve(ctx context.Context, ref archive.ImageRef, family Family) (Generation, error) {
	var candidates []*Info
	for _, info := range GenerationsFor(family, archive.DateRange{Start: ref.AcquiredAt, End: ref.AcquiredAt.Add(1)}) {
		candidates = append(candidates, info)
	}

	switch len(candidates) {
	case 0:
		return "", errors.Newf("image %s acquired %s matches no %s generation: %w",
			ref.ID, ref.AcquiredAt.Format("2006-01-02"), family, ErrNoGenerationMatch).
			Component("sensor").
			Category(errors.CategoryNoData).
			Build()
	case 1:
		return candidates[0].Generation, nil
	}

	// Overlapping spans: probe for each candidate's distinguishing band,
	// newest instrument first.
	img, err := a.client.FetchImage(ctx, ref.ID)
	if err != nil {
		return "", err
	}
	for _, info := range candidates {
		if info.ProbeBand != "" && img.HasBand(info.ProbeBand) {
			return info.Generation, nil
		}
	}
	for _, info := range candidates {
		if info.ProbeBand == "" {
			return info.Generation, nil
		}
	}

	sensorLogger.Warn("Capability probe inconclusive, using newest candidate",
		"image", ref.ID, "generation", string(candidates[0].Generation))
	return candidates[0].Generation, nil
}
