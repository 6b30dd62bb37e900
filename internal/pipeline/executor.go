package pipeline

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/tkorpela/terraseries/internal/archive"
	"github.com/tkorpela/terraseries/internal/coverage"
	"github.com/tkorpela/terraseries/internal/errors"
	"github.com/tkorpela/terraseries/internal/planner"
	"github.com/tkorpela/terraseries/internal/sensor"
	"github.com/tkorpela/terraseries/internal/series"
)

// Diagnostics carries provenance from one executor run.
type Diagnostics struct {
	TiersAttempted       []planner.Tier `json:"tiers_attempted"`
	TotalChunksProcessed int            `json:"total_chunks_processed,omitempty"`
	CandidateCount       int            `json:"candidate_count"`
	SurvivingCount       int            `json:"surviving_count"`
	CoverageFellBack     bool           `json:"coverage_fell_back,omitempty"`
}

// execution is the per-request working set handed through the tier chain.
// Each invocation owns its own execution; nothing here is shared.
type execution struct {
	spec       *RequestSpec
	dateRange  archive.DateRange
	plan       planner.Plan
	candidates []archive.ImageRef // post-coverage surviving set
	lat        float64            // region centroid
	lon        float64
	cloudScale float64 // masking strictness factor for effective cloud cover
}

// execute runs the tier chain starting at the planned tier. A compute-limit
// rejection escalates to the next cheaper tier; any other error aborts
// immediately, because escalation addresses cost, not availability. When
// every tier is exhausted the terminal error carries remediation suggestions.
func (p *Pipeline) execute(ctx context.Context, ex *execution) ([]series.Point, Diagnostics, error) {
	diag := Diagnostics{SurvivingCount: len(ex.candidates)}

	tier := ex.plan.Tier
	for {
		diag.TiersAttempted = append(diag.TiersAttempted, tier)

		points, err := p.runTier(ctx, tier, ex, &diag)
		if err == nil {
			if p.metrics != nil {
				p.metrics.Pipeline.RecordPointsProduced(string(tier), len(points))
			}
			return points, diag, nil
		}

		if !errors.Is(err, archive.ErrComputeLimit) {
			return nil, diag, err
		}

		next, ok := tier.Next()
		if !ok {
			return nil, diag, p.terminalError(ex, err)
		}

		pipelineLogger.Warn("Tier rejected on compute limit, escalating",
			"from", string(tier),
			"to", string(next),
			"kind", string(ex.spec.Kind),
		)
		if p.metrics != nil {
			p.metrics.Pipeline.RecordTierEscalation(string(tier), string(next))
		}
		tier = next
	}
}

func (p *Pipeline) runTier(ctx context.Context, tier planner.Tier, ex *execution, diag *Diagnostics) ([]series.Point, error) {
	switch tier {
	case planner.TierDirect:
		return p.runDirect(ctx, ex)
	case planner.TierAnnual:
		return p.runAnnual(ctx, ex, ex.candidates, ex.dateRange)
	default:
		return p.runChunkedAnnual(ctx, ex, diag)
	}
}

// terminalError converts an exhausted tier chain into the user-facing
// structured failure.
func (p *Pipeline) terminalError(ex *execution, cause error) error {
	return errors.Newf("every processing strategy exceeded the archive compute limit: %w", cause).
		Component("pipeline").
		Category(errors.CategoryComputeLimit).
		Context("kind", string(ex.spec.Kind)).
		Context("family", string(ex.spec.Family)).
		Context("start", ex.spec.Start.Format("2006-01-02")).
		Context("end", ex.spec.End.Format("2006-01-02")).
		Suggestion(
			"narrow the date range",
			"reduce the region size",
			"sample seasonally instead of processing every acquisition",
		).
		Build()
}

// runDirect harmonizes and reduces each surviving image individually,
// producing one observation point per acquisition date. Sampling caps the
// image count for cost control while preserving temporal spread.
func (p *Pipeline) runDirect(ctx context.Context, ex *execution) ([]series.Point, error) {
	refs := sampleRefs(ex.candidates, ex.plan.SampleCap)

	points := make([]series.Point, 0, len(refs))
	for i := range refs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ref := &refs[i]

		gen, err := p.adapter.Resolve(ctx, *ref, ex.spec.Family)
		if err != nil {
			return nil, err
		}
		spec, err := sensor.HarmonizedSpec(gen, ref.ID, ex.spec.Kind)
		if err != nil {
			return nil, err
		}

		target := archive.ReduceTarget{
			Images:     []archive.ImageSpec{spec},
			Expression: sensor.Expression(ex.spec.Kind),
		}
		value, err := p.client.ReduceRegion(ctx, target, archive.ReducerMean, ex.spec.Region, ex.plan.Scale, ex.plan.MaxPixels)
		if err != nil {
			return nil, err
		}

		points = append(points, series.Point{
			Date:                ref.AcquiredAt.Format("2006-01-02"),
			Value:               value,
			CloudCover:          ref.CloudCover,
			EffectiveCloudCover: effectiveCloud(ref.CloudCover, ex.cloudScale),
			Latitude:            ex.lat,
			Longitude:           ex.lon,
			SourceID:            ref.ID,
			SensorLabel:         generationLabel(gen),
			Acquisitions:        1,
		})
	}
	return points, nil
}

// runAnnual builds one mean composite per calendar year of refs and reduces
// each with a single region call, producing one point per year labelled with
// a mid-year representative date.
func (p *Pipeline) runAnnual(ctx context.Context, ex *execution, refs []archive.ImageRef, dr archive.DateRange) ([]series.Point, error) {
	byYear := groupByYear(refs)

	years := make([]int, 0, len(byYear))
	for year := range byYear {
		years = append(years, year)
	}
	sort.Ints(years)

	points := make([]series.Point, 0, len(years))
	for _, year := range years {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		yearRefs := byYear[year]
		specs := make([]archive.ImageSpec, 0, len(yearRefs))
		labels := make(map[sensor.Generation]struct{})
		var label string
		var cloudSum float64
		cloudKnown := 0
		for i := range yearRefs {
			ref := &yearRefs[i]
			gen, err := p.adapter.Resolve(ctx, *ref, ex.spec.Family)
			if err != nil {
				return nil, err
			}
			spec, err := sensor.HarmonizedSpec(gen, ref.ID, ex.spec.Kind)
			if err != nil {
				return nil, err
			}
			specs = append(specs, spec)
			labels[gen] = struct{}{}
			label = generationLabel(gen)
			if ref.CloudCover >= 0 {
				cloudSum += ref.CloudCover
				cloudKnown++
			}
		}
		if len(labels) > 1 {
			label = "mixed"
		}

		target := archive.ReduceTarget{
			Images:     specs,
			Composite:  archive.CompositeMean,
			Expression: sensor.Expression(ex.spec.Kind),
		}
		value, err := p.client.ReduceRegion(ctx, target, archive.ReducerMean, ex.spec.Region, ex.plan.Scale, ex.plan.MaxPixels)
		if err != nil {
			return nil, err
		}

		cloud := -1.0
		if cloudKnown > 0 {
			cloud = cloudSum / float64(cloudKnown)
		}

		points = append(points, series.Point{
			Date:                midYearDate(year),
			Value:               value,
			CloudCover:          cloud,
			EffectiveCloudCover: effectiveCloud(cloud, ex.cloudScale),
			Latitude:            ex.lat,
			Longitude:           ex.lon,
			SourceID:            "composite-" + uuid.NewString(),
			SensorLabel:         label,
			Acquisitions:        len(yearRefs),
		})
	}
	return points, nil
}

// runChunkedAnnual partitions the date range into fixed-size year windows and
// re-queries the archive per window so each catalogue call stays bounded,
// then produces annual composites inside every window.
func (p *Pipeline) runChunkedAnnual(ctx context.Context, ex *execution, diag *Diagnostics) ([]series.Point, error) {
	chunkYears := ex.plan.ChunkYears
	if chunkYears < 1 {
		chunkYears = 1
	}

	var points []series.Point
	for ws := ex.dateRange.Start; ws.Before(ex.dateRange.End); ws = ws.AddDate(chunkYears, 0, 0) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		we := ws.AddDate(chunkYears, 0, 0)
		if we.After(ex.dateRange.End) {
			we = ex.dateRange.End
		}
		window := archive.DateRange{Start: ws, End: we}

		refs, err := p.adapter.AssembleCollection(ctx, ex.spec.Region, window, ex.spec.Family, ex.spec.CloudCoverMax)
		if err != nil {
			// a window without matching generations is simply empty
			if errors.Is(err, sensor.ErrNoGenerationMatch) {
				diag.TotalChunksProcessed++
				continue
			}
			return nil, err
		}

		result := coverage.Filter(refs, ex.spec.Region, p.coverageThreshold(ex.spec.Family), p.coverageMode(ex.spec.Family))
		if result.FellBack {
			diag.CoverageFellBack = true
		}

		windowPoints, err := p.runAnnual(ctx, ex, result.Kept, window)
		if err != nil {
			return nil, err
		}
		points = append(points, windowPoints...)
		diag.TotalChunksProcessed++
	}

	pipelineLogger.Info("Chunked annual processing complete",
		"chunks", diag.TotalChunksProcessed,
		"points", len(points),
	)
	return points, nil
}

// sampleRefs picks at most cap refs with an even temporal stride.
func sampleRefs(refs []archive.ImageRef, cap int) []archive.ImageRef {
	if cap <= 0 || len(refs) <= cap {
		return refs
	}
	out := make([]archive.ImageRef, 0, cap)
	for i := 0; i < cap; i++ {
		out = append(out, refs[i*len(refs)/cap])
	}
	return out
}

func groupByYear(refs []archive.ImageRef) map[int][]archive.ImageRef {
	byYear := make(map[int][]archive.ImageRef)
	for i := range refs {
		year := refs[i].AcquiredAt.Year()
		byYear[year] = append(byYear[year], refs[i])
	}
	return byYear
}

func midYearDate(year int) string {
	return time.Date(year, 7, 1, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
}

// effectiveCloud applies the masking strictness factor to the reported cloud
// cover. Unknown cover (-1) stays unknown.
func effectiveCloud(reported, factor float64) float64 {
	if reported < 0 {
		return -1
	}
	return reported * factor
}

func generationLabel(gen sensor.Generation) string {
	if info, ok := sensor.Lookup(gen); ok {
		return info.Label
	}
	return string(gen)
}
