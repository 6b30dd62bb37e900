package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkorpela/terraseries/internal/archive"
	"github.com/tkorpela/terraseries/internal/conf"
	"github.com/tkorpela/terraseries/internal/errors"
	"github.com/tkorpela/terraseries/internal/observability"
	"github.com/tkorpela/terraseries/internal/planner"
	"github.com/tkorpela/terraseries/internal/sensor"
)

// scriptedArchive scripts the remote archive for end-to-end pipeline tests.
type scriptedArchive struct {
	listFunc   func(dr archive.DateRange, f archive.Filter) ([]archive.ImageRef, error)
	fetchFunc  func(id string) (*archive.Image, error)
	reduceFunc func(target archive.ReduceTarget, reducer archive.Reducer) (float64, error)

	listCalls   int
	fetchCalls  int
	reduceCalls int
}

func (s *scriptedArchive) Count(_ context.Context, _ orb.Polygon, dr archive.DateRange, f archive.Filter) (int, error) {
	refs, err := s.ListImages(context.Background(), nil, dr, f, 0)
	return len(refs), err
}

func (s *scriptedArchive) ListImages(_ context.Context, _ orb.Polygon, dr archive.DateRange, f archive.Filter, _ int) ([]archive.ImageRef, error) {
	s.listCalls++
	if s.listFunc == nil {
		return nil, nil
	}
	return s.listFunc(dr, f)
}

func (s *scriptedArchive) FetchImage(_ context.Context, id string) (*archive.Image, error) {
	s.fetchCalls++
	if s.fetchFunc == nil {
		return nil, archive.ErrNotFound
	}
	return s.fetchFunc(id)
}

func (s *scriptedArchive) ReduceRegion(_ context.Context, target archive.ReduceTarget, reducer archive.Reducer, _ orb.Polygon, _ float64, _ int64) (float64, error) {
	s.reduceCalls++
	if s.reduceFunc == nil {
		return 0, archive.ErrUnavailable
	}
	return s.reduceFunc(target, reducer)
}

func testSettings() *conf.Settings {
	return &conf.Settings{
		Archive: conf.ArchiveSettings{
			Endpoint:       "https://archive.test/v1",
			TimeoutSeconds: 30,
		},
		Planner: conf.PlannerSettings{
			AnnualSpanYears:  3,
			ChunkedSpanYears: 10,
			AnnualImageCount: 20,
			ChunkYears:       2,
			DirectSampleCap:  50,
			AreaMediumKm2:    500,
			AreaCoarseKm2:    2000,
			FineScale:        30,
			MediumScale:      100,
			CoarseScale:      250,
			FinePixels:       1e9,
			MediumPixels:     1e8,
			CoarsePixels:     1e7,
		},
		Coverage: conf.CoverageSettings{
			OpticalThreshold: 99,
			RadarThreshold:   85,
		},
		Masking: conf.MaskingSettings{
			BasicFactor:  0.5,
			StrictFactor: 0.3,
		},
	}
}

// smallRegion is roughly 15 km2, well under the medium-resolution boundary.
func smallRegion() orb.Polygon {
	return orb.Polygon{orb.Ring{
		{24.90, 60.15}, {24.95, 60.15}, {24.95, 60.20}, {24.90, 60.20}, {24.90, 60.15},
	}}
}

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func vegetationSpec(start, end time.Time) *RequestSpec {
	return &RequestSpec{
		Region:        smallRegion(),
		Start:         start,
		End:           end,
		Family:        sensor.FamilySentinel2,
		CloudCoverMax: 20,
		Masking:       MaskingBasic,
		Kind:          sensor.KindVegetation,
	}
}

func TestRunSingleIndicatorValidatesBeforeArchiveCalls(t *testing.T) {
	mock := &scriptedArchive{}
	p := New(testSettings(), mock, nil)

	spec := vegetationSpec(day(2021, 1, 1), day(2020, 1, 1)) // inverted range
	_, err := p.RunSingleIndicator(context.Background(), spec)

	require.Error(t, err)
	assert.Equal(t, errors.CategoryValidation, errors.CategoryOf(err))
	assert.Zero(t, mock.listCalls, "no catalogue query before validation passes")
	assert.Zero(t, mock.fetchCalls)
	assert.Zero(t, mock.reduceCalls)
}

func TestRunSingleIndicatorDirect(t *testing.T) {
	dates := []time.Time{
		day(2020, 3, 10), day(2020, 5, 2), day(2020, 6, 21), day(2020, 8, 14),
		day(2021, 4, 5), day(2021, 6, 30), day(2021, 7, 19), day(2021, 9, 3),
	}
	values := map[string]float64{}
	for i := range dates {
		values[fmt.Sprintf("s2-%d", i)] = 0.3 + 0.05*float64(i)
	}

	mock := &scriptedArchive{
		listFunc: func(_ archive.DateRange, f archive.Filter) ([]archive.ImageRef, error) {
			require.Equal(t, "COPERNICUS/S2_SR", f.Collection)
			refs := make([]archive.ImageRef, 0, len(dates))
			for i, d := range dates {
				refs = append(refs, archive.ImageRef{
					ID:         fmt.Sprintf("s2-%d", i),
					AcquiredAt: d,
					CloudCover: 10,
				})
			}
			return refs, nil
		},
		reduceFunc: func(target archive.ReduceTarget, reducer archive.Reducer) (float64, error) {
			if target.Composite == archive.CompositeMean {
				// region summary over the composite
				switch reducer {
				case archive.ReducerMean:
					return 0.45, nil
				case archive.ReducerMin:
					return 0.30, nil
				case archive.ReducerMax:
					return 0.65, nil
				default:
					return 0.11, nil
				}
			}
			require.Len(t, target.Images, 1)
			return values[target.Images[0].ID], nil
		},
	}

	p := New(testSettings(), mock, nil)
	result, err := p.RunSingleIndicator(context.Background(), vegetationSpec(day(2020, 1, 1), day(2022, 1, 1)))
	require.NoError(t, err)

	assert.Equal(t, planner.TierDirect, result.Plan.Tier)
	assert.Equal(t, []planner.Tier{planner.TierDirect}, result.Diagnostics.TiersAttempted)
	assert.Equal(t, 8, result.Diagnostics.CandidateCount)
	assert.Equal(t, 8, result.Diagnostics.SurvivingCount)
	assert.False(t, result.Diagnostics.CoverageFellBack)
	assert.Empty(t, result.Caveats)

	require.Len(t, result.Series, 8)
	for i := 1; i < len(result.Series); i++ {
		assert.LessOrEqual(t, result.Series[i-1].Date, result.Series[i].Date)
	}
	first := result.Series[0]
	assert.Equal(t, "2020-03-10", first.Date)
	assert.InDelta(t, 0.3, first.Value, 1e-9)
	assert.Equal(t, "Sentinel-2 MSI", first.SensorLabel)
	assert.Equal(t, 1, first.Acquisitions)
	assert.InDelta(t, 10, first.CloudCover, 1e-9)
	assert.InDelta(t, 5, first.EffectiveCloudCover, 1e-9, "basic masking halves the reported cover")

	require.Len(t, result.Annual, 2)
	assert.Equal(t, 2020, result.Annual[0].Year)
	assert.Equal(t, 4, result.Annual[0].Count)
	assert.Equal(t, 4, result.Annual[1].Count)

	require.NotNil(t, result.Stats)
	assert.Equal(t, StatsSourceRegion, result.Stats.Source)
	assert.InDelta(t, 0.45, result.Stats.Mean, 1e-9)
	assert.InDelta(t, 0.30, result.Stats.Min, 1e-9)
	assert.InDelta(t, 0.65, result.Stats.Max, 1e-9)

	// one per-image reduction per point plus four summary reductions
	assert.Equal(t, 12, mock.reduceCalls)
}

func TestRunSingleIndicatorEscalatesOnComputeLimit(t *testing.T) {
	dates := []time.Time{
		day(2019, 4, 1), day(2019, 6, 15), day(2019, 8, 20),
		day(2020, 5, 5), day(2020, 7, 7), day(2020, 9, 9),
	}

	mock := &scriptedArchive{
		listFunc: func(archive.DateRange, archive.Filter) ([]archive.ImageRef, error) {
			refs := make([]archive.ImageRef, 0, len(dates))
			for i, d := range dates {
				refs = append(refs, archive.ImageRef{
					ID:         fmt.Sprintf("s2-%d", i),
					AcquiredAt: d,
					CloudCover: 20,
				})
			}
			return refs, nil
		},
		reduceFunc: func(target archive.ReduceTarget, reducer archive.Reducer) (float64, error) {
			// per-image reductions blow the budget, composites fit
			if target.Composite != archive.CompositeMean {
				return 0, archive.ErrComputeLimit
			}
			if len(target.Images) == len(dates) {
				// region summary over every candidate
				return 0.5, nil
			}
			return 0.42, nil
		},
	}

	p := New(testSettings(), mock, nil)
	result, err := p.RunSingleIndicator(context.Background(), vegetationSpec(day(2019, 1, 1), day(2021, 1, 1)))
	require.NoError(t, err)

	assert.Equal(t, planner.TierDirect, result.Plan.Tier, "the plan records the initial selection")
	assert.Equal(t, []planner.Tier{planner.TierDirect, planner.TierAnnual}, result.Diagnostics.TiersAttempted)

	require.Len(t, result.Series, 2, "one composite point per year")
	assert.Equal(t, "2019-07-01", result.Series[0].Date)
	assert.Equal(t, "2020-07-01", result.Series[1].Date)
	for _, pt := range result.Series {
		assert.InDelta(t, 0.42, pt.Value, 1e-9)
		assert.Equal(t, 3, pt.Acquisitions)
		assert.Contains(t, pt.SourceID, "composite-")
	}
}

func TestRunSingleIndicatorChunkedDecades(t *testing.T) {
	mock := &scriptedArchive{
		listFunc: func(dr archive.DateRange, f archive.Filter) ([]archive.ImageRef, error) {
			// one acquisition near the start of every queried sub-range
			at := dr.Start.AddDate(0, 1, 0)
			if !at.Before(dr.End) {
				return nil, nil
			}
			return []archive.ImageRef{{
				ID:         fmt.Sprintf("%s-%s", f.Collection, at.Format("2006-01-02")),
				AcquiredAt: at,
				CloudCover: 15,
			}}, nil
		},
		fetchFunc: func(id string) (*archive.Image, error) {
			// band inventory matching the generation encoded in the id, so
			// overlapping-span probes resolve
			bands := []string{"SR_B3", "SR_B4"}
			switch {
			case strings.Contains(id, "ETM"):
				bands = append(bands, "ST_B6")
			case strings.Contains(id, "OLI"):
				bands = []string{"SR_B4", "SR_B5", "ST_B10"}
			}
			return &archive.Image{Ref: archive.ImageRef{ID: id}, Bands: bands}, nil
		},
		reduceFunc: func(target archive.ReduceTarget, _ archive.Reducer) (float64, error) {
			return 0.35, nil
		},
	}

	spec := &RequestSpec{
		Region:        smallRegion(),
		Start:         day(2000, 1, 1),
		End:           day(2023, 7, 1),
		Family:        sensor.FamilyLandsat,
		CloudCoverMax: 30,
		Masking:       MaskingOff,
		Kind:          sensor.KindVegetation,
	}

	p := New(testSettings(), mock, nil)
	result, err := p.RunSingleIndicator(context.Background(), spec)
	require.NoError(t, err)

	assert.Equal(t, planner.TierChunkedAnnual, result.Plan.Tier)
	assert.Equal(t, []planner.Tier{planner.TierChunkedAnnual}, result.Diagnostics.TiersAttempted)
	assert.Equal(t, 12, result.Diagnostics.TotalChunksProcessed, "23.5 years in 2-year windows")

	require.NotEmpty(t, result.Series)
	for i := 1; i < len(result.Series); i++ {
		assert.Less(t, result.Series[i-1].Date, result.Series[i].Date)
	}
	// masking off leaves reported cloud cover untouched
	assert.InDelta(t, result.Series[0].CloudCover, result.Series[0].EffectiveCloudCover, 1e-9)
}

func TestRunSingleIndicatorNoEscalationOnUnavailable(t *testing.T) {
	mock := &scriptedArchive{
		listFunc: func(archive.DateRange, archive.Filter) ([]archive.ImageRef, error) {
			return []archive.ImageRef{
				{ID: "s2-0", AcquiredAt: day(2020, 6, 1), CloudCover: 5},
				{ID: "s2-1", AcquiredAt: day(2020, 7, 1), CloudCover: 5},
			}, nil
		},
		reduceFunc: func(archive.ReduceTarget, archive.Reducer) (float64, error) {
			return 0, archive.ErrUnavailable
		},
	}

	p := New(testSettings(), mock, nil)
	_, err := p.RunSingleIndicator(context.Background(), vegetationSpec(day(2020, 1, 1), day(2021, 1, 1)))

	require.Error(t, err)
	assert.True(t, errors.Is(err, archive.ErrUnavailable))
	assert.False(t, errors.Is(err, archive.ErrComputeLimit))
	assert.Equal(t, 1, mock.reduceCalls, "an outage must not trigger cheaper-strategy retries")
}

func TestRunSingleIndicatorExhaustedTiers(t *testing.T) {
	mock := &scriptedArchive{
		listFunc: func(archive.DateRange, archive.Filter) ([]archive.ImageRef, error) {
			return []archive.ImageRef{
				{ID: "s2-0", AcquiredAt: day(2020, 6, 1), CloudCover: 5},
			}, nil
		},
		reduceFunc: func(archive.ReduceTarget, archive.Reducer) (float64, error) {
			return 0, archive.ErrComputeLimit
		},
	}

	p := New(testSettings(), mock, nil)
	_, err := p.RunSingleIndicator(context.Background(), vegetationSpec(day(2020, 1, 1), day(2021, 1, 1)))

	require.Error(t, err)
	assert.True(t, errors.Is(err, archive.ErrComputeLimit))
	assert.Equal(t, errors.CategoryComputeLimit, errors.CategoryOf(err))
	assert.NotEmpty(t, errors.SuggestionsOf(err), "terminal failure carries remediation hints")
}

func TestRunSingleIndicatorNoData(t *testing.T) {
	mock := &scriptedArchive{}

	p := New(testSettings(), mock, nil)
	_, err := p.RunSingleIndicator(context.Background(), vegetationSpec(day(2020, 1, 1), day(2021, 1, 1)))

	require.Error(t, err)
	assert.Equal(t, errors.CategoryNoData, errors.CategoryOf(err))

	var enhanced *errors.EnhancedError
	require.True(t, errors.As(err, &enhanced))
	ctx := enhanced.GetContext()
	assert.Equal(t, "sentinel2", ctx["family"])
	assert.Equal(t, "2020-01-01", ctx["start"])
	assert.Equal(t, "2021-01-01", ctx["end"])
	assert.Equal(t, 0, mock.reduceCalls)
}

func TestRunSingleIndicatorCoverageFallback(t *testing.T) {
	// footprints far away from the region: the filter would drop everything
	farFootprint := orb.Polygon{orb.Ring{
		{30.0, 60.0}, {30.5, 60.0}, {30.5, 60.5}, {30.0, 60.5}, {30.0, 60.0},
	}}

	mock := &scriptedArchive{
		listFunc: func(archive.DateRange, archive.Filter) ([]archive.ImageRef, error) {
			return []archive.ImageRef{
				{ID: "s2-0", AcquiredAt: day(2020, 6, 1), CloudCover: 5, Footprint: farFootprint},
				{ID: "s2-1", AcquiredAt: day(2020, 8, 1), CloudCover: 8, Footprint: farFootprint},
			}, nil
		},
		reduceFunc: func(archive.ReduceTarget, archive.Reducer) (float64, error) {
			return 0.3, nil
		},
	}

	p := New(testSettings(), mock, nil)
	result, err := p.RunSingleIndicator(context.Background(), vegetationSpec(day(2020, 1, 1), day(2021, 1, 1)))
	require.NoError(t, err)

	assert.True(t, result.Diagnostics.CoverageFellBack)
	require.Len(t, result.Series, 2, "partially covering images still produce points")
	require.NotEmpty(t, result.Caveats)
	assert.Contains(t, result.Caveats[0], "coverage")
}

func TestRunSingleIndicatorStatsFallsBackToSeries(t *testing.T) {
	mock := &scriptedArchive{
		listFunc: func(archive.DateRange, archive.Filter) ([]archive.ImageRef, error) {
			return []archive.ImageRef{
				{ID: "s2-0", AcquiredAt: day(2020, 6, 1), CloudCover: 5},
				{ID: "s2-1", AcquiredAt: day(2020, 8, 1), CloudCover: 5},
			}, nil
		},
		reduceFunc: func(target archive.ReduceTarget, _ archive.Reducer) (float64, error) {
			if target.Composite == archive.CompositeMean {
				// summary reductions stay too expensive even after the series
				// itself was produced
				return 0, archive.ErrComputeLimit
			}
			if target.Images[0].ID == "s2-0" {
				return 0.2, nil
			}
			return 0.4, nil
		},
	}

	p := New(testSettings(), mock, nil)
	result, err := p.RunSingleIndicator(context.Background(), vegetationSpec(day(2020, 1, 1), day(2021, 1, 1)))
	require.NoError(t, err)

	require.NotNil(t, result.Stats)
	assert.Equal(t, StatsSourceSeries, result.Stats.Source)
	assert.InDelta(t, 0.3, result.Stats.Mean, 1e-9)
	assert.InDelta(t, 0.2, result.Stats.Min, 1e-9)
	assert.InDelta(t, 0.4, result.Stats.Max, 1e-9)
	require.NotEmpty(t, result.Caveats)
	assert.Contains(t, result.Caveats[len(result.Caveats)-1], "summary statistics")
}

func TestRunSingleIndicatorAnnualBySpan(t *testing.T) {
	// two acquisitions per year across four years: the span alone drives the
	// annual strategy, the count stays under the direct limit
	var dates []time.Time
	for year := 2018; year <= 2021; year++ {
		dates = append(dates, day(year, 5, 10), day(year, 8, 20))
	}

	mock := &scriptedArchive{
		listFunc: func(archive.DateRange, archive.Filter) ([]archive.ImageRef, error) {
			refs := make([]archive.ImageRef, 0, len(dates))
			for i, d := range dates {
				refs = append(refs, archive.ImageRef{
					ID:         fmt.Sprintf("s2-%d", i),
					AcquiredAt: d,
					CloudCover: 10,
				})
			}
			return refs, nil
		},
		reduceFunc: func(target archive.ReduceTarget, _ archive.Reducer) (float64, error) {
			require.Equal(t, archive.CompositeMean, target.Composite,
				"annual processing reduces composites only")
			if len(target.Images) == len(dates) {
				// region summary over every candidate
				return 0.5, nil
			}
			require.Len(t, target.Images, 2, "one composite per calendar year")
			return 0.45, nil
		},
	}

	p := New(testSettings(), mock, nil)
	result, err := p.RunSingleIndicator(context.Background(), vegetationSpec(day(2018, 1, 1), day(2022, 1, 1)))
	require.NoError(t, err)

	assert.Equal(t, planner.TierAnnual, result.Plan.Tier)
	assert.Equal(t, []planner.Tier{planner.TierAnnual}, result.Diagnostics.TiersAttempted,
		"span-selected annual processing runs without escalation")

	require.Len(t, result.Series, 4, "at most one point per year in range")
	for i, pt := range result.Series {
		assert.Equal(t, fmt.Sprintf("%d-07-01", 2018+i), pt.Date)
		assert.Equal(t, 2, pt.Acquisitions)
		assert.Contains(t, pt.SourceID, "composite-")
		assert.InDelta(t, 10, pt.CloudCover, 1e-9)
	}

	require.Len(t, result.Annual, 4)
	for _, obs := range result.Annual {
		assert.GreaterOrEqual(t, obs.Count, 1)
	}

	// four annual composites plus four summary reductions
	assert.Equal(t, 8, mock.reduceCalls)
}

func TestRunSingleIndicatorStatsOutageAborts(t *testing.T) {
	mock := &scriptedArchive{
		listFunc: func(archive.DateRange, archive.Filter) ([]archive.ImageRef, error) {
			return []archive.ImageRef{
				{ID: "s2-0", AcquiredAt: day(2020, 6, 1), CloudCover: 5},
				{ID: "s2-1", AcquiredAt: day(2020, 8, 1), CloudCover: 5},
			}, nil
		},
		reduceFunc: func(target archive.ReduceTarget, _ archive.Reducer) (float64, error) {
			if target.Composite == archive.CompositeMean {
				// the archive goes down between the series and its summary
				return 0, archive.ErrUnavailable
			}
			return 0.3, nil
		},
	}

	p := New(testSettings(), mock, nil)
	_, err := p.RunSingleIndicator(context.Background(), vegetationSpec(day(2020, 1, 1), day(2021, 1, 1)))

	require.Error(t, err, "only cost rejections degrade to series-derived statistics")
	require.ErrorIs(t, err, archive.ErrUnavailable)
}

func TestNewRecordsArchiveRequests(t *testing.T) {
	m, err := observability.NewMetrics()
	require.NoError(t, err)

	mock := &scriptedArchive{
		listFunc: func(archive.DateRange, archive.Filter) ([]archive.ImageRef, error) {
			return []archive.ImageRef{
				{ID: "s2-0", AcquiredAt: day(2020, 6, 1), CloudCover: 5},
			}, nil
		},
		reduceFunc: func(archive.ReduceTarget, archive.Reducer) (float64, error) {
			return 0.5, nil
		},
	}

	p := New(testSettings(), mock, m)
	_, err = p.RunSingleIndicator(context.Background(), vegetationSpec(day(2020, 1, 1), day(2021, 1, 1)))
	require.NoError(t, err)

	// one catalogue series and one reduction series moved off zero
	count, err := testutil.GatherAndCount(m.Registry(), "archive_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRunCombinedPartialFailure(t *testing.T) {
	mock := &scriptedArchive{
		listFunc: func(_ archive.DateRange, f archive.Filter) ([]archive.ImageRef, error) {
			if f.Collection != "COPERNICUS/S2_SR" {
				// every thermal catalogue query hits an outage
				return nil, archive.ErrUnavailable
			}
			return []archive.ImageRef{
				{ID: "s2-0", AcquiredAt: day(2020, 6, 1), CloudCover: 5},
				{ID: "s2-1", AcquiredAt: day(2020, 8, 1), CloudCover: 5},
			}, nil
		},
		reduceFunc: func(archive.ReduceTarget, archive.Reducer) (float64, error) {
			return 0.5, nil
		},
	}

	specs := []RequestSpec{
		*vegetationSpec(day(2020, 1, 1), day(2021, 1, 1)),
		{
			Region:        smallRegion(),
			Start:         day(2020, 1, 1),
			End:           day(2021, 1, 1),
			Family:        sensor.FamilyLandsat,
			CloudCoverMax: 20,
			Masking:       MaskingBasic,
			Kind:          sensor.KindThermal,
		},
	}

	p := New(testSettings(), mock, nil)
	result, err := p.RunCombined(context.Background(), specs)
	require.NoError(t, err, "partial failure still succeeds overall")

	assert.True(t, result.Success)
	require.Len(t, result.Indicators, 1)
	assert.Equal(t, "vegetation", result.Indicators[0].Name)
	require.Contains(t, result.Results, "vegetation")

	require.Len(t, result.Failed, 1)
	assert.Equal(t, "thermal", result.Failed[0].Name)
	assert.NotEmpty(t, result.Failed[0].Message)

	assert.Len(t, result.Combined, 2)
	assert.Nil(t, result.Correlations, "correlation needs at least two successful indicators")
}

func TestRunCombinedCorrelations(t *testing.T) {
	mock := &scriptedArchive{
		listFunc: func(_ archive.DateRange, f archive.Filter) ([]archive.ImageRef, error) {
			prefix := "s2"
			if f.Collection != "COPERNICUS/S2_SR" {
				prefix = "s1"
			}
			return []archive.ImageRef{
				{ID: prefix + "-0", AcquiredAt: day(2020, 6, 1), CloudCover: -1},
				{ID: prefix + "-1", AcquiredAt: day(2020, 8, 1), CloudCover: -1},
				{ID: prefix + "-2", AcquiredAt: day(2020, 10, 1), CloudCover: -1},
			}, nil
		},
		reduceFunc: func(target archive.ReduceTarget, _ archive.Reducer) (float64, error) {
			if target.Composite == archive.CompositeMean {
				return 0.5, nil
			}
			// distinct per-image values so the correlation is well defined
			switch target.Images[0].ID {
			case "s2-0", "s1-0":
				return 0.2, nil
			case "s2-1", "s1-1":
				return 0.4, nil
			default:
				return 0.6, nil
			}
		},
	}

	specs := []RequestSpec{
		*vegetationSpec(day(2020, 1, 1), day(2021, 1, 1)),
		{
			Region:        smallRegion(),
			Start:         day(2020, 1, 1),
			End:           day(2021, 1, 1),
			Family:        sensor.FamilySentinel1,
			CloudCoverMax: 100,
			Masking:       MaskingOff,
			Kind:          sensor.KindRadar,
		},
	}

	p := New(testSettings(), mock, nil)
	result, err := p.RunCombined(context.Background(), specs)
	require.NoError(t, err)

	assert.True(t, result.Success)
	require.Len(t, result.Indicators, 2)
	assert.Empty(t, result.Failed)

	require.Len(t, result.Combined, 3)
	require.Len(t, result.Combined[0].Values, 2)

	require.NotNil(t, result.Correlations)
	assert.InDelta(t, 1, result.Correlations["vegetation"]["radar"], 1e-9,
		"identical value columns correlate perfectly")
}

func TestRunCombinedAllFail(t *testing.T) {
	mock := &scriptedArchive{
		listFunc: func(archive.DateRange, archive.Filter) ([]archive.ImageRef, error) {
			return nil, archive.ErrUnavailable
		},
	}

	p := New(testSettings(), mock, nil)
	result, err := p.RunCombined(context.Background(), []RequestSpec{
		*vegetationSpec(day(2020, 1, 1), day(2021, 1, 1)),
	})

	require.Error(t, err)
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Len(t, result.Failed, 1)
}

func TestRunCombinedEmptySpecs(t *testing.T) {
	p := New(testSettings(), &scriptedArchive{}, nil)
	_, err := p.RunCombined(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, errors.CategoryValidation, errors.CategoryOf(err))
}
