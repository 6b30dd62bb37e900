// Package pipeline turns a request spec into a chronological series of
// derived measurements: it assembles a harmonized collection, filters for
// coverage, plans a processing strategy under the archive's cost ceiling,
// executes it with multi-tier fallback and assembles the results.
package pipeline

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/tkorpela/terraseries/internal/archive"
	"github.com/tkorpela/terraseries/internal/conf"
	"github.com/tkorpela/terraseries/internal/coverage"
	"github.com/tkorpela/terraseries/internal/errors"
	"github.com/tkorpela/terraseries/internal/geo"
	"github.com/tkorpela/terraseries/internal/logging"
	"github.com/tkorpela/terraseries/internal/observability"
	"github.com/tkorpela/terraseries/internal/planner"
	"github.com/tkorpela/terraseries/internal/sensor"
	"github.com/tkorpela/terraseries/internal/series"
)

// Package-level logger for pipeline runs
var (
	pipelineLogger   *slog.Logger
	pipelineLevelVar = new(slog.LevelVar)
)

func init() {
	var err error
	pipelineLevelVar.Set(slog.LevelDebug)

	pipelineLogger, _, err = logging.NewFileLogger("logs/pipeline.log", "pipeline", pipelineLevelVar)
	if err != nil {
		logging.Error("Failed to initialize pipeline file logger", "error", err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: pipelineLevelVar})
		pipelineLogger = slog.New(fbHandler).With("service", "pipeline")
	}
}

// Pipeline runs indicator requests against one archive client. It holds only
// read-only state, so a single pipeline may serve concurrent requests; each
// invocation owns its own working set.
type Pipeline struct {
	client   archive.Client
	adapter  *sensor.Adapter
	settings *conf.Settings
	policy   planner.Policy
	metrics  *observability.Metrics
}

// New creates a pipeline over the given archive client. The client's
// lifecycle stays with the caller; metrics may be nil. When catalogue
// caching is enabled in settings the client is wrapped accordingly.
func New(settings *conf.Settings, client archive.Client, m *observability.Metrics) *Pipeline {
	if m != nil {
		client = archive.NewInstrumentedClient(client, m.Archive)
	}
	// the cache wraps the instrumented client so hits cost no recorded request
	if settings.Archive.Cache.Enabled {
		ttl := time.Duration(settings.Archive.Cache.TTLMinutes) * time.Minute
		client = archive.NewCachingClient(client, ttl)
	}
	return &Pipeline{
		client:   client,
		adapter:  sensor.NewAdapter(client),
		settings: settings,
		policy:   planner.PolicyFromSettings(&settings.Planner),
		metrics:  m,
	}
}

// SingleResult is the output of one indicator run.
type SingleResult struct {
	Kind   sensor.AnalysisKind `json:"kind"`
	Family sensor.Family       `json:"family"`

	Series series.TimeSeries          `json:"series"`
	Annual []series.AnnualObservation `json:"annual,omitempty"`
	Stats  *SummaryStats              `json:"stats,omitempty"`

	Plan        planner.Plan `json:"plan"`
	Diagnostics Diagnostics  `json:"diagnostics"`
	Caveats     []string     `json:"caveats,omitempty"`
}

// RunSingleIndicator executes the full pipeline for one request.
func (p *Pipeline) RunSingleIndicator(ctx context.Context, spec *RequestSpec) (*SingleResult, error) {
	start := time.Now()
	result, err := p.runSingle(ctx, spec)

	if p.metrics != nil {
		p.metrics.Pipeline.RecordRunDuration(string(spec.Kind), time.Since(start).Seconds())
		if err != nil {
			p.metrics.Pipeline.RecordRun(string(spec.Kind), "error")
		} else {
			p.metrics.Pipeline.RecordRun(string(spec.Kind), "success")
		}
	}
	return result, err
}

func (p *Pipeline) runSingle(ctx context.Context, spec *RequestSpec) (*SingleResult, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	dr := spec.DateRange()

	// Collection assembly across sensor generations
	candidates, err := p.adapter.AssembleCollection(ctx, spec.Region, dr, spec.Family, spec.CloudCoverMax)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, p.noDataError(spec)
	}

	// Coverage filtering, falling back to the unfiltered set when it would
	// remove everything
	covResult := coverage.Filter(candidates, spec.Region, p.coverageThreshold(spec.Family), p.coverageMode(spec.Family))

	areaKm2 := geo.AreaKm2(spec.Region)
	plan := planner.Select(planner.Inputs{
		SpanYears:      dr.SpanYears(),
		AreaKm2:        areaKm2,
		CandidateCount: len(covResult.Kept),
		Kind:           spec.Kind,
	}, p.policy)

	lat, lon := geo.Centroid(spec.Region)
	ex := &execution{
		spec:       spec,
		dateRange:  dr,
		plan:       plan,
		candidates: covResult.Kept,
		lat:        lat,
		lon:        lon,
		cloudScale: p.maskingFactor(spec.Masking),
	}

	pipelineLogger.Info("Executing processing plan",
		"kind", string(spec.Kind),
		"family", string(spec.Family),
		"tier", string(plan.Tier),
		"scale_m", plan.Scale,
		"max_pixels", plan.MaxPixels,
		"area_km2", areaKm2,
		"span_years", dr.SpanYears(),
		"candidates", len(candidates),
		"surviving", len(covResult.Kept),
	)

	points, diag, err := p.execute(ctx, ex)
	if err != nil {
		return nil, err
	}
	diag.CandidateCount = len(candidates)
	diag.CoverageFellBack = diag.CoverageFellBack || covResult.FellBack

	result := &SingleResult{
		Kind:        spec.Kind,
		Family:      spec.Family,
		Series:      series.Sort(points),
		Plan:        plan,
		Diagnostics: diag,
	}
	result.Annual = series.DeriveAnnual(result.Series)

	if diag.CoverageFellBack {
		result.Caveats = append(result.Caveats,
			"coverage filtering removed every candidate; results use partially covering images")
		if p.metrics != nil {
			p.metrics.Pipeline.RecordCoverageFallback()
		}
	}

	// Region summary statistics, degrading to series-derived values only when
	// the remote reductions are rejected on cost. Any other failure aborts the
	// run like every other archive error.
	stats, statsErr := p.summarizeRegion(ctx, ex)
	if statsErr != nil {
		if !errors.Is(statsErr, archive.ErrComputeLimit) {
			return nil, statsErr
		}
		pipelineLogger.Warn("Region summary reductions exceeded the compute limit, deriving from series",
			"error", statsErr)
		stats = statsFromSeries(result.Series)
		if stats != nil {
			result.Caveats = append(result.Caveats,
				"summary statistics derived from series values after the remote reductions exceeded the compute limit")
		}
	}
	result.Stats = stats

	pipelineLogger.Info("Pipeline run complete",
		"kind", string(spec.Kind),
		"points", len(result.Series),
		"annual", len(result.Annual),
		"tiers_attempted", len(diag.TiersAttempted),
		"chunks", diag.TotalChunksProcessed,
	)
	return result, nil
}

// IndicatorFailure names one indicator whose pipeline failed in combined mode.
type IndicatorFailure struct {
	Name        string   `json:"name"`
	Message     string   `json:"message"`
	Category    string   `json:"category"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// CombinedResult joins independently produced indicator runs. Success means
// at least one indicator succeeded; failed indicators are listed by name.
type CombinedResult struct {
	Success bool `json:"success"`

	Results      map[string]*SingleResult      `json:"results"`
	Indicators   []series.IndicatorSeries      `json:"-"`
	Combined     []series.CombinedPoint        `json:"combined,omitempty"`
	Correlations map[string]map[string]float64 `json:"correlations,omitempty"`

	Failed  []IndicatorFailure `json:"failed,omitempty"`
	Caveats []string           `json:"caveats,omitempty"`
}

// RunCombined executes one pipeline per request and joins the outcomes.
// Indicator failures do not abort the whole run; the error return is non-nil
// only when no indicator produced a result.
func (p *Pipeline) RunCombined(ctx context.Context, specs []RequestSpec) (*CombinedResult, error) {
	if len(specs) == 0 {
		return nil, errors.Newf("combined run needs at least one request").
			Component("pipeline").
			Category(errors.CategoryValidation).
			Build()
	}

	result := &CombinedResult{Results: make(map[string]*SingleResult, len(specs))}

	var firstErr error
	for i := range specs {
		spec := &specs[i]
		name := string(spec.Kind)

		single, err := p.RunSingleIndicator(ctx, spec)
		if err != nil {
			pipelineLogger.Warn("Indicator pipeline failed in combined run",
				"indicator", name, "error", err)
			result.Failed = append(result.Failed, IndicatorFailure{
				Name:        name,
				Message:     err.Error(),
				Category:    string(errors.CategoryOf(err)),
				Suggestions: errors.SuggestionsOf(err),
			})
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		result.Results[name] = single
		result.Indicators = append(result.Indicators, series.IndicatorSeries{
			Name:   name,
			Series: single.Series,
			Annual: single.Annual,
		})
		result.Caveats = append(result.Caveats, single.Caveats...)
	}

	if len(result.Indicators) == 0 {
		return result, firstErr
	}

	result.Success = true
	result.Combined = series.Combine(result.Indicators)
	if len(result.Indicators) >= 2 {
		result.Correlations = series.CorrelationMatrix(result.Indicators)
	}
	return result, nil
}

func (p *Pipeline) noDataError(spec *RequestSpec) error {
	return errors.Newf("no usable images for %s/%s between %s and %s",
		spec.Family, spec.Kind, spec.Start.Format("2006-01-02"), spec.End.Format("2006-01-02")).
		Component("pipeline").
		Category(errors.CategoryNoData).
		Context("family", string(spec.Family)).
		Context("kind", string(spec.Kind)).
		Context("start", spec.Start.Format("2006-01-02")).
		Context("end", spec.End.Format("2006-01-02")).
		Context("cloud_cover_max", spec.CloudCoverMax).
		Suggestion(
			"widen the date range",
			"raise the cloud-cover threshold",
		).
		Build()
}

func (p *Pipeline) coverageThreshold(family sensor.Family) float64 {
	if family == sensor.FamilySentinel1 {
		return p.settings.Coverage.RadarThreshold
	}
	return p.settings.Coverage.OpticalThreshold
}

func (p *Pipeline) coverageMode(family sensor.Family) coverage.Mode {
	if family == sensor.FamilySentinel1 {
		return coverage.ModeLenient
	}
	return coverage.ModeStrict
}

func (p *Pipeline) maskingFactor(mode MaskingMode) float64 {
	switch mode {
	case MaskingBasic:
		return p.settings.Masking.BasicFactor
	case MaskingStrict:
		return p.settings.Masking.StrictFactor
	default:
		return 1
	}
}
