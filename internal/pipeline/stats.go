package pipeline

import (
	"context"
	"math"

	"github.com/tkorpela/terraseries/internal/archive"
	"github.com/tkorpela/terraseries/internal/sensor"
	"github.com/tkorpela/terraseries/internal/series"
)

// Statistic source markers. Region statistics come from remote reductions
// over the composite; series statistics are the local degraded fallback.
const (
	StatsSourceRegion = "region"
	StatsSourceSeries = "series"
)

// SummaryStats are region-level summary statistics for the produced result.
type SummaryStats struct {
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"stddev"`
	Source string  `json:"source"`
}

// summarizeRegion computes mean/min/max/stddev over the region for the mean
// composite of the surviving images. Each statistic is one budgeted remote
// reduction.
func (p *Pipeline) summarizeRegion(ctx context.Context, ex *execution) (*SummaryStats, error) {
	refs := sampleRefs(ex.candidates, ex.plan.SampleCap)
	if len(refs) == 0 {
		return nil, archive.ErrNotFound
	}

	specs := make([]archive.ImageSpec, 0, len(refs))
	for i := range refs {
		gen, err := p.adapter.Resolve(ctx, refs[i], ex.spec.Family)
		if err != nil {
			return nil, err
		}
		spec, err := sensor.HarmonizedSpec(gen, refs[i].ID, ex.spec.Kind)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}

	target := archive.ReduceTarget{
		Images:     specs,
		Composite:  archive.CompositeMean,
		Expression: sensor.Expression(ex.spec.Kind),
	}

	stats := &SummaryStats{Source: StatsSourceRegion}
	for _, want := range []struct {
		reducer archive.Reducer
		into    *float64
	}{
		{archive.ReducerMean, &stats.Mean},
		{archive.ReducerMin, &stats.Min},
		{archive.ReducerMax, &stats.Max},
		{archive.ReducerStdDev, &stats.StdDev},
	} {
		value, err := p.client.ReduceRegion(ctx, target, want.reducer, ex.spec.Region, ex.plan.Scale, ex.plan.MaxPixels)
		if err != nil {
			return nil, err
		}
		*want.into = value
	}
	return stats, nil
}

// statsFromSeries derives summary statistics from the produced series values.
// Used when the remote reductions are rejected on cost: a degraded summary
// beats none, and the result carries a caveat for it.
func statsFromSeries(ts series.TimeSeries) *SummaryStats {
	if len(ts) == 0 {
		return nil
	}

	stats := &SummaryStats{
		Min:    math.Inf(1),
		Max:    math.Inf(-1),
		Source: StatsSourceSeries,
	}
	for i := range ts {
		v := ts[i].Value
		stats.Mean += v
		if v < stats.Min {
			stats.Min = v
		}
		if v > stats.Max {
			stats.Max = v
		}
	}
	stats.Mean /= float64(len(ts))

	var sq float64
	for i := range ts {
		d := ts[i].Value - stats.Mean
		sq += d * d
	}
	stats.StdDev = math.Sqrt(sq / float64(len(ts)))
	return stats
}
