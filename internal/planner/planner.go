// Package planner maps request size estimates to a processing plan that
// respects the archive's per-call compute ceiling. Selection is a pure
// function of its inputs: same estimates, same plan.
package planner

import (
	"github.com/tkorpela/terraseries/internal/conf"
	"github.com/tkorpela/terraseries/internal/sensor"
)

// Tier is one of the three processing strategies, ordered from finest
// granularity to cheapest remote cost.
type Tier string

const (
	TierDirect        Tier = "direct"
	TierAnnual        Tier = "annual"
	TierChunkedAnnual Tier = "chunked-annual"
)

// Next returns the cheaper tier to escalate to when the archive rejects a
// call on cost, and whether one exists.
func (t Tier) Next() (Tier, bool) {
	switch t {
	case TierDirect:
		return TierAnnual, true
	case TierAnnual:
		return TierChunkedAnnual, true
	default:
		return "", false
	}
}

// Inputs are the size estimates tier selection depends on.
type Inputs struct {
	SpanYears      float64
	AreaKm2        float64
	CandidateCount int
	Kind           sensor.AnalysisKind
}

// Policy holds the selection thresholds. These come from configuration, not
// code: they encode the archive's cost model and get tuned without rebuilds.
type Policy struct {
	AnnualSpanYears  float64
	ChunkedSpanYears float64
	AnnualImageCount int
	ChunkYears       int
	DirectSampleCap  int

	AreaMediumKm2 float64
	AreaCoarseKm2 float64

	FineScale    float64
	MediumScale  float64
	CoarseScale  float64
	FinePixels   int64
	MediumPixels int64
	CoarsePixels int64
}

// PolicyFromSettings builds the selection policy from loaded configuration.
func PolicyFromSettings(s *conf.PlannerSettings) Policy {
	return Policy{
		AnnualSpanYears:  s.AnnualSpanYears,
		ChunkedSpanYears: s.ChunkedSpanYears,
		AnnualImageCount: s.AnnualImageCount,
		ChunkYears:       s.ChunkYears,
		DirectSampleCap:  s.DirectSampleCap,
		AreaMediumKm2:    s.AreaMediumKm2,
		AreaCoarseKm2:    s.AreaCoarseKm2,
		FineScale:        s.FineScale,
		MediumScale:      s.MediumScale,
		CoarseScale:      s.CoarseScale,
		FinePixels:       s.FinePixels,
		MediumPixels:     s.MediumPixels,
		CoarsePixels:     s.CoarsePixels,
	}
}

// DefaultPolicy returns the stock policy used when no configuration is
// loaded, e.g. in tests.
func DefaultPolicy() Policy {
	return Policy{
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
	}
}

// Plan is the selected strategy plus the spatial resolution budget every
// reduction under it must respect.
type Plan struct {
	Tier       Tier    `json:"tier"`
	Scale      float64 `json:"scale_m"`               // meters per pixel
	MaxPixels  int64   `json:"max_pixels"`            // per-reduction pixel budget
	ChunkYears int     `json:"chunk_years,omitempty"` // window size, chunked tier only
	SampleCap  int     `json:"sample_cap,omitempty"`  // max images sampled, direct tier only
}

// Select chooses the processing plan for the given size estimates.
//
// Tier: spans over ChunkedSpanYears chunk by calendar years; spans over
// AnnualSpanYears, or candidate sets larger than AnnualImageCount, composite
// annually; everything else samples images directly. Resolution: larger
// regions get coarser scale and a smaller pixel budget, because the archive
// fails outright rather than degrading when a call exceeds its ceiling.
func Select(in Inputs, pol Policy) Plan {
	plan := Plan{Tier: TierDirect, SampleCap: pol.DirectSampleCap}

	switch {
	case in.SpanYears > pol.ChunkedSpanYears:
		plan.Tier = TierChunkedAnnual
		plan.ChunkYears = pol.ChunkYears
	case in.SpanYears > pol.AnnualSpanYears || in.CandidateCount > pol.AnnualImageCount:
		plan.Tier = TierAnnual
	}

	switch {
	case in.AreaKm2 > pol.AreaCoarseKm2:
		plan.Scale = pol.CoarseScale
		plan.MaxPixels = pol.CoarsePixels
	case in.AreaKm2 >= pol.AreaMediumKm2:
		plan.Scale = pol.MediumScale
		plan.MaxPixels = pol.MediumPixels
	default:
		plan.Scale = pol.FineScale
		plan.MaxPixels = pol.FinePixels
	}

	return plan
}
