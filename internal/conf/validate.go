package conf

import (
	"fmt"
)

// ValidateSettings rejects configurations the pipeline cannot run with.
// It checks internal consistency of the planner policy and required archive
// settings; request-level validation lives with the request itself.
func ValidateSettings(settings *Settings) error {
	if settings.Archive.Endpoint == "" {
		return fmt.Errorf("archive.endpoint must be set")
	}
	if settings.Archive.TimeoutSeconds <= 0 {
		return fmt.Errorf("archive.timeoutseconds must be positive, got %d", settings.Archive.TimeoutSeconds)
	}

	p := &settings.Planner
	if p.AnnualSpanYears <= 0 || p.ChunkedSpanYears <= p.AnnualSpanYears {
		return fmt.Errorf("planner span thresholds must satisfy 0 < annualspanyears < chunkedspanyears, got %.2f and %.2f",
			p.AnnualSpanYears, p.ChunkedSpanYears)
	}
	if p.ChunkYears < 1 {
		return fmt.Errorf("planner.chunkyears must be at least 1, got %d", p.ChunkYears)
	}
	if p.DirectSampleCap < 1 {
		return fmt.Errorf("planner.directsamplecap must be at least 1, got %d", p.DirectSampleCap)
	}
	if p.AreaCoarseKm2 <= p.AreaMediumKm2 {
		return fmt.Errorf("planner area tiers must satisfy areamediumkm2 < areacoarsekm2, got %.1f and %.1f",
			p.AreaMediumKm2, p.AreaCoarseKm2)
	}
	if p.FinePixels <= 0 || p.MediumPixels <= 0 || p.CoarsePixels <= 0 {
		return fmt.Errorf("planner pixel budgets must be positive")
	}

	c := &settings.Coverage
	if c.OpticalThreshold < 0 || c.OpticalThreshold > 100 {
		return fmt.Errorf("coverage.opticalthreshold must be within [0,100], got %.1f", c.OpticalThreshold)
	}
	if c.RadarThreshold < 0 || c.RadarThreshold > 100 {
		return fmt.Errorf("coverage.radarthreshold must be within [0,100], got %.1f", c.RadarThreshold)
	}

	m := &settings.Masking
	if m.BasicFactor <= 0 || m.BasicFactor > 1 || m.StrictFactor <= 0 || m.StrictFactor > 1 {
		return fmt.Errorf("masking factors must be within (0,1]")
	}

	return nil
}
