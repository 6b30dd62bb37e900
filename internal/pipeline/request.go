package pipeline

import (
	"time"

	"github.com/paulmach/orb"

	"github.com/tkorpela/terraseries/internal/archive"
	"github.com/tkorpela/terraseries/internal/errors"
	"github.com/tkorpela/terraseries/internal/sensor"
)

// MaskingMode selects how aggressively cloud masking is assumed to have
// cleaned the data when reporting effective cloud cover.
type MaskingMode string

const (
	MaskingOff    MaskingMode = "off"
	MaskingBasic  MaskingMode = "basic"
	MaskingStrict MaskingMode = "strict"
)

// RequestSpec describes one indicator request. It is immutable once created
// and fully consumed by a single pipeline invocation.
type RequestSpec struct {
	Region        orb.Polygon
	Start         time.Time
	End           time.Time
	Family        sensor.Family
	CloudCoverMax float64
	Masking       MaskingMode
	Kind          sensor.AnalysisKind
}

// DateRange returns the request's acquisition interval.
func (r *RequestSpec) DateRange() archive.DateRange {
	return archive.DateRange{Start: r.Start, End: r.End}
}

// Validate rejects malformed requests before any remote call is attempted.
func (r *RequestSpec) Validate() error {
	fail := func(format string, args ...any) error {
		return errors.Newf(format, args...).
			Component("pipeline").
			Category(errors.CategoryValidation).
			Context("family", string(r.Family)).
			Context("kind", string(r.Kind)).
			Build()
	}

	if len(r.Region) == 0 {
		return fail("request region is missing")
	}
	ring := r.Region[0]
	if len(ring) < 2 || ring[0] != ring[len(ring)-1] {
		return fail("request region must be a closed ring")
	}
	if len(ring)-1 < 3 {
		return fail("request region needs at least 3 vertices, got %d", len(ring)-1)
	}

	if r.Start.IsZero() || r.End.IsZero() {
		return fail("request date range is missing")
	}
	if !r.Start.Before(r.End) {
		return fail("request date range is inverted: %s is not before %s",
			r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
	}
	if epoch := sensor.Epoch(); r.Start.Before(epoch) {
		return fail("request starts %s, before the archive epoch %s",
			r.Start.Format("2006-01-02"), epoch.Format("2006-01-02"))
	}

	if r.CloudCoverMax < 0 || r.CloudCoverMax > 100 {
		return fail("cloud-cover threshold must be within [0,100], got %.1f", r.CloudCoverMax)
	}

	switch r.Masking {
	case MaskingOff, MaskingBasic, MaskingStrict:
	default:
		return fail("unknown masking strictness %q", r.Masking)
	}

	switch r.Kind {
	case sensor.KindVegetation, sensor.KindThermal, sensor.KindRadar:
	default:
		return fail("unknown analysis kind %q", r.Kind)
	}

	if !sensor.Supports(r.Family, r.Kind) {
		return fail("sensor family %q cannot serve %s analysis", r.Family, r.Kind)
	}

	return nil
}
