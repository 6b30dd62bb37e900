// Package sensor holds the sensor-generation catalogue and the band
// harmonization that makes downstream math sensor-agnostic. Each generation
// is a tagged variant resolved once per image and dispatched through the
// lookup tables below instead of scattering band-name checks through the
// calculations.
package sensor

import (
	"time"

	"github.com/tkorpela/terraseries/internal/archive"
	"github.com/tkorpela/terraseries/internal/errors"
)

// Family identifies a satellite sensor family selectable in a request.
type Family string

const (
	FamilyLandsat   Family = "landsat"
	FamilySentinel2 Family = "sentinel2"
	FamilySentinel1 Family = "sentinel1"
)

// AnalysisKind selects the derived measurement a request produces.
type AnalysisKind string

const (
	KindVegetation AnalysisKind = "vegetation"
	KindThermal    AnalysisKind = "thermal"
	KindRadar      AnalysisKind = "radar"
)

// Semantic names a harmonized channel independent of sensor generation.
type Semantic string

const (
	SemanticRed     Semantic = "RED"
	SemanticNIR     Semantic = "NIR"
	SemanticThermal Semantic = "THERMAL"
	SemanticVV      Semantic = "VV"
	SemanticVH      Semantic = "VH"
)

// Generation identifies a specific mission/instrument within a family.
type Generation string

const (
	GenLandsatTM    Generation = "landsat5-tm"
	GenLandsatETM   Generation = "landsat7-etm"
	GenLandsatOLI   Generation = "landsat89-oli"
	GenSentinel2MSI Generation = "sentinel2-msi"
	GenSentinel1SAR Generation = "sentinel1-csar"
)

// ErrNoGenerationMatch is returned when no sensor generation covers any part
// of a requested date range, or an image cannot be attributed to one.
var ErrNoGenerationMatch = errors.NewStd("sensor: no generation matches")

// Landsat Collection 2 Level-2 scale/offset pairs.
const (
	landsatSRScale  = 2.75e-05
	landsatSROffset = -0.2
	landsatSTScale  = 3.41802e-03
	landsatSTOffset = 149.0
	sentinel2Scale  = 1e-04
)

// Info describes one sensor generation: its archive collection, valid date
// span and semantic band mapping.
type Info struct {
	Generation Generation
	Family     Family
	Label      string
	Collection string
	Start      time.Time
	End        time.Time // zero for missions still flying
	Bands      map[Semantic]archive.BandRef
	// ProbeBand distinguishes this generation from span-overlapping siblings
	// within the same family, empty when the date span alone is conclusive.
	ProbeBand string
}

// Active reports whether the generation's valid span intersects [start, end).
func (i *Info) Active(start, end time.Time) bool {
	if !i.End.IsZero() && !start.Before(i.End) {
		return false
	}
	return end.After(i.Start)
}

// ClampRange intersects the requested range with the generation's valid span.
func (i *Info) ClampRange(dr archive.DateRange) archive.DateRange {
	out := dr
	if out.Start.Before(i.Start) {
		out.Start = i.Start
	}
	if !i.End.IsZero() && out.End.After(i.End) {
		out.End = i.End
	}
	return out
}

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

// catalogue lists every known generation, newest first within a family so
// capability probing prefers the more recent instrument.
var catalogue = []Info{
	{
		Generation: GenLandsatOLI,
		Family:     FamilyLandsat,
		Label:      "Landsat 8/9 OLI-TIRS",
		Collection: "LANDSAT/C02/OLI_TIRS_L2",
		Start:      date(2013, 3, 18),
		Bands: map[Semantic]archive.BandRef{
			SemanticRed:     {Native: "SR_B4", Scale: landsatSRScale, Offset: landsatSROffset},
			SemanticNIR:     {Native: "SR_B5", Scale: landsatSRScale, Offset: landsatSROffset},
			SemanticThermal: {Native: "ST_B10", Scale: landsatSTScale, Offset: landsatSTOffset},
		},
		ProbeBand: "ST_B10",
	},
	{
		Generation: GenLandsatETM,
		Family:     FamilyLandsat,
		Label:      "Landsat 7 ETM+",
		Collection: "LANDSAT/C02/ETM_L2",
		Start:      date(1999, 5, 28),
		End:        date(2022, 3, 31),
		Bands: map[Semantic]archive.BandRef{
			SemanticRed:     {Native: "SR_B3", Scale: landsatSRScale, Offset: landsatSROffset},
			SemanticNIR:     {Native: "SR_B4", Scale: landsatSRScale, Offset: landsatSROffset},
			SemanticThermal: {Native: "ST_B6", Scale: landsatSTScale, Offset: landsatSTOffset},
		},
		ProbeBand: "ST_B6",
	},
	{
		Generation: GenLandsatTM,
		Family:     FamilyLandsat,
		Label:      "Landsat 5 TM",
		Collection: "LANDSAT/C02/TM_L2",
		Start:      date(1984, 3, 1),
		End:        date(2013, 6, 5),
		Bands: map[Semantic]archive.BandRef{
			SemanticRed:     {Native: "SR_B3", Scale: landsatSRScale, Offset: landsatSROffset},
			SemanticNIR:     {Native: "SR_B4", Scale: landsatSRScale, Offset: landsatSROffset},
			SemanticThermal: {Native: "ST_B6", Scale: landsatSTScale, Offset: landsatSTOffset},
		},
	},
	{
		Generation: GenSentinel2MSI,
		Family:     FamilySentinel2,
		Label:      "Sentinel-2 MSI",
		Collection: "COPERNICUS/S2_SR",
		Start:      date(2015, 6, 23),
		Bands: map[Semantic]archive.BandRef{
			SemanticRed: {Native: "B4", Scale: sentinel2Scale},
			SemanticNIR: {Native: "B8", Scale: sentinel2Scale},
		},
	},
	{
		Generation: GenSentinel1SAR,
		Family:     FamilySentinel1,
		Label:      "Sentinel-1 C-SAR",
		Collection: "COPERNICUS/S1_GRD",
		Start:      date(2014, 10, 3),
		Bands: map[Semantic]archive.BandRef{
			SemanticVV: {Native: "VV", Scale: 1},
			SemanticVH: {Native: "VH", Scale: 1},
		},
	},
}

// byGeneration indexes the catalogue for dispatch after resolution.
var byGeneration = func() map[Generation]*Info {
	m := make(map[Generation]*Info, len(catalogue))
	for i := range catalogue {
		m[catalogue[i].Generation] = &catalogue[i]
	}
	return m
}()

// Epoch returns the earliest acquisition date any generation covers.
func Epoch() time.Time {
	epoch := catalogue[0].Start
	for i := range catalogue {
		if catalogue[i].Start.Before(epoch) {
			epoch = catalogue[i].Start
		}
	}
	return epoch
}

// Lookup returns the catalogue entry for a generation.
func Lookup(gen Generation) (*Info, bool) {
	info, ok := byGeneration[gen]
	return info, ok
}

// GenerationsFor returns the generations of family whose valid span
// intersects dr, newest first.
func GenerationsFor(family Family, dr archive.DateRange) []*Info {
	var out []*Info
	for i := range catalogue {
		info := &catalogue[i]
		if info.Family == family && info.Active(dr.Start, dr.End) {
			out = append(out, info)
		}
	}
	return out
}

// requiredBands lists the semantic channels each analysis kind consumes.
var requiredBands = map[AnalysisKind][]Semantic{
	KindVegetation: {SemanticRed, SemanticNIR},
	KindThermal:    {SemanticThermal},
	KindRadar:      {SemanticVV},
}

// expressions are evaluated per pixel over the harmonized semantic bands.
var expressions = map[AnalysisKind]string{
	KindVegetation: "(NIR - RED) / (NIR + RED)",
	KindThermal:    "THERMAL - 273.15",
	KindRadar:      "VV",
}

// Expression returns the per-pixel band expression for an analysis kind.
func Expression(kind AnalysisKind) string {
	return expressions[kind]
}

// Supports reports whether family can serve the analysis kind.
func Supports(family Family, kind AnalysisKind) bool {
	required, ok := requiredBands[kind]
	if !ok {
		return false
	}
	for i := range catalogue {
		if catalogue[i].Family != family {
			continue
		}
		if hasBands(&catalogue[i], required) {
			return true
		}
	}
	return false
}

func hasBands(info *Info, required []Semantic) bool {
	for _, sem := range required {
		if _, ok := info.Bands[sem]; !ok {
			return false
		}
	}
	return true
}

// HarmonizedSpec maps one image to the semantic bands an analysis kind
// needs, with the generation's scale/offset applied.
func HarmonizedSpec(gen Generation, imageID string, kind AnalysisKind) (archive.ImageSpec, error) {
	info, ok := byGeneration[gen]
	if !ok {
		return archive.ImageSpec{}, errors.Newf("unknown sensor generation %q", gen).
			Component("sensor").
			Category(errors.CategoryProcessing).
			Build()
	}

	required, ok := requiredBands[kind]
	if !ok {
		return archive.ImageSpec{}, errors.Newf("unknown analysis kind %q", kind).
			Component("sensor").
			Category(errors.CategoryValidation).
			Build()
	}

	bands := make(map[string]archive.BandRef, len(required))
	for _, sem := range required {
		ref, ok := info.Bands[sem]
		if !ok {
			return archive.ImageSpec{}, errors.Newf("%s does not provide a %s channel", info.Label, sem).
				Component("sensor").
				Category(errors.CategoryProcessing).
				Context("generation", string(gen)).
				Context("kind", string(kind)).
				Build()
		}
		bands[string(sem)] = ref
	}

	return archive.ImageSpec{ID: imageID, Bands: bands}, nil
}
