// Package analysis bridges the command line to the processing pipeline: it
// parses the request inputs, wires the archive client and telemetry, runs the
// pipeline and writes the results.
package analysis

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/tkorpela/terraseries/internal/archive"
	"github.com/tkorpela/terraseries/internal/conf"
	"github.com/tkorpela/terraseries/internal/errors"
	"github.com/tkorpela/terraseries/internal/logging"
	"github.com/tkorpela/terraseries/internal/observability"
	"github.com/tkorpela/terraseries/internal/pipeline"
	"github.com/tkorpela/terraseries/internal/sensor"
	"github.com/tkorpela/terraseries/internal/series"
)

// Output formats for result writing.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Request carries the command-line inputs for one analysis invocation.
type Request struct {
	RegionFile string // path to a GeoJSON polygon
	BBox       string // "minLon,minLat,maxLon,maxLat", alternative to RegionFile
	Start      string // ISO date
	End        string // ISO date

	Family        string
	CloudCoverMax float64
	Masking       string

	Format string // json or csv
	Output string // output path, empty for stdout
}

// Spec converts the request inputs into a validated-on-run pipeline spec for
// the given analysis kind.
func (r *Request) Spec(kind sensor.AnalysisKind) (*pipeline.RequestSpec, error) {
	region, err := r.region()
	if err != nil {
		return nil, err
	}

	start, err := parseDate(r.Start, "start")
	if err != nil {
		return nil, err
	}
	end, err := parseDate(r.End, "end")
	if err != nil {
		return nil, err
	}

	family := sensor.Family(r.Family)
	if r.Family == "" {
		family = defaultFamily(kind)
	}

	return &pipeline.RequestSpec{
		Region:        region,
		Start:         start,
		End:           end,
		Family:        family,
		CloudCoverMax: r.CloudCoverMax,
		Masking:       pipeline.MaskingMode(r.Masking),
		Kind:          kind,
	}, nil
}

// defaultFamily picks the sensor family used when the request leaves it open.
func defaultFamily(kind sensor.AnalysisKind) sensor.Family {
	switch kind {
	case sensor.KindRadar:
		return sensor.FamilySentinel1
	case sensor.KindThermal:
		return sensor.FamilyLandsat
	default:
		return sensor.FamilySentinel2
	}
}

func (r *Request) region() (orb.Polygon, error) {
	switch {
	case r.RegionFile != "":
		return loadRegionFile(r.RegionFile)
	case r.BBox != "":
		return parseBBox(r.BBox)
	default:
		return nil, errors.Newf("a region is required: pass --region or --bbox").
			Component("analysis").
			Category(errors.CategoryValidation).
			Build()
	}
}

// loadRegionFile reads a GeoJSON file holding a FeatureCollection, Feature or
// bare geometry and returns its polygon.
func loadRegionFile(path string) (orb.Polygon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Newf("error reading region file: %w", err).
			Component("analysis").
			Category(errors.CategoryConfiguration).
			Context("path", path).
			Build()
	}

	var geom orb.Geometry
	if fc, err := geojson.UnmarshalFeatureCollection(data); err == nil && len(fc.Features) > 0 {
		geom = fc.Features[0].Geometry
	} else if f, err := geojson.UnmarshalFeature(data); err == nil {
		geom = f.Geometry
	} else if g, err := geojson.UnmarshalGeometry(data); err == nil {
		geom = g.Geometry()
	} else {
		return nil, errors.Newf("region file %s is not valid GeoJSON", path).
			Component("analysis").
			Category(errors.CategoryGeometry).
			Build()
	}

	switch g := geom.(type) {
	case orb.Polygon:
		return g, nil
	case orb.MultiPolygon:
		if len(g) > 0 {
			return g[0], nil
		}
	}
	return nil, errors.Newf("region file %s does not contain a polygon", path).
		Component("analysis").
		Category(errors.CategoryGeometry).
		Build()
}

// parseBBox turns "minLon,minLat,maxLon,maxLat" into a closed rectangle.
func parseBBox(s string) (orb.Polygon, error) {
	fail := func() error {
		return errors.Newf("invalid bounding box %q, expected minLon,minLat,maxLon,maxLat", s).
			Component("analysis").
			Category(errors.CategoryValidation).
			Build()
	}

	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fail()
	}
	coords := make([]float64, 4)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fail()
		}
		coords[i] = v
	}
	minLon, minLat, maxLon, maxLat := coords[0], coords[1], coords[2], coords[3]
	if minLon >= maxLon || minLat >= maxLat {
		return nil, fail()
	}

	return orb.Polygon{orb.Ring{
		{minLon, minLat},
		{maxLon, minLat},
		{maxLon, maxLat},
		{minLon, maxLat},
		{minLon, minLat},
	}}, nil
}

func parseDate(s, which string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.Newf("missing %s date", which).
			Component("analysis").
			Category(errors.CategoryValidation).
			Build()
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, errors.Newf("invalid %s date %q, expected YYYY-MM-DD", which, s).
			Component("analysis").
			Category(errors.CategoryValidation).
			Build()
	}
	return t, nil
}

// buildPipeline wires the archive client, metrics and the optional telemetry
// endpoint. The returned stop function shuts telemetry down.
func buildPipeline(settings *conf.Settings) (*pipeline.Pipeline, func(), error) {
	client := archive.NewRestClient(&settings.Archive)

	metrics, err := observability.NewMetrics()
	if err != nil {
		return nil, nil, fmt.Errorf("error initializing metrics: %w", err)
	}

	stop := func() {}
	if settings.Telemetry.Enabled {
		endpoint, err := observability.NewEndpoint(settings, metrics)
		if err != nil {
			return nil, nil, fmt.Errorf("error initializing telemetry endpoint: %w", err)
		}
		quit := make(chan struct{})
		endpoint.Start(quit)
		stop = func() { close(quit) }
	}

	return pipeline.New(settings, client, metrics), stop, nil
}

// openOutput returns the destination writer for results and a close function.
func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating output file: %w", err)
	}
	return f, f.Close, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeSeriesCSV writes one observation per row.
func writeSeriesCSV(w io.Writer, ts series.TimeSeries) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"date", "value", "cloud_cover", "effective_cloud_cover",
		"latitude", "longitude", "source_id", "sensor", "acquisitions_count",
	}); err != nil {
		return err
	}
	for i := range ts {
		pt := &ts[i]
		record := []string{
			pt.Date,
			strconv.FormatFloat(pt.Value, 'f', -1, 64),
			strconv.FormatFloat(pt.CloudCover, 'f', 1, 64),
			strconv.FormatFloat(pt.EffectiveCloudCover, 'f', 1, 64),
			strconv.FormatFloat(pt.Latitude, 'f', 6, 64),
			strconv.FormatFloat(pt.Longitude, 'f', 6, 64),
			pt.SourceID,
			pt.SensorLabel,
			strconv.Itoa(pt.Acquisitions),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// reportFailure logs a pipeline failure with its remediation hints before the
// error propagates to the command line.
func reportFailure(err error) {
	logging.Error("Analysis failed", "error", err, "category", string(errors.CategoryOf(err)))
	for _, hint := range errors.SuggestionsOf(err) {
		fmt.Fprintf(os.Stderr, "hint: %s\n", hint)
	}
}
