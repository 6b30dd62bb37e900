// Package series assembles observation points into chronological and annual
// time series and combines independently produced indicator series.
package series

import (
	"sort"
)

// Point is one produced (date, value) sample. Dates use ISO 8601 day
// precision; the year key for annual grouping is the first four characters.
type Point struct {
	Date string `json:"date"` // ISO 8601, 2006-01-02

	Value float64 `json:"value"`

	// CloudCover is the archive-reported percent for the source image or the
	// mean over a composite's inputs; EffectiveCloudCover applies the masking
	// strictness factor. Both are -1 when unknown (radar).
	CloudCover          float64 `json:"cloud_cover"`
	EffectiveCloudCover float64 `json:"effective_cloud_cover"`

	// Region-representative coordinates
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	SourceID     string `json:"source_id"` // source image id or composite id
	SensorLabel  string `json:"sensor"`
	Acquisitions int    `json:"acquisitions_count"` // contributing image count, >= 1
}

// TimeSeries is an ascending-by-date sequence of points. Duplicate dates may
// appear only before merging.
type TimeSeries []Point

// Sort orders points chronologically, stable with respect to input order for
// equal dates, and returns them as a TimeSeries.
func Sort(points []Point) TimeSeries {
	out := make(TimeSeries, len(points))
	copy(out, points)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date < out[j].Date
	})
	return out
}

// AnnualObservation is a derived yearly mean over a time series.
type AnnualObservation struct {
	Year                int     `json:"year"`
	Date                string  `json:"date"` // mid-year representative date
	Value               float64 `json:"value"`
	CloudCover          float64 `json:"cloud_cover"`
	EffectiveCloudCover float64 `json:"effective_cloud_cover"`
	Latitude            float64 `json:"latitude"`
	Longitude           float64 `json:"longitude"`
	Count               int     `json:"count"` // contributing point count, >= 1
}

// DeriveAnnual groups a sorted series by calendar year and returns one
// observation per year present: the value is the arithmetic mean over the
// year's points, cloud metadata is the mean of the known covers only (-1
// when none are known), coordinates come from the year's first point. An
// empty series yields an empty result.
func DeriveAnnual(ts TimeSeries) []AnnualObservation {
	if len(ts) == 0 {
		return nil
	}

	type bucket struct {
		valueSum       float64
		cloudSum       float64
		cloudKnown     int
		effectiveSum   float64
		effectiveKnown int
		first          *Point
		count          int
	}

	buckets := make(map[string]*bucket)
	var years []string
	for i := range ts {
		pt := &ts[i]
		if len(pt.Date) < 4 {
			continue
		}
		year := pt.Date[:4]
		b, ok := buckets[year]
		if !ok {
			b = &bucket{first: pt}
			buckets[year] = b
			years = append(years, year)
		}
		b.valueSum += pt.Value
		if pt.CloudCover >= 0 {
			b.cloudSum += pt.CloudCover
			b.cloudKnown++
		}
		if pt.EffectiveCloudCover >= 0 {
			b.effectiveSum += pt.EffectiveCloudCover
			b.effectiveKnown++
		}
		b.count++
	}

	sort.Strings(years)

	out := make([]AnnualObservation, 0, len(years))
	for _, year := range years {
		b := buckets[year]
		cloud, effective := -1.0, -1.0
		if b.cloudKnown > 0 {
			cloud = b.cloudSum / float64(b.cloudKnown)
		}
		if b.effectiveKnown > 0 {
			effective = b.effectiveSum / float64(b.effectiveKnown)
		}
		out = append(out, AnnualObservation{
			Year:                yearNumber(year),
			Date:                year + "-07-01",
			Value:               b.valueSum / float64(b.count),
			CloudCover:          cloud,
			EffectiveCloudCover: effective,
			Latitude:            b.first.Latitude,
			Longitude:           b.first.Longitude,
			Count:               b.count,
		})
	}
	return out
}

func yearNumber(year string) int {
	n := 0
	for _, c := range year {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// Values extracts the value column, preserving order.
func (ts TimeSeries) Values() []float64 {
	out := make([]float64, len(ts))
	for i := range ts {
		out[i] = ts[i].Value
	}
	return out
}
