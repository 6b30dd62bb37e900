package series

import (
	"math"
	"sort"
)

// IndicatorSeries is one indicator's assembled output entering combination.
type IndicatorSeries struct {
	Name   string              `json:"name"` // vegetation, thermal or radar
	Series TimeSeries          `json:"series"`
	Annual []AnnualObservation `json:"annual,omitempty"`
}

// indicatorPriority orders which indicator supplies representative metadata
// for a combined point when several observed the same date.
var indicatorPriority = map[string]int{
	"vegetation": 0,
	"thermal":    1,
	"radar":      2,
}

// CombinedPoint carries every indicator value observed for one date. The
// representative metadata comes from the highest-priority indicator present.
type CombinedPoint struct {
	Date        string             `json:"date"`
	Values      map[string]float64 `json:"values"` // indicator name -> value
	Latitude    float64            `json:"latitude"`
	Longitude   float64            `json:"longitude"`
	SourceID    string             `json:"source_id"`
	SensorLabel string             `json:"sensor"`
}

// Combine joins indicator series by date key. Every date present in at least
// one series yields a combined point; indicators without an observation for
// that date are simply absent from its value map.
func Combine(indicators []IndicatorSeries) []CombinedPoint {
	ordered := make([]IndicatorSeries, len(indicators))
	copy(ordered, indicators)
	sort.SliceStable(ordered, func(i, j int) bool {
		return indicatorPriority[ordered[i].Name] < indicatorPriority[ordered[j].Name]
	})

	byDate := make(map[string]*CombinedPoint)
	var dates []string
	for _, ind := range ordered {
		for i := range ind.Series {
			pt := &ind.Series[i]
			cp, ok := byDate[pt.Date]
			if !ok {
				cp = &CombinedPoint{
					Date:        pt.Date,
					Values:      make(map[string]float64),
					Latitude:    pt.Latitude,
					Longitude:   pt.Longitude,
					SourceID:    pt.SourceID,
					SensorLabel: pt.SensorLabel,
				}
				byDate[pt.Date] = cp
				dates = append(dates, pt.Date)
			}
			if _, exists := cp.Values[ind.Name]; !exists {
				cp.Values[ind.Name] = pt.Value
			}
		}
	}

	sort.Strings(dates)
	out := make([]CombinedPoint, 0, len(dates))
	for _, d := range dates {
		out = append(out, *byDate[d])
	}
	return out
}

// Pearson computes the Pearson correlation coefficient of two equal-length,
// non-empty samples. ok is false when the inputs do not qualify or the
// coefficient is undefined (zero variance).
func Pearson(a, b []float64) (r float64, ok bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}

	n := float64(len(a))
	var meanA, meanB float64
	for i := range a {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= n
	meanB /= n

	var cov, varA, varB float64
	for i := range a {
		da := a[i] - meanA
		db := b[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0, false
	}

	r = cov / math.Sqrt(varA*varB)
	// numeric noise can push |r| marginally over 1
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r, true
}

// CorrelationMatrix computes pairwise Pearson correlation between indicator
// value columns. Pairs with empty or unequal-length series are omitted
// rather than erroring. The matrix is symmetric with unit diagonal for every
// indicator that appears in at least one computed pair.
func CorrelationMatrix(indicators []IndicatorSeries) map[string]map[string]float64 {
	matrix := make(map[string]map[string]float64)
	set := func(a, b string, v float64) {
		if matrix[a] == nil {
			matrix[a] = make(map[string]float64)
		}
		matrix[a][b] = v
	}

	for i := 0; i < len(indicators); i++ {
		for j := i + 1; j < len(indicators); j++ {
			r, ok := Pearson(indicators[i].Series.Values(), indicators[j].Series.Values())
			if !ok {
				continue
			}
			set(indicators[i].Name, indicators[j].Name, r)
			set(indicators[j].Name, indicators[i].Name, r)
			set(indicators[i].Name, indicators[i].Name, 1)
			set(indicators[j].Name, indicators[j].Name, 1)
		}
	}

	if len(matrix) == 0 {
		return nil
	}
	return matrix
}
