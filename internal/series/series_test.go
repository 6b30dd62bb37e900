package series

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortOrdersChronologically(t *testing.T) {
	t.Parallel()

	points := []Point{
		{Date: "2021-07-14", Value: 0.4},
		{Date: "2019-03-02", Value: 0.2},
		{Date: "2020-11-30", Value: 0.3},
		{Date: "2019-03-02", Value: 0.25, SourceID: "second"},
	}

	ts := Sort(points)
	require.Len(t, ts, 4)
	assert.True(t, sort.SliceIsSorted(ts, func(i, j int) bool {
		return ts[i].Date < ts[j].Date
	}))

	// stable for equal dates
	assert.Empty(t, ts[0].SourceID)
	assert.Equal(t, "second", ts[1].SourceID)

	// input slice untouched
	assert.Equal(t, "2021-07-14", points[0].Date)
}

func TestDeriveAnnualGroupsByYear(t *testing.T) {
	t.Parallel()

	ts := Sort([]Point{
		{Date: "2019-04-01", Value: 0.2, CloudCover: 10, EffectiveCloudCover: 5, Latitude: 61.5, Longitude: 23.8},
		{Date: "2019-08-15", Value: 0.6, CloudCover: 30, EffectiveCloudCover: 15, Latitude: 61.5, Longitude: 23.8},
		{Date: "2021-06-20", Value: 0.5, CloudCover: 20, EffectiveCloudCover: 10, Latitude: 61.5, Longitude: 23.8},
	})

	annual := DeriveAnnual(ts)
	require.Len(t, annual, 2)

	assert.Equal(t, 2019, annual[0].Year)
	assert.Equal(t, "2019-07-01", annual[0].Date)
	assert.InDelta(t, 0.4, annual[0].Value, 1e-6)
	assert.InDelta(t, 20, annual[0].CloudCover, 1e-6)
	assert.InDelta(t, 10, annual[0].EffectiveCloudCover, 1e-6)
	assert.Equal(t, 2, annual[0].Count)

	assert.Equal(t, 2021, annual[1].Year)
	assert.Equal(t, 1, annual[1].Count)

	total := 0
	for _, obs := range annual {
		total += obs.Count
	}
	assert.Equal(t, len(ts), total, "every point contributes to exactly one year")
}

func TestDeriveAnnualSkipsUnknownCloudCover(t *testing.T) {
	t.Parallel()

	ts := Sort([]Point{
		{Date: "2019-04-01", Value: 0.2, CloudCover: 10, EffectiveCloudCover: 5},
		{Date: "2019-06-10", Value: 0.3, CloudCover: -1, EffectiveCloudCover: -1},
		{Date: "2019-08-15", Value: 0.4, CloudCover: 20, EffectiveCloudCover: 10},
		{Date: "2020-05-05", Value: 0.5, CloudCover: -1, EffectiveCloudCover: -1},
	})

	annual := DeriveAnnual(ts)
	require.Len(t, annual, 2)

	// mean over the known covers only, the unknown point still counts for value
	assert.InDelta(t, 0.3, annual[0].Value, 1e-6)
	assert.InDelta(t, 15, annual[0].CloudCover, 1e-6)
	assert.InDelta(t, 7.5, annual[0].EffectiveCloudCover, 1e-6)
	assert.Equal(t, 3, annual[0].Count)

	// a year with no known cover stays unknown
	assert.InDelta(t, -1, annual[1].CloudCover, 1e-6)
	assert.InDelta(t, -1, annual[1].EffectiveCloudCover, 1e-6)
}

func TestDeriveAnnualEmptySeries(t *testing.T) {
	t.Parallel()
	assert.Nil(t, DeriveAnnual(nil))
	assert.Nil(t, DeriveAnnual(TimeSeries{}))
}

func TestValuesPreservesOrder(t *testing.T) {
	t.Parallel()

	ts := TimeSeries{
		{Date: "2020-01-01", Value: 1.5},
		{Date: "2020-02-01", Value: -0.5},
	}
	assert.Equal(t, []float64{1.5, -0.5}, ts.Values())
}
