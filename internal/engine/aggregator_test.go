package engine

import (
	"fmt"
	"math/rand"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grepto/dash-macrodata/internal/models"
)

const gdp = "GDP, $"

// mockDataset: 3 countries x 2010..2019. Value = base + (year-2010), with
// Bulgaria missing 2013 and Indonesia missing 2019.
//
//	Finland   base 100
//	Bulgaria  base 10
//	Indonesia base 50
func mockDataset(t *testing.T) *Dataset {
	t.Helper()
	bases := []struct {
		country string
		base    float64
		skip    int
	}{
		{"Finland", 100, 0},
		{"Bulgaria", 10, 2013},
		{"Indonesia", 50, 2019},
	}
	var rows []Observation
	for year := 2010; year <= 2019; year++ {
		for _, b := range bases {
			obs := Observation{Country: b.country, Year: year, Values: map[string]float64{}}
			if year != b.skip {
				obs.Values[gdp] = b.base + float64(year-2010)
			}
			rows = append(rows, obs)
		}
	}
	ds := FromObservations([]string{gdp}, rows)
	t.Cleanup(ds.Release)
	return ds
}

func allRows(ds *Dataset) []int {
	return FilterRows(ds, ds.Countries(), models.YearRange{From: ds.MinYear(), To: ds.MaxYear()})
}

func TestFilterRowsBruteForce(t *testing.T) {
	ds := mockDataset(t)
	rng := rand.New(rand.NewSource(7))
	countries := ds.Countries()

	for iter := 0; iter < 200; iter++ {
		var sel []string
		for _, c := range countries {
			if rng.Intn(2) == 0 {
				sel = append(sel, c)
			}
		}
		from := 2010 + rng.Intn(10)
		to := from + rng.Intn(2020-from)
		years := models.YearRange{From: from, To: to}

		want := []int{}
		for i := 0; i < ds.Len(); i++ {
			inSel := false
			for _, c := range sel {
				if ds.Country(i) == c {
					inSel = true
				}
			}
			if inSel && ds.Year(i) >= from && ds.Year(i) <= to {
				want = append(want, i)
			}
		}

		got := FilterRows(ds, sel, years)
		require.Equal(t, want, got, "countries=%v years=%v", sel, years)
	}
}

func TestFilterRowsEmptySelection(t *testing.T) {
	ds := mockDataset(t)
	rows := FilterRows(ds, nil, models.YearRange{From: 2010, To: 2019})
	assert.NotNil(t, rows)
	assert.Empty(t, rows)

	rows = FilterRows(ds, []string{"Atlantis"}, models.YearRange{From: 2010, To: 2019})
	assert.Empty(t, rows)
}

func TestTimeSeries(t *testing.T) {
	ds := mockDataset(t)
	years := models.YearRange{From: 2012, To: 2014}
	rows := FilterRows(ds, []string{"Bulgaria", "Finland"}, years)

	view := TimeSeries(ds, rows, gdp, years)

	// Dataset order: Finland rows come before Bulgaria rows in each year.
	require.Len(t, view.Series, 2)
	assert.Equal(t, "Finland", view.Series[0].Country)
	assert.Equal(t, []models.Point{{Year: 2012, Value: 102}, {Year: 2013, Value: 103}, {Year: 2014, Value: 104}}, view.Series[0].Points)

	// Bulgaria 2013 is missing and skipped, not zero.
	assert.Equal(t, "Bulgaria", view.Series[1].Country)
	assert.Equal(t, []models.Point{{Year: 2012, Value: 12}, {Year: 2014, Value: 14}}, view.Series[1].Points)
}

func TestPeriodAggregateBrushBeatsStaleHover(t *testing.T) {
	ds := mockDataset(t)
	years := models.YearRange{From: 2010, To: 2019}
	rows := allRows(ds)

	view := PeriodAggregate(ds, rows, gdp, years, models.Hover(2018), models.Brush(2012, 2015))

	assert.Equal(t, models.PeriodBrush, view.Kind)
	assert.Equal(t, "2012 - 2015", view.Label)
	// sorted by country name; Bulgaria misses 2013 so its mean is over 3 years
	assert.Equal(t, []models.Slice{
		{Country: "Bulgaria", Value: (12.0 + 14 + 15) / 3},
		{Country: "Finland", Value: 103.5},
		{Country: "Indonesia", Value: 53.5},
	}, view.Slices)
}

func TestPeriodAggregateReversedBrush(t *testing.T) {
	ds := mockDataset(t)
	view := PeriodAggregate(ds, allRows(ds), gdp, models.YearRange{From: 2010, To: 2019}, models.Brush(2015, 2012))
	assert.Equal(t, "2012 - 2015", view.Label)
	assert.Equal(t, models.YearRange{From: 2012, To: 2015}, view.Years)
}

func TestPeriodAggregateHoverIsExact(t *testing.T) {
	ds := mockDataset(t)
	years := models.YearRange{From: 2010, To: 2019}
	rows := allRows(ds)

	view := PeriodAggregate(ds, rows, gdp, years, models.Hover(2014))

	assert.Equal(t, models.PeriodYear, view.Kind)
	assert.Equal(t, "2014", view.Label)
	for _, s := range view.Slices {
		for _, i := range rows {
			if ds.Country(i) == s.Country && ds.Year(i) == 2014 {
				v, _ := ds.Value(i, gdp)
				assert.Equal(t, v, s.Value, s.Country)
			}
		}
	}
	// dataset order, no re-sorting
	assert.Equal(t, []models.Slice{
		{Country: "Finland", Value: 104},
		{Country: "Bulgaria", Value: 14},
		{Country: "Indonesia", Value: 54},
	}, view.Slices)

	click := PeriodAggregate(ds, rows, gdp, years, models.Click(2014))
	assert.Equal(t, view.Slices, click.Slices)
}

func TestPeriodAggregateNoInteractionUsesRange(t *testing.T) {
	ds := mockDataset(t)
	years := models.YearRange{From: 2010, To: 2011}
	rows := FilterRows(ds, []string{"Finland", "Indonesia"}, years)

	view := PeriodAggregate(ds, rows, gdp, years, models.NoInteraction())

	assert.Equal(t, models.PeriodRange, view.Kind)
	assert.Equal(t, "2010 - 2011", view.Label)
	assert.Equal(t, []models.Slice{
		{Country: "Finland", Value: 100.5},
		{Country: "Indonesia", Value: 50.5},
	}, view.Slices)
}

func TestResolvePeriodPrecedence(t *testing.T) {
	years := models.YearRange{From: 2010, To: 2019}
	tests := []struct {
		name   string
		events []models.Interaction
		kind   models.PeriodKind
		label  string
	}{
		{"nothing", nil, models.PeriodRange, "2010 - 2019"},
		{"explicit none", []models.Interaction{models.NoInteraction()}, models.PeriodRange, "2010 - 2019"},
		{"hover", []models.Interaction{models.Hover(2014)}, models.PeriodYear, "2014"},
		{"click", []models.Interaction{models.Click(2016)}, models.PeriodYear, "2016"},
		{"hover over click", []models.Interaction{models.Click(2016), models.Hover(2014)}, models.PeriodYear, "2014"},
		{"brush over hover", []models.Interaction{models.Hover(2018), models.Brush(2012, 2015)}, models.PeriodBrush, "2012 - 2015"},
		{"last brush wins", []models.Interaction{models.Brush(2010, 2011), models.Brush(2012, 2013)}, models.PeriodBrush, "2012 - 2013"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ResolvePeriod(years, tt.events...)
			assert.Equal(t, tt.kind, p.Kind)
			assert.Equal(t, tt.label, p.Label)
		})
	}
}

func TestRace(t *testing.T) {
	ds := mockDataset(t)
	years := models.YearRange{From: 2010, To: 2019}
	sel := ds.Countries()
	rows := FilterRows(ds, sel, years)

	view := Race(ds, rows, gdp, years, RaceTopN(len(sel), 0))

	require.Len(t, view.Frames, years.To-years.From+1)
	for k, f := range view.Frames {
		assert.Equal(t, 2010+k, f.Year)
		assert.LessOrEqual(t, len(f.Entries), len(sel))
		for r := 1; r < len(f.Entries); r++ {
			assert.GreaterOrEqual(t, f.Entries[r-1].Value, f.Entries[r].Value)
			assert.Equal(t, r+1, f.Entries[r].Rank)
		}
	}

	// 2013: Bulgaria omitted, not zero-filled
	f2013 := view.Frames[3]
	assert.Equal(t, []models.RaceEntry{
		{Rank: 1, Country: "Finland", Value: 103},
		{Rank: 2, Country: "Indonesia", Value: 53},
	}, f2013.Entries)
}

func TestRaceTruncatesAndKeepsEmptyYears(t *testing.T) {
	ds := mockDataset(t)
	years := models.YearRange{From: 2018, To: 2019}
	rows := FilterRows(ds, []string{"Indonesia"}, years)

	view := Race(ds, rows, gdp, years, 1)
	require.Len(t, view.Frames, 2)
	assert.Len(t, view.Frames[0].Entries, 1)
	// Indonesia has no 2019 value: the frame still exists, just empty
	assert.Equal(t, 2019, view.Frames[1].Year)
	assert.Empty(t, view.Frames[1].Entries)

	all := Race(ds, allRows(ds), gdp, years, RaceTopN(3, 2))
	for _, f := range all.Frames {
		assert.LessOrEqual(t, len(f.Entries), 2)
	}
	assert.Equal(t, "Finland", all.Frames[0].Entries[0].Country)
}

func TestRaceTopN(t *testing.T) {
	assert.Equal(t, 0, RaceTopN(0, 5))
	assert.Equal(t, 5, RaceTopN(5, 0))
	assert.Equal(t, 2, RaceTopN(5, 2))
}

func TestRaceCursorRestarts(t *testing.T) {
	ds := mockDataset(t)
	years := models.YearRange{From: 2010, To: 2012}
	view := Race(ds, allRows(ds), gdp, years, 3)

	c := NewRaceCursor(view)
	require.Equal(t, 3, c.Len())

	var seen []int
	for f, ok := c.Next(); ok; f, ok = c.Next() {
		seen = append(seen, f.Year)
	}
	assert.Equal(t, []int{2010, 2011, 2012}, seen)

	_, ok := c.Next()
	assert.False(t, ok)

	c.Reset()
	f, ok := c.Next()
	require.True(t, ok)
	assert.Equal(t, 2010, f.Year)
}

func TestEmptySelectionYieldsEmptyViews(t *testing.T) {
	ds := mockDataset(t)
	years := models.YearRange{From: 2010, To: 2019}
	var sel []string
	rows := FilterRows(ds, sel, years)

	ts := TimeSeries(ds, rows, gdp, years)
	pa := PeriodAggregate(ds, rows, gdp, years, models.Hover(2014))
	race := Race(ds, rows, gdp, years, RaceTopN(len(sel), 0))

	assert.NotNil(t, ts.Series)
	assert.Empty(t, ts.Series)
	assert.NotNil(t, pa.Slices)
	assert.Empty(t, pa.Slices)
	assert.NotNil(t, race.Frames)
	assert.Empty(t, race.Frames)
}

func TestUnknownIndicatorYieldsEmptyViews(t *testing.T) {
	ds := mockDataset(t)
	years := models.YearRange{From: 2010, To: 2019}
	rows := allRows(ds)
	assert.Empty(t, TimeSeries(ds, rows, "nope", years).Series)
	assert.Empty(t, PeriodAggregate(ds, rows, "nope", years).Slices)
	assert.Empty(t, Race(ds, rows, "nope", years, 3).Frames)
}

func TestPipelineIsIdempotent(t *testing.T) {
	ds := mockDataset(t)
	sel := models.Selection{
		Countries:   []string{"Indonesia", "Finland"},
		Indicator:   gdp,
		Years:       models.YearRange{From: 2011, To: 2017},
		Interaction: models.Brush(2012, 2016),
	}

	run := func() models.PeriodAggregateView {
		rows := FilterRows(ds, sel.Countries, sel.Years)
		return PeriodAggregate(ds, rows, sel.Indicator, sel.Years, sel.Interaction)
	}
	first, second := run(), run()
	assert.True(t, reflect.DeepEqual(first, second), fmt.Sprintf("%+v != %+v", first, second))
}
