package engine

import (
	"sort"

	"github.com/grepto/dash-macrodata/internal/models"
)

// All three views read the same filtered row indices and never mutate the
// dataset, so they can run concurrently off one snapshot.

// TimeSeries groups rows by country into per-year points. Series keep the
// order in which countries first appear among rows; points are ascending
// by year. Missing values are skipped.
func TimeSeries(ds *Dataset, rows []int, indicator string, years models.YearRange) models.TimeSeriesView {
	view := models.TimeSeriesView{
		Indicator: indicator,
		Years:     years,
		Series:    []models.Series{},
	}
	col := ds.column(indicator)
	if col == nil || len(rows) == 0 {
		return view
	}

	pos := make(map[int32]int) // country ID -> index in view.Series
	for _, i := range rows {
		if col.IsNull(i) {
			continue
		}
		cid := ds.countryIDs[i]
		k, ok := pos[cid]
		if !ok {
			k = len(view.Series)
			pos[cid] = k
			view.Series = append(view.Series, models.Series{Country: ds.countryDict[cid]})
		}
		view.Series[k].Points = append(view.Series[k].Points, models.Point{
			Year:  ds.Year(i),
			Value: col.Value(i),
		})
	}

	for k := range view.Series {
		pts := view.Series[k].Points
		sort.SliceStable(pts, func(a, b int) bool { return pts[a].Year < pts[b].Year })
	}
	return view
}

type meanAcc struct {
	sum   float64
	count int
}

// PeriodAggregate computes the pie view. The period comes from
// ResolvePeriod: brush and full-range periods average each country over
// the period and sort by country name; a single hovered or clicked year
// takes the raw value per country in row order.
func PeriodAggregate(ds *Dataset, rows []int, indicator string, years models.YearRange, events ...models.Interaction) models.PeriodAggregateView {
	period := ResolvePeriod(years, events...)
	view := models.PeriodAggregateView{
		Indicator: indicator,
		Kind:      period.Kind,
		Label:     period.Label,
		Years:     period.Years,
		Slices:    []models.Slice{},
	}
	col := ds.column(indicator)
	if col == nil || len(rows) == 0 {
		return view
	}

	if period.Kind == models.PeriodYear {
		for _, i := range rows {
			if ds.Year(i) != period.Years.From || col.IsNull(i) {
				continue
			}
			view.Slices = append(view.Slices, models.Slice{Country: ds.Country(i), Value: col.Value(i)})
		}
		return view
	}

	acc := make(map[int32]*meanAcc)
	for _, i := range rows {
		if !period.Years.Contains(ds.Year(i)) || col.IsNull(i) {
			continue
		}
		cid := ds.countryIDs[i]
		a, ok := acc[cid]
		if !ok {
			a = &meanAcc{}
			acc[cid] = a
		}
		a.sum += col.Value(i)
		a.count++
	}
	for cid, a := range acc {
		view.Slices = append(view.Slices, models.Slice{
			Country: ds.countryDict[cid],
			Value:   a.sum / float64(a.count),
		})
	}
	sort.Slice(view.Slices, func(a, b int) bool { return view.Slices[a].Country < view.Slices[b].Country })
	return view
}

// RaceTopN is the number of entries kept per race frame: the selection
// size unless a positive override is given. An empty selection stays 0.
func RaceTopN(selected, override int) int {
	if selected == 0 {
		return 0
	}
	if override > 0 {
		return override
	}
	return selected
}

// Race builds one frame per year of years. Each frame ranks the countries
// observed that year by value, descending (ties by name), and keeps the
// top topN. Countries without a value that year are left out of the frame.
// topN <= 0 yields no frames.
func Race(ds *Dataset, rows []int, indicator string, years models.YearRange, topN int) models.RaceView {
	view := models.RaceView{
		Indicator: indicator,
		Years:     years,
		TopN:      topN,
		Frames:    []models.Frame{},
	}
	col := ds.column(indicator)
	if col == nil || topN <= 0 || years.Span() == 0 {
		return view
	}

	byYear := make([][]models.RaceEntry, years.Span())
	for _, i := range rows {
		y := ds.Year(i)
		if !years.Contains(y) || col.IsNull(i) {
			continue
		}
		k := y - years.From
		byYear[k] = append(byYear[k], models.RaceEntry{Country: ds.Country(i), Value: col.Value(i)})
	}

	for k, entries := range byYear {
		if entries == nil {
			entries = []models.RaceEntry{}
		}
		sort.Slice(entries, func(a, b int) bool {
			if entries[a].Value != entries[b].Value {
				return entries[a].Value > entries[b].Value
			}
			return entries[a].Country < entries[b].Country
		})
		if len(entries) > topN {
			entries = entries[:topN]
		}
		for r := range entries {
			entries[r].Rank = r + 1
		}
		view.Frames = append(view.Frames, models.Frame{Year: years.From + k, Entries: entries})
	}
	return view
}

// RaceCursor replays a race timeline. It is finite and restartable.
type RaceCursor struct {
	frames []models.Frame
	pos    int
}

func NewRaceCursor(view models.RaceView) *RaceCursor {
	return &RaceCursor{frames: view.Frames}
}

// Next returns the next frame, or false once the timeline is exhausted.
func (c *RaceCursor) Next() (models.Frame, bool) {
	if c.pos >= len(c.frames) {
		return models.Frame{}, false
	}
	f := c.frames[c.pos]
	c.pos++
	return f, true
}

// Reset rewinds to frame 0.
func (c *RaceCursor) Reset() { c.pos = 0 }

// Len is the number of frames in the timeline.
func (c *RaceCursor) Len() int { return len(c.frames) }
