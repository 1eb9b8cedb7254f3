package chart

import (
	"fmt"
	"strconv"
	"time"

	"github.com/grepto/dash-macrodata/internal/engine"
	"github.com/grepto/dash-macrodata/internal/models"
)

const (
	ChartLine = "line"
	ChartPie  = "pie"
	ChartRace = "race"
)

// Adapter turns engine views into render-ready chart descriptions.
type Adapter struct {
	frameDuration time.Duration
}

// NewAdapter creates an Adapter. frameDuration is the race animation step.
func NewAdapter(frameDuration time.Duration) *Adapter {
	if frameDuration <= 0 {
		frameDuration = 800 * time.Millisecond
	}
	return &Adapter{frameDuration: frameDuration}
}

// TimeSeries describes the multi-series line chart.
func (a *Adapter) TimeSeries(v models.TimeSeriesView) models.ChartConfig {
	cfg := models.ChartConfig{
		ChartType: ChartLine,
		Title:     fmt.Sprintf("%s in %s", v.Indicator, v.Years.Label()),
		XAxis:     "Year",
		YAxis:     v.Indicator,
		Legend:    "Country",
		Series:    make([]models.ChartSeries, 0, len(v.Series)),
	}
	for _, s := range v.Series {
		points := make([]models.ChartPoint, 0, len(s.Points))
		for _, p := range s.Points {
			points = append(points, models.ChartPoint{
				Label: strconv.Itoa(p.Year),
				X:     float64(p.Year),
				Value: p.Value,
				Text:  HumanFormat(p.Value),
				Hover: fmt.Sprintf("%s: %s", s.Country, HumanFormat(p.Value)),
			})
		}
		cfg.Series = append(cfg.Series, models.ChartSeries{Name: s.Country, Points: points})
	}
	cfg.Empty = len(cfg.Series) == 0
	return cfg
}

// Pie describes the period aggregate as one slice per country.
func (a *Adapter) Pie(v models.PeriodAggregateView) models.ChartConfig {
	cfg := models.ChartConfig{
		ChartType: ChartPie,
		Title:     fmt.Sprintf("%s in %s", v.Indicator, v.Label),
		Legend:    "Country",
		Series:    []models.ChartSeries{},
	}
	if len(v.Slices) == 0 {
		cfg.Empty = true
		return cfg
	}

	var total float64
	for _, s := range v.Slices {
		total += s.Value
	}

	points := make([]models.ChartPoint, 0, len(v.Slices))
	for i, s := range v.Slices {
		pct := 0.0
		if total != 0 {
			pct = s.Value / total * 100
		}
		points = append(points, models.ChartPoint{
			Label: s.Country,
			X:     float64(i),
			Value: s.Value,
			Text:  fmt.Sprintf("%.1f%%", pct),
			Hover: fmt.Sprintf("%s - %.1f%%\nValue: %s", s.Country, pct, FormatThousands(s.Value)),
		})
	}
	cfg.Series = append(cfg.Series, models.ChartSeries{Name: v.Indicator, Points: points})
	return cfg
}

// Race describes the animated bar-chart race, one frame per year.
func (a *Adapter) Race(v models.RaceView) models.ChartConfig {
	cfg := models.ChartConfig{
		ChartType:       ChartRace,
		Title:           fmt.Sprintf("%s per Country from %d to %d", v.Indicator, v.Years.From, v.Years.To),
		XAxis:           v.Indicator,
		TimeLabel:       "Year: ",
		FrameDurationMS: a.frameDuration.Milliseconds(),
		Series:          []models.ChartSeries{},
	}

	cursor := engine.NewRaceCursor(v)
	cfg.Frames = make([]models.ChartFrame, 0, cursor.Len())
	for f, ok := cursor.Next(); ok; f, ok = cursor.Next() {
		points := make([]models.ChartPoint, 0, len(f.Entries))
		for _, e := range f.Entries {
			points = append(points, models.ChartPoint{
				Label: e.Country,
				X:     float64(e.Rank),
				Value: e.Value,
				Text:  HumanFormat(e.Value),
				Hover: fmt.Sprintf("%s - %s", e.Country, HumanFormat(e.Value)),
			})
		}
		cfg.Frames = append(cfg.Frames, models.ChartFrame{
			Label:  cfg.TimeLabel + strconv.Itoa(f.Year),
			Year:   f.Year,
			Points: points,
		})
	}
	cfg.Empty = len(cfg.Frames) == 0
	return cfg
}
