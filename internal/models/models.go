package models

// DashboardData is everything the three charts need for one selection
// snapshot. Views and charts are always derived from Selection.
type DashboardData struct {
	Selection  Selection           `json:"selection"`
	TimeSeries TimeSeriesView      `json:"time_series"`
	Period     PeriodAggregateView `json:"period"`
	Race       RaceView            `json:"race"`
	Charts     Charts              `json:"charts"`
}

// Charts groups the declarative chart descriptions.
type Charts struct {
	TimeSeries ChartConfig `json:"time_series"`
	Pie        ChartConfig `json:"pie"`
	Race       ChartConfig `json:"race"`
}

// Options feeds the three input controls.
type Options struct {
	Countries  []string  `json:"countries"`
	Indicators []string  `json:"indicators"`
	MinYear    int       `json:"min_year"`
	MaxYear    int       `json:"max_year"`
	Years      []int     `json:"years"`
	Defaults   Selection `json:"defaults"`
}

// --- VIEWS ---

type Point struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

type Series struct {
	Country string  `json:"country"`
	Points  []Point `json:"points"`
}

// TimeSeriesView feeds the line chart: raw per-year values, one series per
// country.
type TimeSeriesView struct {
	Indicator string    `json:"indicator"`
	Years     YearRange `json:"years"`
	Series    []Series  `json:"series"`
}

type PeriodKind string

const (
	PeriodRange PeriodKind = "range"
	PeriodBrush PeriodKind = "brush"
	PeriodYear  PeriodKind = "year"
)

type Slice struct {
	Country string  `json:"country"`
	Value   float64 `json:"value"`
}

// PeriodAggregateView feeds the pie chart.
type PeriodAggregateView struct {
	Indicator string     `json:"indicator"`
	Kind      PeriodKind `json:"kind"`
	Label     string     `json:"label"`
	Years     YearRange  `json:"years"`
	Slices    []Slice    `json:"slices"`
}

type RaceEntry struct {
	Rank    int     `json:"rank"`
	Country string  `json:"country"`
	Value   float64 `json:"value"`
}

type Frame struct {
	Year    int         `json:"year"`
	Entries []RaceEntry `json:"entries"`
}

// RaceView feeds the bar-chart race: one frame per year, ascending.
type RaceView struct {
	Indicator string    `json:"indicator"`
	Years     YearRange `json:"years"`
	TopN      int       `json:"top_n"`
	Frames    []Frame   `json:"frames"`
}

// --- CHARTS ---

// ChartConfig is a render-ready chart description.
type ChartConfig struct {
	ChartType       string        `json:"chart_type"` // "line", "pie", "race"
	Title           string        `json:"title"`
	XAxis           string        `json:"x_axis,omitempty"`
	YAxis           string        `json:"y_axis,omitempty"`
	Legend          string        `json:"legend,omitempty"`
	Empty           bool          `json:"empty"`
	Series          []ChartSeries `json:"series"`
	Frames          []ChartFrame  `json:"frames,omitempty"`
	TimeLabel       string        `json:"time_label,omitempty"`
	FrameDurationMS int64         `json:"frame_duration_ms,omitempty"`
}

type ChartSeries struct {
	Name   string       `json:"name"`
	Points []ChartPoint `json:"points"`
}

type ChartPoint struct {
	Label string  `json:"label"`
	X     float64 `json:"x"`
	Value float64 `json:"value"`
	Text  string  `json:"text,omitempty"`
	Hover string  `json:"hover,omitempty"`
}

// ChartFrame is one animation step of the race chart.
type ChartFrame struct {
	Label  string       `json:"label"`
	Year   int          `json:"year"`
	Points []ChartPoint `json:"points"`
}
