package chart

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/grepto/dash-macrodata/internal/models"
)

var (
	ErrEmptyChart        = errors.New("chart has no data")
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrUnknownChart      = errors.New("unknown chart type")
	ErrFrameOutOfRange   = errors.New("race frame out of range")
)

// Format is an image encoding supported by Render.
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

// ParseFormat maps a query value to a Format. Empty means PNG.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png":
		return FormatPNG, nil
	case "svg":
		return FormatSVG, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// ContentType is the MIME type of the encoded image.
func (f Format) ContentType() string {
	if f == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

func (f Format) provider() gochart.RendererProvider {
	if f == FormatSVG {
		return gochart.SVG
	}
	return gochart.PNG
}

var palette = []drawing.Color{
	gochart.ColorBlue,
	gochart.ColorGreen,
	gochart.ColorRed,
	gochart.ColorOrange,
	gochart.ColorCyan,
	gochart.ColorAlternateGray,
}

// Renderer rasterizes chart configs at a fixed size.
type Renderer struct {
	width, height int
}

func NewRenderer(width, height int) *Renderer {
	if width <= 0 {
		width = 1024
	}
	if height <= 0 {
		height = 500
	}
	return &Renderer{width: width, height: height}
}

// Render writes cfg to w. For race charts frame selects the frame to draw;
// a negative frame means the last one.
func (r *Renderer) Render(cfg models.ChartConfig, format Format, frame int, w io.Writer) error {
	if cfg.Empty {
		return ErrEmptyChart
	}
	switch cfg.ChartType {
	case ChartLine:
		return r.renderLine(cfg, format, w)
	case ChartPie:
		return r.renderPie(cfg, format, w)
	case ChartRace:
		return r.renderRace(cfg, format, frame, w)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownChart, cfg.ChartType)
	}
}

func (r *Renderer) renderLine(cfg models.ChartConfig, format Format, w io.Writer) error {
	series := make([]gochart.Series, 0, len(cfg.Series))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, s := range cfg.Series {
		if len(s.Points) == 0 {
			continue
		}
		xs := make([]float64, 0, len(s.Points)+1)
		ys := make([]float64, 0, len(s.Points)+1)
		for _, p := range s.Points {
			xs = append(xs, p.X)
			ys = append(ys, p.Value)
			lo = math.Min(lo, p.Value)
			hi = math.Max(hi, p.Value)
		}
		// go-chart needs two x values per continuous series
		if len(xs) == 1 {
			xs = append(xs, xs[0]+1)
			ys = append(ys, ys[0])
		}
		col := palette[i%len(palette)]
		series = append(series, gochart.ContinuousSeries{
			Name:    s.Name,
			XValues: xs,
			YValues: ys,
			Style:   gochart.Style{StrokeColor: col, StrokeWidth: 2, DotColor: col, DotWidth: 3},
		})
	}
	if len(series) == 0 {
		return ErrEmptyChart
	}

	lo, hi = padRange(lo, hi)
	ch := gochart.Chart{
		Title:      cfg.Title,
		Width:      r.width,
		Height:     r.height,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: gochart.XAxis{
			Name:           cfg.XAxis,
			ValueFormatter: yearFormatter,
		},
		YAxis: gochart.YAxis{
			Name:           cfg.YAxis,
			Range:          &gochart.ContinuousRange{Min: lo, Max: hi},
			ValueFormatter: humanFormatter,
		},
		Series: series,
	}
	ch.Elements = []gochart.Renderable{gochart.Legend(&ch)}
	return ch.Render(format.provider(), w)
}

func (r *Renderer) renderPie(cfg models.ChartConfig, format Format, w io.Writer) error {
	var values []gochart.Value
	for _, s := range cfg.Series {
		for _, p := range s.Points {
			// pie slices need a positive share
			if p.Value <= 0 || math.IsNaN(p.Value) {
				continue
			}
			values = append(values, gochart.Value{
				Label: p.Label + " " + p.Text,
				Value: p.Value,
			})
		}
	}
	if len(values) == 0 {
		return ErrEmptyChart
	}

	pie := gochart.PieChart{
		Title:  cfg.Title,
		Width:  r.width,
		Height: r.height,
		Values: values,
	}
	return pie.Render(format.provider(), w)
}

func (r *Renderer) renderRace(cfg models.ChartConfig, format Format, frame int, w io.Writer) error {
	if len(cfg.Frames) == 0 {
		return ErrEmptyChart
	}
	if frame < 0 {
		frame = len(cfg.Frames) - 1
	}
	if frame >= len(cfg.Frames) {
		return fmt.Errorf("%w: %d of %d", ErrFrameOutOfRange, frame, len(cfg.Frames))
	}
	f := cfg.Frames[frame]
	if len(f.Points) == 0 {
		return ErrEmptyChart
	}

	bars := make([]gochart.Value, 0, len(f.Points))
	lo, hi := 0.0, 0.0
	for i, p := range f.Points {
		col := palette[i%len(palette)]
		bars = append(bars, gochart.Value{
			Label: p.Label,
			Value: p.Value,
			Style: gochart.Style{FillColor: col, StrokeColor: col},
		})
		lo = math.Min(lo, p.Value)
		hi = math.Max(hi, p.Value)
	}
	lo, hi = padRange(lo, hi)

	bc := gochart.BarChart{
		Title:      fmt.Sprintf("%s (%s)", cfg.Title, f.Label),
		Width:      r.width,
		Height:     r.height,
		Background: gochart.Style{Padding: gochart.Box{Top: 40}},
		BarWidth:   barWidth(r.width, len(bars)),
		YAxis: gochart.YAxis{
			Range:          &gochart.ContinuousRange{Min: lo, Max: hi},
			ValueFormatter: humanFormatter,
		},
		Bars: bars,
	}
	return bc.Render(format.provider(), w)
}

// padRange widens a degenerate range so the axis has a non-zero span.
func padRange(lo, hi float64) (float64, float64) {
	if hi > lo {
		return lo, hi
	}
	d := math.Abs(lo) * 0.1
	if d == 0 {
		d = 1
	}
	return lo - d, hi + d
}

func barWidth(width, n int) int {
	if n == 0 {
		return 0
	}
	bw := width / (2 * n)
	if bw > 80 {
		bw = 80
	}
	if bw < 4 {
		bw = 4
	}
	return bw
}

func humanFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return HumanFormat(f)
	}
	return ""
}

func yearFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("%.0f", f)
	}
	return ""
}
