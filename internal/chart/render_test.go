package chart

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grepto/dash-macrodata/internal/models"
)

const pngMagic = "\x89PNG"

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatPNG, f)

	f, err = ParseFormat("SVG")
	require.NoError(t, err)
	assert.Equal(t, FormatSVG, f)
	assert.Equal(t, "image/svg+xml", f.ContentType())

	_, err = ParseFormat("gif")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestRenderLinePNG(t *testing.T) {
	cfg := NewAdapter(0).TimeSeries(sampleTimeSeries())

	var buf bytes.Buffer
	require.NoError(t, NewRenderer(640, 320).Render(cfg, FormatPNG, 0, &buf))
	assert.True(t, strings.HasPrefix(buf.String(), pngMagic))
}

func TestRenderLineSVG(t *testing.T) {
	cfg := NewAdapter(0).TimeSeries(sampleTimeSeries())

	var buf bytes.Buffer
	require.NoError(t, NewRenderer(640, 320).Render(cfg, FormatSVG, 0, &buf))
	assert.Contains(t, buf.String(), "<svg")
}

func TestRenderPiePNG(t *testing.T) {
	cfg := NewAdapter(0).Pie(samplePie())

	var buf bytes.Buffer
	require.NoError(t, NewRenderer(400, 400).Render(cfg, FormatPNG, 0, &buf))
	assert.True(t, strings.HasPrefix(buf.String(), pngMagic))
}

func TestRenderRaceFrames(t *testing.T) {
	cfg := NewAdapter(0).Race(sampleRace())
	r := NewRenderer(640, 320)

	var first, last bytes.Buffer
	require.NoError(t, r.Render(cfg, FormatPNG, 0, &first))
	require.NoError(t, r.Render(cfg, FormatPNG, -1, &last))
	assert.True(t, strings.HasPrefix(first.String(), pngMagic))
	assert.True(t, strings.HasPrefix(last.String(), pngMagic))

	err := r.Render(cfg, FormatPNG, 5, &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrFrameOutOfRange)
}

func TestRenderEmpty(t *testing.T) {
	r := NewRenderer(0, 0)
	a := NewAdapter(0)

	err := r.Render(a.Pie(models.PeriodAggregateView{Slices: []models.Slice{}}), FormatPNG, 0, &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrEmptyChart)

	err = r.Render(a.Race(models.RaceView{Frames: []models.Frame{}}), FormatPNG, 0, &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrEmptyChart)

	// a pie with no positive share has nothing to draw
	pie := samplePie()
	pie.Slices = []models.Slice{{Country: "Finland", Value: -3}}
	err = r.Render(a.Pie(pie), FormatPNG, 0, &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrEmptyChart)
}

func TestRenderUnknownChart(t *testing.T) {
	err := NewRenderer(0, 0).Render(models.ChartConfig{ChartType: "radar"}, FormatPNG, 0, &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrUnknownChart)
}

func TestPadRange(t *testing.T) {
	lo, hi := padRange(5, 5)
	assert.Less(t, lo, 5.0)
	assert.Greater(t, hi, 5.0)

	lo, hi = padRange(0, 0)
	assert.Equal(t, -1.0, lo)
	assert.Equal(t, 1.0, hi)

	lo, hi = padRange(1, 2)
	assert.Equal(t, 1.0, lo)
	assert.Equal(t, 2.0, hi)
}
