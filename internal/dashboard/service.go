package dashboard

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/grepto/dash-macrodata/internal/chart"
	"github.com/grepto/dash-macrodata/internal/engine"
	"github.com/grepto/dash-macrodata/internal/metrics"
	"github.com/grepto/dash-macrodata/internal/models"
	"github.com/grepto/dash-macrodata/internal/state"
)

// Chart names used in routes and messages.
const (
	ChartTimeSeries = "timeseries"
	ChartPie        = "pie"
	ChartRace       = "race"
)

// Service runs the filter -> aggregate -> describe pipeline for
// selection snapshots.
type Service struct {
	ds       *engine.Dataset
	store    *state.Store
	adapter  *chart.Adapter
	renderer *chart.Renderer
	metrics  *metrics.Metrics
	logger   *slog.Logger
	topN     int
	defaults models.Selection
}

type Option func(*Service)

// WithTopN overrides how many entries each race frame keeps.
func WithTopN(n int) Option {
	return func(s *Service) { s.topN = n }
}

func WithAdapter(a *chart.Adapter) Option {
	return func(s *Service) { s.adapter = a }
}

func WithRenderer(r *chart.Renderer) Option {
	return func(s *Service) { s.renderer = r }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func New(ds *engine.Dataset, store *state.Store, opts ...Option) *Service {
	s := &Service{
		ds:       ds,
		store:    store,
		defaults: store.Snapshot(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.adapter == nil {
		s.adapter = chart.NewAdapter(0)
	}
	if s.renderer == nil {
		s.renderer = chart.NewRenderer(0, 0)
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "dashboard")
	s.metrics.SetDatasetRows(ds.Len())
	return s
}

// Compute derives all three views and their chart descriptions from sel.
// The views share one filtered row set and run concurrently.
func (s *Service) Compute(ctx context.Context, sel models.Selection) (models.DashboardData, error) {
	out := models.DashboardData{Selection: sel}

	start := time.Now()
	rows := engine.FilterRows(s.ds, sel.Countries, sel.Years)
	s.metrics.ObserveView("filter", time.Since(start))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		defer s.observe(ChartTimeSeries, time.Now())
		out.TimeSeries = engine.TimeSeries(s.ds, rows, sel.Indicator, sel.Years)
		out.Charts.TimeSeries = s.adapter.TimeSeries(out.TimeSeries)
		return nil
	})
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		defer s.observe(ChartPie, time.Now())
		out.Period = engine.PeriodAggregate(s.ds, rows, sel.Indicator, sel.Years, sel.Interaction)
		out.Charts.Pie = s.adapter.Pie(out.Period)
		return nil
	})
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		defer s.observe(ChartRace, time.Now())
		topN := engine.RaceTopN(len(sel.Countries), s.topN)
		out.Race = engine.Race(s.ds, rows, sel.Indicator, sel.Years, topN)
		out.Charts.Race = s.adapter.Race(out.Race)
		return nil
	})
	if err := g.Wait(); err != nil {
		return models.DashboardData{}, err
	}

	s.logger.Debug("dashboard computed",
		"revision", sel.Revision,
		"rows", len(rows),
		"elapsed", time.Since(start),
	)
	return out, nil
}

func (s *Service) observe(view string, start time.Time) {
	s.metrics.ObserveView(view, time.Since(start))
}

// Current computes the dashboard for the store's current snapshot.
func (s *Service) Current(ctx context.Context) (models.DashboardData, error) {
	return s.Compute(ctx, s.store.Snapshot())
}

func (s *Service) Snapshot() models.Selection {
	return s.store.Snapshot()
}

// Select applies u to the shared selection without recomputing.
func (s *Service) Select(u state.Update) (models.Selection, error) {
	before := s.store.Snapshot().Revision
	sel, err := s.store.Update(u)
	if err != nil {
		return models.Selection{}, err
	}
	if sel.Revision != before {
		s.metrics.SelectionUpdated()
	}
	return sel, nil
}

// Record stores ev as the latest pointer interaction without recomputing.
func (s *Service) Record(ev models.Interaction) (models.Selection, error) {
	sel, err := s.store.Interact(ev)
	if err != nil {
		return models.Selection{}, err
	}
	s.metrics.Interaction(string(sel.Interaction.Kind))
	return sel, nil
}

// UpdateSelection applies u and recomputes.
func (s *Service) UpdateSelection(ctx context.Context, u state.Update) (models.DashboardData, error) {
	sel, err := s.Select(u)
	if err != nil {
		return models.DashboardData{}, err
	}
	return s.Compute(ctx, sel)
}

// Interact records a pointer event and recomputes.
func (s *Service) Interact(ctx context.Context, ev models.Interaction) (models.DashboardData, error) {
	sel, err := s.Record(ev)
	if err != nil {
		return models.DashboardData{}, err
	}
	return s.Compute(ctx, sel)
}

// Subscribe forwards to the store's change notifications.
func (s *Service) Subscribe() (<-chan struct{}, func()) {
	return s.store.Subscribe()
}

// Options lists what the input controls may offer.
func (s *Service) Options() models.Options {
	return models.Options{
		Countries:  s.ds.Countries(),
		Indicators: s.ds.Indicators(),
		MinYear:    s.ds.MinYear(),
		MaxYear:    s.ds.MaxYear(),
		Years:      s.ds.Years(),
		Defaults:   s.defaults.Clone(),
	}
}

// Rows is the dataset size.
func (s *Service) Rows() int { return s.ds.Len() }

// Chart returns one chart description for the current snapshot.
func (s *Service) Chart(ctx context.Context, name string) (models.ChartConfig, error) {
	data, err := s.Current(ctx)
	if err != nil {
		return models.ChartConfig{}, err
	}
	switch name {
	case ChartTimeSeries:
		return data.Charts.TimeSeries, nil
	case ChartPie:
		return data.Charts.Pie, nil
	case ChartRace:
		return data.Charts.Race, nil
	default:
		return models.ChartConfig{}, fmt.Errorf("%q: %w", name, chart.ErrUnknownChart)
	}
}

// RenderImage rasterizes one chart of the current snapshot into w.
func (s *Service) RenderImage(ctx context.Context, name string, format chart.Format, frame int, w io.Writer) error {
	cfg, err := s.Chart(ctx, name)
	if err != nil {
		return err
	}
	return s.renderer.Render(cfg, format, frame, w)
}
