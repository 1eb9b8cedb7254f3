package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "macrodash"

// Metrics owns a private registry so tests can create as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	viewDuration     *prometheus.HistogramVec
	interactions     *prometheus.CounterVec
	selectionUpdates prometheus.Counter
	datasetRows      prometheus.Gauge
	wsSessions       prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		viewDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "view_compute_duration_seconds",
			Help:      "Time spent recomputing a dashboard view.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		}, []string{"view"}),
		interactions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interaction_events_total",
			Help:      "Pointer interaction events by kind.",
		}, []string{"kind"}),
		selectionUpdates: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selection_updates_total",
			Help:      "Accepted selection changes.",
		}),
		datasetRows: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_rows",
			Help:      "Rows in the loaded dataset.",
		}),
		wsSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_sessions",
			Help:      "Open WebSocket sessions.",
		}),
	}
}

// ObserveView records how long one view took to compute.
func (m *Metrics) ObserveView(view string, d time.Duration) {
	m.viewDuration.WithLabelValues(view).Observe(d.Seconds())
}

func (m *Metrics) Interaction(kind string) {
	m.interactions.WithLabelValues(kind).Inc()
}

func (m *Metrics) SelectionUpdated() {
	m.selectionUpdates.Inc()
}

func (m *Metrics) SetDatasetRows(n int) {
	m.datasetRows.Set(float64(n))
}

func (m *Metrics) SessionOpened() { m.wsSessions.Inc() }
func (m *Metrics) SessionClosed() { m.wsSessions.Dec() }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
