// Package metrics holds the Prometheus collectors of the visualization
// service. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wildfire_viz"

type Metrics struct {
	registry *prometheus.Registry

	LayerRebuilds        *prometheus.CounterVec
	Transitions          *prometheus.CounterVec
	Clicks               *prometheus.CounterVec
	BoundaryLoadFailures prometheus.Counter
	FireFeedFallbacks    prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		LayerRebuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "layer_rebuilds_total",
			Help:      "Full layer replacements per backend and entity class.",
		}, []string{"backend", "class"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "camera_transitions_total",
			Help:      "Camera transitions by backend and outcome.",
		}, []string{"backend", "outcome"}),
		Clicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "map_clicks_total",
			Help:      "Resolved map clicks forwarded to the click handler.",
		}, []string{"backend"}),
		BoundaryLoadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "boundary_load_failures_total",
			Help:      "Boundary collection loads that degraded to empty collections.",
		}),
		FireFeedFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fire_feed_fallbacks_total",
			Help:      "Active fire fetches answered from the static fallback list.",
		}),
	}
	m.registry.MustRegister(
		m.LayerRebuilds,
		m.Transitions,
		m.Clicks,
		m.BoundaryLoadFailures,
		m.FireFeedFallbacks,
		prometheus.NewGoCollector(),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) LayerRebuilt(backend, class string) {
	if m == nil {
		return
	}
	m.LayerRebuilds.WithLabelValues(backend, class).Inc()
}

func (m *Metrics) Transition(backend, outcome string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(backend, outcome).Inc()
}

func (m *Metrics) Click(backend string) {
	if m == nil {
		return
	}
	m.Clicks.WithLabelValues(backend).Inc()
}

func (m *Metrics) BoundaryLoadFailed() {
	if m == nil {
		return
	}
	m.BoundaryLoadFailures.Inc()
}

func (m *Metrics) FireFeedFellBack() {
	if m == nil {
		return
	}
	m.FireFeedFallbacks.Inc()
}
