// Package metrics exposes Prometheus collectors for cell runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors updated by the cell runner. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	runs        *prometheus.CounterVec
	escalations *prometheus.CounterVec
	images      prometheus.Counter
	duration    prometheus.Histogram
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bashdisplay_runs_total",
			Help: "Cell runs by final state.",
		}, []string{"state"}),
		escalations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bashdisplay_escalations_total",
			Help: "Interrupted runs by the escalation tier that stopped them.",
		}, []string{"tier"}),
		images: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bashdisplay_images_displayed_total",
			Help: "Images rendered from display directives.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bashdisplay_run_duration_seconds",
			Help:    "Wall time of cell runs.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(m.runs, m.escalations, m.images, m.duration)
	return m
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(state string, d time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(state).Inc()
	if d > 0 {
		m.duration.Observe(d.Seconds())
	}
}

// ObserveEscalation records the tier that ended an interrupted run.
func (m *Metrics) ObserveEscalation(tier string) {
	if m == nil {
		return
	}
	m.escalations.WithLabelValues(tier).Inc()
}

// ObserveImage records one rendered image.
func (m *Metrics) ObserveImage() {
	if m == nil {
		return
	}
	m.images.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
