// Package metrics provides a Prometheus implementation of driven.Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/sercha-events/internal/core/ports/driven"
)

// Ensure Prometheus implements the interface.
var _ driven.Metrics = (*Prometheus)(nil)

const namespace = "sercha"

// Prometheus records runtime counters in its own registry.
type Prometheus struct {
	registry *prometheus.Registry

	emitted       *prometheus.CounterVec
	deduplicated  *prometheus.CounterVec
	dropped       *prometheus.CounterVec
	cycleErrors   *prometheus.CounterVec
	cycleDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, in a fresh registry.
func New() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_emitted_total",
			Help:      "Events handed to the emission sink",
		}, []string{"source"}),
		deduplicated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_deduplicated_total",
			Help:      "Items suppressed because their identity was already emitted",
		}, []string{"source"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Items dropped before dedup, by reason",
		}, []string{"source", "reason"}),
		cycleErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycle_errors_total",
			Help:      "Failed polling cycles and deliveries, by error kind",
		}, []string{"source", "kind"}),
		cycleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Polling cycle duration",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
	}

	p.registry.MustRegister(
		p.emitted, p.deduplicated, p.dropped, p.cycleErrors, p.cycleDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

func (p *Prometheus) Emitted(source string)      { p.emitted.WithLabelValues(source).Inc() }
func (p *Prometheus) Deduplicated(source string) { p.deduplicated.WithLabelValues(source).Inc() }

func (p *Prometheus) Dropped(source, reason string) {
	p.dropped.WithLabelValues(source, reason).Inc()
}

func (p *Prometheus) CycleError(source, kind string) {
	p.cycleErrors.WithLabelValues(source, kind).Inc()
}

func (p *Prometheus) ObserveCycle(source string, d time.Duration) {
	p.cycleDuration.WithLabelValues(source).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}
