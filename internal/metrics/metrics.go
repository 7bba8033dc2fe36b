package metrics

import (
	stdhttp "net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the Prometheus instruments exposed by the trap.
type Metrics struct {
	PagesGenerated     prometheus.Counter
	GenerationFailures prometheus.Counter
	FragmentBytes      prometheus.Counter
	TarpitBytes        prometheus.Counter

	registry *prometheus.Registry
}

// New constructs the metric set on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		PagesGenerated: factory.NewCounter(prometheus.CounterOpts{
			Name: "labyrinth_pages_generated_total",
			Help: "Labyrinth pages successfully generated.",
		}),
		GenerationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "labyrinth_generation_failures_total",
			Help: "Page generation attempts that failed.",
		}),
		FragmentBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "labyrinth_fragment_bytes_total",
			Help: "Normalized fragment bytes served to crawlers.",
		}),
		TarpitBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "labyrinth_tarpit_bytes_total",
			Help: "Raw bytes fed into tarpit downloads.",
		}),
		registry: registry,
	}
}

// Handler exposes the registry for the /metrics endpoint.
func (m *Metrics) Handler() stdhttp.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
