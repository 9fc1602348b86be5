// Package metrics provides Prometheus-based metrics collection for nmap-parse.
// Each run records what it read, dropped and rendered; the collected values
// can be written in the text exposition format for the node exporter
// textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// Namespace for all nmap-parse metrics
	namespace = "nmap_parse"

	// Label values for source outcomes
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// PrometheusMetrics holds all Prometheus metric collectors. A nil
// *PrometheusMetrics is valid and records nothing.
type PrometheusMetrics struct {
	sourcesTotal        *prometheus.CounterVec
	sourceParseDuration *prometheus.HistogramVec
	factsParsed         *prometheus.CounterVec
	duplicatesDropped   prometheus.Counter
	factsRendered       prometheus.Counter
	factsFiltered       prometheus.Counter
	renderErrors        prometheus.Counter
	lastRunTimestamp    prometheus.Gauge

	registry *prometheus.Registry
}

// NewPrometheusMetrics creates a new Prometheus metrics instance on a private registry
func NewPrometheusMetrics() *PrometheusMetrics {
	pm := &PrometheusMetrics{
		registry: prometheus.NewRegistry(),
	}

	pm.initSourceMetrics()
	pm.initOutputMetrics()
	pm.registerMetrics()

	return pm
}

// initSourceMetrics initializes parser-related metrics
func (pm *PrometheusMetrics) initSourceMetrics() {
	pm.sourcesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sources_total",
			Help:      "Input sources processed by kind and outcome",
		},
		[]string{"kind", "status"},
	)

	pm.sourceParseDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_parse_duration_seconds",
			Help:      "Time spent parsing a single source",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 30.0},
		},
		[]string{"kind"},
	)

	pm.factsParsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "facts_parsed_total",
			Help:      "Open-port facts emitted by the parsers, before deduplication",
		},
		[]string{"kind"},
	)

	pm.duplicatesDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "duplicates_dropped_total",
		Help:      "Facts dropped because the same host and port were already seen",
	})
}

// initOutputMetrics initializes render-related metrics
func (pm *PrometheusMetrics) initOutputMetrics() {
	pm.factsRendered = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "facts_rendered_total",
		Help:      "Facts written to the output",
	})

	pm.factsFiltered = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "facts_filtered_total",
		Help:      "Facts skipped by the port filter",
	})

	pm.renderErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "render_errors_total",
		Help:      "Facts that could not be rendered with the output template",
	})

	pm.lastRunTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time the last run finished",
	})
}

// registerMetrics registers all metrics with the registry
func (pm *PrometheusMetrics) registerMetrics() {
	pm.registry.MustRegister(
		pm.sourcesTotal,
		pm.sourceParseDuration,
		pm.factsParsed,
		pm.duplicatesDropped,
		pm.factsRendered,
		pm.factsFiltered,
		pm.renderErrors,
		pm.lastRunTimestamp,
	)
}

// GetRegistry returns the Prometheus registry
func (pm *PrometheusMetrics) GetRegistry() *prometheus.Registry {
	return pm.registry
}

// RecordSource records the outcome of parsing one source.
func (pm *PrometheusMetrics) RecordSource(kind, status string, facts int, duration time.Duration) {
	if pm == nil {
		return
	}
	pm.sourcesTotal.WithLabelValues(kind, status).Inc()
	pm.sourceParseDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if facts > 0 {
		pm.factsParsed.WithLabelValues(kind).Add(float64(facts))
	}
}

// AddDuplicatesDropped counts facts removed by deduplication.
func (pm *PrometheusMetrics) AddDuplicatesDropped(count int) {
	if pm == nil || count <= 0 {
		return
	}
	pm.duplicatesDropped.Add(float64(count))
}

// IncrementRendered counts one written line.
func (pm *PrometheusMetrics) IncrementRendered() {
	if pm == nil {
		return
	}
	pm.factsRendered.Inc()
}

// IncrementFiltered counts one fact skipped by the port filter.
func (pm *PrometheusMetrics) IncrementFiltered() {
	if pm == nil {
		return
	}
	pm.factsFiltered.Inc()
}

// IncrementRenderErrors counts one fact that failed to render.
func (pm *PrometheusMetrics) IncrementRenderErrors() {
	if pm == nil {
		return
	}
	pm.renderErrors.Inc()
}

// MarkRunFinished stamps the completion time of the run.
func (pm *PrometheusMetrics) MarkRunFinished(at time.Time) {
	if pm == nil {
		return
	}
	pm.lastRunTimestamp.Set(float64(at.Unix()))
}

// WriteTextfile writes all collected metrics to path in the Prometheus text
// format. The file is written atomically.
func (pm *PrometheusMetrics) WriteTextfile(path string) error {
	if pm == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, pm.registry)
}
