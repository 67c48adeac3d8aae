// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Simulation metrics
	SimulationRuns     *prometheus.CounterVec
	SimulationDuration prometheus.Histogram
	LedgerEvents       *prometheus.CounterVec
	BarsLoaded         prometheus.Histogram
	RunsPersisted      prometheus.Counter

	// Import metrics
	BarsImported       *prometheus.CounterVec
	ImportErrors       *prometheus.CounterVec
	InstrumentsRemoved prometheus.Counter
	EventsEmitted      *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	StreamClients       prometheus.Gauge

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with the default registry.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewMetricsWith creates a new Metrics instance registered with reg.
func NewMetricsWith(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "portfolio_sim"
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Simulation metrics
		SimulationRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "runs_total",
			Help:      "Total number of simulation runs by status",
		}, []string{"status"}),
		SimulationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "duration_seconds",
			Help:      "Simulation run duration in seconds, including data loading",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}),
		LedgerEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "ledger_events_total",
			Help:      "Total number of ledger events emitted by action",
		}, []string{"action"}),
		BarsLoaded: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "bars_loaded",
			Help:      "Number of price bars loaded per run",
			Buckets:   prometheus.ExponentialBuckets(16, 2, 10),
		}),
		RunsPersisted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "runs_persisted_total",
			Help:      "Total number of simulation runs written to the run store",
		}),

		// Import metrics
		BarsImported: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "bars_imported_total",
			Help:      "Total number of price bars imported by symbol",
		}, []string{"symbol"}),
		ImportErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "errors_total",
			Help:      "Total number of import errors by stage",
		}, []string{"stage"}),
		InstrumentsRemoved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "instruments_removed_total",
			Help:      "Total number of instruments removed with their bars and runs",
		}),
		EventsEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of run-completed events by result",
		}, []string{"result"}),

		// Database metrics
		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Store operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"store", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of store operation errors",
		}, []string{"store", "operation"}),

		// HTTP metrics
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status code",
		}, []string{"method", "route", "code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		StreamClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "stream_clients",
			Help:      "Number of connected websocket replay clients",
		}),

		// Health metrics
		LastSuccessfulRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful simulation run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSimulationRun records a finished run. status is "ok" or an error class.
func (m *Metrics) RecordSimulationRun(status string, durationSeconds float64, bars int) {
	m.SimulationRuns.WithLabelValues(status).Inc()
	m.SimulationDuration.Observe(durationSeconds)
	if bars > 0 {
		m.BarsLoaded.Observe(float64(bars))
	}
}

// RecordLedgerEvent increments the ledger events counter for action.
func (m *Metrics) RecordLedgerEvent(action string) {
	m.LedgerEvents.WithLabelValues(action).Inc()
}

// RecordDBQuery records store operation metrics.
func (m *Metrics) RecordDBQuery(store, operation string, seconds float64, err error) {
	m.DBQueryDuration.WithLabelValues(store, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(store, operation).Inc()
	}
}

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(method, route string, code int, seconds float64) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(seconds)
}

// RecordImport records bars imported for a symbol.
func (m *Metrics) RecordImport(symbol string, bars int) {
	m.BarsImported.WithLabelValues(symbol).Add(float64(bars))
}

// RecordImportError records a failed import or removal stage ("parse", "instrument" or "store").
func (m *Metrics) RecordImportError(stage string) {
	m.ImportErrors.WithLabelValues(stage).Inc()
}

// RecordEventPublished records a publish attempt.
func (m *Metrics) RecordEventPublished(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.EventsEmitted.WithLabelValues(result).Inc()
}
