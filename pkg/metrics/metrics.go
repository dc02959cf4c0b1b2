package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for ingestion and reversal counters
const (
	OutcomeOK        = "ok"
	OutcomeDuplicate = "duplicate"
	OutcomeMalformed = "malformed"
	OutcomeError     = "error"
)

// Manager holds the engine metrics. A nil *Manager is valid and records nothing.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	ingestions      *prometheus.CounterVec
	reversals       *prometheus.CounterVec
	rowsProcessed   prometheus.Counter
	warnings        *prometheus.CounterVec
	ingestLatency   prometheus.Histogram
	queries         *prometheus.CounterVec
	queryLatency    *prometheus.HistogramVec
	notifyFailures  prometheus.Counter
	httpRequests    *prometheus.CounterVec
	httpRequestTime *prometheus.HistogramVec
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "ils",
		subsystem:        "stats",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

//nolint:funlen // metric definitions
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)
	m.ingestions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ingestions_total",
		Help:      "Number of ingestion attempts by outcome",
	}, []string{"outcome"})

	m.reversals = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reversals_total",
		Help:      "Number of reversals by outcome",
	}, []string{"outcome"})

	m.rowsProcessed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "result_rows_processed_total",
		Help:      "Number of race result rows folded into seasons",
	})

	m.warnings = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "validation_warnings_total",
		Help:      "Number of validation warnings by kind",
	}, []string{"kind"})

	m.ingestLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ingest_duration_seconds",
		Help:      "Duration of successful ingestions",
		Buckets:   m.histogramBuckets,
	})

	m.queries = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queries_total",
		Help:      "Number of ranking and driver queries",
	}, []string{"kind", "scope"})

	m.queryLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "query_duration_seconds",
		Help:      "Duration of ranking and driver queries",
		Buckets:   m.histogramBuckets,
	}, []string{"kind"})

	m.notifyFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "notify_failures_total",
		Help:      "Number of season change notifications which could not be delivered",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Number of HTTP requests by route, method and status code",
	}, []string{"route", "method", "status_code"})

	m.httpRequestTime = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration by route",
		Buckets:   m.histogramBuckets,
	}, []string{"route", "method"})
}

func (m *Manager) RecordIngestion(outcome string, rows int, d time.Duration) {
	if m == nil {
		return
	}
	m.ingestions.WithLabelValues(outcome).Inc()
	if outcome == OutcomeOK {
		m.rowsProcessed.Add(float64(rows))
		m.ingestLatency.Observe(d.Seconds())
	}
}

func (m *Manager) RecordReversal(outcome string) {
	if m == nil {
		return
	}
	m.reversals.WithLabelValues(outcome).Inc()
}

func (m *Manager) RecordWarning(kind string) {
	if m == nil {
		return
	}
	m.warnings.WithLabelValues(kind).Inc()
}

// RecordQuery counts a query, scope is either "season" or "career".
func (m *Manager) RecordQuery(kind, scope string, d time.Duration) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(kind, scope).Inc()
	m.queryLatency.WithLabelValues(kind).Observe(d.Seconds())
}

func (m *Manager) RecordNotifyFailure() {
	if m == nil {
		return
	}
	m.notifyFailures.Inc()
}

func (m *Manager) RecordHTTPRequest(route, method, statusCode string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, statusCode).Inc()
	m.httpRequestTime.WithLabelValues(route, method).Observe(d.Seconds())
}
