// Package metrics provides Prometheus metrics for the scorekeep service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values shared by the counters below.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Manager manages all Prometheus metrics for the scorekeep service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Score lifecycle
	submissions          *prometheus.CounterVec
	submissionDuplicates prometheus.Counter
	deletions            *prometheus.CounterVec

	// Live aggregation
	notifications     prometheus.Counter
	recomputations    prometheus.Counter
	recomputeLatency  prometheus.Histogram
	malformedRecords  prometheus.Counter
	activeViews       prometheus.Gauge
	subscriptionDrops *prometheus.CounterVec

	// Catalog
	catalogFetches *prometheus.CounterVec
	catalogSize    prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	rateLimited         prometheus.Counter
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "scorekeep",
		subsystem:        "",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		customLabels:     make(map[string]string),
		registry:         prometheus.NewRegistry(),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) name(base string) string {
	if m.metricPrefix == "" {
		return base
	}
	return m.metricPrefix + "_" + base
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)
	constLabels := prometheus.Labels(m.customLabels)

	m.submissions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("submissions_total"),
		Help:        "Score submissions by outcome (accepted or a validation/persistence reason)",
		ConstLabels: constLabels,
	}, []string{"outcome"})

	m.submissionDuplicates = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("submission_duplicates_total"),
		Help:        "Submissions short-circuited by a repeated idempotency key",
		ConstLabels: constLabels,
	})

	m.deletions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("deletions_total"),
		Help:        "Score deletions by outcome",
		ConstLabels: constLabels,
	}, []string{"outcome"})

	m.notifications = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("store_notifications_total"),
		Help:        "Full-snapshot notifications delivered by the record store",
		ConstLabels: constLabels,
	})

	m.recomputations = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("recomputations_total"),
		Help:        "Statistics snapshots recomputed and published",
		ConstLabels: constLabels,
	})

	m.recomputeLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("recompute_latency_milliseconds"),
		Help:        "Time to decode, sort and aggregate one snapshot",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	})

	m.malformedRecords = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("malformed_records_total"),
		Help:        "Stored records skipped because required fields were missing or mistyped",
		ConstLabels: constLabels,
	})

	m.activeViews = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("live_views"),
		Help:        "Live aggregation views currently subscribed",
		ConstLabels: constLabels,
	})

	m.subscriptionDrops = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("subscription_errors_total"),
		Help:        "Store subscription failures by store kind",
		ConstLabels: constLabels,
	}, []string{"store"})

	m.catalogFetches = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("catalog_fetches_total"),
		Help:        "Catalog fetch attempts by outcome",
		ConstLabels: constLabels,
	}, []string{"outcome"})

	m.catalogSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("catalog_entries"),
		Help:        "Entries in the cached catalog snapshot",
		ConstLabels: constLabels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("http_requests_total"),
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("http_request_duration_milliseconds"),
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.rateLimited = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("rate_limited_total"),
		Help:        "Requests rejected by the per-owner submission limiter",
		ConstLabels: constLabels,
	})
}

// Enabled reports whether the manager records observations.
func (m *Manager) Enabled() bool { return m.enabled }

// RecordSubmission counts a submission attempt by outcome.
func RecordSubmission(outcome string) {
	if globalManager.enabled {
		globalManager.submissions.WithLabelValues(outcome).Inc()
	}
}

// RecordSubmissionDuplicate counts a submission answered from the idempotency cache.
func RecordSubmissionDuplicate() {
	if globalManager.enabled {
		globalManager.submissionDuplicates.Inc()
	}
}

// RecordDeletion counts a deletion attempt by outcome.
func RecordDeletion(outcome string) {
	if globalManager.enabled {
		globalManager.deletions.WithLabelValues(outcome).Inc()
	}
}

// RecordNotification counts one store notification.
func RecordNotification() {
	if globalManager.enabled {
		globalManager.notifications.Inc()
	}
}

// RecordRecompute counts a published snapshot and its latency.
func RecordRecompute(latencyMs float64) {
	if globalManager.enabled {
		globalManager.recomputations.Inc()
		globalManager.recomputeLatency.Observe(latencyMs)
	}
}

// RecordMalformedRecord counts a skipped stored record.
func RecordMalformedRecord() {
	if globalManager.enabled {
		globalManager.malformedRecords.Inc()
	}
}

// AddActiveViews adjusts the live view gauge by delta.
func AddActiveViews(delta int) {
	if globalManager.enabled {
		globalManager.activeViews.Add(float64(delta))
	}
}

// RecordSubscriptionError counts a subscription failure for a store kind.
func RecordSubscriptionError(store string) {
	if globalManager.enabled {
		globalManager.subscriptionDrops.WithLabelValues(store).Inc()
	}
}

// RecordCatalogFetch counts a catalog fetch by outcome.
func RecordCatalogFetch(outcome string) {
	if globalManager.enabled {
		globalManager.catalogFetches.WithLabelValues(outcome).Inc()
	}
}

// UpdateCatalogSize sets the cached catalog size.
func UpdateCatalogSize(n int) {
	if globalManager.enabled {
		globalManager.catalogSize.Set(float64(n))
	}
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// RecordRateLimited counts a request rejected by the limiter.
func RecordRateLimited() {
	if globalManager.enabled {
		globalManager.rateLimited.Inc()
	}
}

// GetRegistry returns the registry backing the package-level helpers.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
