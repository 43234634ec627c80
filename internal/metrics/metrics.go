// Package metrics exposes Prometheus instrumentation for the recognition
// engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/saturnino-fabrica-de-software/recall/internal/cache"
	"github.com/saturnino-fabrica-de-software/recall/internal/domain"
)

// Registry is both a place to register collectors and a source to gather
// them from. *prometheus.Registry satisfies it.
type Registry interface {
	prometheus.Registerer
	prometheus.Gatherer
}

// Option configures a Manager.
type Option func(*Manager)

func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

func WithRegistry(registry Registry) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}

func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.buckets = buckets
		}
	}
}

// Manager owns every collector of the service.
type Manager struct {
	namespace string
	buckets   []float64
	registry  Registry

	recognitions       *prometheus.CounterVec
	recognitionLatency prometheus.Histogram
	extractionFailures *prometheus.CounterVec
	cacheOperations    *prometheus.CounterVec
	tieBreaks          *prometheus.CounterVec
	centroidRebuilds   *prometheus.CounterVec
	centroidLatency    prometheus.Histogram
	webhookDeliveries  *prometheus.CounterVec
	wsClients          prometheus.Gauge

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "recall",
		buckets:   prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	m.init()
	return m
}

func (m *Manager) init() {
	auto := promauto.With(m.registry)

	m.recognitions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "recognitions_total",
		Help:      "Recognition decisions by status",
	}, []string{"status"})

	m.recognitionLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "recognition_duration_seconds",
		Help:      "Time from frame submission to persisted decision",
		Buckets:   m.buckets,
	})

	m.extractionFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "extraction_failures_total",
		Help:      "Extractor or fetch failures treated as absent embeddings",
	}, []string{"stage"})

	m.cacheOperations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "embedding_cache",
		Name:      "operations_total",
		Help:      "Embedding cache lookups by outcome",
	}, []string{"outcome"})

	m.tieBreaks = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "tiebreaks_total",
		Help:      "Tie-break resolution attempts by result",
	}, []string{"result"})

	m.centroidRebuilds = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "centroid_rebuilds_total",
		Help:      "Centroid rebuilds by result",
	}, []string{"result"})

	m.centroidLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "centroid_rebuild_duration_seconds",
		Help:      "Time spent rebuilding one person's centroid",
		Buckets:   m.buckets,
	})

	m.webhookDeliveries = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "webhook_deliveries_total",
		Help:      "Webhook deliveries by result",
	}, []string{"result"})

	m.wsClients = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "websocket_clients",
		Help:      "Connected websocket clients",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status code",
	}, []string{"route", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and method",
		Buckets:   m.buckets,
	}, []string{"route", "method"})
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Manager) ObserveRecognition(status domain.Status, d time.Duration) {
	m.recognitions.WithLabelValues(string(status)).Inc()
	m.recognitionLatency.Observe(d.Seconds())
}

// ObserveExtractionFailure counts a contained failure; stage is "probe" or
// "sample".
func (m *Manager) ObserveExtractionFailure(stage string) {
	m.extractionFailures.WithLabelValues(stage).Inc()
}

func (m *Manager) ObserveCache(outcome cache.Outcome) {
	m.cacheOperations.WithLabelValues(string(outcome)).Inc()
}

func (m *Manager) ObserveTieBreak(ok bool) {
	m.tieBreaks.WithLabelValues(result(ok)).Inc()
}

func (m *Manager) ObserveCentroidRebuild(ok bool, d time.Duration) {
	m.centroidRebuilds.WithLabelValues(result(ok)).Inc()
	m.centroidLatency.Observe(d.Seconds())
}

func (m *Manager) ObserveWebhookDelivery(ok bool) {
	m.webhookDeliveries.WithLabelValues(result(ok)).Inc()
}

func (m *Manager) SetWebsocketClients(n int) {
	m.wsClients.Set(float64(n))
}

func (m *Manager) ObserveHTTPRequest(route, method string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

var _ cache.Observer = (*Manager)(nil)
