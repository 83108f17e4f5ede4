// Package metrics holds the Prometheus collectors shared by the collector,
// the topic enricher and the API
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Option configures a Manager
type Option func(*Manager)

// WithNamespace sets the metric namespace (default "releasepulse")
func WithNamespace(ns string) Option {
	return func(m *Manager) {
		if ns != "" {
			m.namespace = ns
		}
	}
}

// WithRegistry uses reg instead of a fresh private registry
func WithRegistry(reg *prometheus.Registry) Option {
	return func(m *Manager) {
		if reg != nil {
			m.registry = reg
		}
	}
}

// WithProcessCollectors adds the Go runtime and process collectors
func WithProcessCollectors() Option { return func(m *Manager) { m.process = true } }

// Manager owns every collector. A nil *Manager is valid and records nothing
type Manager struct {
	namespace string
	registry  *prometheus.Registry
	process   bool

	githubRequests *prometheus.CounterVec
	githubLatency  *prometheus.HistogramVec
	githubRateLeft prometheus.Gauge

	windowPages  prometheus.Counter
	windowEvents prometheus.Counter
	windowCounts *prometheus.CounterVec

	records *prometheus.CounterVec
	topics  *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
}

// New builds a Manager on its own registry
func New(opts ...Option) *Manager {
	m := &Manager{namespace: "releasepulse"}
	for _, o := range opts {
		o(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	if m.process {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	auto := promauto.With(m.registry)
	m.githubRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "github", Name: "requests_total",
		Help: "GitHub API responses by endpoint and status",
	}, []string{"endpoint", "status"})
	m.githubLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "github", Name: "request_duration_seconds",
		Help:    "GitHub API latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
	m.githubRateLeft = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "github", Name: "rate_remaining",
		Help: "Last X-RateLimit-Remaining seen",
	})

	m.windowPages = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "window", Name: "pages_total",
		Help: "Feed pages scanned by window counts",
	})
	m.windowEvents = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "window", Name: "events_in_window_total",
		Help: "Events found inside count windows",
	})
	m.windowCounts = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "window", Name: "counts_total",
		Help: "Finished window counts by stop reason",
	}, []string{"stop"})

	m.records = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "releases", Name: "records_total",
		Help: "Release records written by sink and outcome",
	}, []string{"sink", "outcome"})
	m.topics = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "topics", Name: "rows_total",
		Help: "Topic enrichment rows by outcome",
	}, []string{"outcome"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "api", Name: "requests_total",
		Help: "API requests by route and status",
	}, []string{"route", "method", "status"})
	return m
}

var (
	defaultOnce sync.Once
	defaultMgr  *Manager
)

// Default returns the process wide Manager, with runtime collectors
func Default() *Manager {
	defaultOnce.Do(func() { defaultMgr = New(WithProcessCollectors()) })
	return defaultMgr
}

// Registry exposes the underlying registry (tests, extra collectors)
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// GitHubResponse records one API response
func (m *Manager) GitHubResponse(endpoint string, status int, d time.Duration, rateRemaining int) {
	if m == nil {
		return
	}
	m.githubRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	m.githubLatency.WithLabelValues(endpoint).Observe(d.Seconds())
	if rateRemaining > 0 {
		m.githubRateLeft.Set(float64(rateRemaining))
	}
}

// WindowPage records one scanned page and how many of its events were in window
func (m *Manager) WindowPage(inWindow int) {
	if m == nil {
		return
	}
	m.windowPages.Inc()
	m.windowEvents.Add(float64(inWindow))
}

// WindowDone records a finished count
func (m *Manager) WindowDone(stop string) {
	if m == nil {
		return
	}
	m.windowCounts.WithLabelValues(stop).Inc()
}

// RecordWritten records a sink write outcome ("ok" or "error")
func (m *Manager) RecordWritten(sink, outcome string) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(sink, outcome).Inc()
}

// TopicRow records a topic enrichment outcome ("ok", "error", "skipped")
func (m *Manager) TopicRow(outcome string) {
	if m == nil {
		return
	}
	m.topics.WithLabelValues(outcome).Inc()
}

// HTTPRequest records one served API request
func (m *Manager) HTTPRequest(route, method string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
}
