// Package metrics exports chat service metrics in Prometheus format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "converse"

// Recorder is what services report to. A nil *Metrics records nothing, which
// keeps metrics optional in tests.
type Recorder interface {
	ObserveGeneration(operation string, d time.Duration, err error)
	MessageSent(outcome string)
	TitleInferred(generated bool)
	ShareCreated()
	SharesSwept(mode string, n int64)
}

type Metrics struct {
	registry *prometheus.Registry

	generationLatency *prometheus.HistogramVec
	generationErrors  *prometheus.CounterVec
	messages          *prometheus.CounterVec
	titles            *prometheus.CounterVec
	sharesCreated     prometheus.Counter
	sharesSwept       *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
	httpLatency       *prometheus.HistogramVec
}

// New registers all collectors on a private registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.generationLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "generation_latency_seconds",
			Help:      "Generation gateway call latency in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"operation"},
	)
	m.generationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "generation_errors_total",
			Help:      "Failed generation gateway calls",
		},
		[]string{"operation"},
	)
	m.messages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "messages_total",
			Help:      "sendMessage outcomes",
		},
		[]string{"outcome"},
	)
	m.titles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "titles_inferred_total",
			Help:      "Inferred chat titles by source",
		},
		[]string{"source"},
	)
	m.sharesCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "share",
			Name:      "created_total",
			Help:      "Share links issued",
		},
	)
	m.sharesSwept = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "share",
			Name:      "swept_total",
			Help:      "Expired shared chats processed by the sweep",
		},
		[]string{"mode"},
	)
	m.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)
	m.httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.generationLatency, m.generationErrors, m.messages, m.titles,
		m.sharesCreated, m.sharesSwept, m.httpRequests, m.httpLatency,
	)
	return m
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) ObserveGeneration(operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.generationLatency.WithLabelValues(operation).Observe(d.Seconds())
	if err != nil {
		m.generationErrors.WithLabelValues(operation).Inc()
	}
}

func (m *Metrics) MessageSent(outcome string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(outcome).Inc()
}

func (m *Metrics) TitleInferred(generated bool) {
	if m == nil {
		return
	}
	source := "fallback"
	if generated {
		source = "generated"
	}
	m.titles.WithLabelValues(source).Inc()
}

func (m *Metrics) ShareCreated() {
	if m == nil {
		return
	}
	m.sharesCreated.Inc()
}

func (m *Metrics) SharesSwept(mode string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.sharesSwept.WithLabelValues(mode).Add(float64(n))
}

// ObserveHTTP records one finished request. route is the mux path template.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

// Nop returns a Recorder that discards everything.
func Nop() Recorder { return (*Metrics)(nil) }
