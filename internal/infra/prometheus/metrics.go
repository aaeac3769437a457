package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tinylink"

// Metrics holds the collectors for HTTP traffic and the link lifecycle.
type Metrics struct {
	requests     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	linksCreated prometheus.Counter
	redirects    *prometheus.CounterVec
	linksSwept   prometheus.Counter
	activeLinks  prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		linksCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_created_total",
			Help:      "Short links created.",
		}),
		redirects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redirects_total",
			Help:      "Redirect attempts by outcome.",
		}, []string{"outcome"}),
		linksSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_swept_total",
			Help:      "Expired links removed by the sweeper.",
		}),
		activeLinks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_links",
			Help:      "Links currently held in memory.",
		}),
	}

	reg.MustRegister(m.requests, m.latency, m.linksCreated, m.redirects, m.linksSwept, m.activeLinks)
	return m
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) LinkCreated() {
	m.linksCreated.Inc()
}

func (m *Metrics) Redirect(outcome string) {
	m.redirects.WithLabelValues(outcome).Inc()
}

func (m *Metrics) LinksSwept(n int) {
	m.linksSwept.Add(float64(n))
}

func (m *Metrics) ActiveLinks(n int) {
	m.activeLinks.Set(float64(n))
}
