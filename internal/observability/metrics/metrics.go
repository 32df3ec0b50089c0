// Package metrics exposes the console's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	obserrors "github.com/versehub/console/internal/observability/errors"
)

// Result constants for metric labels.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultSkipped = "skipped"
	ResultCached  = "cached"
)

const namespace = "console"

// Metrics bundles the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry prometheus.Gatherer

	accessDecisions *prometheus.CounterVec
	geoLookups      *prometheus.CounterVec
	teardowns       *prometheus.CounterVec
	upstreamCalls   *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New registers the collectors with reg. When reg is nil a private registry is used.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		registry: reg,
		accessDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_decisions_total",
			Help:      "Access policy decisions by outcome and reason.",
		}, []string{"outcome", "reason"}),
		geoLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geo_lookups_total",
			Help:      "Geolocation provider lookups by provider and result.",
		}, []string{"provider", "result", "error_class"}),
		teardowns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_teardowns_total",
			Help:      "Session teardowns by result (run or deduplicated).",
		}, []string{"result"}),
		upstreamCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Backend API calls by status code.",
		}, []string{"code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Inbound HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "status"}),
	}
	reg.MustRegister(m.accessDecisions, m.geoLookups, m.teardowns, m.upstreamCalls, m.httpDuration)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// AccessDecision counts one policy evaluation.
func (m *Metrics) AccessDecision(outcome, reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "none"
	}
	m.accessDecisions.WithLabelValues(outcome, reason).Inc()
}

// GeoLookup counts one provider call. err is classified for the error_class label.
func (m *Metrics) GeoLookup(provider, result string, err error) {
	if m == nil {
		return
	}
	m.geoLookups.WithLabelValues(provider, result, obserrors.Classify(err)).Inc()
}

// Teardown counts a teardown attempt; ran is false when it was deduplicated.
func (m *Metrics) Teardown(ran bool) {
	if m == nil {
		return
	}
	result := "deduplicated"
	if ran {
		result = "run"
	}
	m.teardowns.WithLabelValues(result).Inc()
}

// UpstreamCall counts a backend API response. Transport failures use status 0.
func (m *Metrics) UpstreamCall(status int) {
	if m == nil {
		return
	}
	m.upstreamCalls.WithLabelValues(strconv.Itoa(status)).Inc()
}

// ObserveHTTP records an inbound request duration.
func (m *Metrics) ObserveHTTP(method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, strconv.Itoa(status)).Observe(d.Seconds())
}
