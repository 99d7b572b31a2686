// Package metrics exposes Prometheus counters for authorization decisions,
// membership changes and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Authorization decision labels.
const (
	DecisionAllowed                = "allowed"
	DecisionNotAMember             = "not_a_member"
	DecisionInsufficientPermission = "insufficient_permission"
)

// Metrics holds all Prometheus collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	AuthorizationDecisions *prometheus.CounterVec
	MembershipChanges      *prometheus.CounterVec
	HTTPRequestsTotal      *prometheus.CounterVec
	HTTPRequestDuration    *prometheus.HistogramVec
}

// NewMetrics creates and registers all collectors on registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		AuthorizationDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "teamwork_authorization_decisions_total",
				Help: "Authorization guard decisions by outcome",
			},
			[]string{"decision"},
		),
		MembershipChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "teamwork_membership_changes_total",
				Help: "Membership lifecycle operations by kind",
			},
			[]string{"operation"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "teamwork_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "teamwork_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}

	registry.MustRegister(
		m.AuthorizationDecisions,
		m.MembershipChanges,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)

	return m
}

// RecordAuthorization counts one guard decision.
func (m *Metrics) RecordAuthorization(decision string) {
	if m == nil {
		return
	}
	m.AuthorizationDecisions.WithLabelValues(decision).Inc()
}

// RecordMembershipChange counts one membership operation ("add", "join",
// "change_role", "remove", "remove_all").
func (m *Metrics) RecordMembershipChange(operation string) {
	if m == nil {
		return
	}
	m.MembershipChanges.WithLabelValues(operation).Inc()
}

type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// HTTPMiddleware counts requests and observes their latency.
func HTTPMiddleware(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sw, r)

			m.HTTPRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(sw.statusCode)).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
		})
	}
}

// RegisterEndpoint registers the /metrics endpoint.
func RegisterEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
