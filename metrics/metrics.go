// Package metrics provides Prometheus metrics for session and transport
// operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics holds all Prometheus metrics for HRM client operations.
// If created with enabled=false every record call is a no-op.
type Metrics struct {
	enabled bool

	loginsTotal    *prometheus.CounterVec
	refreshesTotal *prometheus.CounterVec
	logoutsTotal   *prometheus.CounterVec

	retriesTotal      prometheus.Counter
	unauthorizedTotal prometheus.Counter
}

// New creates and registers Prometheus metrics.
// If enabled is false, returns a no-op Metrics instance.
func New(enabled bool) *Metrics {
	m := &Metrics{enabled: enabled}

	if !enabled {
		return m
	}

	m.loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hrm_client_logins_total",
		Help: "Total login attempts",
	}, []string{"result"})

	m.refreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hrm_client_token_refreshes_total",
		Help: "Total token refresh cycles",
	}, []string{"result"})

	m.logoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hrm_client_logouts_total",
		Help: "Total logouts",
	}, []string{"reason"})

	m.retriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hrm_client_request_retries_total",
		Help: "Requests re-issued after a successful token refresh",
	})

	m.unauthorizedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hrm_client_unauthorized_responses_total",
		Help: "Authorization failures observed on decorated requests",
	})

	return m
}

// RecordLogin records a login attempt outcome.
func (m *Metrics) RecordLogin(result string) {
	if !m.enabled {
		return
	}
	m.loginsTotal.WithLabelValues(result).Inc()
}

// RecordRefresh records a refresh cycle outcome.
func (m *Metrics) RecordRefresh(result string) {
	if !m.enabled {
		return
	}
	m.refreshesTotal.WithLabelValues(result).Inc()
}

// RecordLogout records a logout with its reason.
func (m *Metrics) RecordLogout(reason string) {
	if !m.enabled {
		return
	}
	m.logoutsTotal.WithLabelValues(reason).Inc()
}

// RecordRetry records a request re-issued after refresh.
func (m *Metrics) RecordRetry() {
	if !m.enabled {
		return
	}
	m.retriesTotal.Inc()
}

// RecordUnauthorized records a 401 observed on a decorated request.
func (m *Metrics) RecordUnauthorized() {
	if !m.enabled {
		return
	}
	m.unauthorizedTotal.Inc()
}
