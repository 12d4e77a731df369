package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/fedauth/pkg/identity"
)

const namespace = "fedauth"

// Metrics holds the auth server collectors and implements identity.Observer.
type Metrics struct {
	resolutions *prometheus.CounterVec
	local       *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpInflight prometheus.Gauge
}

var _ identity.Observer = (*Metrics)(nil)

// New creates the collectors and registers them with reg. A nil reg uses
// prometheus.DefaultRegisterer. Collectors that are already registered are
// reused.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Federated credential resolutions by provider, outcome and result.",
		}, []string{"provider", "outcome", "result"}),
		local: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "local_auth_total",
			Help:      "Local signup, login and unlink attempts by result.",
		}, []string{"op", "result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		httpInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_inflight_requests",
			Help:      "HTTP requests currently being served.",
		}),
	}

	var err error
	m.resolutions, err = register(reg, m.resolutions)
	if err != nil {
		return nil, err
	}
	if m.local, err = register(reg, m.local); err != nil {
		return nil, err
	}
	if m.httpRequests, err = register(reg, m.httpRequests); err != nil {
		return nil, err
	}
	if m.httpDuration, err = register(reg, m.httpDuration); err != nil {
		return nil, err
	}
	if m.httpInflight, err = register(reg, m.httpInflight); err != nil {
		return nil, err
	}
	return m, nil
}

// register registers c, returning the existing collector when an identical
// one is already registered.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// ObserveResolve counts one resolution. Failed resolutions carry an empty
// outcome.
func (m *Metrics) ObserveResolve(provider string, outcome identity.Outcome, err error) {
	m.resolutions.WithLabelValues(provider, string(outcome), result(err)).Inc()
}

// ObserveLocal counts one local strategy operation.
func (m *Metrics) ObserveLocal(op string, err error) {
	m.local.WithLabelValues(op, result(err)).Inc()
}

// result maps an operation error to a low-cardinality label.
func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, identity.ErrEmailTaken):
		return "email_taken"
	case errors.Is(err, identity.ErrNoSuchUser):
		return "no_such_user"
	case errors.Is(err, identity.ErrBadPassword):
		return "bad_password"
	case errors.Is(err, identity.ErrLastCredential):
		return "last_credential"
	case errors.Is(err, identity.ErrPrincipalNotFound):
		return "principal_not_found"
	case errors.Is(err, identity.ErrInvalidCredential), errors.Is(err, identity.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, identity.ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, identity.ErrStorage):
		return "storage_error"
	default:
		return "error"
	}
}

// Handler serves the metrics gathered by g. A nil g uses
// prometheus.DefaultGatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
