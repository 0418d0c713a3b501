// Package metrics exposes Prometheus counters for deposits and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "botmarket"

// Metrics is nil-safe: recording on a nil *Metrics does nothing.
type Metrics struct {
	registry *prometheus.Registry

	depositsCreated   *prometheus.CounterVec
	depositsConfirmed prometheus.Counter
	depositsExpired   prometheus.Counter
	httpRequests      *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		depositsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deposits_created_total",
				Help:      "Total deposits created, by currency",
			},
			[]string{"currency"},
		),
		depositsConfirmed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deposits_confirmed_total",
			Help:      "Total deposits confirmed by administrators",
		}),
		depositsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deposits_expired_total",
			Help:      "Total pending deposits expired after their timeout",
		}),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests, by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
	}

	m.registry.MustRegister(
		m.depositsCreated,
		m.depositsConfirmed,
		m.depositsExpired,
		m.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) DepositCreated(currency string) {
	if m == nil {
		return
	}

	m.depositsCreated.WithLabelValues(currency).Inc()
}

func (m *Metrics) DepositConfirmed() {
	if m == nil {
		return
	}

	m.depositsConfirmed.Inc()
}

func (m *Metrics) DepositsExpired(n int) {
	if m == nil || n <= 0 {
		return
	}

	m.depositsExpired.Add(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}

	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware counts requests by their chi route pattern, so path parameters do not explode
// label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		if m == nil {
			return
		}

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
	})
}
