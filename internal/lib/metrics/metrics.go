// Package metrics содержит счётчики Prometheus движка доступа.
//
// Все счётчики регистрируются в собственном реестре, чтобы тесты и несколько
// экземпляров приложения не конфликтовали в prometheus.DefaultRegisterer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Метки результатов.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultAllowed = "allowed"
)

// Metrics — набор счётчиков сервиса.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	Logins              *prometheus.CounterVec
	AccessDecisions     *prometheus.CounterVec
	Reconciliations     prometheus.Counter
	Purchases           *prometheus.CounterVec
}

// New создаёт и регистрирует все счётчики.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "http_request_duration_seconds",
				Help: "Duration of HTTP requests in seconds",
			},
			[]string{"method", "path"},
		),
		Logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_logins_total",
				Help: "Login attempts by result",
			},
			[]string{"result"},
		),
		AccessDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "entitlement_access_decisions_total",
				Help: "Access decisions by result",
			},
			[]string{"result"},
		),
		Reconciliations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "entitlement_reconciliations_total",
				Help: "Number of lazy expiry updates issued",
			},
		),
		Purchases: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subscription_purchases_total",
				Help: "Purchase attempts by result",
			},
			[]string{"result"},
		),
	}

	m.registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.Logins,
		m.AccessDecisions,
		m.Reconciliations,
		m.Purchases,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler отдаёт метрики в формате Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry возвращает реестр счётчиков.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveLogin учитывает попытку входа. Безопасен для nil.
func (m *Metrics) ObserveLogin(result string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(result).Inc()
}

// ObserveDecision учитывает решение о доступе (allowed или причина отказа).
func (m *Metrics) ObserveDecision(result string) {
	if m == nil {
		return
	}
	m.AccessDecisions.WithLabelValues(result).Inc()
}

// ObserveReconciliation учитывает выполненный перевод подписок в expired.
func (m *Metrics) ObserveReconciliation() {
	if m == nil {
		return
	}
	m.Reconciliations.Inc()
}

// ObservePurchase учитывает попытку покупки.
func (m *Metrics) ObservePurchase(result string) {
	if m == nil {
		return
	}
	m.Purchases.WithLabelValues(result).Inc()
}
