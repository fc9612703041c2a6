package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics agrupa los colectores del servicio. Un *Metrics nil es válido y no registra nada.
type Metrics struct {
	HTTPRequestsTotal          *prometheus.CounterVec
	HTTPRequestDurationSeconds *prometheus.HistogramVec
	AuthLoginsTotal            *prometheus.CounterVec
	OTPRequestsTotal           *prometheus.CounterVec
	EquipmentTransitionsTotal  *prometheus.CounterVec
	BookingsTotal              *prometheus.CounterVec
	EmailDispatchTotal         *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New crea y registra los colectores en reg. Con reg nil usa un registro propio.
func New(serviceName string, reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	labels := prometheus.Labels{"service": serviceName}

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "http_requests_total",
				Help:        "Total number of HTTP requests.",
				ConstLabels: labels,
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "http_request_duration_seconds",
				Help:        "Duration of HTTP requests.",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: labels,
			},
			[]string{"method", "path"},
		),
		AuthLoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "auth_logins_total",
				Help:        "Total number of login attempts.",
				ConstLabels: labels,
			},
			[]string{"flow", "result"},
		),
		OTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "auth_otp_requests_total",
				Help:        "Total number of one-time code requests.",
				ConstLabels: labels,
			},
			[]string{"purpose", "result"},
		),
		EquipmentTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "equipment_transitions_total",
				Help:        "Total number of equipment state transitions.",
				ConstLabels: labels,
			},
			[]string{"action", "result"},
		),
		BookingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "bookings_total",
				Help:        "Total number of booking operations.",
				ConstLabels: labels,
			},
			[]string{"operation", "result"},
		),
		EmailDispatchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "email_dispatch_total",
				Help:        "Total number of email dispatch attempts.",
				ConstLabels: labels,
			},
			[]string{"kind", "result"},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDurationSeconds,
		m.AuthLoginsTotal,
		m.OTPRequestsTotal,
		m.EquipmentTransitionsTotal,
		m.BookingsTotal,
		m.EmailDispatchTotal,
	)
	return m
}

// Handler expone el registro en formato Prometheus.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveHTTP registra una petición ya respondida.
func (m *Metrics) ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDurationSeconds.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

func (m *Metrics) Login(flow, result string) {
	if m == nil {
		return
	}
	m.AuthLoginsTotal.WithLabelValues(flow, result).Inc()
}

func (m *Metrics) OTPRequest(purpose, result string) {
	if m == nil {
		return
	}
	m.OTPRequestsTotal.WithLabelValues(purpose, result).Inc()
}

func (m *Metrics) Transition(action, result string) {
	if m == nil {
		return
	}
	m.EquipmentTransitionsTotal.WithLabelValues(action, result).Inc()
}

func (m *Metrics) Booking(operation, result string) {
	if m == nil {
		return
	}
	m.BookingsTotal.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) Email(kind, result string) {
	if m == nil {
		return
	}
	m.EmailDispatchTotal.WithLabelValues(kind, result).Inc()
}

// Result convierte un error en la etiqueta result.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
