// Package metrics exposes Prometheus collectors for one bot context.
// All recorders are safe to call on a nil *Metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "ntlink"

// Metrics groups the collectors and the registry they live in
type Metrics struct {
	Registry *prometheus.Registry

	packetsSent     *prometheus.CounterVec
	packetsReceived *prometheus.CounterVec
	pending         prometheus.Gauge
	requestDuration *prometheus.HistogramVec
	serviceErrors   *prometheus.CounterVec
	pushHandled     *prometheus.CounterVec
	loginAttempts   *prometheus.CounterVec
	reconnects      prometheus.Counter
	events          *prometheus.CounterVec
}

// New creates collectors in a fresh registry, including Go runtime metrics
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		packetsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_sent_total",
			Help:      "SSO packets written to the connection.",
		}, []string{"command"}),
		packetsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_received_total",
			Help:      "SSO packets read from the connection, by routing outcome.",
		}, []string{"kind"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_requests",
			Help:      "Requests awaiting a response.",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Round trip of dispatched service calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
		serviceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "service_errors_total",
			Help:      "Responses with a non-zero return code.",
		}, []string{"command"}),
		pushHandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_handled_total",
			Help:      "Push processor invocations, by outcome.",
		}, []string{"msg_type", "result"}),
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Login attempts, by outcome.",
		}, []string{"result"}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnects_total",
			Help:      "Successful reconnections after a connection fault.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_posted_total",
			Help:      "Domain events posted to the event bus.",
		}, []string{"event"}),
	}

	m.Registry.MustRegister(
		m.packetsSent,
		m.packetsReceived,
		m.pending,
		m.requestDuration,
		m.serviceErrors,
		m.pushHandled,
		m.loginAttempts,
		m.reconnects,
		m.events,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) PacketSent(command string) {
	if m == nil {
		return
	}
	m.packetsSent.WithLabelValues(command).Inc()
}

// PacketReceived records kind: response, push, duplicate or malformed
func (m *Metrics) PacketReceived(kind string) {
	if m == nil {
		return
	}
	m.packetsReceived.WithLabelValues(kind).Inc()
}

func (m *Metrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.pending.Set(float64(n))
}

func (m *Metrics) ObserveRequest(command string, d time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(command).Observe(d.Seconds())
}

func (m *Metrics) ServiceError(command string) {
	if m == nil {
		return
	}
	m.serviceErrors.WithLabelValues(command).Inc()
}

// PushHandled records result: handled, unhandled or panic
func (m *Metrics) PushHandled(msgType, result string) {
	if m == nil {
		return
	}
	m.pushHandled.WithLabelValues(msgType, result).Inc()
}

func (m *Metrics) LoginAttempt(result string) {
	if m == nil {
		return
	}
	m.loginAttempts.WithLabelValues(result).Inc()
}

func (m *Metrics) Reconnected() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}

func (m *Metrics) EventPosted(name string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(name).Inc()
}
