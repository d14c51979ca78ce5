package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application. A nil *Metrics is
// valid and records nothing, so components can be built without observability.
type Metrics struct {
	BusEventsPublished  *prometheus.CounterVec
	BusFailedEvents     prometheus.Counter
	BusHandlerErrors    *prometheus.CounterVec
	BusDispatchDuration prometheus.Histogram
	BusHistorySize      prometheus.Gauge

	NeuronEventsProcessed *prometheus.CounterVec
	NeuronEventsEmitted   *prometheus.CounterVec
	NeuronErrors          *prometheus.CounterVec
	NeuronActive          *prometheus.GaugeVec

	UsersRegistered prometheus.Counter
	LoginFailures   prometheus.Counter
	TokensIssued    prometheus.Counter

	DMPAccessDecisions *prometheus.CounterVec

	NotificationsDelivered *prometheus.CounterVec

	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates and registers all metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		BusEventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sante_bus_events_total",
			Help: "Total number of events published on the bus, by type",
		}, []string{"type"}),
		BusFailedEvents: f.NewCounter(prometheus.CounterOpts{
			Name: "sante_bus_failed_events_total",
			Help: "Publishes rejected by the bus itself",
		}),
		BusHandlerErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sante_bus_handler_errors_total",
			Help: "Subscriber failures caught at the bus boundary",
		}, []string{"type", "owner"}),
		BusDispatchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "sante_bus_dispatch_duration_seconds",
			Help:    "Time to walk every subscriber of a published event",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		BusHistorySize: f.NewGauge(prometheus.GaugeOpts{
			Name: "sante_bus_history_size",
			Help: "Number of events currently retained in bus history",
		}),
		NeuronEventsProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sante_neuron_events_processed_total",
			Help: "Events handled by each neuron",
		}, []string{"neuron"}),
		NeuronEventsEmitted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sante_neuron_events_emitted_total",
			Help: "Events emitted by each neuron",
		}, []string{"neuron"}),
		NeuronErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sante_neuron_errors_total",
			Help: "Handler failures per neuron",
		}, []string{"neuron"}),
		NeuronActive: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sante_neuron_active",
			Help: "1 when the neuron is active, 0 otherwise",
		}, []string{"neuron"}),
		UsersRegistered: f.NewCounter(prometheus.CounterOpts{
			Name: "sante_users_registered_total",
			Help: "Total number of accounts registered",
		}),
		LoginFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "sante_login_failures_total",
			Help: "Failed login attempts",
		}),
		TokensIssued: f.NewCounter(prometheus.CounterOpts{
			Name: "sante_tokens_issued_total",
			Help: "Access tokens signed (login and refresh)",
		}),
		DMPAccessDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sante_dmp_access_decisions_total",
			Help: "Consent-gated record access decisions",
		}, []string{"decision"}),
		NotificationsDelivered: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sante_notifications_total",
			Help: "Notification delivery attempts by channel and outcome",
		}, []string{"channel", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sante_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"method", "status"}),
	}
}

func (m *Metrics) ObservePublish(eventType string, start time.Time) {
	if m == nil {
		return
	}
	m.BusEventsPublished.WithLabelValues(eventType).Inc()
	m.BusDispatchDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementFailedEvents() {
	if m == nil {
		return
	}
	m.BusFailedEvents.Inc()
}

func (m *Metrics) IncrementHandlerErrors(eventType, owner string) {
	if m == nil {
		return
	}
	m.BusHandlerErrors.WithLabelValues(eventType, owner).Inc()
}

func (m *Metrics) SetHistorySize(n int) {
	if m == nil {
		return
	}
	m.BusHistorySize.Set(float64(n))
}

func (m *Metrics) IncrementNeuronProcessed(neuron string) {
	if m == nil {
		return
	}
	m.NeuronEventsProcessed.WithLabelValues(neuron).Inc()
}

func (m *Metrics) IncrementNeuronEmitted(neuron string) {
	if m == nil {
		return
	}
	m.NeuronEventsEmitted.WithLabelValues(neuron).Inc()
}

func (m *Metrics) IncrementNeuronErrors(neuron string) {
	if m == nil {
		return
	}
	m.NeuronErrors.WithLabelValues(neuron).Inc()
}

func (m *Metrics) SetNeuronActive(neuron string, active bool) {
	if m == nil {
		return
	}
	v := 0.0
	if active {
		v = 1
	}
	m.NeuronActive.WithLabelValues(neuron).Set(v)
}

func (m *Metrics) IncrementUsersRegistered() {
	if m == nil {
		return
	}
	m.UsersRegistered.Inc()
}

func (m *Metrics) IncrementLoginFailures() {
	if m == nil {
		return
	}
	m.LoginFailures.Inc()
}

func (m *Metrics) IncrementTokensIssued() {
	if m == nil {
		return
	}
	m.TokensIssued.Inc()
}

// RecordAccessDecision counts a DMP access decision ("granted" or "denied").
func (m *Metrics) RecordAccessDecision(granted bool) {
	if m == nil {
		return
	}
	decision := "denied"
	if granted {
		decision = "granted"
	}
	m.DMPAccessDecisions.WithLabelValues(decision).Inc()
}

func (m *Metrics) RecordNotification(channel string, delivered bool) {
	if m == nil {
		return
	}
	status := "failed"
	if delivered {
		status = "sent"
	}
	m.NotificationsDelivered.WithLabelValues(channel, status).Inc()
}

// ObserveHTTPRequest records request latency. Call with time.Now() taken at the start.
func (m *Metrics) ObserveHTTPRequest(method, status string, start time.Time) {
	if m == nil {
		return
	}
	m.HTTPRequestDuration.WithLabelValues(method, status).Observe(time.Since(start).Seconds())
}
