package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Backend gateway metrics
	BackendRequests     *prometheus.CounterVec
	BackendLatency      *prometheus.HistogramVec
	BreakerStateChanges *prometheus.CounterVec

	// Booking metrics
	BookingOutcomes     *prometheus.CounterVec
	PatientLinkRepairs  *prometheus.CounterVec
	AggregationLookups  *prometheus.CounterVec
	AggregationDuration prometheus.Histogram

	// Session store metrics
	SessionOperations *prometheus.CounterVec

	// HTTP surface metrics
	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec
}

// NewMetrics creates and registers all application metrics on reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		BackendRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Total number of requests sent to the clinic backend",
		}, []string{"method", "route", "status"}),
		BackendLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Duration of clinic backend requests",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"method", "route"}),
		BreakerStateChanges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "breaker_state_changes_total",
			Help:      "Circuit breaker state transitions",
		}, []string{"to"}),

		BookingOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "booking",
			Name:      "submissions_total",
			Help:      "Appointment submissions by outcome",
		}, []string{"outcome"}),
		PatientLinkRepairs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "booking",
			Name:      "patient_link_repairs_total",
			Help:      "One-shot patient identifier repairs by result",
		}, []string{"result"}),
		AggregationLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "availability",
			Name:      "doctor_lookups_total",
			Help:      "Per-doctor availability lookups by result",
		}, []string{"result"}),
		AggregationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "availability",
			Name:      "aggregation_duration_seconds",
			Help:      "Time spent aggregating availability for a specialization and date",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),

		SessionOperations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "operations_total",
			Help:      "Session store operations",
		}, []string{"operation", "status"}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
		}, []string{"method", "path"}),
	}
}

func (m *Metrics) ObserveBackend(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.BackendRequests.WithLabelValues(method, route, status).Inc()
	m.BackendLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) BreakerChanged(to string) {
	if m == nil {
		return
	}
	m.BreakerStateChanges.WithLabelValues(to).Inc()
}

func (m *Metrics) BookingOutcome(outcome string) {
	if m == nil {
		return
	}
	m.BookingOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) PatientLinkRepair(result string) {
	if m == nil {
		return
	}
	m.PatientLinkRepairs.WithLabelValues(result).Inc()
}

func (m *Metrics) AggregationLookup(result string) {
	if m == nil {
		return
	}
	m.AggregationLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveAggregation(d time.Duration) {
	if m == nil {
		return
	}
	m.AggregationDuration.Observe(d.Seconds())
}

func (m *Metrics) SessionOperation(op, status string) {
	if m == nil {
		return
	}
	m.SessionOperations.WithLabelValues(op, status).Inc()
}

func (m *Metrics) ObserveHTTP(method, path, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, path, status).Inc()
	m.HTTPLatency.WithLabelValues(method, path).Observe(d.Seconds())
}
