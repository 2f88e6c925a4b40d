package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the person module.
type Metrics struct {
	PersonsCreated    prometheus.Counter
	PersonsUpdated    prometheus.Counter
	PersonsDeleted    prometheus.Counter
	Conflicts         *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	EventsPublished   *prometheus.CounterVec
	EventsDropped     prometheus.Counter
	EventBreakerState prometheus.Gauge
}

// New registers the person metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PersonsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "person_registry_persons_created_total",
			Help: "Total number of persons created",
		}),
		PersonsUpdated: f.NewCounter(prometheus.CounterOpts{
			Name: "person_registry_persons_updated_total",
			Help: "Total number of person rows updated",
		}),
		PersonsDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "person_registry_persons_deleted_total",
			Help: "Total number of person rows deleted",
		}),
		Conflicts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "person_registry_unique_conflicts_total",
			Help: "Writes rejected by a unique identifier constraint",
		}, []string{"attribute"}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "person_registry_operation_duration_seconds",
			Help:    "Duration of person service operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation", "outcome"}),
		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "person_registry_events_published_total",
			Help: "Lifecycle events handed to the event sink",
		}, []string{"type", "result"}),
		EventsDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "person_registry_events_dropped_total",
			Help: "Lifecycle events skipped while the publisher circuit is open",
		}),
		EventBreakerState: f.NewGauge(prometheus.GaugeOpts{
			Name: "person_registry_event_breaker_open",
			Help: "1 when the event publisher circuit breaker is open",
		}),
	}
}

// ObserveOperation records how long op took and whether it succeeded.
func (m *Metrics) ObserveOperation(op, outcome string, start time.Time) {
	m.OperationDuration.WithLabelValues(op, outcome).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementCreated() {
	m.PersonsCreated.Inc()
}

func (m *Metrics) AddUpdated(n int64) {
	m.PersonsUpdated.Add(float64(n))
}

func (m *Metrics) AddDeleted(n int64) {
	m.PersonsDeleted.Add(float64(n))
}

func (m *Metrics) IncrementConflict(attribute string) {
	m.Conflicts.WithLabelValues(attribute).Inc()
}

func (m *Metrics) IncrementEventPublished(eventType, result string) {
	m.EventsPublished.WithLabelValues(eventType, result).Inc()
}

func (m *Metrics) IncrementEventDropped() {
	m.EventsDropped.Inc()
}

func (m *Metrics) SetEventBreakerOpen(open bool) {
	if open {
		m.EventBreakerState.Set(1)
		return
	}
	m.EventBreakerState.Set(0)
}
