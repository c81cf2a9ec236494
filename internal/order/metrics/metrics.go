package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the order lifecycle.
type Metrics struct {
	// Orders placed
	OrdersCreated prometheus.Counter

	// Applied transitions by edge and role
	Transitions *prometheus.CounterVec

	// Transition outcomes that did not change state: noop, stale, rejected
	TransitionOutcomes *prometheus.CounterVec

	// Compare-and-transition round trip
	TransitionLatency prometheus.Histogram
}

// New creates a new Metrics instance registered with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		OrdersCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "dinein_orders_created_total",
			Help: "Total orders placed",
		}),
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dinein_order_transitions_total",
			Help: "Applied order status transitions by edge and actor role",
		}, []string{"from", "to", "role"}),
		TransitionOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dinein_order_transition_outcomes_total",
			Help: "Transition requests that did not change state, by outcome",
		}, []string{"outcome"}),
		TransitionLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "dinein_order_transition_duration_seconds",
			Help:    "Duration of compare-and-transition store calls",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
	}
}

func (m *Metrics) IncrementCreated() {
	if m != nil {
		m.OrdersCreated.Inc()
	}
}

func (m *Metrics) IncrementTransition(from, to, role string) {
	if m != nil {
		m.Transitions.WithLabelValues(from, to, role).Inc()
	}
}

// IncrementOutcome records "noop", "stale" or "rejected".
func (m *Metrics) IncrementOutcome(outcome string) {
	if m != nil {
		m.TransitionOutcomes.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ObserveTransitionLatency(d time.Duration) {
	if m != nil {
		m.TransitionLatency.Observe(d.Seconds())
	}
}
