package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// OrderWorkflow counts order lifecycle events, labeled by outcome.
type OrderWorkflow struct {
	placed    prometheus.Counter
	decisions *prometheus.CounterVec
	cancelled prometheus.Counter
}

// NewOrderWorkflow registers the order counters on the given registerer.
// Pass prometheus.DefaultRegisterer in production; tests use a fresh
// registry to avoid duplicate registration.
func NewOrderWorkflow(reg prometheus.Registerer) *OrderWorkflow {
	factory := promauto.With(reg)
	return &OrderWorkflow{
		placed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "cartfold",
			Subsystem: "orders",
			Name:      "placed_total",
			Help:      "Orders placed by customers.",
		}),
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cartfold",
			Subsystem: "orders",
			Name:      "decisions_total",
			Help:      "Vendor decisions on orders.",
		}, []string{"decision"}),
		cancelled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "cartfold",
			Subsystem: "orders",
			Name:      "cancelled_total",
			Help:      "Pending orders cancelled by customers.",
		}),
	}
}

func (m *OrderWorkflow) Placed() {
	m.placed.Inc()
}

func (m *OrderWorkflow) Accepted() {
	m.decisions.WithLabelValues("accepted").Inc()
}

func (m *OrderWorkflow) Rejected() {
	m.decisions.WithLabelValues("rejected").Inc()
}

func (m *OrderWorkflow) Cancelled() {
	m.cancelled.Inc()
}
