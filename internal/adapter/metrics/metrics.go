// Package metrics implements port.MetricsRecorder on Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Prometheus struct {
	outcomes  *prometheus.CounterVec
	conflicts prometheus.Counter
}

func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	factory := promauto.With(reg)
	return &Prometheus{
		outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "checkout",
			Name:      "purchases_total",
			Help:      "Finished purchase requests by outcome.",
		}, []string{"outcome"}),
		conflicts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "checkout",
			Name:      "stock_conflicts_total",
			Help:      "Conditional stock updates that lost the optimistic race, including retried ones.",
		}),
	}
}

func (p *Prometheus) PurchaseOutcome(outcome string) {
	p.outcomes.WithLabelValues(outcome).Inc()
}

func (p *Prometheus) StockConflict() {
	p.conflicts.Inc()
}
