package blockchain

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics reports block acceptance activity. A nil *Metrics reports nothing.
type Metrics struct {
	connected  prometheus.Counter
	orphaned   prometheus.Counter
	rejected   prometheus.Counter
	reorgs     prometheus.Counter
	bestHeight prometheus.Gauge
}

// NewMetrics creates the acceptor metrics and registers them with registerer
// when it is not nil.
func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		connected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spreadd",
			Subsystem: "chain",
			Name:      "blocks_connected_total",
			Help:      "Blocks connected to the chain graph, side chains included.",
		}),
		orphaned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spreadd",
			Subsystem: "chain",
			Name:      "blocks_orphaned_total",
			Help:      "Blocks held back because their parent was unknown.",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spreadd",
			Subsystem: "chain",
			Name:      "blocks_rejected_total",
			Help:      "Blocks that violated a consensus rule.",
		}),
		reorgs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spreadd",
			Subsystem: "chain",
			Name:      "reorganizations_total",
			Help:      "Best chain switches to a different branch.",
		}),
		bestHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "spreadd",
			Subsystem: "chain",
			Name:      "best_height",
			Help:      "Height of the best chain head.",
		}),
	}
	if registerer == nil {
		return m, nil
	}
	collectors := []prometheus.Collector{m.connected, m.orphaned,
		m.rejected, m.reorgs, m.bestHeight}
	for _, collector := range collectors {
		err := registerer.Register(collector)
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) blockConnected() {
	if m != nil {
		m.connected.Inc()
	}
}

func (m *Metrics) blockOrphaned() {
	if m != nil {
		m.orphaned.Inc()
	}
}

func (m *Metrics) blockRejected() {
	if m != nil {
		m.rejected.Inc()
	}
}

func (m *Metrics) reorganized() {
	if m != nil {
		m.reorgs.Inc()
	}
}

func (m *Metrics) setBestHeight(height int32) {
	if m != nil {
		m.bestHeight.Set(float64(height))
	}
}
