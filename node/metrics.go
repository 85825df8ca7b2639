package node

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "quorumkv"

// Metrics holds the prometheus instrumentation of a ConsensusModule.
//
// Counters work unregistered; call Register to expose them on a
// prometheus.Registerer.
type Metrics struct {
	ElectionsStarted  prometheus.Counter
	LeaderTransitions prometheus.Counter
	CommandsSubmitted prometheus.Counter
}

func newMetrics() *Metrics {
	return &Metrics{
		ElectionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "consensus",
			Name:      "elections_started_total",
			Help:      "Number of elections this node has started.",
		}),
		LeaderTransitions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "consensus",
			Name:      "leader_transitions_total",
			Help:      "Number of times this node has become leader.",
		}),
		CommandsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "consensus",
			Name:      "commands_submitted_total",
			Help:      "Number of client commands appended by this node as leader.",
		}),
	}
}

// Metrics returns the node's metrics.
func (cm *ConsensusModule) Metrics() *Metrics {
	return cm.metrics
}

// RegisterMetrics registers the node's collectors with the given
// registerer.
func (cm *ConsensusModule) RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		cm.metrics.ElectionsStarted,
		cm.metrics.LeaderTransitions,
		cm.metrics.CommandsSubmitted,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
