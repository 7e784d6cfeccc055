// Package metrics exposes prometheus collectors for the command engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	commandsTotal   *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	transitions     *prometheus.CounterVec
	publishFailures *prometheus.CounterVec
}

// New registers the collectors on reg. A nil reg leaves them unregistered,
// which tests use to avoid global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		commandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "action_commands_total",
				Help: "Commands applied to actions, by command and outcome kind.",
			},
			[]string{"command", "outcome"},
		),
		commandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "action_command_duration_seconds",
				Help:    "Time spent loading, applying and persisting a command.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"command"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "action_transitions_total",
				Help: "Committed action state transitions.",
			},
			[]string{"from", "to"},
		),
		publishFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "action_event_publish_failures_total",
				Help: "Lifecycle events a sink failed to accept.",
			},
			[]string{"sink"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.commandsTotal, m.commandDuration, m.transitions, m.publishFailures)
	}
	return m
}

func (m *Metrics) ObserveCommand(command, outcome string, took time.Duration) {
	m.commandsTotal.WithLabelValues(command, outcome).Inc()
	m.commandDuration.WithLabelValues(command).Observe(took.Seconds())
}

func (m *Metrics) ObserveTransition(from, to string) {
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) PublishFailed(sink string) {
	m.publishFailures.WithLabelValues(sink).Inc()
}

func (m *Metrics) CommandsTotal() *prometheus.CounterVec { return m.commandsTotal }

func (m *Metrics) PublishFailures() *prometheus.CounterVec { return m.publishFailures }
