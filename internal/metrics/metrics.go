// Package metrics exposes build progress as Prometheus collectors. Every
// method is safe to call on a nil *Metrics, which records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors of one application instance.
type Metrics struct {
	registry        *prometheus.Registry
	tasks           *prometheus.CounterVec
	actions         *prometheus.CounterVec
	commands        *prometheus.CounterVec
	commandDuration prometheus.Histogram
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		tasks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "buildgrid_tasks_total",
				Help: "Total number of finished build tasks",
			},
			[]string{"kind", "state"},
		),
		actions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "buildgrid_actions_total",
				Help: "Total number of filesystem and process actions performed",
			},
			[]string{"action"},
		),
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "buildgrid_commands_total",
				Help: "Total number of external commands by exit status",
			},
			[]string{"status"},
		),
		commandDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "buildgrid_command_duration_seconds",
				Help:    "Duration of external commands",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
		),
	}
	m.registry.MustRegister(m.tasks, m.actions, m.commands, m.commandDuration)
	return m
}

// Registry returns the registry the collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the collectors in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveTask counts a finished task.
func (m *Metrics) ObserveTask(kind, state string) {
	if m == nil {
		return
	}
	m.tasks.WithLabelValues(kind, state).Inc()
}

// ObserveAction counts a performed primitive action.
func (m *Metrics) ObserveAction(action string) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(action).Inc()
}

// ObserveCommand records an external command's exit status and duration.
func (m *Metrics) ObserveCommand(status int, d time.Duration) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(strconv.Itoa(status)).Inc()
	m.commandDuration.Observe(d.Seconds())
}

// Actions returns the action counter, for inspection in tests.
func (m *Metrics) Actions() *prometheus.CounterVec {
	if m == nil {
		return nil
	}
	return m.actions
}

// Tasks returns the task counter, for inspection in tests.
func (m *Metrics) Tasks() *prometheus.CounterVec {
	if m == nil {
		return nil
	}
	return m.tasks
}
