package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gestionbot/core/internal/domain/entities"
)

// Metrics holds the bot-level Prometheus collectors. The registry is mounted
// on the operational HTTP server at /metrics.
type Metrics struct {
	Registry *prometheus.Registry

	commandsTotal      *prometheus.CounterVec
	statusRefreshTotal *prometheus.CounterVec
	saveDuration       prometheus.Histogram
}

// New creates the collectors and registers them on a fresh registry
func New() *Metrics {
	registry := prometheus.NewRegistry()

	commandsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_total",
			Help: "Total number of slash command invocations",
		},
		[]string{"command", "outcome"},
	)

	statusRefreshTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_status_refresh_total",
			Help: "Status surface refresh outcomes",
		},
		[]string{"result"},
	)

	saveDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bot_save_duration_seconds",
			Help:    "Ledger document save duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	registry.MustRegister(commandsTotal, statusRefreshTotal, saveDuration)

	return &Metrics{
		Registry:           registry,
		commandsTotal:      commandsTotal,
		statusRefreshTotal: statusRefreshTotal,
		saveDuration:       saveDuration,
	}
}

// ObserveCommand records one command invocation with its outcome
// ("ok", "rejected", "domain_error" or "error").
func (m *Metrics) ObserveCommand(command, outcome string) {
	m.commandsTotal.WithLabelValues(command, outcome).Inc()
}

// ObserveRefresh records one status surface refresh result
func (m *Metrics) ObserveRefresh(result entities.RefreshResult) {
	m.statusRefreshTotal.WithLabelValues(string(result)).Inc()
}

// ObserveSave records one document save duration
func (m *Metrics) ObserveSave(d time.Duration) {
	m.saveDuration.Observe(d.Seconds())
}
