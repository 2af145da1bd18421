package metrics

import (
	"emberhold/realmd/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// LifecycleMetrics tracks server startup, schema migration and world saves.
//
// Metrics:
//   - realmd_server_open
//   - realmd_server_step_duration_seconds{step,ok}
//   - realmd_schema_version
//   - realmd_schema_migrations_total{result}
//   - realmd_persistence_save_duration_seconds
//   - realmd_persistence_saves_total{result}
//   - realmd_persistence_players_saved_total
type LifecycleMetrics struct {
	open         prometheus.Gauge
	stepDuration *prometheus.HistogramVec

	schemaVersion prometheus.Gauge
	migrations    *prometheus.CounterVec

	saveDuration prometheus.Histogram
	saves        *prometheus.CounterVec
	playersSaved prometheus.Counter
}

// NewLifecycleMetrics creates and registers lifecycle metrics with the provided registry.
func NewLifecycleMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *LifecycleMetrics {
	lm := &LifecycleMetrics{
		open: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: "server",
			Name:      "open",
			Help:      "1 while the server accepts traffic, 0 otherwise",
		}),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "server",
				Name:      "step_duration_seconds",
				Help:      "Duration of each startup step",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 9),
			},
			[]string{"step", "ok"},
		),
		schemaVersion: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: "schema",
			Name:      "version",
			Help:      "Schema version recorded in the version file",
		}),
		migrations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "schema",
				Name:      "migrations_total",
				Help:      "Converters applied, by result",
			},
			[]string{"result"},
		),
		saveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: "persistence",
			Name:      "save_duration_seconds",
			Help:      "Duration of world saves in seconds",
			Buckets:   cfg.SaveDurationBuckets,
		}),
		saves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "persistence",
				Name:      "saves_total",
				Help:      "World saves, by result",
			},
			[]string{"result"},
		),
		playersSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "persistence",
			Name:      "players_saved_total",
			Help:      "Player records written by world saves",
		}),
	}

	registry.MustRegister(
		lm.open,
		lm.stepDuration,
		lm.schemaVersion,
		lm.migrations,
		lm.saveDuration,
		lm.saves,
		lm.playersSaved,
	)

	return lm
}
