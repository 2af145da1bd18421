package metrics

import (
	"emberhold/realmd/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// PacketMetrics tracks the UDP ingestion pipeline and buffer pool.
//
// Metrics:
//   - realmd_udp_datagrams_received_total
//   - realmd_udp_datagrams_dropped_total{reason}
//   - realmd_udp_datagrams_delivered_total
//   - realmd_udp_sends_total{result}
//   - realmd_udp_send_duration_seconds
//   - realmd_bufpool_available
//   - realmd_bufpool_misses_total
type PacketMetrics struct {
	received     prometheus.Counter
	dropped      *prometheus.CounterVec
	delivered    prometheus.Counter
	sends        *prometheus.CounterVec
	sendDuration prometheus.Histogram

	poolAvailable prometheus.Gauge
	poolMisses    prometheus.Counter
}

// NewPacketMetrics creates and registers packet metrics with the provided registry.
func NewPacketMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *PacketMetrics {
	pm := &PacketMetrics{
		received: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "udp",
			Name:      "datagrams_received_total",
			Help:      "Total number of datagrams read from the inbound socket",
		}),
		dropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "udp",
				Name:      "datagrams_dropped_total",
				Help:      "Datagrams discarded before delivery, by reason",
			},
			[]string{"reason"},
		),
		delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "udp",
			Name:      "datagrams_delivered_total",
			Help:      "Datagrams handed to a session's packet processor",
		}),
		sends: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "udp",
				Name:      "sends_total",
				Help:      "Outbound datagram sends, by result",
			},
			[]string{"result"},
		),
		sendDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: "udp",
			Name:      "send_duration_seconds",
			Help:      "Time spent writing outbound datagrams",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		poolAvailable: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: "bufpool",
			Name:      "available",
			Help:      "Receive buffers currently idle in the pool",
		}),
		poolMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "bufpool",
			Name:      "misses_total",
			Help:      "Acquisitions that found the pool empty and allocated",
		}),
	}

	registry.MustRegister(
		pm.received,
		pm.dropped,
		pm.delivered,
		pm.sends,
		pm.sendDuration,
		pm.poolAvailable,
		pm.poolMisses,
	)

	return pm
}
