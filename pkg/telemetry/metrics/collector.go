package metrics

import (
	"strconv"
	"time"

	"emberhold/realmd/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns every Prometheus metric exported by realmd and offers one
// recording method per event. A nil *Collector is valid and records nothing,
// so components can be built without metrics in tests.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	packets   *PacketMetrics
	lifecycle *LifecycleMetrics
}

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a fresh registry is created.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.SaveDurationBuckets) == 0 {
		cfg.SaveDurationBuckets = config.DefaultSaveDurationBuckets
	}

	return &Collector{
		config:    cfg,
		registry:  registry,
		packets:   NewPacketMetrics(cfg, registry),
		lifecycle: NewLifecycleMetrics(cfg, registry),
	}
}

// Registry returns the registry the collector registered into.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// RecordDatagramReceived counts one datagram read from the inbound socket.
func (c *Collector) RecordDatagramReceived() {
	if !c.enabled() {
		return
	}
	c.packets.received.Inc()
}

// RecordDatagramDropped counts one discarded datagram.
func (c *Collector) RecordDatagramDropped(reason string) {
	if !c.enabled() {
		return
	}
	c.packets.dropped.WithLabelValues(reason).Inc()
}

// RecordDatagramDelivered counts one datagram handed to a session.
func (c *Collector) RecordDatagramDelivered() {
	if !c.enabled() {
		return
	}
	c.packets.delivered.Inc()
}

// RecordSend records one outbound send attempt.
// result is "ok", "slow", "error", or "queue_full".
func (c *Collector) RecordSend(result string, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.packets.sends.WithLabelValues(result).Inc()
	if duration > 0 {
		c.packets.sendDuration.Observe(duration.Seconds())
	}
}

// SetPoolAvailable reports the current idle buffer count.
func (c *Collector) SetPoolAvailable(n int) {
	if !c.enabled() {
		return
	}
	c.packets.poolAvailable.Set(float64(n))
}

// RecordPoolMiss counts one allocation caused by an empty pool.
func (c *Collector) RecordPoolMiss() {
	if !c.enabled() {
		return
	}
	c.packets.poolMisses.Inc()
}

// SetServerOpen reports whether the server status is Open.
func (c *Collector) SetServerOpen(open bool) {
	if !c.enabled() {
		return
	}
	if open {
		c.lifecycle.open.Set(1)
	} else {
		c.lifecycle.open.Set(0)
	}
}

// RecordStep records the outcome and duration of a startup step.
func (c *Collector) RecordStep(step string, ok bool, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.lifecycle.stepDuration.WithLabelValues(step, strconv.FormatBool(ok)).Observe(duration.Seconds())
}

// SetSchemaVersion reports the persisted schema version.
func (c *Collector) SetSchemaVersion(v int) {
	if !c.enabled() {
		return
	}
	c.lifecycle.schemaVersion.Set(float64(v))
}

// RecordMigration counts one converter run.
func (c *Collector) RecordMigration(err error) {
	if !c.enabled() {
		return
	}
	c.lifecycle.migrations.WithLabelValues(resultLabel(err)).Inc()
}

// RecordSave records a completed world save.
func (c *Collector) RecordSave(duration time.Duration, players int, err error) {
	if !c.enabled() {
		return
	}
	c.lifecycle.saves.WithLabelValues(resultLabel(err)).Inc()
	c.lifecycle.saveDuration.Observe(duration.Seconds())
	if players > 0 {
		c.lifecycle.playersSaved.Add(float64(players))
	}
}

// RecordSaveSkipped counts a save tick skipped because one was still running.
func (c *Collector) RecordSaveSkipped() {
	if !c.enabled() {
		return
	}
	c.lifecycle.saves.WithLabelValues("skipped").Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
