// Package metrics provides Prometheus metrics collection for realmd.
//
// # Metrics Categories
//
//   - Packet Metrics: datagrams received, dropped by reason, delivered; sends
//   - Pool Metrics: idle receive buffers and empty-pool allocations
//   - Lifecycle Metrics: server status, startup step durations
//   - Schema Metrics: current version and converter runs
//   - Persistence Metrics: world save duration, outcome and players written
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.RecordDatagramDropped("checksum")
//	http.Handle("/metrics", collector.Handler())
//
// Every recording method is a no-op on a nil *Collector or when metrics are
// disabled in configuration.
package metrics
