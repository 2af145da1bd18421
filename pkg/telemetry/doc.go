// Package telemetry groups the observability packages of realmd.
//
// # Components
//
//   - logging: slog construction from configuration, context fields
//     (boot id, startup step, session id, remote address)
//   - metrics: Prometheus collector for the datagram pipeline, buffer pool,
//     startup steps, schema migrations and world saves
//   - tracing: OpenTelemetry spans exported over OTLP/gRPC
//   - health: liveness and readiness checks served by the admin surface
//
// # Usage
//
//	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging, os.Stdout))
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	defer tracer.Shutdown(context.Background())
//
// The collector satisfies the observer interfaces of bufpool, transport,
// migrate and persistence, so it is passed to each of them directly.
package telemetry
