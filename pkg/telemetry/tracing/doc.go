// Package tracing provides OpenTelemetry tracing for realmd.
//
// Spans are emitted for coarse lifecycle work only: each startup step, each
// schema converter and each world save. Spans are exported over OTLP/gRPC.
// When tracing is disabled a noop tracer is used.
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	ctx, span := tracer.Start(ctx, "StartUDP")
//	err = pipeline.Bind(ctx)
//	tracing.End(span, err)
package tracing
