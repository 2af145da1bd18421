package tracing

import (
	"fmt"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const (
	// SamplerAlways samples all traces
	SamplerAlways = "always"

	// SamplerNever samples no traces
	SamplerNever = "never"

	// SamplerRatio samples a percentage of traces
	SamplerRatio = "ratio"
)

// Root span names used by the server.
const (
	SpanServerStart     = "server.start"
	SpanPersistenceSave = "persistence.save"
)

// createSampler creates a sampler based on the strategy and ratio.
//
// With "ratio" the boot trace is still always recorded: there is one per
// process and it carries the startup steps and any migrations. The ratio
// applies to the periodic world saves.
func createSampler(strategy string, ratio float64) (sdktrace.Sampler, error) {
	var root sdktrace.Sampler

	switch strategy {
	case SamplerAlways:
		root = sdktrace.AlwaysSample()

	case SamplerNever:
		root = sdktrace.NeverSample()

	case SamplerRatio:
		if ratio < 0.0 || ratio > 1.0 {
			return nil, fmt.Errorf("sample ratio must be between 0.0 and 1.0, got %f", ratio)
		}
		root = bootSampler{base: sdktrace.TraceIDRatioBased(ratio)}

	default:
		return nil, fmt.Errorf("unknown sampler strategy: %s (valid: always, never, ratio)", strategy)
	}

	return sdktrace.ParentBased(root), nil
}

// bootSampler records server.start roots and defers everything else to base.
type bootSampler struct {
	base sdktrace.Sampler
}

func (s bootSampler) ShouldSample(p sdktrace.SamplingParameters) sdktrace.SamplingResult {
	if p.Name == SpanServerStart {
		return sdktrace.AlwaysSample().ShouldSample(p)
	}
	return s.base.ShouldSample(p)
}

func (s bootSampler) Description() string {
	return "BootSampler{" + s.base.Description() + "}"
}
