package tracing

import (
	"context"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestCreateSampler(t *testing.T) {
	tests := []struct {
		name     string
		strategy string
		ratio    float64
		wantErr  bool
	}{
		{name: "always sampler", strategy: SamplerAlways, wantErr: false},
		{name: "never sampler", strategy: SamplerNever, wantErr: false},
		{name: "ratio sampler - 0%", strategy: SamplerRatio, ratio: 0.0, wantErr: false},
		{name: "ratio sampler - 50%", strategy: SamplerRatio, ratio: 0.5, wantErr: false},
		{name: "ratio sampler - invalid negative", strategy: SamplerRatio, ratio: -0.1, wantErr: true},
		{name: "ratio sampler - invalid > 1", strategy: SamplerRatio, ratio: 1.5, wantErr: true},
		{name: "unknown strategy", strategy: "unknown", ratio: 0.5, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sampler, err := createSampler(tt.strategy, tt.ratio)
			if (err != nil) != tt.wantErr {
				t.Errorf("createSampler() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr && sampler == nil {
				t.Error("createSampler() returned nil sampler without error")
			}
		})
	}
}

func TestCreateSampler_RatioKeepsBootTrace(t *testing.T) {
	sampler, err := createSampler(SamplerRatio, 0)
	if err != nil {
		t.Fatal(err)
	}

	decide := func(name string) sdktrace.SamplingDecision {
		return sampler.ShouldSample(sdktrace.SamplingParameters{
			ParentContext: context.Background(),
			TraceID:       trace.TraceID{0x01},
			Name:          name,
			Kind:          trace.SpanKindInternal,
		}).Decision
	}

	if got := decide(SpanServerStart); got != sdktrace.RecordAndSample {
		t.Errorf("%s decision = %v, want RecordAndSample", SpanServerStart, got)
	}
	if got := decide(SpanPersistenceSave); got != sdktrace.Drop {
		t.Errorf("%s decision = %v, want Drop at ratio 0", SpanPersistenceSave, got)
	}
}

func TestCreateSampler_NeverDropsBootTrace(t *testing.T) {
	sampler, err := createSampler(SamplerNever, 0)
	if err != nil {
		t.Fatal(err)
	}
	res := sampler.ShouldSample(sdktrace.SamplingParameters{
		ParentContext: context.Background(),
		TraceID:       trace.TraceID{0x01},
		Name:          SpanServerStart,
	})
	if res.Decision != sdktrace.Drop {
		t.Errorf("decision = %v, want Drop", res.Decision)
	}
}
