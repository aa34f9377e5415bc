package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInitTracer_Disabled(t *testing.T) {
	cfg := DefaultConfig("red-social-backend")
	cfg.Enabled = false

	shutdown, err := InitTracer(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown, "shutdown must be callable even when disabled")
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracer_Enabled(t *testing.T) {
	// Non-routable endpoint: the exporter never connects but the SDK still
	// initializes since batched export is async.
	cfg := Config{
		ServiceName:    "red-social-backend",
		ServiceVersion: "1.0.0",
		Environment:    "test",
		OTLPEndpoint:   "127.0.0.1:0",
		SampleRate:     1.0,
		Enabled:        true,
	}

	shutdown, err := InitTracer(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	assert.True(t, ok, "global provider should be the SDK provider")

	_ = shutdown(context.Background())
}

func TestSamplerFor(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), samplerFor(1.0).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), samplerFor(0.0).Description())
	assert.Contains(t, samplerFor(0.5).Description(), "ParentBased")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("red-social-backend")

	assert.Equal(t, "red-social-backend", cfg.ServiceName)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 1.0, cfg.SampleRate)
	assert.Equal(t, "localhost:4318", cfg.OTLPEndpoint)
}

func TestTracer_NoopWithoutProvider(t *testing.T) {
	tracer := Tracer("auth")
	require.NotNil(t, tracer)

	// Without an SDK provider the span is a no-op; it must not panic.
	_, span := tracer.Start(context.Background(), "hash-password")
	span.End()
}
