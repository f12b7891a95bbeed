package observability

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap/zaptest"
)

func TestInitTracingExportsSpans(t *testing.T) {
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	var out bytes.Buffer
	shutdown, err := InitTracing(context.Background(), TracingConfig{
		ServiceName:  "colmap-test",
		SamplingRate: 1,
		Writer:       &out,
		Synchronous:  true,
		Logger:       zaptest.NewLogger(t),
	})
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "colmap.template.insert")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	assert.Contains(t, out.String(), "colmap.template.insert")
	assert.Contains(t, out.String(), "colmap-test")
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.NeverSample().Description(), Sampler(0).Description())
	assert.Equal(t, sdktrace.AlwaysSample().Description(), Sampler(1).Description())
	assert.Equal(t, sdktrace.TraceIDRatioBased(0.25).Description(), Sampler(0.25).Description())
}
