// Package observability sets up OpenTelemetry tracing for colmap processes.
// Template operations open spans through the global tracer provider that
// InitTracing installs.
package observability

import (
	"context"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.uber.org/zap"

	"github.com/ajitpratap0/colmap/pkg/errors"
)

// TracingConfig contains tracing configuration
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// SamplingRate is the fraction of traces recorded (0.0-1.0)
	SamplingRate float64
	// Writer receives exported spans; stdout when nil
	Writer io.Writer
	// PrettyPrint indents exported spans
	PrettyPrint bool
	// Synchronous exports every span as it ends instead of batching
	Synchronous bool
	Logger      *zap.Logger
}

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(ctx context.Context) error

// InitTracing installs a global tracer provider exporting to cfg.Writer and
// returns the function that shuts it down.
func InitTracing(ctx context.Context, cfg TracingConfig) (ShutdownFunc, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "colmap"
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(cfg.Environment),
		),
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create resource")
	}

	w := cfg.Writer
	if w == nil {
		w = os.Stdout
	}
	opts := []stdouttrace.Option{stdouttrace.WithWriter(w)}
	if cfg.PrettyPrint {
		opts = append(opts, stdouttrace.WithPrettyPrint())
	}
	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create stdout exporter")
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	if cfg.Synchronous {
		processor = sdktrace.NewSimpleSpanProcessor(exporter)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(Sampler(cfg.SamplingRate))),
		sdktrace.WithSpanProcessor(processor),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	log.Info("tracing initialized",
		zap.String("service", cfg.ServiceName),
		zap.Float64("sampling_rate", cfg.SamplingRate))

	return func(ctx context.Context) error {
		if err := tp.Shutdown(ctx); err != nil {
			return errors.Wrap(err, errors.ErrorTypeInternal, "failed to shut down tracing")
		}
		return nil
	}, nil
}

// Sampler maps a sampling rate to a sampler.
func Sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate <= 0:
		return sdktrace.NeverSample()
	case rate >= 1.0:
		return sdktrace.AlwaysSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}
