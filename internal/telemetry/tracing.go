package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name used for every span
const TracerName = "github.com/amaumene/redman"

// NewTracerProvider builds an SDK tracer provider and installs it globally.
// Exporters are attached through opts; without one spans are only sampled in process.
func NewTracerProvider(opts ...sdktrace.TracerProviderOption) *sdktrace.TracerProvider {
	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	return tp
}

// Tracer returns the tracer of provider, or the global one when provider is nil
func Tracer(provider trace.TracerProvider) trace.Tracer {
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	return provider.Tracer(TracerName)
}

// Shutdown flushes and stops the provider
func Shutdown(ctx context.Context, tp *sdktrace.TracerProvider) error {
	if tp == nil {
		return nil
	}
	return tp.Shutdown(ctx)
}

// ReleaseAttrs are the span attributes identifying one release
func ReleaseAttrs(id int64, weight int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64("torrent.id", id),
		attribute.Int("torrent.weight", weight),
	}
}
