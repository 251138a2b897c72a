package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Tracer returns the global tracer under a fixed instrumentation name.
// The core never configures its own exporter/SDK: callers that want
// spans exported wire an SDK TracerProvider via otel.SetTracerProvider
// before constructing the engine; absent that, the global no-op
// tracer is used and StartSpan is a cheap pass-through.
func Tracer() trace.Tracer {
	return otel.Tracer("github.com/cagcore/engine")
}

// StartSpan is a small convenience wrapper so call sites don't repeat
// the Tracer()/Start() pair.
func StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name)
}
