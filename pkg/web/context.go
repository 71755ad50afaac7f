package web

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type ctxKey int

const (
	writerKey ctxKey = iota + 1
	tracerCtxKey
)

func setWriter(ctx context.Context, w http.ResponseWriter) context.Context {
	return context.WithValue(ctx, writerKey, w)
}

// GetWriter returns the underlying writer for the request.
func GetWriter(ctx context.Context) http.ResponseWriter {
	v, ok := ctx.Value(writerKey).(http.ResponseWriter)
	if !ok {
		return nil
	}
	return v
}

func setTracer(ctx context.Context, tracer trace.Tracer) context.Context {
	return context.WithValue(ctx, tracerCtxKey, tracer)
}

// GetTracer retrieves the tracer from the context, falling back to a noop
// tracer so callers never need a nil check.
func GetTracer(ctx context.Context) trace.Tracer {
	v, ok := ctx.Value(tracerCtxKey).(trace.Tracer)
	if !ok || v == nil {
		return noop.NewTracerProvider().Tracer("noop")
	}
	return v
}

// AddSpan adds an otel span to the existing trace.
func AddSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	return GetTracer(ctx).Start(ctx, spanName)
}
