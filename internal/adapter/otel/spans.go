package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "taskforge"

// StartSaveSpan starts a span for a settings save.
func StartSaveSpan(ctx context.Context, sections []string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "settings.save",
		trace.WithAttributes(
			attribute.StringSlice("settings.sections", sections),
		),
	)
}

// StartWebhookSpan starts a span for a webhook lifecycle operation.
func StartWebhookSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "webhook."+op,
		trace.WithAttributes(
			attribute.String("webhook.op", op),
		),
	)
}

// StartUpstreamSpan starts a span for an Asana API call.
func StartUpstreamSpan(ctx context.Context, method, path string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "asana.request",
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.path", path),
		),
	)
}
