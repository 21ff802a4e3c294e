package usecase

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	usecaseTracer = otel.Tracer("peg-league/internal/usecase")
	noopSpan      = trace.SpanFromContext(context.Background())
)

// startUsecaseSpan opens a child span only when the caller is already
// traced. Untraced calls get a no-op span.
func startUsecaseSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if strings.TrimSpace(name) == "" || !trace.SpanFromContext(ctx).SpanContext().IsValid() {
		return ctx, noopSpan
	}
	return usecaseTracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func competitionAttr(id string) attribute.KeyValue {
	return attribute.String("competition.id", strings.TrimSpace(id))
}
