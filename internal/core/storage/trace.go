package storage

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// DefaultDBAttributes are attached to every storage span.
var DefaultDBAttributes = []attribute.KeyValue{
	attribute.String("db.system", "postgresql"),
}

// ExecuteAndTrace wraps a database operation in a client span. Errors are
// recorded on the span and returned unchanged.
func ExecuteAndTrace(
	ctx context.Context,
	tracer trace.Tracer,
	spanName string,
	attributes []attribute.KeyValue,
	operation func(ctx context.Context) error,
) error {
	ctx, span := tracer.Start(
		ctx,
		spanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attributes...),
	)
	defer span.End()

	if err := operation(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// PairAttributes returns the span attributes identifying a (learner, course) pair.
func PairAttributes(learnerID, courseID string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(DefaultDBAttributes)+2)
	attrs = append(attrs, DefaultDBAttributes...)
	return append(attrs,
		attribute.String("learner_id", learnerID),
		attribute.String("course_id", courseID),
	)
}

// NoOpTracer is used where no tracer provider is configured, and in tests.
func NoOpTracer() trace.Tracer { return noop.NewTracerProvider().Tracer("noop") }
