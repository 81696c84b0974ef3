package tr

import (
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// End closes span and records the outcome of the operation it guards.
// Deferred with a pointer to a named error return:
//
//	ctx, span := tracer.Start(ctx, "resolve")
//	defer tr.End(span, &err)
func End(span trace.Span, err *error) {
	if err != nil && *err != nil {
		span.RecordError(*err)
		span.SetStatus(codes.Error, (*err).Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
