package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/typewire-dev/typewire/pkg/protocol"
)

// DefaultTracerName is the tracer name used by Tracer.
const DefaultTracerName = "typewire"

// Attribute keys set on frame spans.
const (
	AttrKind          = attribute.Key("typewire.kind")
	AttrParticipantID = attribute.Key("typewire.participant_id")
)

// Tracer returns a tracer from the global OpenTelemetry provider.
// An empty name selects DefaultTracerName.
//
// Configure the provider in main() before starting a relay or client:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
//
// With no provider configured, spans are no-ops.
func Tracer(name string) trace.Tracer {
	if name == "" {
		name = DefaultTracerName
	}
	return otel.Tracer(name)
}

// StartSpan starts a span for handling one frame event. A nil tracer or
// event is allowed. The caller must finish the span with EndSpan.
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, ev protocol.Event) (context.Context, trace.Span) {
	if tracer == nil {
		tracer = Tracer("")
	}

	return tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(eventAttributes(ev)...),
	)
}

// Annotate adds the kind and participant attributes of ev to span. It is
// for spans started before the event was known.
func Annotate(span trace.Span, ev protocol.Event) {
	if attrs := eventAttributes(ev); len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
}

func eventAttributes(ev protocol.Event) []attribute.KeyValue {
	if ev == nil {
		return nil
	}
	attrs := []attribute.KeyValue{AttrKind.String(ev.Tag().String())}
	if a, ok := ev.(protocol.Addressed); ok {
		attrs = append(attrs, AttrParticipantID.Int64(int64(a.Participant())))
	}
	return attrs
}

// EndSpan records err on the span, sets its status and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
