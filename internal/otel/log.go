package otel

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// TraceContextFrom returns trace_id and span_id from the span in ctx, or
// empty strings when no span is recording (the usual case when the --otel
// flag is off). Callers should skip the fields when empty so runtime logs
// stay clean without telemetry.
func TraceContextFrom(ctx context.Context) (traceID, spanID string) {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return "", ""
	}
	return span.SpanContext().TraceID().String(), span.SpanContext().SpanID().String()
}

// LogTraceFields returns a zerolog Func hook that stamps the event with the
// current trace_id and span_id. The interpreter attaches it to agent
// lifecycle logs:
//
//	in.log.Debug().Str("agent", a.ID).Func(otel.LogTraceFields(in.ctx)).Msg("delegation")
func LogTraceFields(ctx context.Context) func(e *zerolog.Event) {
	return func(e *zerolog.Event) {
		traceID, spanID := TraceContextFrom(ctx)
		if traceID != "" {
			e.Str("trace_id", traceID)
		}
		if spanID != "" {
			e.Str("span_id", spanID)
		}
	}
}
