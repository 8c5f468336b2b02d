package emit

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// OTel attaches every Event as a span event on a long-lived tracing span
// covering one Shard's lifetime, rather than opening a span per Event: a
// dataflow can process many thousands of changes, and a span per change
// would overwhelm most backends. Fields are flattened to attribute.KeyValue
// pairs; only string, int, int64, float64, and bool values are supported —
// any other value is rendered with a "%v"-equivalent string fallback.
type OTel struct {
	span trace.Span
}

// NewOTel starts a span named spanName on tracer and returns an OTel
// Emitter that records every subsequent Event onto it. Callers should call
// Flush (which ends the span) when the Shard it observes is discarded.
func NewOTel(ctx context.Context, tracer trace.Tracer, spanName string) *OTel {
	_, span := tracer.Start(ctx, spanName)
	return &OTel{span: span}
}

func (o *OTel) Emit(e Event) {
	attrs := append(
		[]attribute.KeyValue{
			attribute.String("run_id", e.RunID),
			attribute.Int64("step", int64(e.Step)),
			attribute.Int64("node", int64(e.NodeID)),
		},
		toAttributes(e.Fields)...,
	)
	o.span.AddEvent(string(e.Kind), trace.WithAttributes(attrs...))
}

func (o *OTel) EmitBatch(es []Event) {
	for _, e := range es {
		o.Emit(e)
	}
}

// Flush ends the underlying span. An OTel Emitter cannot be reused after
// Flush; construct a new one for a new Shard.
func (o *OTel) Flush() {
	o.span.End()
}

func toAttributes(fields map[string]any) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(fields))
	for k, v := range fields {
		switch val := v.(type) {
		case string:
			out = append(out, attribute.String(k, val))
		case int:
			out = append(out, attribute.Int64(k, int64(val)))
		case int64:
			out = append(out, attribute.Int64(k, val))
		case float64:
			out = append(out, attribute.Float64(k, val))
		case bool:
			out = append(out, attribute.Bool(k, val))
		default:
			out = append(out, attribute.String(k, stringify(val)))
		}
	}
	return out
}

func stringify(v any) string {
	if s, ok := v.(interface{ String() string }); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", v)
}
