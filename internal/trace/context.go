package trace

import "context"

type ctxKey uint8

const (
	tracerKey ctxKey = iota
	spanKey
)

// WithTracer returns ctx carrying t; a nil t is stored as Nop.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, tracerKey, t)
}

// FromContext returns the tracer in ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	if ctx != nil {
		if t, ok := ctx.Value(tracerKey).(Tracer); ok {
			return t
		}
	}
	return Nop
}

// WithSpan makes span the parent of spans begun below ctx.
func WithSpan(ctx context.Context, span *Span) context.Context {
	return context.WithValue(ctx, spanKey, span.ID())
}

// CurrentSpan returns the parent span id stored in ctx, or 0.
func CurrentSpan(ctx context.Context) uint64 {
	if ctx == nil {
		return 0
	}
	id, _ := ctx.Value(spanKey).(uint64)
	return id
}
