package util

import (
	"context"
	"time"
)

type contextKey int

const (
	requestIDKey contextKey = iota
	traceIDKey
	spanIDKey
	startTimeKey
	serverIDKey
)

func stringValue(ctx context.Context, key contextKey) string {
	s, _ := ctx.Value(key).(string)
	return s
}

// ContextWithRequestID returns a copy of ctx carrying the request id.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request id, or "".
func RequestIDFromContext(ctx context.Context) string { return stringValue(ctx, requestIDKey) }

// ContextWithTraceID returns a copy of ctx carrying the trace id.
func ContextWithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey, id)
}

// TraceIDFromContext returns the trace id, or "".
func TraceIDFromContext(ctx context.Context) string { return stringValue(ctx, traceIDKey) }

// ContextWithSpanID returns a copy of ctx carrying the span id.
func ContextWithSpanID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, spanIDKey, id)
}

// SpanIDFromContext returns the span id, or "".
func SpanIDFromContext(ctx context.Context) string { return stringValue(ctx, spanIDKey) }

// ContextWithServerID records the id of the server that received the request.
func ContextWithServerID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, serverIDKey, id)
}

// ServerIDFromContext returns the receiving server id, or "".
func ServerIDFromContext(ctx context.Context) string { return stringValue(ctx, serverIDKey) }

// ContextWithStartTime records when handling of the request began.
func ContextWithStartTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, startTimeKey, t)
}

// StartTimeFromContext returns the recorded start time, or the zero time.
func StartTimeFromContext(ctx context.Context) time.Time {
	t, _ := ctx.Value(startTimeKey).(time.Time)
	return t
}
