// Package reqctx carries request-scoped metadata (trace and request ids)
// through context and attaches it to errors for structured logging.
package reqctx

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey string

const (
	traceIDKey   ctxKey = "reviewchat.trace_id"
	requestIDKey ctxKey = "reviewchat.request_id"
)

// WithTraceID stores a trace ID in the context.
//
// Example:
//
//	ctx = reqctx.WithTraceID(ctx, "abc-123-def-456")
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceID retrieves the trace ID from context, or "" when none is set.
func TraceID(ctx context.Context) string {
	if id, ok := ctx.Value(traceIDKey).(string); ok {
		return id
	}
	return ""
}

// WithRequestID stores a request ID in the context.
//
// Example:
//
//	ctx = reqctx.WithRequestID(ctx, "req-12345")
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID retrieves the request ID from context, or "" when none is set.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// EnsureRequestID returns ctx unchanged when it already carries a request ID,
// otherwise a child context with a fresh random one.
func EnsureRequestID(ctx context.Context) context.Context {
	if RequestID(ctx) != "" {
		return ctx
	}
	return WithRequestID(ctx, uuid.NewString())
}
