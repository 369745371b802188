package reqctx

import (
	"context"
	"fmt"
	"log/slog"
)

// Error is a context-aware error that carries request metadata for logging.
//
// It supports errors.Is / errors.As through Unwrap. Trace and request IDs are
// captured from the context at construction time.
//
// Example:
//
//	err := reqctx.WrapErr(ctx, storeErr, "upsert failed").
//	    Tag(slog.String("collection", name))
type Error struct {
	msg       string
	cause     error
	traceID   string
	requestID string
	attrs     []slog.Attr
}

// WrapErr wraps err with the message and the trace/request IDs found in ctx.
func WrapErr(ctx context.Context, err error, msg string) *Error {
	return &Error{
		msg:       msg,
		cause:     err,
		traceID:   TraceID(ctx),
		requestID: RequestID(ctx),
	}
}

// NewErr creates an error without an underlying cause.
func NewErr(ctx context.Context, msg string) *Error {
	return WrapErr(ctx, nil, msg)
}

// Tag adds a slog.Attr to the error and returns it for chaining.
func (e *Error) Tag(attr slog.Attr) *Error {
	e.attrs = append(e.attrs, attr)
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Message returns the error message without the cause.
func (e *Error) Message() string {
	return e.msg
}

// TraceID returns the trace ID captured when the error was created.
func (e *Error) TraceID() string {
	return e.traceID
}

// RequestID returns the request ID captured when the error was created.
func (e *Error) RequestID() string {
	return e.requestID
}

// LogAttrs returns the cause, trace_id, request_id and custom tags as attributes.
func (e *Error) LogAttrs() []slog.Attr {
	attrs := make([]slog.Attr, 0, len(e.attrs)+3)
	if e.cause != nil {
		attrs = append(attrs, slog.Any("error", e.cause))
	}
	if e.traceID != "" {
		attrs = append(attrs, slog.String("trace_id", e.traceID))
	}
	if e.requestID != "" {
		attrs = append(attrs, slog.String("request_id", e.requestID))
	}
	return append(attrs, e.attrs...)
}
