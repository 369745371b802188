package reqctx

import (
	"context"
	"errors"
	"log/slog"
	"testing"
)

func TestRequestMetadata(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if TraceID(ctx) != "" || RequestID(ctx) != "" {
		t.Fatal("empty context should carry no ids")
	}

	ctx = WithTraceID(ctx, "trace-1")
	ctx = WithRequestID(ctx, "req-1")
	if got := TraceID(ctx); got != "trace-1" {
		t.Errorf("TraceID() = %q, want %q", got, "trace-1")
	}
	if got := RequestID(ctx); got != "req-1" {
		t.Errorf("RequestID() = %q, want %q", got, "req-1")
	}
}

func TestEnsureRequestID(t *testing.T) {
	t.Parallel()

	ctx := EnsureRequestID(context.Background())
	id := RequestID(ctx)
	if id == "" {
		t.Fatal("EnsureRequestID() did not set a request id")
	}
	if again := RequestID(EnsureRequestID(ctx)); again != id {
		t.Errorf("EnsureRequestID() replaced existing id %q with %q", id, again)
	}
}

func TestWrapErr(t *testing.T) {
	t.Parallel()

	ctx := WithRequestID(WithTraceID(context.Background(), "trace-wrap"), "req-wrap")
	cause := errors.New("connection refused")

	err := WrapErr(ctx, cause, "upsert failed").Tag(slog.String("collection", "product_1"))

	if err.Error() != "upsert failed: connection refused" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is() = false, want true for cause")
	}
	if err.TraceID() != "trace-wrap" || err.RequestID() != "req-wrap" {
		t.Errorf("ids = (%q, %q), want (trace-wrap, req-wrap)", err.TraceID(), err.RequestID())
	}

	attrs := err.LogAttrs()
	keys := make(map[string]bool, len(attrs))
	for _, a := range attrs {
		keys[a.Key] = true
	}
	for _, want := range []string{"error", "trace_id", "request_id", "collection"} {
		if !keys[want] {
			t.Errorf("LogAttrs() missing %q", want)
		}
	}
}

func TestNewErr(t *testing.T) {
	t.Parallel()

	err := NewErr(context.Background(), "k must be positive")
	if err.Error() != "k must be positive" {
		t.Errorf("Error() = %q", err.Error())
	}
	if errors.Unwrap(err) != nil {
		t.Error("Unwrap() should be nil for NewErr")
	}
	if len(err.LogAttrs()) != 0 {
		t.Errorf("LogAttrs() = %v, want empty", err.LogAttrs())
	}
}
