// Package observability provides metrics, tracing and health checks for the
// review assistant. Metrics are exported through Prometheus, traces through
// OpenTelemetry OTLP; no-op and in-memory providers exist for tests.
package observability

import (
	"context"
	"time"
)

// MetricsProvider defines the interface for collecting and exposing metrics.
//   - Counter: a value that only goes up (documents indexed, failures)
//   - Gauge: a value that can go up or down (live collections)
//   - Histogram: a distribution of values (latencies, hit counts)
type MetricsProvider interface {
	// Counter increments a counter metric by the given value.
	Counter(ctx context.Context, name string, value int64, labels map[string]string)

	// Gauge adds value to a gauge metric. Pass negative values to decrease.
	Gauge(ctx context.Context, name string, value float64, labels map[string]string)

	// Histogram records a value in a histogram metric.
	Histogram(ctx context.Context, name string, value float64, labels map[string]string)

	// RecordDuration records a duration in seconds as a histogram observation.
	RecordDuration(ctx context.Context, name string, duration time.Duration, labels map[string]string)
}

// TracerProvider defines the interface for distributed tracing.
//
// Implementations:
//   - OTLPTracerProvider: exports traces via OTLP to Jaeger, Tempo, etc.
//   - InMemoryTracerProvider: stores spans in memory (for testing)
//   - NoopTracerProvider: does nothing
//
// Example:
//
//	ctx, span := provider.StartSpan(ctx, "retrieval.search")
//	defer span.End(nil)
//	span.SetAttribute("product_id", productID)
type TracerProvider interface {
	StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, Span)

	// Shutdown flushes pending spans and releases resources.
	Shutdown(ctx context.Context) error
}

// Span represents a single operation within a trace. End must be called
// exactly once, typically with defer.
type Span interface {
	// End ends the span; a non-nil err marks it failed.
	End(err error)
	SetAttribute(key string, value any)
	AddEvent(name string, attrs map[string]any)
	SetStatus(code SpanStatus, description string)
	SpanContext() SpanContext
}

// SpanContext contains identifying trace information about a span.
type SpanContext struct {
	TraceID string
	SpanID  string
}

// SpanStatus represents the status of a span
type SpanStatus int

const (
	SpanStatusUnset SpanStatus = iota
	SpanStatusOK
	SpanStatusError
)

// SpanOption configures span creation
type SpanOption func(*spanConfig)

type spanConfig struct {
	kind       SpanKind
	attributes map[string]any
}

// SpanKind describes the relationship between the Span, its parents, and its children
type SpanKind int

const (
	SpanKindInternal SpanKind = iota
	SpanKindServer
	SpanKindClient
)

// WithSpanKind sets the kind of span
func WithSpanKind(kind SpanKind) SpanOption {
	return func(cfg *spanConfig) {
		cfg.kind = kind
	}
}

// WithAttributes sets initial attributes on the span
func WithAttributes(attrs map[string]any) SpanOption {
	return func(cfg *spanConfig) {
		cfg.attributes = attrs
	}
}

func newSpanConfig(opts []SpanOption) *spanConfig {
	cfg := &spanConfig{
		kind:       SpanKindInternal,
		attributes: make(map[string]any),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// HealthChecker verifies that one dependency (vector store, embedding API)
// is reachable.
type HealthChecker interface {
	// Name appears in the health report, e.g. "qdrant", "openai".
	Name() string

	// Check returns nil when healthy. It must respect ctx.Done().
	Check(ctx context.Context) error

	// Timeout bounds the check; zero means the registry default.
	Timeout() time.Duration
}

// HealthStatus represents the overall health status of the system.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheckResult represents the result of a single health check.
type HealthCheckResult struct {
	Name    string        `json:"name"`
	Status  string        `json:"status"`          // "ok" or "error"
	Error   string        `json:"error,omitempty"` // set when status is "error"
	Latency time.Duration `json:"latency"`
}

// HealthReport represents the complete health report.
type HealthReport struct {
	Status    HealthStatus                 `json:"status"`
	Checks    map[string]HealthCheckResult `json:"checks"`
	Uptime    time.Duration                `json:"uptime"`
	Timestamp time.Time                    `json:"timestamp"`
}
