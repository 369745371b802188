package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/calque-ai/reviewchat/pkg/reqctx"
)

// OTLPTracerProvider exports spans to an OpenTelemetry collector. Every span
// it starts puts its trace id on the returned context, so log lines written
// under the span carry it.
type OTLPTracerProvider struct {
	sdk    *sdktrace.TracerProvider
	tracer trace.Tracer
}

// otlpSettings is what the OTLPOptions assemble.
type otlpSettings struct {
	service  string
	version  string
	endpoint string // host:port; 4317 for gRPC, 4318 for HTTP
	http     bool
	tls      bool
	sample   float64
	flush    time.Duration
}

// OTLPOption configures NewOTLPTracerProvider.
type OTLPOption func(*otlpSettings)

// WithServiceVersion sets the service.version resource attribute.
func WithServiceVersion(version string) OTLPOption {
	return func(s *otlpSettings) { s.version = version }
}

// WithHTTPExporter sends spans over OTLP/HTTP instead of gRPC.
func WithHTTPExporter() OTLPOption {
	return func(s *otlpSettings) { s.http = true }
}

// WithSecure dials the collector over TLS.
func WithSecure() OTLPOption {
	return func(s *otlpSettings) { s.tls = true }
}

// WithSampleRate sets the fraction of root traces recorded, in [0, 1].
func WithSampleRate(rate float64) OTLPOption {
	return func(s *otlpSettings) { s.sample = rate }
}

// NewOTLPTracerProvider connects to the collector at endpoint and registers
// the provider globally with W3C trace-context propagation. Shutdown flushes
// pending spans.
//
// Example:
//
//	provider, err := observability.NewOTLPTracerProvider(ctx, "reviewchat", "localhost:4317",
//	    observability.WithSampleRate(0.25))
//	if err != nil {
//	    return err
//	}
//	defer provider.Shutdown(context.Background())
func NewOTLPTracerProvider(ctx context.Context, serviceName, endpoint string, opts ...OTLPOption) (*OTLPTracerProvider, error) {
	settings := otlpSettings{
		service:  serviceName,
		version:  "dev",
		endpoint: endpoint,
		sample:   1,
		flush:    5 * time.Second,
	}
	for _, opt := range opts {
		opt(&settings)
	}

	exporter, err := otlptrace.New(ctx, settings.client())
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter for %s: %w", endpoint, err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(settings.service),
		semconv.ServiceVersion(settings.version),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to build trace resource: %w", err)
	}

	sdk := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(settings.flush)),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(samplerFor(settings.sample))),
	)
	otel.SetTracerProvider(sdk)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return &OTLPTracerProvider{sdk: sdk, tracer: sdk.Tracer(settings.service)}, nil
}

func (s otlpSettings) client() otlptrace.Client {
	if s.http {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(s.endpoint)}
		if !s.tls {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.NewClient(opts...)
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(s.endpoint)}
	if !s.tls {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	return otlptracegrpc.NewClient(opts...)
}

func samplerFor(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	}
	return sdktrace.TraceIDRatioBased(rate)
}

var otelKinds = map[SpanKind]trace.SpanKind{
	SpanKindInternal: trace.SpanKindInternal,
	SpanKindServer:   trace.SpanKindServer,
	SpanKindClient:   trace.SpanKindClient,
}

func (p *OTLPTracerProvider) StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, Span) {
	cfg := newSpanConfig(opts)

	attrs := make([]attribute.KeyValue, 0, len(cfg.attributes))
	for k, v := range cfg.attributes {
		attrs = append(attrs, toAttribute(k, v))
	}
	ctx, span := p.tracer.Start(ctx, name, trace.WithSpanKind(otelKinds[cfg.kind]), trace.WithAttributes(attrs...))

	if sc := span.SpanContext(); sc.HasTraceID() {
		ctx = reqctx.WithTraceID(ctx, sc.TraceID().String())
	}
	return ctx, &otelSpan{span: span}
}

func (p *OTLPTracerProvider) Shutdown(ctx context.Context) error {
	return p.sdk.Shutdown(ctx)
}

type otelSpan struct {
	span trace.Span
}

func (s *otelSpan) End(err error) {
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}
	s.span.End()
}

func (s *otelSpan) SetAttribute(key string, value any) {
	s.span.SetAttributes(toAttribute(key, value))
}

func (s *otelSpan) AddEvent(name string, attrs map[string]any) {
	kv := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		kv = append(kv, toAttribute(k, v))
	}
	s.span.AddEvent(name, trace.WithAttributes(kv...))
}

var otelCodes = map[SpanStatus]codes.Code{
	SpanStatusUnset: codes.Unset,
	SpanStatusOK:    codes.Ok,
	SpanStatusError: codes.Error,
}

func (s *otelSpan) SetStatus(code SpanStatus, description string) {
	s.span.SetStatus(otelCodes[code], description)
}

func (s *otelSpan) SpanContext() SpanContext {
	sc := s.span.SpanContext()
	return SpanContext{TraceID: sc.TraceID().String(), SpanID: sc.SpanID().String()}
}

// toAttribute maps the value types used by the retrieval pipeline; anything
// else is formatted with %v.
func toAttribute(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case []string:
		return attribute.StringSlice(key, v)
	case time.Duration:
		return attribute.String(key, v.String())
	case fmt.Stringer:
		return attribute.String(key, v.String())
	}
	return attribute.String(key, fmt.Sprintf("%v", value))
}
