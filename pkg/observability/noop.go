package observability

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/calque-ai/reviewchat/pkg/reqctx"
)

// NoopMetricsProvider discards every metric.
type NoopMetricsProvider struct{}

func (NoopMetricsProvider) Counter(context.Context, string, int64, map[string]string)                {}
func (NoopMetricsProvider) Gauge(context.Context, string, float64, map[string]string)                {}
func (NoopMetricsProvider) Histogram(context.Context, string, float64, map[string]string)            {}
func (NoopMetricsProvider) RecordDuration(context.Context, string, time.Duration, map[string]string) {}

// NoopTracerProvider starts spans that record nothing.
type NoopTracerProvider struct{}

func (NoopTracerProvider) StartSpan(ctx context.Context, _ string, _ ...SpanOption) (context.Context, Span) {
	return ctx, noopSpan{}
}

func (NoopTracerProvider) Shutdown(context.Context) error {
	return nil
}

type noopSpan struct{}

func (noopSpan) End(error)                       {}
func (noopSpan) SetAttribute(string, any)        {}
func (noopSpan) AddEvent(string, map[string]any) {}
func (noopSpan) SetStatus(SpanStatus, string)    {}
func (noopSpan) SpanContext() SpanContext        { return SpanContext{} }

// InMemoryMetricsProvider stores metrics in memory so tests can assert on them.
//
// Example:
//
//	metrics := observability.NewInMemoryMetricsProvider()
//	svc := retrieval.NewService(index, encoder, retrieval.WithMetrics(metrics))
//	...
//	if got := metrics.GetCounter("reviewchat_search_failures_total", nil); got != 1 {
//	    t.Errorf("search failures = %d, want 1", got)
//	}
type InMemoryMetricsProvider struct {
	mu         sync.RWMutex
	counters   map[string]int64
	gauges     map[string]float64
	histograms map[string][]float64
}

// NewInMemoryMetricsProvider creates a new in-memory metrics provider
func NewInMemoryMetricsProvider() *InMemoryMetricsProvider {
	return &InMemoryMetricsProvider{
		counters:   make(map[string]int64),
		gauges:     make(map[string]float64),
		histograms: make(map[string][]float64),
	}
}

func (p *InMemoryMetricsProvider) Counter(_ context.Context, name string, value int64, labels map[string]string) {
	key := metricsKey(name, labels)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counters[key] += value
}

func (p *InMemoryMetricsProvider) Gauge(_ context.Context, name string, value float64, labels map[string]string) {
	key := metricsKey(name, labels)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gauges[key] += value
}

func (p *InMemoryMetricsProvider) Histogram(_ context.Context, name string, value float64, labels map[string]string) {
	key := metricsKey(name, labels)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.histograms[key] = append(p.histograms[key], value)
}

func (p *InMemoryMetricsProvider) RecordDuration(ctx context.Context, name string, duration time.Duration, labels map[string]string) {
	p.Histogram(ctx, name, duration.Seconds(), labels)
}

// GetCounter returns the current counter value
func (p *InMemoryMetricsProvider) GetCounter(name string, labels map[string]string) int64 {
	key := metricsKey(name, labels)
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.counters[key]
}

// GetGauge returns the current gauge value
func (p *InMemoryMetricsProvider) GetGauge(name string, labels map[string]string) float64 {
	key := metricsKey(name, labels)
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.gauges[key]
}

// GetHistogram returns a copy of all recorded histogram values
func (p *InMemoryMetricsProvider) GetHistogram(name string, labels map[string]string) []float64 {
	key := metricsKey(name, labels)
	p.mu.RLock()
	defer p.mu.RUnlock()
	values := make([]float64, len(p.histograms[key]))
	copy(values, p.histograms[key])
	return values
}

// Reset clears all metrics
func (p *InMemoryMetricsProvider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counters = make(map[string]int64)
	p.gauges = make(map[string]float64)
	p.histograms = make(map[string][]float64)
}

// metricsKey builds a stable key from the metric name and sorted labels.
func metricsKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	var b strings.Builder
	b.WriteString(name)
	for _, k := range labelNamesFromMap(labels) {
		b.WriteString("|" + k + "=" + labels[k])
	}
	return b.String()
}

// InMemoryTracerProvider records ended spans in memory for tests.
type InMemoryTracerProvider struct {
	mu    sync.RWMutex
	spans []*RecordedSpan
	seq   atomic.Uint64
}

// RecordedSpan represents a recorded span for testing
type RecordedSpan struct {
	Name       string
	StartTime  time.Time
	EndTime    time.Time
	Attributes map[string]any
	Events     []RecordedEvent
	Status     SpanStatus
	StatusDesc string
	Error      error
	TraceID    string
	SpanID     string
}

// RecordedEvent represents a recorded span event
type RecordedEvent struct {
	Name       string
	Attributes map[string]any
	Time       time.Time
}

// NewInMemoryTracerProvider creates a new in-memory tracer provider
func NewInMemoryTracerProvider() *InMemoryTracerProvider {
	return &InMemoryTracerProvider{}
}

func (p *InMemoryTracerProvider) StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, Span) {
	cfg := newSpanConfig(opts)
	id := p.seq.Add(1)

	// child spans join the trace already on the context
	traceID := reqctx.TraceID(ctx)
	if traceID == "" {
		traceID = fmt.Sprintf("trace-%d", id)
		ctx = reqctx.WithTraceID(ctx, traceID)
	}

	span := &RecordedSpan{
		Name:       name,
		StartTime:  time.Now(),
		Attributes: make(map[string]any, len(cfg.attributes)),
		TraceID:    traceID,
		SpanID:     fmt.Sprintf("span-%d", id),
	}
	for k, v := range cfg.attributes {
		span.Attributes[k] = v
	}

	return ctx, &inMemorySpan{provider: p, span: span}
}

func (p *InMemoryTracerProvider) Shutdown(context.Context) error {
	return nil
}

// GetSpans returns all ended spans in end order
func (p *InMemoryTracerProvider) GetSpans() []*RecordedSpan {
	p.mu.RLock()
	defer p.mu.RUnlock()
	spans := make([]*RecordedSpan, len(p.spans))
	copy(spans, p.spans)
	return spans
}

// GetSpansByName returns ended spans with the given name
func (p *InMemoryTracerProvider) GetSpansByName(name string) []*RecordedSpan {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var result []*RecordedSpan
	for _, span := range p.spans {
		if span.Name == name {
			result = append(result, span)
		}
	}
	return result
}

func (p *InMemoryTracerProvider) recordSpan(span *RecordedSpan) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.spans = append(p.spans, span)
}

type inMemorySpan struct {
	provider *InMemoryTracerProvider
	mu       sync.Mutex
	span     *RecordedSpan
}

func (s *inMemorySpan) End(err error) {
	s.mu.Lock()
	s.span.EndTime = time.Now()
	s.span.Error = err
	if err != nil && s.span.Status == SpanStatusUnset {
		s.span.Status = SpanStatusError
		s.span.StatusDesc = err.Error()
	}
	s.mu.Unlock()
	s.provider.recordSpan(s.span)
}

func (s *inMemorySpan) SetAttribute(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.span.Attributes[key] = value
}

func (s *inMemorySpan) AddEvent(name string, attrs map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.span.Events = append(s.span.Events, RecordedEvent{Name: name, Attributes: attrs, Time: time.Now()})
}

func (s *inMemorySpan) SetStatus(code SpanStatus, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.span.Status = code
	s.span.StatusDesc = description
}

func (s *inMemorySpan) SpanContext() SpanContext {
	return SpanContext{TraceID: s.span.TraceID, SpanID: s.span.SpanID}
}

