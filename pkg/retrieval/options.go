package retrieval

import (
	"github.com/calque-ai/reviewchat/pkg/logger"
	"github.com/calque-ai/reviewchat/pkg/observability"
)

// Metric names recorded by the pipeline.
const (
	MetricDocumentsIndexed   = "reviewchat_documents_indexed_total"
	MetricDocumentsPruned    = "reviewchat_documents_pruned_total"
	MetricIndexFailures      = "reviewchat_index_failures_total"
	MetricIndexDuration      = "reviewchat_index_duration_seconds"
	MetricSearchHits         = "reviewchat_search_hits_total"
	MetricSearchFailures     = "reviewchat_search_failures_total"
	MetricSearchDuration     = "reviewchat_search_duration_seconds"
	MetricCollectionsCreated = "reviewchat_collections_created_total"
	MetricCollectionsDropped = "reviewchat_collections_dropped_total"
	MetricCollectionsActive  = "reviewchat_collections_active"
)

// Failure stages, used as the "stage" label of failure counters.
const (
	StageArgument = "argument"
	StageEncode   = "encode"
	StageStore    = "store"
)

type options struct {
	logger  *logger.Logger
	metrics observability.MetricsProvider
	tracer  observability.TracerProvider
	policy  Policy
}

// Option configures the pipeline components.
type Option func(*options)

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics sets the metrics provider. Defaults to a no-op provider.
func WithMetrics(m observability.MetricsProvider) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithTracer sets the tracer provider. Defaults to a no-op provider.
func WithTracer(t observability.TracerProvider) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithPolicy overrides the pipeline bounds; unset fields keep their
// defaults (see Policy.WithDefaults).
func WithPolicy(p Policy) Option {
	return func(o *options) {
		o.policy = p.WithDefaults()
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:  logger.Nop(),
		metrics: observability.NoopMetricsProvider{},
		tracer:  observability.NoopTracerProvider{},
		policy:  DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func stageLabel(stage string) map[string]string {
	return map[string]string{"stage": stage}
}
