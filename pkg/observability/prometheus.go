package observability

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusProvider implements MetricsProvider on a private Prometheus
// registry. Vectors are registered on first use and their label names are
// fixed by that first observation.
//
//	# TYPE reviewchat_index_failures_total counter
//	reviewchat_index_failures_total{stage="encode"} 2
type PrometheusProvider struct {
	registry *prometheus.Registry
	buckets  []float64

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

// PrometheusOption configures NewPrometheusProvider.
type PrometheusOption func(*PrometheusProvider)

// WithDurationBuckets replaces the histogram buckets, in seconds.
func WithDurationBuckets(buckets []float64) PrometheusOption {
	return func(p *PrometheusProvider) { p.buckets = buckets }
}

// NewPrometheusProvider creates a provider whose registry also carries the
// Go runtime and process collectors.
//
// Example:
//
//	metrics := observability.NewPrometheusProvider(
//	    observability.WithDurationBuckets([]float64{0.05, 0.25, 1, 5, 30}),
//	)
//	mux.Handle("GET /metrics", metrics.Handler())
func NewPrometheusProvider(opts ...PrometheusOption) *PrometheusProvider {
	p := &PrometheusProvider{
		registry:   prometheus.NewRegistry(),
		buckets:    prometheus.ExponentialBuckets(0.001, 2.5, 12),
		counters:   map[string]*prometheus.CounterVec{},
		gauges:     map[string]*prometheus.GaugeVec{},
		histograms: map[string]*prometheus.HistogramVec{},
	}
	for _, opt := range opts {
		opt(p)
	}

	p.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

func (p *PrometheusProvider) Counter(_ context.Context, name string, value int64, labels map[string]string) {
	vec := lazyVec(p, p.counters, name, func() *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: "Total " + name}, labelNamesFromMap(labels))
	})
	vec.With(labels).Add(float64(value))
}

func (p *PrometheusProvider) Gauge(_ context.Context, name string, value float64, labels map[string]string) {
	vec := lazyVec(p, p.gauges, name, func() *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: "Current " + name}, labelNamesFromMap(labels))
	})
	vec.With(labels).Add(value)
}

func (p *PrometheusProvider) Histogram(_ context.Context, name string, value float64, labels map[string]string) {
	vec := lazyVec(p, p.histograms, name, func() *prometheus.HistogramVec {
		return prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    name,
			Help:    "Distribution of " + name,
			Buckets: p.buckets,
		}, labelNamesFromMap(labels))
	})
	vec.With(labels).Observe(value)
}

func (p *PrometheusProvider) RecordDuration(ctx context.Context, name string, duration time.Duration, labels map[string]string) {
	p.Histogram(ctx, name, duration.Seconds(), labels)
}

// Handler serves the registry in the OpenMetrics text format.
func (p *PrometheusProvider) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// lazyVec returns the vector registered under name, creating and
// registering it with build on first use.
func lazyVec[V prometheus.Collector](p *PrometheusProvider, vecs map[string]V, name string, build func() V) V {
	p.mu.Lock()
	defer p.mu.Unlock()

	if vec, ok := vecs[name]; ok {
		return vec
	}
	vec := build()
	p.registry.MustRegister(vec)
	vecs[name] = vec
	return vec
}

func labelNamesFromMap(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}
