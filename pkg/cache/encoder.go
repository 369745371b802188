package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/calque-ai/reviewchat/pkg/logger"
	"github.com/calque-ai/reviewchat/pkg/observability"
	"github.com/calque-ai/reviewchat/pkg/retrieval"
)

// Metric names recorded by CachedEncoder.
const (
	MetricCacheHits   = "reviewchat_embedding_cache_hits_total"
	MetricCacheMisses = "reviewchat_embedding_cache_misses_total"
)

const keyPrefix = "emb:"

// CachedEncoder wraps an encoder with a Store. Cache failures are logged
// and fall through to the wrapped encoder.
//
// Example:
//
//	store, _ := cache.NewBadgerStore("/var/lib/reviewchat/cache")
//	enc := cache.NewCachedEncoder(openaiClient, store, "text-embedding-3-small", 24*time.Hour)
//	svc := retrieval.NewService(index, enc)
type CachedEncoder struct {
	inner   retrieval.Encoder
	store   Store
	model   string
	ttl     time.Duration
	logger  *logger.Logger
	metrics observability.MetricsProvider
}

var _ retrieval.BatchEncoder = (*CachedEncoder)(nil)

// EncoderOption configures a CachedEncoder.
type EncoderOption func(*CachedEncoder)

// WithLogger sets the logger for cache failures.
func WithLogger(l *logger.Logger) EncoderOption {
	return func(c *CachedEncoder) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics sets the provider for hit and miss counters.
func WithMetrics(m observability.MetricsProvider) EncoderOption {
	return func(c *CachedEncoder) {
		if m != nil {
			c.metrics = m
		}
	}
}

// NewCachedEncoder caches vectors of inner under keys derived from model and
// text, so switching models never serves stale vectors.
func NewCachedEncoder(inner retrieval.Encoder, store Store, model string, ttl time.Duration, opts ...EncoderOption) *CachedEncoder {
	c := &CachedEncoder{
		inner:   inner,
		store:   store,
		model:   model,
		ttl:     ttl,
		logger:  logger.Nop(),
		metrics: observability.NoopMetricsProvider{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the cache key of text for this encoder's model.
func (c *CachedEncoder) Key(text string) string {
	sum := sha256.Sum256([]byte(c.model + "\x00" + text))
	return keyPrefix + hex.EncodeToString(sum[:])
}

func (c *CachedEncoder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.lookup(ctx, text); ok {
		return v, nil
	}
	v, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.save(ctx, text, v)
	return v, nil
}

// EmbedBatch serves hits from the store and sends only misses to the
// wrapped encoder, in one batch when it supports batching.
func (c *CachedEncoder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, t := range texts {
		if v, ok := c.lookup(ctx, t); ok {
			out[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	var vectors [][]float32
	if batch, ok := c.inner.(retrieval.BatchEncoder); ok {
		var err error
		if vectors, err = batch.EmbedBatch(ctx, missTexts); err != nil {
			return nil, err
		}
		if len(vectors) != len(missTexts) {
			return nil, fmt.Errorf("%w: got %d vectors for %d texts", retrieval.ErrEncoding, len(vectors), len(missTexts))
		}
	} else {
		vectors = make([][]float32, len(missTexts))
		for i, t := range missTexts {
			v, err := c.inner.Embed(ctx, t)
			if err != nil {
				return nil, err
			}
			vectors[i] = v
		}
	}

	for j, i := range missIdx {
		out[i] = vectors[j]
		c.save(ctx, missTexts[j], vectors[j])
	}
	return out, nil
}

func (c *CachedEncoder) lookup(ctx context.Context, text string) ([]float32, bool) {
	data, err := c.store.Get(c.Key(text))
	if err != nil {
		c.logger.Err(ctx, logger.WarnLevel, "embedding cache read failed", err)
	}
	v, ok := decodeVector(data)
	if !ok {
		c.metrics.Counter(ctx, MetricCacheMisses, 1, nil)
		return nil, false
	}
	c.metrics.Counter(ctx, MetricCacheHits, 1, nil)
	return v, true
}

func (c *CachedEncoder) save(ctx context.Context, text string, v []float32) {
	if err := c.store.Set(c.Key(text), encodeVector(v), c.ttl); err != nil {
		c.logger.Err(ctx, logger.WarnLevel, "embedding cache write failed", err)
	}
}

// encodeVector lays out v as little-endian float32s.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte) ([]float32, bool) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, false
	}
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return v, true
}
