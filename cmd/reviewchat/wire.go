package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/calque-ai/reviewchat/pkg/ai"
	"github.com/calque-ai/reviewchat/pkg/ai/gemini"
	"github.com/calque-ai/reviewchat/pkg/ai/ollama"
	"github.com/calque-ai/reviewchat/pkg/ai/openai"
	"github.com/calque-ai/reviewchat/pkg/assistant"
	"github.com/calque-ai/reviewchat/pkg/cache"
	"github.com/calque-ai/reviewchat/pkg/config"
	"github.com/calque-ai/reviewchat/pkg/helpers"
	"github.com/calque-ai/reviewchat/pkg/logger"
	"github.com/calque-ai/reviewchat/pkg/observability"
	"github.com/calque-ai/reviewchat/pkg/retrieval"
	"github.com/calque-ai/reviewchat/pkg/retrieval/memstore"
	"github.com/calque-ai/reviewchat/pkg/retrieval/pgvector"
	"github.com/calque-ai/reviewchat/pkg/retrieval/qdrant"
	"github.com/calque-ai/reviewchat/pkg/retrieval/weaviate"
)

// app holds the clients built once per process and injected everywhere.
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	metrics   *observability.PrometheusProvider
	tracer    observability.TracerProvider
	health    *observability.HealthCheckRegistry
	svc       *retrieval.Service
	assistant *assistant.Assistant

	// store backs the embedding cache, when enabled, and chat sessions.
	store         cache.Store
	conversations *assistant.Conversations

	closers []func(context.Context) error
}

// generationBuckets stretch to a minute for remote chat completions.
var generationBuckets = []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	log, err := logger.Build(cfg.Log.Backend, cfg.Log.Level, os.Stderr)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		log:     log,
		metrics: observability.NewPrometheusProvider(observability.WithDurationBuckets(generationBuckets)),
		tracer:  observability.NoopTracerProvider{},
		health:  observability.NewHealthCheckRegistry(5 * time.Second),
	}

	if err := a.initTracer(ctx); err != nil {
		return nil, err
	}

	if err := a.initStore(); err != nil {
		a.Close(ctx)
		return nil, err
	}

	index, err := a.buildIndex(ctx)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	encoder, err := a.buildEncoder(ctx)
	if err != nil {
		_ = index.Close()
		a.Close(ctx)
		return nil, err
	}

	generator, err := a.buildGenerator(ctx)
	if err != nil {
		_ = index.Close()
		a.Close(ctx)
		return nil, err
	}

	a.svc = retrieval.NewService(index, encoder,
		retrieval.WithLogger(log),
		retrieval.WithMetrics(a.metrics),
		retrieval.WithTracer(a.tracer),
		retrieval.WithPolicy(cfg.Policy),
	)
	a.closers = append(a.closers, func(context.Context) error { return a.svc.Close() })
	a.health.Register(&observability.FuncHealthCheck{CheckName: "vector_store", CheckFunc: a.svc.Ping})

	a.conversations = assistant.NewConversations(a.store, 2*cfg.Policy.HistoryWindow, cfg.Cache.TTL)
	a.assistant = assistant.New(a.svc, generator,
		assistant.WithLogger(log),
		assistant.WithMetrics(a.metrics),
		assistant.WithTracer(a.tracer),
		assistant.WithChatParams(ai.Params{
			Temperature: helpers.PtrOf(cfg.Generator.Temperature),
			MaxTokens:   helpers.PtrOf(cfg.Generator.MaxTokens),
		}),
		assistant.WithSummaryParams(ai.Params{MaxTokens: helpers.PtrOf(cfg.Generator.SummaryMaxTokens)}),
		assistant.WithConversations(a.conversations),
	)

	log.Debug(ctx, "reviewchat ready",
		logger.Attr("encoder", cfg.Encoder.Provider),
		logger.Attr("generator", cfg.Generator.Provider),
		logger.Attr("store", cfg.Store.Backend),
		logger.Attr("cache", cfg.Cache.Backend))
	return a, nil
}

// Close releases clients in reverse construction order.
func (a *app) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.log.Err(ctx, logger.WarnLevel, "close failed", err)
		}
	}
	a.closers = nil
}

func (a *app) initTracer(ctx context.Context) error {
	obs := a.cfg.Observability
	if obs.OTLPEndpoint == "" {
		return nil
	}

	opts := []observability.OTLPOption{
		observability.WithSampleRate(obs.SampleRate),
		observability.WithServiceVersion(version),
	}
	if obs.OTLPProtocol == "http" {
		opts = append(opts, observability.WithHTTPExporter())
	}
	if obs.OTLPSecure {
		opts = append(opts, observability.WithSecure())
	}
	provider, err := observability.NewOTLPTracerProvider(ctx, obs.ServiceName, obs.OTLPEndpoint, opts...)
	if err != nil {
		return fmt.Errorf("failed to start tracing: %w", err)
	}
	a.tracer = provider
	a.closers = append(a.closers, provider.Shutdown)
	a.health.Register(&observability.TCPHealthCheck{CheckName: "otlp_collector", Addr: obs.OTLPEndpoint})
	return nil
}

func (a *app) buildIndex(ctx context.Context) (retrieval.VectorIndex, error) {
	store := a.cfg.Store
	dim := a.cfg.Encoder.Dimension

	switch store.Backend {
	case config.StoreQdrant:
		return qdrant.New(&qdrant.Config{URL: store.URL, APIKey: store.APIKey, VectorSize: dim})
	case config.StorePGVector:
		return pgvector.New(ctx, &pgvector.Config{
			ConnectionString: store.URL,
			TablePrefix:      store.TablePrefix,
			VectorDimension:  dim,
		})
	case config.StoreWeaviate:
		return weaviate.New(&weaviate.Config{URL: store.URL, APIKey: store.APIKey})
	default:
		return memstore.New(), nil
	}
}

func (a *app) buildEncoder(ctx context.Context) (retrieval.Encoder, error) {
	enc := a.cfg.Encoder

	var encoder retrieval.Encoder
	switch enc.Provider {
	case config.ProviderOpenAI:
		cfg := &openai.Config{BaseURL: enc.BaseURL, EmbeddingModel: enc.Model}
		if enc.Dimension > 0 {
			cfg.Dimensions = helpers.PtrOf(enc.Dimension)
		}
		client, err := openai.New(cfg)
		if err != nil {
			return nil, err
		}
		encoder = client
	case config.ProviderOllama:
		client, err := ollama.New(&ollama.Config{Host: enc.BaseURL, EmbeddingModel: enc.Model})
		if err != nil {
			return nil, err
		}
		a.health.Register(&observability.FuncHealthCheck{CheckName: "ollama", CheckFunc: client.Ping})
		encoder = client
	case config.ProviderGemini:
		cfg := &gemini.Config{EmbeddingModel: enc.Model}
		if enc.Dimension > 0 {
			cfg.Dimensions = helpers.PtrOf(int32(enc.Dimension))
		}
		client, err := gemini.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		encoder = client
	default:
		encoder = ai.NewHashEncoder(enc.Dimension)
	}

	if a.cfg.Cache.Backend == config.CacheNone {
		return encoder, nil
	}
	model := enc.Provider + ":" + helpers.DefaultString(enc.Model, "default")
	return cache.NewCachedEncoder(encoder, a.store, model, a.cfg.Cache.TTL,
		cache.WithLogger(a.log),
		cache.WithMetrics(a.metrics),
	), nil
}

// initStore opens the key-value store. Without a configured cache backend
// chat sessions still get an in-memory store.
func (a *app) initStore() error {
	switch a.cfg.Cache.Backend {
	case config.CacheBadger:
		store, err := cache.NewBadgerStore(a.cfg.Cache.Path)
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		a.store = store
	default:
		a.store = cache.NewInMemoryStore(time.Minute)
	}
	a.closers = append(a.closers, func(context.Context) error { return a.store.Close() })
	return nil
}

func (a *app) buildGenerator(ctx context.Context) (ai.Generator, error) {
	gen := a.cfg.Generator

	switch gen.Provider {
	case config.ProviderOpenAI:
		return openai.New(&openai.Config{BaseURL: gen.BaseURL, ChatModel: gen.Model})
	case config.ProviderOllama:
		return ollama.New(&ollama.Config{Host: gen.BaseURL, ChatModel: gen.Model})
	case config.ProviderGemini:
		return gemini.New(ctx, &gemini.Config{ChatModel: gen.Model})
	case config.ProviderMock:
		return ai.NewMockGenerator("This is a canned answer from the mock generator."), nil
	default:
		return nil, errors.New("unknown generator provider " + gen.Provider)
	}
}
