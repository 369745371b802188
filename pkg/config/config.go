// Package config loads reviewchat settings from a YAML file, an optional
// .env file and REVIEWCHAT_* environment overrides, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"

	"github.com/calque-ai/reviewchat/pkg/helpers"
	"github.com/calque-ai/reviewchat/pkg/retrieval"
)

// Provider names.
const (
	ProviderHash   = "hash"
	ProviderMock   = "mock"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"

	StoreMemory   = "memory"
	StoreQdrant   = "qdrant"
	StorePGVector = "pgvector"
	StoreWeaviate = "weaviate"

	CacheNone   = "none"
	CacheMemory = "memory"
	CacheBadger = "badger"
)

// Config is the root configuration.
type Config struct {
	Log           LogConfig           `yaml:"log"`
	Encoder       EncoderConfig       `yaml:"encoder"`
	Generator     GeneratorConfig     `yaml:"generator"`
	Store         StoreConfig         `yaml:"store"`
	Cache         CacheConfig         `yaml:"cache"`
	Policy        retrieval.Policy    `yaml:"policy"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// LogConfig selects the logger backend (zerolog, slog, standard) and level.
type LogConfig struct {
	Backend string `yaml:"backend"`
	Level   string `yaml:"level"`
}

// EncoderConfig selects the embedding provider. Dimension is required by
// the hash encoder and by stores that size their collections up front.
type EncoderConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
	BaseURL   string `yaml:"base_url"`
}

// GeneratorConfig selects the chat provider. Temperature and MaxTokens
// apply to answers; SummaryMaxTokens to summaries.
type GeneratorConfig struct {
	Provider         string  `yaml:"provider"`
	Model            string  `yaml:"model"`
	BaseURL          string  `yaml:"base_url"`
	Temperature      float64 `yaml:"temperature"`
	MaxTokens        int     `yaml:"max_tokens"`
	SummaryMaxTokens int     `yaml:"summary_max_tokens"`
}

// StoreConfig selects the vector index backend.
type StoreConfig struct {
	Backend     string `yaml:"backend"`
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	TablePrefix string `yaml:"table_prefix"`
}

// CacheConfig configures the embedding cache.
type CacheConfig struct {
	Backend string        `yaml:"backend"`
	Path    string        `yaml:"path"`
	TTL     time.Duration `yaml:"ttl"`
}

// ObservabilityConfig configures metrics and tracing. Empty addresses
// disable the corresponding feature. OTLPEndpoint is host:port.
type ObservabilityConfig struct {
	MetricsAddr  string  `yaml:"metrics_addr"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	OTLPProtocol string  `yaml:"otlp_protocol"`
	OTLPSecure   bool    `yaml:"otlp_secure"`
	ServiceName  string  `yaml:"service_name"`
	SampleRate   float64 `yaml:"sample_rate"`
}

// Default returns a configuration that runs fully in-process: hash encoder,
// mock generator and memory store.
func Default() *Config {
	return &Config{
		Log: LogConfig{Backend: "zerolog", Level: "info"},
		Encoder: EncoderConfig{
			Provider:  ProviderHash,
			Dimension: 256,
		},
		Generator: GeneratorConfig{
			Provider:         ProviderMock,
			Temperature:      0.7,
			MaxTokens:        1000,
			SummaryMaxTokens: 1500,
		},
		Store:  StoreConfig{Backend: StoreMemory},
		Cache:  CacheConfig{Backend: CacheNone, TTL: 24 * time.Hour},
		Policy: retrieval.DefaultPolicy(),
		Observability: ObservabilityConfig{
			OTLPProtocol: "grpc",
			ServiceName:  "reviewchat",
			SampleRate:   1,
		},
	}
}

// Load reads path on top of Default, then applies environment overrides.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	cfg.ApplyEnv()
	cfg.Policy = cfg.Policy.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnv loads KEY=VALUE pairs from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadEnv(files ...string) error {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env files: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from REVIEWCHAT_* variables.
func (c *Config) ApplyEnv() {
	c.Log.Backend = helpers.GetStringFromEnv("REVIEWCHAT_LOG_BACKEND", c.Log.Backend)
	c.Log.Level = helpers.GetStringFromEnv("REVIEWCHAT_LOG_LEVEL", c.Log.Level)

	c.Encoder.Provider = helpers.GetStringFromEnv("REVIEWCHAT_ENCODER", c.Encoder.Provider)
	c.Encoder.Model = helpers.GetStringFromEnv("REVIEWCHAT_ENCODER_MODEL", c.Encoder.Model)
	c.Encoder.Dimension = helpers.GetIntFromEnv("REVIEWCHAT_ENCODER_DIMENSION", c.Encoder.Dimension)

	c.Generator.Provider = helpers.GetStringFromEnv("REVIEWCHAT_GENERATOR", c.Generator.Provider)
	c.Generator.Model = helpers.GetStringFromEnv("REVIEWCHAT_GENERATOR_MODEL", c.Generator.Model)
	c.Generator.Temperature = helpers.GetFloatFromEnv("REVIEWCHAT_TEMPERATURE", c.Generator.Temperature)

	c.Store.Backend = helpers.GetStringFromEnv("REVIEWCHAT_STORE", c.Store.Backend)
	c.Store.URL = helpers.GetStringFromEnv("REVIEWCHAT_STORE_URL", c.Store.URL)
	c.Store.APIKey = helpers.GetStringFromEnv("REVIEWCHAT_STORE_API_KEY", c.Store.APIKey)

	c.Cache.Backend = helpers.GetStringFromEnv("REVIEWCHAT_CACHE", c.Cache.Backend)
	c.Cache.Path = helpers.GetStringFromEnv("REVIEWCHAT_CACHE_PATH", c.Cache.Path)
	c.Cache.TTL = helpers.GetDurationFromEnv("REVIEWCHAT_CACHE_TTL", c.Cache.TTL)

	c.Policy.TopK = helpers.GetIntFromEnv("REVIEWCHAT_TOP_K", c.Policy.TopK)
	c.Policy.HistoryWindow = helpers.GetIntFromEnv("REVIEWCHAT_HISTORY_WINDOW", c.Policy.HistoryWindow)
	c.Policy.ReviewCap = helpers.GetIntFromEnv("REVIEWCHAT_REVIEW_CAP", c.Policy.ReviewCap)

	c.Observability.MetricsAddr = helpers.GetStringFromEnv("REVIEWCHAT_METRICS_ADDR", c.Observability.MetricsAddr)
	c.Observability.OTLPEndpoint = helpers.GetStringFromEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.Observability.OTLPEndpoint)
	c.Observability.OTLPSecure = helpers.GetBoolFromEnv("REVIEWCHAT_OTLP_SECURE", c.Observability.OTLPSecure)
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	check := func(field, value string, allowed ...string) {
		if !slices.Contains(allowed, value) {
			errs = append(errs, fmt.Errorf("%s: %q is not one of %s", field, value, strings.Join(allowed, ", ")))
		}
	}

	check("log.backend", c.Log.Backend, "zerolog", "slog", "standard")
	check("encoder.provider", c.Encoder.Provider, ProviderHash, ProviderOpenAI, ProviderOllama, ProviderGemini)
	check("generator.provider", c.Generator.Provider, ProviderMock, ProviderOpenAI, ProviderOllama, ProviderGemini)
	check("store.backend", c.Store.Backend, StoreMemory, StoreQdrant, StorePGVector, StoreWeaviate)
	check("cache.backend", c.Cache.Backend, CacheNone, CacheMemory, CacheBadger)
	check("observability.otlp_protocol", c.Observability.OTLPProtocol, "grpc", "http")

	if c.Store.Backend != StoreMemory && c.Store.URL == "" {
		errs = append(errs, fmt.Errorf("store.url is required for backend %q", c.Store.Backend))
	}
	needsDimension := c.Encoder.Provider == ProviderHash || c.Store.Backend == StoreQdrant || c.Store.Backend == StorePGVector
	if needsDimension && c.Encoder.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("encoder.dimension must be positive for encoder %q with store %q", c.Encoder.Provider, c.Store.Backend))
	}
	if c.Generator.Temperature < 0 || c.Generator.Temperature > 2 {
		errs = append(errs, fmt.Errorf("generator.temperature %v is outside [0, 2]", c.Generator.Temperature))
	}
	if c.Observability.SampleRate < 0 || c.Observability.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("observability.sample_rate %v is outside [0, 1]", c.Observability.SampleRate))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
