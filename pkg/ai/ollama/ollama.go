// Package ollama adapts a local Ollama server: /api/embed for
// retrieval.Encoder and /api/chat for ai.Generator.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/calque-ai/reviewchat/pkg/ai"
	"github.com/calque-ai/reviewchat/pkg/helpers"
	"github.com/calque-ai/reviewchat/pkg/retrieval"
)

const provider = "ollama"

// Config holds Ollama-specific configuration.
type Config struct {
	// Optional. Server URL; empty uses OLLAMA_HOST or the default localhost:11434
	Host string

	// Optional. Embedding model, default nomic-embed-text
	EmbeddingModel string

	// Optional. Chat model, default llama3.2
	ChatModel string
}

// Client implements retrieval.BatchEncoder and ai.Generator.
type Client struct {
	client *api.Client
	config Config
}

var (
	_ retrieval.BatchEncoder = (*Client)(nil)
	_ ai.Generator           = (*Client)(nil)
)

// New creates a client. cfg may be nil.
func New(cfg *Config) (*Client, error) {
	config := Config{EmbeddingModel: "nomic-embed-text", ChatModel: "llama3.2"}
	if cfg != nil {
		config.Host = cfg.Host
		config.EmbeddingModel = helpers.DefaultString(cfg.EmbeddingModel, config.EmbeddingModel)
		config.ChatModel = helpers.DefaultString(cfg.ChatModel, config.ChatModel)
	}

	var client *api.Client
	if config.Host == "" {
		var err error
		client, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("failed to create client from environment: %w", err)
		}
	} else {
		u, err := url.Parse(config.Host)
		if err != nil {
			return nil, fmt.Errorf("invalid host URL: %w", err)
		}
		client = api.NewClient(u, http.DefaultClient)
	}

	return &Client{client: client, config: config}, nil
}

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := c.client.Embed(ctx, &api.EmbedRequest{
		Model: c.config.EmbeddingModel,
		Input: texts,
	})
	if err != nil {
		return nil, ai.EncodingError(provider, err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, ai.EncodingError(provider, fmt.Errorf("got %d embeddings for %d inputs", len(resp.Embeddings), len(texts)))
	}
	return resp.Embeddings, nil
}

func (c *Client) Generate(ctx context.Context, messages []retrieval.Message, params ai.Params) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model:    c.config.ChatModel,
		Messages: make([]api.Message, len(messages)),
		Stream:   &stream,
		Options:  map[string]any{},
	}
	for i, m := range messages {
		req.Messages[i] = api.Message{Role: string(m.Role), Content: m.Content}
	}
	if params.Temperature != nil {
		req.Options["temperature"] = *params.Temperature
	}
	if params.MaxTokens != nil {
		req.Options["num_predict"] = *params.MaxTokens
	}

	var out strings.Builder
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		out.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", ai.GenerationError(provider, err)
	}
	return out.String(), nil
}

// Ping checks that the server answers.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Heartbeat(ctx)
}
