// Package gemini adapts Google's Gemini API through google.golang.org/genai:
// EmbedContent for retrieval.Encoder and GenerateContent for ai.Generator.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/calque-ai/reviewchat/pkg/ai"
	"github.com/calque-ai/reviewchat/pkg/helpers"
	"github.com/calque-ai/reviewchat/pkg/retrieval"
)

const provider = "gemini"

// Config holds Gemini-specific configuration.
type Config struct {
	// Required. API key, defaults to GOOGLE_API_KEY
	APIKey string

	// Optional. Embedding model, default text-embedding-004
	EmbeddingModel string

	// Optional. Chat model, default gemini-2.5-flash
	ChatModel string

	// Optional. Requested embedding size
	Dimensions *int32
}

// Client implements retrieval.BatchEncoder and ai.Generator.
type Client struct {
	client *genai.Client
	config Config
}

var (
	_ retrieval.BatchEncoder = (*Client)(nil)
	_ ai.Generator           = (*Client)(nil)
)

// New creates a client. cfg may be nil.
func New(ctx context.Context, cfg *Config) (*Client, error) {
	config := Config{
		APIKey:         helpers.GetStringFromEnv("GOOGLE_API_KEY", ""),
		EmbeddingModel: "text-embedding-004",
		ChatModel:      "gemini-2.5-flash",
	}
	if cfg != nil {
		config.APIKey = helpers.DefaultString(cfg.APIKey, config.APIKey)
		config.EmbeddingModel = helpers.DefaultString(cfg.EmbeddingModel, config.EmbeddingModel)
		config.ChatModel = helpers.DefaultString(cfg.ChatModel, config.ChatModel)
		config.Dimensions = cfg.Dimensions
	}

	if config.APIKey == "" {
		return nil, fmt.Errorf("GOOGLE_API_KEY environment variable not set or provided in config")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: config.APIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
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
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.Text(t)[0]
	}

	var cfg *genai.EmbedContentConfig
	if c.config.Dimensions != nil {
		cfg = &genai.EmbedContentConfig{OutputDimensionality: genai.Ptr(*c.config.Dimensions)}
	}

	resp, err := c.client.Models.EmbedContent(ctx, c.config.EmbeddingModel, contents, cfg)
	if err != nil {
		return nil, ai.EncodingError(provider, err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, ai.EncodingError(provider, fmt.Errorf("got %d embeddings for %d inputs", len(resp.Embeddings), len(texts)))
	}

	vectors := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		vectors[i] = e.Values
	}
	return vectors, nil
}

func (c *Client) Generate(ctx context.Context, messages []retrieval.Message, params ai.Params) (string, error) {
	cfg := &genai.GenerateContentConfig{}
	if params.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*params.Temperature))
	}
	if params.MaxTokens != nil {
		cfg.MaxOutputTokens = int32(*params.MaxTokens)
	}

	system, contents := toContents(messages)
	if system != "" {
		cfg.SystemInstruction = genai.Text(system)[0]
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.config.ChatModel, contents, cfg)
	if err != nil {
		return "", ai.GenerationError(provider, err)
	}
	return resp.Text(), nil
}

// toContents splits system messages into one system instruction and maps
// the rest to user and model turns.
func toContents(messages []retrieval.Message) (string, []*genai.Content) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		if m.Role == retrieval.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		content := genai.Text(m.Content)[0]
		if m.Role == retrieval.RoleAssistant {
			content.Role = "model"
		}
		contents = append(contents, content)
	}
	return strings.Join(system, "\n\n"), contents
}
