// Package openai adapts the OpenAI API to the review assistant: embeddings
// for retrieval.Encoder and chat completions for ai.Generator.
//
// Example:
//
//	client, err := openai.New(&openai.Config{ChatModel: "gpt-4o-mini"})
//	if err != nil {
//		return err
//	}
//	svc := retrieval.NewService(store, client)
//	assistant := assistant.New(svc, client)
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"github.com/calque-ai/reviewchat/pkg/ai"
	"github.com/calque-ai/reviewchat/pkg/helpers"
	"github.com/calque-ai/reviewchat/pkg/retrieval"
)

const provider = "openai"

// Config holds OpenAI-specific configuration. Zero fields take the values
// of DefaultConfig.
type Config struct {
	// Required. API key for OpenAI authentication
	APIKey string

	// Optional. Base URL for OpenAI-compatible APIs
	BaseURL string

	// Optional. Embedding model, default text-embedding-3-small
	EmbeddingModel string

	// Optional. Chat model, default gpt-4o-mini
	ChatModel string

	// Optional. Requested embedding size for models that support shortening
	Dimensions *int
}

// DefaultConfig reads OPENAI_API_KEY and OPENAI_BASE_URL from the environment.
func DefaultConfig() *Config {
	return &Config{
		APIKey:         helpers.GetStringFromEnv("OPENAI_API_KEY", ""),
		BaseURL:        helpers.GetStringFromEnv("OPENAI_BASE_URL", ""),
		EmbeddingModel: "text-embedding-3-small",
		ChatModel:      "gpt-4o-mini",
	}
}

// Client implements retrieval.BatchEncoder and ai.Generator.
type Client struct {
	client *openai.Client
	config *Config
}

var (
	_ retrieval.BatchEncoder = (*Client)(nil)
	_ ai.Generator           = (*Client)(nil)
)

// New creates a client. cfg may be nil.
func New(cfg *Config) (*Client, error) {
	config := DefaultConfig()
	if cfg != nil {
		config.APIKey = helpers.DefaultString(cfg.APIKey, config.APIKey)
		config.BaseURL = helpers.DefaultString(cfg.BaseURL, config.BaseURL)
		config.EmbeddingModel = helpers.DefaultString(cfg.EmbeddingModel, config.EmbeddingModel)
		config.ChatModel = helpers.DefaultString(cfg.ChatModel, config.ChatModel)
		config.Dimensions = cfg.Dimensions
	}

	if config.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set or provided in config")
	}

	clientOptions := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		clientOptions = append(clientOptions, option.WithBaseURL(config.BaseURL))
	}
	client := openai.NewClient(clientOptions...)

	return &Client{client: &client, config: config}, nil
}

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.config.EmbeddingModel),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	}
	if c.config.Dimensions != nil {
		params.Dimensions = openai.Int(int64(*c.config.Dimensions))
	}

	resp, err := c.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, ai.EncodingError(provider, err)
	}

	vectors := make([][]float32, len(texts))
	for _, item := range resp.Data {
		idx := int(item.Index)
		if idx < 0 || idx >= len(vectors) {
			return nil, ai.EncodingError(provider, fmt.Errorf("embedding index %d out of range", idx))
		}
		vectors[idx] = toFloat32(item.Embedding)
	}
	for i, v := range vectors {
		if v == nil {
			return nil, ai.EncodingError(provider, fmt.Errorf("missing embedding for input %d", i))
		}
	}
	return vectors, nil
}

func (c *Client) Generate(ctx context.Context, messages []retrieval.Message, params ai.Params) (string, error) {
	req := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.config.ChatModel),
		Messages: toMessages(messages),
	}
	if params.Temperature != nil {
		req.Temperature = openai.Float(*params.Temperature)
	}
	if params.MaxTokens != nil {
		req.MaxCompletionTokens = openai.Int(int64(*params.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, req)
	if err != nil {
		return "", ai.GenerationError(provider, err)
	}
	if len(resp.Choices) == 0 {
		return "", ai.GenerationError(provider, errors.New("no choices in response"))
	}
	return resp.Choices[0].Message.Content, nil
}

func toMessages(messages []retrieval.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case retrieval.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case retrieval.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, f := range in {
		out[i] = float32(f)
	}
	return out
}
