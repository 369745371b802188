// Package ai defines the text generation port of the review assistant and
// provides offline implementations of both model ports: a feature-hashing
// encoder and a scripted generator. Provider adapters live in the openai,
// ollama and gemini subpackages; each provides an Encoder and a Generator.
package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/calque-ai/reviewchat/pkg/retrieval"
)

// ErrGeneration classifies failures of a Generator.
var ErrGeneration = errors.New("generation failure")

// Params are the per-call sampling settings. Nil fields use the provider
// default.
type Params struct {
	Temperature *float64
	MaxTokens   *int
}

// Generator produces a completion for an ordered message sequence.
type Generator interface {
	Generate(ctx context.Context, messages []retrieval.Message, params Params) (string, error)
}

// GenerationError wraps err so that it matches ErrGeneration.
func GenerationError(provider string, err error) error {
	if err == nil || errors.Is(err, ErrGeneration) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", provider, ErrGeneration, err)
}

// EncodingError wraps err so that it matches retrieval.ErrEncoding.
func EncodingError(provider string, err error) error {
	if err == nil || errors.Is(err, retrieval.ErrEncoding) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", provider, retrieval.ErrEncoding, err)
}
