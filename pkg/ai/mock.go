package ai

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"unicode"

	"github.com/calque-ai/reviewchat/pkg/retrieval"
)

// DefaultHashDimension is the vector size of NewHashEncoder(0).
const DefaultHashDimension = 256

// HashEncoder is a deterministic bag-of-words encoder: each lower-cased token
// is hashed into one of Dimension buckets and the vector is L2-normalised.
// Texts sharing words end up close in cosine distance, which is enough for
// local runs and tests without a model.
type HashEncoder struct {
	dimension int
}

var _ retrieval.BatchEncoder = (*HashEncoder)(nil)

// NewHashEncoder creates an encoder producing vectors of the given size.
func NewHashEncoder(dimension int) *HashEncoder {
	if dimension <= 0 {
		dimension = DefaultHashDimension
	}
	return &HashEncoder{dimension: dimension}
}

func (h *HashEncoder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, h.dimension)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, tok := range tokens {
		hasher := fnv.New32a()
		_, _ = hasher.Write([]byte(tok))
		vec[hasher.Sum32()%uint32(h.dimension)]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec, nil
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
	return vec, nil
}

func (h *HashEncoder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := h.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// MockGenerator returns scripted responses and records every call.
//
// Example:
//
//	gen := ai.NewMockGenerator("Great battery life.")
//	answer, _ := gen.Generate(ctx, messages, ai.Params{})
//	calls := gen.Calls()
type MockGenerator struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     []MockCall
}

// MockCall is one recorded Generate invocation.
type MockCall struct {
	Messages []retrieval.Message
	Params   Params
}

// NewMockGenerator creates a generator answering the responses in turn; the
// last one repeats.
func NewMockGenerator(responses ...string) *MockGenerator {
	return &MockGenerator{responses: responses}
}

// NewMockGeneratorWithError creates a generator that always fails.
func NewMockGeneratorWithError(message string) *MockGenerator {
	return &MockGenerator{err: errors.New(message)}
}

func (m *MockGenerator) Generate(_ context.Context, messages []retrieval.Message, params Params) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, MockCall{
		Messages: append([]retrieval.Message(nil), messages...),
		Params:   params,
	})
	if m.err != nil {
		return "", GenerationError("mock", m.err)
	}
	if len(m.responses) == 0 {
		return "", nil
	}
	i := len(m.calls) - 1
	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}
	return m.responses[i], nil
}

// Calls returns a copy of the recorded calls.
func (m *MockGenerator) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}
