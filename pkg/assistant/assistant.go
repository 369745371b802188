// Package assistant answers shopper questions and summarises reviews by
// running the retrieval pipeline and a text generator end to end.
//
// Example:
//
//	svc := retrieval.NewService(store, encoder)
//	bot := assistant.New(svc, generator)
//	reply := bot.Answer(ctx, "p1", "How is the battery?", history)
//	fmt.Println(reply.Text)
package assistant

import (
	"context"
	"fmt"
	"time"

	"github.com/calque-ai/reviewchat/pkg/ai"
	"github.com/calque-ai/reviewchat/pkg/helpers"
	"github.com/calque-ai/reviewchat/pkg/logger"
	"github.com/calque-ai/reviewchat/pkg/observability"
	"github.com/calque-ai/reviewchat/pkg/retrieval"
)

// Metric names recorded by the assistant.
const (
	MetricAnswers            = "reviewchat_answers_total"
	MetricSummaries          = "reviewchat_summaries_total"
	MetricGenerationDuration = "reviewchat_generation_duration_seconds"
)

const (
	answerFailurePrefix  = "Sorry, an error occurred while generating the response: "
	summaryFailurePrefix = "An error occurred while generating summary: "
)

// Reply is the outcome of Answer or Summarize. Text is always set: on
// failure it carries a user-facing message and Err holds the cause.
type Reply struct {
	Text string

	// Sources are the hits that grounded an answer; empty for summaries.
	Sources []retrieval.Hit

	// Grounded is false when no document was retrieved or, for summaries,
	// when the product has no reviews.
	Grounded bool

	Err error
}

// Assistant is safe for concurrent use.
type Assistant struct {
	svc           *retrieval.Service
	gen           ai.Generator
	chatParams    ai.Params
	summaryParams ai.Params
	conversations *Conversations
	logger        *logger.Logger
	metrics       observability.MetricsProvider
	tracer        observability.TracerProvider
}

// Option configures an Assistant.
type Option func(*Assistant)

func WithLogger(l *logger.Logger) Option {
	return func(a *Assistant) {
		if l != nil {
			a.logger = l
		}
	}
}

func WithMetrics(m observability.MetricsProvider) Option {
	return func(a *Assistant) {
		if m != nil {
			a.metrics = m
		}
	}
}

func WithTracer(t observability.TracerProvider) Option {
	return func(a *Assistant) {
		if t != nil {
			a.tracer = t
		}
	}
}

// WithConversations enables Chat to keep per-session history.
func WithConversations(c *Conversations) Option {
	return func(a *Assistant) {
		a.conversations = c
	}
}

// WithChatParams overrides the answer sampling settings (temperature 0.7,
// 1000 tokens). Nil fields keep the defaults.
func WithChatParams(p ai.Params) Option {
	return func(a *Assistant) {
		a.chatParams = mergeParams(a.chatParams, p)
	}
}

// WithSummaryParams overrides the summary sampling settings (1500 tokens).
// Nil fields keep the defaults.
func WithSummaryParams(p ai.Params) Option {
	return func(a *Assistant) {
		a.summaryParams = mergeParams(a.summaryParams, p)
	}
}

// New creates an assistant over a retrieval service and a generator.
func New(svc *retrieval.Service, gen ai.Generator, opts ...Option) *Assistant {
	a := &Assistant{
		svc: svc,
		gen: gen,
		chatParams: ai.Params{
			Temperature: helpers.PtrOf(0.7),
			MaxTokens:   helpers.PtrOf(1000),
		},
		summaryParams: ai.Params{
			MaxTokens: helpers.PtrOf(1500),
		},
		logger:  logger.Nop(),
		metrics: observability.NoopMetricsProvider{},
		tracer:  observability.NoopTracerProvider{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Answer retrieves the policy's TopK documents for message, composes the
// chat turn with the trailing history window and generates a reply.
func (a *Assistant) Answer(ctx context.Context, productID, message string, history []retrieval.HistoryEntry) Reply {
	ctx, span := a.tracer.StartSpan(ctx, "assistant.answer")
	span.SetAttribute("product_id", productID)

	result := a.svc.Retrieve(ctx, productID, message)
	grounding := a.svc.AssembleContext(result)
	messages := a.svc.ComposeMessages(grounding, history, message)
	span.SetAttribute("hits", result.Len())

	text, err := a.generate(ctx, "answer", messages, a.chatParams)
	span.End(err)

	if err != nil {
		a.metrics.Counter(ctx, MetricAnswers, 1, map[string]string{"outcome": "error"})
		a.logger.Err(ctx, logger.ErrorLevel, "answer generation failed", err, logger.Attr("product_id", productID))
		return Reply{
			Text:     answerFailurePrefix + err.Error(),
			Sources:  result.Hits,
			Grounded: grounding.Grounded,
			Err:      fmt.Errorf("answer for product %s: %w", productID, err),
		}
	}

	a.metrics.Counter(ctx, MetricAnswers, 1, map[string]string{"outcome": "ok"})
	a.logger.Info(ctx, "answer generated",
		logger.Attr("product_id", productID),
		logger.Attr("hits", result.Len()),
		logger.Attr("history", len(history)),
		logger.Attr("question", helpers.Preview(message, 80)),
	)
	return Reply{Text: text, Sources: result.Hits, Grounded: grounding.Grounded}
}

// Chat answers message with the stored history of session and records the
// exchange. Without WithConversations it behaves like Answer with no
// history. History store failures are logged and the turn proceeds without
// history; failed answers are not recorded.
func (a *Assistant) Chat(ctx context.Context, session, productID, message string) Reply {
	if a.conversations == nil {
		return a.Answer(ctx, productID, message, nil)
	}

	history, err := a.conversations.historyFor(ctx, session, productID)
	if err != nil {
		a.logger.Err(ctx, logger.WarnLevel, "conversation history unavailable", err, logger.Attr("session", session))
	}

	reply := a.Answer(ctx, productID, message, history)
	if reply.Err != nil {
		return reply
	}

	err = a.conversations.Append(ctx, session, productID,
		retrieval.HistoryEntry{Role: string(retrieval.RoleUser), Content: message},
		retrieval.HistoryEntry{Role: string(retrieval.RoleAssistant), Content: reply.Text},
	)
	if err != nil {
		a.logger.Err(ctx, logger.WarnLevel, "conversation not saved", err, logger.Attr("session", session))
	}
	return reply
}

// Summarize frames every stored review of the product (up to the policy's
// review cap) into a summary prompt. A product without reviews gets
// retrieval.NoReviewsMessage and the generator is not called.
func (a *Assistant) Summarize(ctx context.Context, productID string) Reply {
	ctx, span := a.tracer.StartSpan(ctx, "assistant.summarize")
	span.SetAttribute("product_id", productID)

	req := a.svc.AggregateSummaryRequest(ctx, productID)
	if req.NoReviews {
		span.SetAttribute("no_reviews", true)
		span.End(nil)
		a.metrics.Counter(ctx, MetricSummaries, 1, map[string]string{"outcome": "no_reviews"})
		return Reply{Text: retrieval.NoReviewsMessage}
	}
	span.SetAttribute("reviews", len(req.Reviews))

	text, err := a.generate(ctx, "summary", req.Messages(), a.summaryParams)
	span.End(err)

	if err != nil {
		a.metrics.Counter(ctx, MetricSummaries, 1, map[string]string{"outcome": "error"})
		a.logger.Err(ctx, logger.ErrorLevel, "summary generation failed", err, logger.Attr("product_id", productID))
		return Reply{
			Text: summaryFailurePrefix + err.Error(),
			Err:  fmt.Errorf("summary for product %s: %w", productID, err),
		}
	}

	a.metrics.Counter(ctx, MetricSummaries, 1, map[string]string{"outcome": "ok"})
	a.logger.Info(ctx, "summary generated",
		logger.Attr("product_id", productID),
		logger.Attr("reviews", len(req.Reviews)),
		logger.Attr("total_reviews", req.TotalReviews),
	)
	return Reply{Text: text, Grounded: true}
}

// generate calls the generator inside a client span and records its latency
// under kind.
func (a *Assistant) generate(ctx context.Context, kind string, messages []retrieval.Message, params ai.Params) (string, error) {
	ctx, span := a.tracer.StartSpan(ctx, "assistant.generate",
		observability.WithSpanKind(observability.SpanKindClient),
		observability.WithAttributes(map[string]any{"kind": kind, "messages": len(messages)}),
	)
	start := time.Now()
	text, err := a.gen.Generate(ctx, messages, params)
	a.metrics.RecordDuration(ctx, MetricGenerationDuration, time.Since(start), map[string]string{"kind": kind})
	span.End(err)
	return text, err
}

func mergeParams(base, override ai.Params) ai.Params {
	if override.Temperature != nil {
		base.Temperature = override.Temperature
	}
	if override.MaxTokens != nil {
		base.MaxTokens = override.MaxTokens
	}
	return base
}
