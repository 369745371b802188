package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/calque-ai/reviewchat/pkg/logger"
)

const (
	// NoReviewsMessage is the summary of a product without reviews.
	NoReviewsMessage = "No reviews available yet."

	// SummarySystemPrompt frames the generator for summaries.
	SummarySystemPrompt = "You are a product review analysis expert."
)

// SummaryReview is one review as framed into a summary prompt.
type SummaryReview struct {
	Content string
	Rating  string
}

// SummaryRequest is the framed corpus of one product. When NoReviews is set
// the caller must answer NoReviewsMessage without invoking a generator, and
// Prompt is empty.
type SummaryRequest struct {
	NoReviews    bool
	SystemPrompt string
	Prompt       string
	Description  string

	// Reviews holds the reviews included in Prompt, at most the review cap.
	Reviews []SummaryReview

	// TotalReviews counts every stored review, including those over the cap.
	TotalReviews int
}

// Messages returns the system and user messages for the generator.
func (r SummaryRequest) Messages() []Message {
	if r.NoReviews {
		return nil
	}
	return []Message{
		{Role: RoleSystem, Content: r.SystemPrompt},
		{Role: RoleUser, Content: r.Prompt},
	}
}

// SummaryAggregator reads a product's whole corpus and frames it for a
// summary.
type SummaryAggregator struct {
	collections *CollectionManager
	opts        options
}

// NewSummaryAggregator creates an aggregator reading through collections.
func NewSummaryAggregator(collections *CollectionManager, opts ...Option) *SummaryAggregator {
	return &SummaryAggregator{collections: collections, opts: buildOptions(opts)}
}

// Aggregate reads every document of productID in stored order and frames
// the description and the first ReviewCap reviews. A store failure is
// logged and treated as an empty corpus.
func (a *SummaryAggregator) Aggregate(ctx context.Context, productID string) SummaryRequest {
	ctx, span := a.opts.tracer.StartSpan(ctx, "retrieval.aggregate")
	span.SetAttribute("product_id", productID)

	records, err := a.read(ctx, productID)
	if err != nil {
		a.opts.logger.Err(ctx, logger.WarnLevel, "summary corpus unavailable", err, logger.Attr("product_id", productID))
		span.End(err)
		return SummaryRequest{NoReviews: true}
	}

	var description string
	var reviews []SummaryReview
	for _, r := range records {
		doc := DocumentFromRecord(r)
		switch doc.Kind {
		case KindDescription:
			description = doc.Text
		case KindReview:
			reviews = append(reviews, SummaryReview{Content: doc.Text, Rating: doc.Rating})
		}
	}

	span.SetAttribute("reviews", len(reviews))
	span.End(nil)

	if len(reviews) == 0 {
		return SummaryRequest{NoReviews: true, Description: description}
	}

	total := len(reviews)
	if len(reviews) > a.opts.policy.ReviewCap {
		reviews = reviews[:a.opts.policy.ReviewCap]
	}

	return SummaryRequest{
		SystemPrompt: SummarySystemPrompt,
		Prompt:       BuildSummaryPrompt(description, reviews, total),
		Description:  description,
		Reviews:      reviews,
		TotalReviews: total,
	}
}

func (a *SummaryAggregator) read(ctx context.Context, productID string) ([]Record, error) {
	if productID == "" {
		return nil, ErrInvalidArgument
	}
	name, err := a.collections.Ensure(ctx, productID)
	if err != nil {
		return nil, err
	}
	records, err := a.collections.index.GetAll(ctx, name)
	if err != nil {
		return nil, classify(ErrIndexBackend, err)
	}
	return records, nil
}

// BuildSummaryPrompt frames a description and reviews into the request for
// advantages, disadvantages, an overall evaluation and who should buy.
func BuildSummaryPrompt(description string, reviews []SummaryReview, total int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Here is a description and %d actual user reviews for a product.\n\n", total)
	b.WriteString("Product Description:\n")
	b.WriteString(description)
	b.WriteString("\n\nReviews:\n")

	for i, r := range reviews {
		fmt.Fprintf(&b, "\nReview %d (Rating: %s): %s\n", i+1, r.Rating, r.Content)
	}

	b.WriteString(`

Please write a comprehensive summary including:
1. Main advantages (what users are most satisfied with)
2. Main disadvantages (what users are least satisfied with)
3. Overall evaluation
4. Who should buy this product

Please write in a friendly and easy-to-understand manner.`)
	return b.String()
}
