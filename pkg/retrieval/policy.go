package retrieval

// DefaultInstructions is the answering policy placed at the top of the
// system message.
const DefaultInstructions = `You are a product review expert assistant.
When users ask about a product, provide accurate and helpful answers based on the provided product descriptions and actual user reviews.

Follow these rules:
1. Answer only based on the provided context (product descriptions and reviews)
2. Present pros and cons mentioned in reviews in a balanced way
3. Respond in friendly and natural language that users can easily understand
4. If information is uncertain, don't guess - say "The reviews lack information on this aspect"
5. Emphasize points commonly mentioned across multiple reviews`

// Policy holds the tunable bounds of the pipeline.
type Policy struct {
	// TopK is the number of hits retrieved to ground a chat answer.
	TopK int `yaml:"top_k"`

	// HistoryWindow is the number of trailing history entries kept; 0 sends
	// no history.
	HistoryWindow int `yaml:"history_window"`

	// ReviewCap is the number of reviews framed into a summary prompt.
	ReviewCap int `yaml:"review_cap"`

	// Instructions is the answering policy of the system message.
	Instructions string `yaml:"instructions"`
}

// DefaultPolicy returns TopK 5, HistoryWindow 5, ReviewCap 20 and
// DefaultInstructions.
func DefaultPolicy() Policy {
	return Policy{
		TopK:          5,
		HistoryWindow: 5,
		ReviewCap:     20,
		Instructions:  DefaultInstructions,
	}
}

// WithDefaults fills unset fields from DefaultPolicy. A field is unset when
// it is zero or negative, except HistoryWindow, which is unset only when
// negative.
func (p Policy) WithDefaults() Policy {
	d := DefaultPolicy()
	if p.TopK <= 0 {
		p.TopK = d.TopK
	}
	if p.HistoryWindow < 0 {
		p.HistoryWindow = d.HistoryWindow
	}
	if p.ReviewCap <= 0 {
		p.ReviewCap = d.ReviewCap
	}
	if p.Instructions == "" {
		p.Instructions = d.Instructions
	}
	return p
}
