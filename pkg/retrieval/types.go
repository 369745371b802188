// Package retrieval implements the retrieval-augmented context pipeline for
// product reviews: per-product collections of embedded documents, similarity
// search, context assembly, bounded conversation composition and corpus
// framing for summaries.
//
// External systems are reached through two ports: an Encoder that turns text
// into vectors and a VectorIndex that stores them. Backends live in the
// memstore, qdrant, pgvector and weaviate subpackages.
//
// Example:
//
//	svc := retrieval.NewService(memstore.New(), encoder, retrieval.WithLogger(log))
//	report := svc.Index(ctx, "42", "Noise cancelling headphones", reviews)
//	hits := svc.Search(ctx, "42", "battery life", 5)
//	context := retrieval.AssembleContext(hits)
package retrieval

// Kind distinguishes the two document roles inside a product collection.
type Kind string

const (
	KindDescription Kind = "description"
	KindReview      Kind = "review"
)

// RatingUnknown is rendered wherever a review carries no rating.
const RatingUnknown = "N/A"

// Review is one user review as supplied by the caller.
type Review struct {
	ReviewID string   `json:"review_id"`
	Content  string   `json:"content"`
	Rating   *float64 `json:"rating,omitempty"`
}

// Document is a unit of indexed text belonging to exactly one product.
type Document struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Kind      Kind   `json:"kind"`
	ProductID string `json:"product_id"`
	ReviewID  string `json:"review_id,omitempty"` // reviews only
	Rating    string `json:"rating,omitempty"`    // reviews only, RatingUnknown when absent
}

// Record is the storage form of a Document.
type Record struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata map[string]string

	// Ordinal is the position of the record in the index call that last
	// wrote it; GetAll returns records in ascending Ordinal.
	Ordinal int
}

// ScoredRecord is a Record returned by a nearest-neighbour query.
type ScoredRecord struct {
	Record
	Distance float64
}

// Hit is one search result; lower Distance means more similar.
type Hit struct {
	Document Document `json:"document"`
	Distance float64  `json:"distance"`
}

// SearchResult holds hits in ascending distance. An empty result is valid.
type SearchResult struct {
	Hits []Hit `json:"hits"`
}

// Len returns the number of hits.
func (r SearchResult) Len() int { return len(r.Hits) }

// Role is the speaker of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the sequence sent to a text generator.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// HistoryEntry is a prior conversation turn as supplied by the caller. An
// empty Role is treated as RoleUser.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// IndexReport is the outcome of one index call.
type IndexReport struct {
	DocumentsWritten int
	Pruned           int
	Err              error
}

// OK reports whether the index call succeeded.
func (r IndexReport) OK() bool { return r.Err == nil }
