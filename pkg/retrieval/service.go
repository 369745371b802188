package retrieval

import (
	"context"
)

// Service is the entry point of the pipeline. It wires one VectorIndex and
// one Encoder into the collection manager, indexer, searcher and summary
// aggregator, all sharing the same logger, metrics, tracer and policy.
type Service struct {
	index       VectorIndex
	collections *CollectionManager
	indexer     *Indexer
	searcher    *Searcher
	aggregator  *SummaryAggregator
	opts        options
}

// NewService creates a Service over index and encoder.
//
// Example:
//
//	svc := retrieval.NewService(store, encoder,
//	    retrieval.WithLogger(log),
//	    retrieval.WithMetrics(metrics),
//	    retrieval.WithPolicy(cfg.Policy),
//	)
func NewService(index VectorIndex, encoder Encoder, opts ...Option) *Service {
	collections := NewCollectionManager(index, opts...)
	return &Service{
		index:       index,
		collections: collections,
		indexer:     NewIndexer(collections, encoder, opts...),
		searcher:    NewSearcher(collections, encoder, opts...),
		aggregator:  NewSummaryAggregator(collections, opts...),
		opts:        buildOptions(opts),
	}
}

// Policy returns the bounds in effect.
func (s *Service) Policy() Policy {
	return s.opts.policy
}

// Index replaces the indexed documents of a product. See Indexer.Index.
func (s *Service) Index(ctx context.Context, productID, description string, reviews []Review) IndexReport {
	return s.indexer.Index(ctx, productID, description, reviews)
}

// Search returns the k documents nearest to query. See Searcher.Search.
func (s *Service) Search(ctx context.Context, productID, query string, k int) SearchResult {
	return s.searcher.Search(ctx, productID, query, k)
}

// Retrieve searches with the policy's TopK.
func (s *Service) Retrieve(ctx context.Context, productID, query string) SearchResult {
	return s.searcher.Search(ctx, productID, query, s.opts.policy.TopK)
}

// AssembleContext renders hits as grounding text.
func (s *Service) AssembleContext(result SearchResult) ContextText {
	return AssembleContext(result)
}

// ComposeMessages builds a chat turn with the policy's instructions and
// history window.
func (s *Service) ComposeMessages(context ContextText, history []HistoryEntry, newMessage string) []Message {
	return ComposeMessages(context, s.opts.policy.Instructions, history, newMessage, s.opts.policy.HistoryWindow)
}

// AggregateSummaryRequest frames the product's corpus for a summary.
func (s *Service) AggregateSummaryRequest(ctx context.Context, productID string) SummaryRequest {
	return s.aggregator.Aggregate(ctx, productID)
}

// DropCollection deletes every indexed document of a product. Dropping an
// unknown product is a no-op.
func (s *Service) DropCollection(ctx context.Context, productID string) error {
	return s.collections.Drop(ctx, productID)
}

// CollectionState reports the lifecycle state of a product's collection.
func (s *Service) CollectionState(ctx context.Context, productID string) (CollectionState, error) {
	return s.collections.State(ctx, productID)
}

// Ping checks the store when it supports it.
func (s *Service) Ping(ctx context.Context) error {
	if p, ok := s.index.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close releases the store.
func (s *Service) Close() error {
	return s.index.Close()
}
