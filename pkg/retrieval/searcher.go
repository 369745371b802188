package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/calque-ai/reviewchat/pkg/logger"
	"github.com/calque-ai/reviewchat/pkg/observability"
	"github.com/calque-ai/reviewchat/pkg/reqctx"
)

// Searcher finds the documents of a product most similar to a query.
type Searcher struct {
	collections *CollectionManager
	encoder     Encoder
	opts        options
}

// NewSearcher creates a Searcher reading through collections.
func NewSearcher(collections *CollectionManager, encoder Encoder, opts ...Option) *Searcher {
	return &Searcher{
		collections: collections,
		encoder:     encoder,
		opts:        buildOptions(opts),
	}
}

// Search returns at most k hits in ascending distance. It never fails: any
// encoder or store error, or a non-positive k, yields an empty result that
// is logged and counted in MetricSearchFailures. A product that was never
// indexed gets an empty collection and an empty result.
func (s *Searcher) Search(ctx context.Context, productID, query string, k int) SearchResult {
	start := time.Now()
	ctx, span := s.opts.tracer.StartSpan(ctx, "retrieval.search",
		observability.WithAttributes(map[string]any{"product_id": productID, "k": k}))

	if k <= 0 || productID == "" {
		return s.fail(ctx, span, StageArgument, reqctx.WrapErr(ctx, ErrInvalidArgument, "search arguments").
			Tag(slog.Int("k", k)).Tag(slog.String("product_id", productID)))
	}

	name, err := s.collections.Ensure(ctx, productID)
	if err != nil {
		return s.fail(ctx, span, StageStore, err)
	}

	vector, err := s.encoder.Embed(ctx, query)
	if err != nil {
		return s.fail(ctx, span, StageEncode, reqctx.WrapErr(ctx, classify(ErrEncoding, err), "embed query"))
	}

	matches, err := s.collections.index.Query(ctx, name, vector, k)
	if err != nil {
		return s.fail(ctx, span, StageStore, reqctx.WrapErr(ctx, classify(ErrIndexBackend, err), "query collection").
			Tag(slog.String("collection", name)))
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
	if len(matches) > k {
		matches = matches[:k]
	}

	hits := make([]Hit, len(matches))
	for i, m := range matches {
		hits[i] = Hit{Document: DocumentFromRecord(m.Record), Distance: m.Distance}
	}

	s.opts.metrics.Counter(ctx, MetricSearchHits, int64(len(hits)), nil)
	s.opts.metrics.RecordDuration(ctx, MetricSearchDuration, time.Since(start), nil)
	if len(hits) == 0 {
		s.opts.logger.Warn(ctx, "search returned no documents", logger.Attr("product_id", productID))
	} else {
		s.opts.logger.Debug(ctx, "search completed",
			logger.Attr("product_id", productID),
			logger.Attr("hits", len(hits)),
			logger.Attr("top_kind", string(hits[0].Document.Kind)))
	}

	span.SetAttribute("hits", len(hits))
	span.End(nil)
	return SearchResult{Hits: hits}
}

func (s *Searcher) fail(ctx context.Context, span observability.Span, stage string, err error) SearchResult {
	s.opts.metrics.Counter(ctx, MetricSearchFailures, 1, stageLabel(stage))
	s.opts.logger.Err(ctx, logger.WarnLevel, "search failed", err, logger.Attr("stage", stage))
	span.End(err)
	return SearchResult{}
}
