package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/calque-ai/reviewchat/pkg/logger"
	"github.com/calque-ai/reviewchat/pkg/observability"
	"github.com/calque-ai/reviewchat/pkg/reqctx"
)

// Indexer turns a product's description and reviews into embedded records.
//
// Every call leaves the collection holding exactly the documents of that
// call: records are upserted by stable id and ids absent from the call are
// pruned. A failed call leaves the collection as it was. Calls for the same
// product are serialized.
type Indexer struct {
	collections *CollectionManager
	encoder     Encoder
	opts        options
}

// NewIndexer creates an Indexer writing through collections.
func NewIndexer(collections *CollectionManager, encoder Encoder, opts ...Option) *Indexer {
	return &Indexer{
		collections: collections,
		encoder:     encoder,
		opts:        buildOptions(opts),
	}
}

// Index embeds and stores the description and reviews of productID.
//
// All documents are encoded before anything is written, so an encoder
// failure leaves the collection untouched. On any failure the report has
// DocumentsWritten 0 and Err classified as ErrEncoding or ErrIndexBackend.
func (ix *Indexer) Index(ctx context.Context, productID, description string, reviews []Review) IndexReport {
	start := time.Now()
	ctx, span := ix.opts.tracer.StartSpan(ctx, "retrieval.index",
		observability.WithAttributes(map[string]any{"product_id": productID, "reviews": len(reviews)}))

	if productID == "" {
		return ix.fail(ctx, span, StageArgument, reqctx.WrapErr(ctx, ErrInvalidArgument, "product id is empty"))
	}

	unlock := ix.collections.lock(productID)
	defer unlock()

	docs, duplicates := BuildDocuments(productID, description, reviews)
	for _, key := range duplicates {
		ix.opts.logger.Warn(ctx, "duplicate review id, later review wins",
			logger.Attr("product_id", productID), logger.Attr("review_id", key))
	}

	vectors, err := ix.embed(ctx, docs)
	if err != nil {
		return ix.fail(ctx, span, StageEncode, reqctx.WrapErr(ctx, classify(ErrEncoding, err), "embed documents").
			Tag(slog.String("product_id", productID)))
	}

	name, err := ix.collections.Ensure(ctx, productID)
	if err != nil {
		return ix.fail(ctx, span, StageStore, err)
	}

	records := make([]Record, len(docs))
	for i, doc := range docs {
		records[i] = Record{
			ID:       doc.ID,
			Vector:   vectors[i],
			Text:     doc.Text,
			Metadata: doc.Metadata(),
			Ordinal:  i,
		}
	}

	pruned, err := ix.write(ctx, name, records)
	if err != nil {
		return ix.fail(ctx, span, StageStore, reqctx.WrapErr(ctx, classify(ErrIndexBackend, err), "write records").
			Tag(slog.String("collection", name)))
	}

	ix.opts.metrics.Counter(ctx, MetricDocumentsIndexed, int64(len(records)), nil)
	if pruned > 0 {
		ix.opts.metrics.Counter(ctx, MetricDocumentsPruned, int64(pruned), nil)
	}
	ix.opts.metrics.RecordDuration(ctx, MetricIndexDuration, time.Since(start), nil)

	ix.opts.logger.Info(ctx, "product indexed",
		logger.Attr("product_id", productID),
		logger.Attr("documents", len(records)),
		logger.Attr("reviews", len(records)-1),
		logger.Attr("pruned", pruned),
		logger.Attr("duration", time.Since(start).String()))

	span.SetAttribute("documents_written", len(records))
	span.SetAttribute("pruned", pruned)
	span.End(nil)

	return IndexReport{DocumentsWritten: len(records), Pruned: pruned}
}

func (ix *Indexer) embed(ctx context.Context, docs []Document) ([][]float32, error) {
	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Text
	}

	var vectors [][]float32
	if batch, ok := ix.encoder.(BatchEncoder); ok {
		var err error
		vectors, err = batch.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("encoder returned %d vectors for %d texts", len(vectors), len(texts))
		}
	} else {
		vectors = make([][]float32, len(texts))
		for i, text := range texts {
			v, err := ix.encoder.Embed(ctx, text)
			if err != nil {
				return nil, err
			}
			vectors[i] = v
		}
	}

	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("empty vector for document %s", docs[i].ID)
		}
		if len(v) != dim {
			return nil, fmt.Errorf("vector dimension %d for document %s, want %d", len(v), docs[i].ID, dim)
		}
	}
	return vectors, nil
}

// write makes the collection hold exactly records and returns how many stale
// records were removed. Without a Replacer the collection is snapshotted
// first and restored if the upsert or the prune fails.
func (ix *Indexer) write(ctx context.Context, name string, records []Record) (int, error) {
	index := ix.collections.index
	if r, ok := index.(Replacer); ok {
		return r.Replace(ctx, name, records)
	}

	prior, err := index.GetAll(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("snapshot records: %w", err)
	}
	keep := make(map[string]struct{}, len(records))
	for _, r := range records {
		keep[r.ID] = struct{}{}
	}
	var stale []string
	for _, r := range prior {
		if _, ok := keep[r.ID]; !ok {
			stale = append(stale, r.ID)
		}
	}

	if err := index.Upsert(ctx, name, records); err != nil {
		return 0, ix.restore(ctx, name, prior, records, err)
	}
	if len(stale) == 0 {
		return 0, nil
	}
	if err := index.Delete(ctx, name, stale); err != nil {
		return 0, ix.restore(ctx, name, prior, records, fmt.Errorf("prune %d stale records: %w", len(stale), err))
	}
	return len(stale), nil
}

// restore puts prior back after a failed write: ids that prior did not hold
// are deleted and prior is upserted again. It returns cause, joined with the
// restore error if the collection could not be put back.
func (ix *Indexer) restore(ctx context.Context, name string, prior, written []Record, cause error) error {
	ctx = context.WithoutCancel(ctx)
	index := ix.collections.index

	held := make(map[string]struct{}, len(prior))
	for _, r := range prior {
		held[r.ID] = struct{}{}
	}
	var added []string
	for _, r := range written {
		if _, ok := held[r.ID]; !ok {
			added = append(added, r.ID)
		}
	}

	var errs []error
	if len(added) > 0 {
		if err := index.Delete(ctx, name, added); err != nil {
			errs = append(errs, fmt.Errorf("remove %d new records: %w", len(added), err))
		}
	}
	if len(prior) > 0 {
		if err := index.Upsert(ctx, name, prior); err != nil {
			errs = append(errs, fmt.Errorf("restore %d records: %w", len(prior), err))
		}
	}
	if len(errs) == 0 {
		ix.opts.logger.Debug(ctx, "collection restored after failed write",
			logger.Attr("collection", name), logger.Attr("records", len(prior)))
		return cause
	}
	ix.opts.logger.Error(ctx, "collection restore failed",
		logger.Attr("collection", name), logger.Attr("error", errors.Join(errs...).Error()))
	return errors.Join(append([]error{cause}, errs...)...)
}

func (ix *Indexer) fail(ctx context.Context, span observability.Span, stage string, err error) IndexReport {
	ix.opts.metrics.Counter(ctx, MetricIndexFailures, 1, stageLabel(stage))
	ix.opts.logger.Err(ctx, logger.ErrorLevel, "index failed", err, logger.Attr("stage", stage))
	span.End(err)
	return IndexReport{Err: err}
}
