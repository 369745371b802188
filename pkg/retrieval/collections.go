package retrieval

import (
	"context"
	"log/slog"
	"sync"

	"github.com/calque-ai/reviewchat/pkg/logger"
	"github.com/calque-ai/reviewchat/pkg/reqctx"
)

// CollectionState is the lifecycle state of a product collection.
type CollectionState int

const (
	StateAbsent CollectionState = iota
	StateCreated
	StatePopulated
	StateDeleted
)

func (s CollectionState) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateCreated:
		return "created"
	case StatePopulated:
		return "populated"
	case StateDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// CollectionManager creates and drops the per-product collections. It also
// owns the per-product lock that serializes indexing and dropping.
type CollectionManager struct {
	index    VectorIndex
	opts     options
	locks    *keyedMutex
	creating *keyedMutex

	mu      sync.Mutex
	dropped map[string]struct{}
}

// NewCollectionManager creates a manager over index.
func NewCollectionManager(index VectorIndex, opts ...Option) *CollectionManager {
	return &CollectionManager{
		index:    index,
		opts:     buildOptions(opts),
		locks:    newKeyedMutex(),
		creating: newKeyedMutex(),
		dropped:  make(map[string]struct{}),
	}
}

// Ensure returns the name of the product's collection, creating it when it
// does not exist. Concurrent calls for the same product create it once.
func (m *CollectionManager) Ensure(ctx context.Context, productID string) (string, error) {
	name := CollectionName(productID)

	if exists, err := m.exists(ctx, name); err != nil {
		return "", err
	} else if exists {
		return name, nil
	}

	unlock := m.creating.Lock(productID)
	defer unlock()

	if exists, err := m.exists(ctx, name); err != nil {
		return "", err
	} else if exists {
		return name, nil
	}
	if err := m.index.CreateCollection(ctx, name, CollectionDescription(productID)); err != nil {
		return "", reqctx.WrapErr(ctx, classify(ErrIndexBackend, err), "create collection").
			Tag(slog.String("collection", name))
	}

	m.mu.Lock()
	delete(m.dropped, productID)
	m.mu.Unlock()

	m.opts.metrics.Counter(ctx, MetricCollectionsCreated, 1, nil)
	m.opts.metrics.Gauge(ctx, MetricCollectionsActive, 1, nil)
	m.opts.logger.Debug(ctx, "collection created", logger.Attr("collection", name))
	return name, nil
}

func (m *CollectionManager) exists(ctx context.Context, name string) (bool, error) {
	exists, err := m.index.CollectionExists(ctx, name)
	if err != nil {
		return false, reqctx.WrapErr(ctx, classify(ErrIndexBackend, err), "check collection").
			Tag(slog.String("collection", name))
	}
	return exists, nil
}

// Drop deletes the product's collection and all its documents. Dropping a
// product that has no collection is a no-op.
func (m *CollectionManager) Drop(ctx context.Context, productID string) error {
	unlock := m.lock(productID)
	defer unlock()
	unlockCreate := m.creating.Lock(productID)
	defer unlockCreate()

	name := CollectionName(productID)
	exists, err := m.exists(ctx, name)
	if err != nil || !exists {
		return err
	}

	if err := m.index.DeleteCollection(ctx, name); err != nil {
		return reqctx.WrapErr(ctx, classify(ErrIndexBackend, err), "delete collection").
			Tag(slog.String("collection", name))
	}

	m.mu.Lock()
	m.dropped[productID] = struct{}{}
	m.mu.Unlock()

	m.opts.metrics.Counter(ctx, MetricCollectionsDropped, 1, nil)
	m.opts.metrics.Gauge(ctx, MetricCollectionsActive, -1, nil)
	m.opts.logger.Info(ctx, "collection dropped", logger.Attr("collection", name))
	return nil
}

// State reports where the product's collection is in its lifecycle. Deleted
// is remembered by this manager until the collection is created again.
func (m *CollectionManager) State(ctx context.Context, productID string) (CollectionState, error) {
	name := CollectionName(productID)
	exists, err := m.index.CollectionExists(ctx, name)
	if err != nil {
		return StateAbsent, reqctx.WrapErr(ctx, classify(ErrIndexBackend, err), "check collection")
	}
	if !exists {
		m.mu.Lock()
		_, dropped := m.dropped[productID]
		m.mu.Unlock()
		if dropped {
			return StateDeleted, nil
		}
		return StateAbsent, nil
	}

	records, err := m.index.GetAll(ctx, name)
	if err != nil {
		return StateAbsent, reqctx.WrapErr(ctx, classify(ErrIndexBackend, err), "read collection")
	}
	if len(records) == 0 {
		return StateCreated, nil
	}
	return StatePopulated, nil
}

func (m *CollectionManager) lock(productID string) func() {
	return m.locks.Lock(productID)
}
