package assistant

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/calque-ai/reviewchat/pkg/cache"
	"github.com/calque-ai/reviewchat/pkg/reqctx"
	"github.com/calque-ai/reviewchat/pkg/retrieval"
)

const (
	conversationPrefix = "conv:"

	// DefaultConversationLimit is the number of entries a session keeps.
	DefaultConversationLimit = 20
)

// Conversations keeps the chat history of each session in a cache.Store.
// With a persistent store such as cache.BadgerStore a session survives
// restarts.
//
// Example:
//
//	conv := assistant.NewConversations(cache.NewInMemoryStore(0), 0, time.Hour)
//	bot := assistant.New(svc, gen, assistant.WithConversations(conv))
//	reply := bot.Chat(ctx, "session-1", "p1", "Is it comfortable?")
type Conversations struct {
	store cache.Store
	limit int
	ttl   time.Duration

	mu sync.Mutex
}

type conversationData struct {
	Entries   []retrieval.HistoryEntry `json:"entries"`
	ProductID string                   `json:"product_id,omitempty"`
}

// NewConversations creates a session store keeping the last limit entries
// of each session for ttl after its last write. A limit <= 0 uses
// DefaultConversationLimit; a ttl <= 0 never expires.
func NewConversations(store cache.Store, limit int, ttl time.Duration) *Conversations {
	if limit <= 0 {
		limit = DefaultConversationLimit
	}
	return &Conversations{store: store, limit: limit, ttl: ttl}
}

// History returns the entries of a session, oldest first. An unknown
// session has no history.
func (c *Conversations) History(ctx context.Context, session string) ([]retrieval.HistoryEntry, error) {
	conv, err := c.load(ctx, session)
	if err != nil {
		return nil, err
	}
	return conv.Entries, nil
}

// Append adds entries to a session for productID. Switching a session to
// another product starts its history afresh.
func (c *Conversations) Append(ctx context.Context, session, productID string, entries ...retrieval.HistoryEntry) error {
	if session == "" {
		return reqctx.NewErr(ctx, "session id is empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	conv, err := c.load(ctx, session)
	if err != nil {
		return err
	}
	if conv.ProductID != productID {
		conv = conversationData{ProductID: productID}
	}

	conv.Entries = append(conv.Entries, entries...)
	if len(conv.Entries) > c.limit {
		conv.Entries = conv.Entries[len(conv.Entries)-c.limit:]
	}

	data, err := json.Marshal(conv)
	if err != nil {
		return reqctx.WrapErr(ctx, err, "failed to marshal conversation")
	}
	return c.store.Set(conversationPrefix+session, data, c.ttl)
}

// Clear deletes a session.
func (c *Conversations) Clear(session string) error {
	return c.store.Delete(conversationPrefix + session)
}

// historyFor returns the session history when it belongs to productID.
func (c *Conversations) historyFor(ctx context.Context, session, productID string) ([]retrieval.HistoryEntry, error) {
	conv, err := c.load(ctx, session)
	if err != nil || conv.ProductID != productID {
		return nil, err
	}
	return conv.Entries, nil
}

func (c *Conversations) load(ctx context.Context, session string) (conversationData, error) {
	data, err := c.store.Get(conversationPrefix + session)
	if err != nil {
		return conversationData{}, reqctx.WrapErr(ctx, err, "failed to read conversation")
	}
	if data == nil {
		return conversationData{}, nil
	}

	var conv conversationData
	if err := json.Unmarshal(data, &conv); err != nil {
		return conversationData{}, reqctx.WrapErr(ctx, err, "failed to unmarshal conversation")
	}
	return conv, nil
}
