// Package weaviate implements retrieval.VectorIndex on Weaviate. Each
// collection maps to a class with vectorizer "none" and cosine distance;
// vectors are supplied by the caller.
package weaviate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/calque-ai/reviewchat/pkg/retrieval"
)

const (
	propDocID    = "docId"
	propText     = "text"
	propOrdinal  = "ordinal"
	propMetadata = "metadata"

	// maxObjects bounds GetAll; it matches Weaviate's default
	// QUERY_MAXIMUM_RESULTS.
	maxObjects = 10000
)

var objectNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/calque-ai/reviewchat/weaviate"))

// Config holds Weaviate client configuration.
type Config struct {
	URL    string // Weaviate instance URL, e.g. "http://localhost:8080"
	APIKey string // Optional API key for authentication
}

// Client implements retrieval.VectorIndex and retrieval.Pinger.
type Client struct {
	client *weaviate.Client
}

var (
	_ retrieval.VectorIndex = (*Client)(nil)
	_ retrieval.Pinger      = (*Client)(nil)
)

// New creates a Weaviate client.
//
// Example:
//
//	client, err := weaviate.New(&weaviate.Config{
//	    URL:    "http://localhost:8080",
//	    APIKey: "your-api-key",
//	})
func New(config *Config) (*Client, error) {
	if config == nil || config.URL == "" {
		return nil, fmt.Errorf("Weaviate URL is required")
	}
	parsed, err := url.Parse(config.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid Weaviate URL: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("invalid Weaviate URL %q: missing host", config.URL)
	}

	cfg := weaviate.Config{
		Host:   parsed.Host,
		Scheme: parsed.Scheme,
	}
	if config.APIKey != "" {
		cfg.AuthConfig = auth.ApiKey{Value: config.APIKey}
	}

	client, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Weaviate client: %w", err)
	}
	return &Client{client: client}, nil
}

// ClassName maps a collection name to a valid Weaviate class name. Names
// that need rewriting get a hash suffix so distinct collections stay
// distinct.
func ClassName(collection string) string {
	var b strings.Builder
	changed := false
	for i, r := range collection {
		letter := r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
		switch {
		case i == 0 && r >= 'a' && r <= 'z':
			b.WriteRune(r - 'a' + 'A')
		case i == 0 && letter:
			b.WriteRune(r)
		case i > 0 && (letter || r >= '0' && r <= '9' || r == '_'):
			b.WriteRune(r)
		default:
			if i == 0 {
				b.WriteString("C")
			}
			b.WriteRune('_')
			changed = true
		}
	}
	if changed || collection == "" {
		sum := sha256.Sum256([]byte(collection))
		b.WriteString("_" + hex.EncodeToString(sum[:4]))
	}
	return b.String()
}

func objectID(docID string) strfmt.UUID {
	return strfmt.UUID(uuid.NewSHA1(objectNamespace, []byte(docID)).String())
}

func (c *Client) CollectionExists(ctx context.Context, name string) (bool, error) {
	exists, err := c.client.Schema().ClassExistenceChecker().WithClassName(ClassName(name)).Do(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check class for %s: %w", name, err)
	}
	return exists, nil
}

func (c *Client) requireCollection(ctx context.Context, name string) error {
	exists, err := c.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", retrieval.ErrCollectionNotFound, name)
	}
	return nil
}

func (c *Client) CreateCollection(ctx context.Context, name, description string) error {
	exists, err := c.CollectionExists(ctx, name)
	if err != nil || exists {
		return err
	}

	class := &models.Class{
		Class:       ClassName(name),
		Description: description,
		Vectorizer:  "none",
		VectorIndexConfig: map[string]any{
			"distance": "cosine",
		},
		Properties: []*models.Property{
			{Name: propDocID, DataType: []string{"text"}, Tokenization: "field"},
			{Name: propText, DataType: []string{"text"}},
			{Name: propOrdinal, DataType: []string{"int"}},
			{Name: propMetadata, DataType: []string{"text"}},
		},
	}
	if err := c.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		// a concurrent creator may have won
		if exists, checkErr := c.CollectionExists(ctx, name); checkErr == nil && exists {
			return nil
		}
		return fmt.Errorf("failed to create class for %s: %w", name, err)
	}
	return nil
}

func (c *Client) DeleteCollection(ctx context.Context, name string) error {
	exists, err := c.CollectionExists(ctx, name)
	if err != nil || !exists {
		return err
	}
	if err := c.client.Schema().ClassDeleter().WithClassName(ClassName(name)).Do(ctx); err != nil {
		return fmt.Errorf("failed to delete class for %s: %w", name, err)
	}
	return nil
}

func (c *Client) Upsert(ctx context.Context, name string, records []retrieval.Record) error {
	if err := c.requireCollection(ctx, name); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	class := ClassName(name)
	objects := make([]*models.Object, 0, len(records))
	for _, r := range records {
		metadataJSON, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for record %s: %w", r.ID, err)
		}
		objects = append(objects, &models.Object{
			Class: class,
			ID:    objectID(r.ID),
			Properties: map[string]any{
				propDocID:    r.ID,
				propText:     r.Text,
				propOrdinal:  r.Ordinal,
				propMetadata: string(metadataJSON),
			},
			Vector: models.C11yVector(r.Vector),
		})
	}

	resp, err := c.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to batch objects into %s: %w", class, err)
	}
	var errs []error
	for _, res := range resp {
		if res.Result == nil || res.Result.Errors == nil {
			continue
		}
		for _, item := range res.Result.Errors.Error {
			errs = append(errs, errors.New(item.Message))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("batch into %s rejected %d objects: %w", class, len(errs), errors.Join(errs...))
	}
	return nil
}

func (c *Client) Query(ctx context.Context, name string, vector []float32, k int) ([]retrieval.ScoredRecord, error) {
	if err := c.requireCollection(ctx, name); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}

	class := ClassName(name)
	nearVector := c.client.GraphQL().NearVectorArgBuilder().WithVector(vector)
	resp, err := c.client.GraphQL().Get().
		WithClassName(class).
		WithFields(recordFields(graphql.Field{Name: "distance"})...).
		WithNearVector(nearVector).
		WithLimit(k).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate search failed: %w", err)
	}

	scored, err := parseObjects(resp, class)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(scored, func(a, b retrieval.ScoredRecord) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		}
		return a.Ordinal - b.Ordinal
	})
	return scored, nil
}

// GetAll returns up to maxObjects records with their vectors.
func (c *Client) GetAll(ctx context.Context, name string) ([]retrieval.Record, error) {
	if err := c.requireCollection(ctx, name); err != nil {
		return nil, err
	}

	class := ClassName(name)
	resp, err := c.client.GraphQL().Get().
		WithClassName(class).
		WithFields(recordFields(graphql.Field{Name: "vector"})...).
		WithLimit(maxObjects).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", class, err)
	}

	scored, err := parseObjects(resp, class)
	if err != nil {
		return nil, err
	}
	records := make([]retrieval.Record, len(scored))
	for i, s := range scored {
		records[i] = s.Record
	}
	slices.SortStableFunc(records, func(a, b retrieval.Record) int { return a.Ordinal - b.Ordinal })
	return records, nil
}

func (c *Client) Delete(ctx context.Context, name string, ids []string) error {
	if err := c.requireCollection(ctx, name); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	where := filters.Where().
		WithPath([]string{propDocID}).
		WithOperator(filters.ContainsAny).
		WithValueText(ids...)
	_, err := c.client.Batch().ObjectsBatchDeleter().
		WithClassName(ClassName(name)).
		WithWhere(where).
		WithOutput("minimal").
		Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete %d objects from %s: %w", len(ids), name, err)
	}
	return nil
}

// Ping checks that Weaviate reports ready.
func (c *Client) Ping(ctx context.Context) error {
	ready, err := c.client.Misc().ReadyChecker().Do(ctx)
	if err != nil {
		return fmt.Errorf("weaviate ready check failed: %w", err)
	}
	if !ready {
		return fmt.Errorf("weaviate is not ready")
	}
	return nil
}

// Close is a no-op; the client holds no persistent connection.
func (c *Client) Close() error { return nil }

func recordFields(additional ...graphql.Field) []graphql.Field {
	fields := []graphql.Field{
		{Name: propDocID},
		{Name: propText},
		{Name: propOrdinal},
		{Name: propMetadata},
	}
	if len(additional) > 0 {
		fields = append(fields, graphql.Field{Name: "_additional", Fields: additional})
	}
	return fields
}

// parseObjects reads Get.<class> from a GraphQL response.
func parseObjects(resp *models.GraphQLResponse, class string) ([]retrieval.ScoredRecord, error) {
	if resp == nil {
		return nil, fmt.Errorf("empty GraphQL response")
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, len(resp.Errors))
		for i, e := range resp.Errors {
			msgs[i] = e.Message
		}
		return nil, fmt.Errorf("graphql errors: %s", strings.Join(msgs, "; "))
	}

	get, _ := resp.Data["Get"].(map[string]any)
	items, _ := get[class].([]any)

	out := make([]retrieval.ScoredRecord, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		var sr retrieval.ScoredRecord
		sr.ID, _ = obj[propDocID].(string)
		sr.Text, _ = obj[propText].(string)
		if ord, ok := obj[propOrdinal].(float64); ok {
			sr.Ordinal = int(ord)
		}
		sr.Metadata = map[string]string{}
		if raw, _ := obj[propMetadata].(string); raw != "" {
			if err := json.Unmarshal([]byte(raw), &sr.Metadata); err != nil {
				return nil, fmt.Errorf("failed to parse metadata of %s: %w", sr.ID, err)
			}
		}
		if extra, ok := obj["_additional"].(map[string]any); ok {
			sr.Distance, _ = extra["distance"].(float64)
			if raw, ok := extra["vector"].([]any); ok {
				sr.Vector = make([]float32, 0, len(raw))
				for _, x := range raw {
					f, _ := x.(float64)
					sr.Vector = append(sr.Vector, float32(f))
				}
			}
		}
		out = append(out, sr)
	}
	return out, nil
}
