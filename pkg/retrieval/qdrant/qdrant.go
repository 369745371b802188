// Package qdrant implements retrieval.VectorIndex on a Qdrant server over
// gRPC. Each collection holds one product; point IDs are name-based UUIDs
// derived from document IDs, which are kept in the payload.
package qdrant

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strconv"

	"github.com/google/uuid"
	qd "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/calque-ai/reviewchat/pkg/retrieval"
)

const (
	payloadDocID    = "doc_id"
	payloadText     = "text"
	payloadOrdinal  = "ordinal"
	payloadMetadata = "metadata"
)

// pointNamespace seeds the name-based UUIDs used as point IDs.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/calque-ai/reviewchat/qdrant"))

// Config holds Qdrant client configuration.
type Config struct {
	// Qdrant gRPC address
	// Example: "http://localhost:6334" or "https://your-qdrant-cluster.com:6334"
	URL string

	// Optional API key for authentication
	APIKey string

	// Vector size of new collections; must match the encoder
	VectorSize int
}

// Client implements retrieval.VectorIndex and retrieval.Pinger.
type Client struct {
	client     *qd.Client
	vectorSize uint64
}

var (
	_ retrieval.VectorIndex = (*Client)(nil)
	_ retrieval.Pinger      = (*Client)(nil)
)

// New creates a Qdrant client.
//
// Example:
//
//	client, err := qdrant.New(&qdrant.Config{
//	    URL:        "http://localhost:6334",
//	    VectorSize: 1536,
//	})
func New(config *Config) (*Client, error) {
	if config == nil || config.URL == "" {
		return nil, fmt.Errorf("qdrant URL is required")
	}
	if config.VectorSize <= 0 {
		return nil, fmt.Errorf("qdrant vector size must be positive, got %d", config.VectorSize)
	}

	host, port, useTLS, err := parseAddress(config.URL)
	if err != nil {
		return nil, err
	}

	qdrantClient, err := qd.NewClient(&qd.Config{
		Host:   host,
		Port:   port,
		APIKey: config.APIKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	return &Client{client: qdrantClient, vectorSize: uint64(config.VectorSize)}, nil
}

// parseAddress splits a URL into host, gRPC port (default 6334) and whether
// TLS is needed.
func parseAddress(raw string) (string, int, bool, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", 0, false, fmt.Errorf("invalid Qdrant URL: %w", err)
	}
	if parsed.Hostname() == "" {
		return "", 0, false, fmt.Errorf("invalid Qdrant URL %q: missing host", raw)
	}

	port := 6334
	if parsed.Port() != "" {
		p, err := strconv.Atoi(parsed.Port())
		if err != nil {
			return "", 0, false, fmt.Errorf("invalid Qdrant port: %w", err)
		}
		port = p
	}
	return parsed.Hostname(), port, parsed.Scheme == "https", nil
}

func (c *Client) CollectionExists(ctx context.Context, name string) (bool, error) {
	exists, err := c.client.CollectionExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("failed to check collection %s: %w", name, err)
	}
	return exists, nil
}

// CreateCollection creates a cosine collection. Qdrant has no collection
// description field, so description is not stored.
func (c *Client) CreateCollection(ctx context.Context, name, _ string) error {
	err := c.client.CreateCollection(ctx, &qd.CreateCollection{
		CollectionName: name,
		VectorsConfig: qd.NewVectorsConfig(&qd.VectorParams{
			Size:     c.vectorSize,
			Distance: qd.Distance_Cosine,
		}),
	})
	if err != nil && status.Code(err) != codes.AlreadyExists {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	return nil
}

func (c *Client) DeleteCollection(ctx context.Context, name string) error {
	if err := c.client.DeleteCollection(ctx, name); err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("failed to delete collection %s: %w", name, err)
	}
	return nil
}

// Upsert writes records in batches and waits for each to be applied.
func (c *Client) Upsert(ctx context.Context, name string, records []retrieval.Record) error {
	const batchSize = 100

	for i := 0; i < len(records); i += batchSize {
		end := min(i+batchSize, len(records))

		points := make([]*qd.PointStruct, 0, end-i)
		for _, r := range records[i:end] {
			points = append(points, &qd.PointStruct{
				Id:      pointID(r.ID),
				Vectors: qd.NewVectors(r.Vector...),
				Payload: buildPayload(r),
			})
		}

		_, err := c.client.Upsert(ctx, &qd.UpsertPoints{
			CollectionName: name,
			Points:         points,
			Wait:           qd.PtrOf(true),
		})
		if err != nil {
			return wrapNotFound(name, fmt.Errorf("failed to upsert batch %d-%d to %s: %w", i, end-1, name, err))
		}
	}
	return nil
}

// Query converts Qdrant's cosine similarity score to distance 1 - score.
func (c *Client) Query(ctx context.Context, name string, vector []float32, k int) ([]retrieval.ScoredRecord, error) {
	if k <= 0 {
		return nil, nil
	}

	points, err := c.client.Query(ctx, &qd.QueryPoints{
		CollectionName: name,
		Query:          qd.NewQuery(vector...),
		Limit:          qd.PtrOf(uint64(k)),
		WithPayload:    qd.NewWithPayload(true),
	})
	if err != nil {
		return nil, wrapNotFound(name, fmt.Errorf("qdrant search failed: %w", err))
	}

	out := make([]retrieval.ScoredRecord, 0, len(points))
	for _, p := range points {
		out = append(out, retrieval.ScoredRecord{
			Record:   recordFromPayload(p.GetPayload()),
			Distance: 1 - float64(p.GetScore()),
		})
	}
	slices.SortStableFunc(out, func(a, b retrieval.ScoredRecord) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		}
		return a.Ordinal - b.Ordinal
	})
	return out, nil
}

// GetAll scrolls the whole collection without vectors.
func (c *Client) GetAll(ctx context.Context, name string) ([]retrieval.Record, error) {
	count, err := c.client.Count(ctx, &qd.CountPoints{
		CollectionName: name,
		Exact:          qd.PtrOf(true),
	})
	if err != nil {
		return nil, wrapNotFound(name, fmt.Errorf("failed to count points in %s: %w", name, err))
	}
	if count == 0 {
		return []retrieval.Record{}, nil
	}

	points, err := c.client.Scroll(ctx, &qd.ScrollPoints{
		CollectionName: name,
		Limit:          qd.PtrOf(uint32(count)),
		WithPayload:    qd.NewWithPayload(true),
		WithVectors:    qd.NewWithVectors(true),
	})
	if err != nil {
		return nil, wrapNotFound(name, fmt.Errorf("failed to scroll %s: %w", name, err))
	}

	records := make([]retrieval.Record, 0, len(points))
	for _, p := range points {
		r := recordFromPayload(p.GetPayload())
		r.Vector = denseVector(p.GetVectors().GetVector())
		records = append(records, r)
	}
	slices.SortStableFunc(records, func(a, b retrieval.Record) int { return a.Ordinal - b.Ordinal })
	return records, nil
}

func (c *Client) Delete(ctx context.Context, name string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qd.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = pointID(id)
	}
	_, err := c.client.Delete(ctx, &qd.DeletePoints{
		CollectionName: name,
		Points:         qd.NewPointsSelector(pointIDs...),
		Wait:           qd.PtrOf(true),
	})
	if err != nil {
		return wrapNotFound(name, fmt.Errorf("failed to delete %d points from %s: %w", len(ids), name, err))
	}
	return nil
}

// Ping checks if the Qdrant server is available and responsive.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check error: %w", err)
	}
	return nil
}

// Close releases the gRPC connection.
func (c *Client) Close() error {
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("close qdrant error: %w", err)
	}
	return nil
}

func pointID(docID string) *qd.PointId {
	return qd.NewIDUUID(uuid.NewSHA1(pointNamespace, []byte(docID)).String())
}

func buildPayload(r retrieval.Record) map[string]*qd.Value {
	meta := make(map[string]*qd.Value, len(r.Metadata))
	for k, v := range r.Metadata {
		meta[k] = qd.NewValueString(v)
	}
	return map[string]*qd.Value{
		payloadDocID:    qd.NewValueString(r.ID),
		payloadText:     qd.NewValueString(r.Text),
		payloadOrdinal:  qd.NewValueInt(int64(r.Ordinal)),
		payloadMetadata: {Kind: &qd.Value_StructValue{StructValue: &qd.Struct{Fields: meta}}},
	}
}

func recordFromPayload(payload map[string]*qd.Value) retrieval.Record {
	r := retrieval.Record{
		ID:       payload[payloadDocID].GetStringValue(),
		Text:     payload[payloadText].GetStringValue(),
		Ordinal:  int(payload[payloadOrdinal].GetIntegerValue()),
		Metadata: map[string]string{},
	}
	for k, v := range payload[payloadMetadata].GetStructValue().GetFields() {
		r.Metadata[k] = v.GetStringValue()
	}
	return r
}

func denseVector(v *qd.VectorOutput) []float32 {
	if d := v.GetDense(); d != nil {
		return d.GetData()
	}
	return v.GetData()
}

func wrapNotFound(name string, err error) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%w: %s: %w", retrieval.ErrCollectionNotFound, name, err)
	}
	return err
}
