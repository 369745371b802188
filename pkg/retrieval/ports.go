package retrieval

import "context"

// Encoder maps text to a fixed-dimension embedding vector.
type Encoder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// BatchEncoder is implemented by encoders that can embed several texts in
// one round trip. The result has one vector per input, in input order.
type BatchEncoder interface {
	Encoder
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex stores records in named collections and answers
// nearest-neighbour queries.
//
// Implementations must be safe for concurrent use and give record-level
// atomicity: a concurrent Query sees each record either before or after an
// Upsert, never half-written.
type VectorIndex interface {
	CollectionExists(ctx context.Context, name string) (bool, error)

	// CreateCollection creates an empty collection. Creating an existing
	// collection is not an error.
	CreateCollection(ctx context.Context, name, description string) error

	// DeleteCollection removes a collection and all its records. Deleting a
	// missing collection is not an error.
	DeleteCollection(ctx context.Context, name string) error

	// Upsert inserts or replaces records by ID.
	Upsert(ctx context.Context, name string, records []Record) error

	// Query returns at most k records in ascending distance from vector.
	// A missing collection yields ErrCollectionNotFound.
	Query(ctx context.Context, name string, vector []float32, k int) ([]ScoredRecord, error)

	// GetAll returns every record, with its vector, in ascending Ordinal.
	GetAll(ctx context.Context, name string) ([]Record, error)

	// Delete removes records by ID; unknown IDs are ignored.
	Delete(ctx context.Context, name string, ids []string) error

	Close() error
}

// Replacer is implemented by stores that can atomically make a collection
// hold exactly the given records: upsert them and delete every other ID.
// It returns the number of records removed.
type Replacer interface {
	Replace(ctx context.Context, name string, records []Record) (int, error)
}

// Pinger is implemented by stores that can report their own reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}
