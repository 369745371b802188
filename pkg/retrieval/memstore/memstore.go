// Package memstore is an in-process retrieval.VectorIndex. Collections keep
// records in insertion order and queries use cosine distance (1 - cosine
// similarity) over a full scan.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/calque-ai/reviewchat/pkg/retrieval"
)

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("memstore: closed")

type collection struct {
	description string
	records     *orderedmap.OrderedMap[string, retrieval.Record]
}

// Store is safe for concurrent use. Writes to a collection are applied under
// one lock, so Replace is atomic with respect to queries.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
	closed      bool
}

var (
	_ retrieval.VectorIndex = (*Store)(nil)
	_ retrieval.Replacer    = (*Store)(nil)
	_ retrieval.Pinger      = (*Store)(nil)
)

// New creates an empty store.
func New() *Store {
	return &Store{collections: make(map[string]*collection)}
}

func (s *Store) CollectionExists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, ErrClosed
	}
	_, ok := s.collections[name]
	return ok, nil
}

func (s *Store) CreateCollection(_ context.Context, name, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.collections[name]; ok {
		return nil
	}
	s.collections[name] = &collection{
		description: description,
		records:     orderedmap.New[string, retrieval.Record](),
	}
	return nil
}

// Description returns the description a collection was created with.
func (s *Store) Description(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return "", false
	}
	return c.description, true
}

func (s *Store) DeleteCollection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	delete(s.collections, name)
	return nil
}

func (s *Store) Upsert(_ context.Context, name string, records []retrieval.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.collection(name)
	if err != nil {
		return err
	}
	for _, r := range records {
		c.records.Set(r.ID, clone(r))
	}
	return nil
}

func (s *Store) Replace(_ context.Context, name string, records []retrieval.Record) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.collection(name)
	if err != nil {
		return 0, err
	}

	keep := make(map[string]struct{}, len(records))
	for _, r := range records {
		keep[r.ID] = struct{}{}
	}
	var stale []string
	for pair := c.records.Oldest(); pair != nil; pair = pair.Next() {
		if _, ok := keep[pair.Key]; !ok {
			stale = append(stale, pair.Key)
		}
	}
	for _, id := range stale {
		c.records.Delete(id)
	}
	for _, r := range records {
		c.records.Set(r.ID, clone(r))
	}
	return len(stale), nil
}

func (s *Store) Query(_ context.Context, name string, vector []float32, k int) ([]retrieval.ScoredRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.collection(name)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}

	scored := make([]retrieval.ScoredRecord, 0, c.records.Len())
	for pair := c.records.Oldest(); pair != nil; pair = pair.Next() {
		d, err := CosineDistance(vector, pair.Value.Vector)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", pair.Key, err)
		}
		scored = append(scored, retrieval.ScoredRecord{Record: clone(pair.Value), Distance: d})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Distance != scored[j].Distance {
			return scored[i].Distance < scored[j].Distance
		}
		return scored[i].Ordinal < scored[j].Ordinal
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func (s *Store) GetAll(_ context.Context, name string) ([]retrieval.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.collection(name)
	if err != nil {
		return nil, err
	}
	records := make([]retrieval.Record, 0, c.records.Len())
	for pair := c.records.Oldest(); pair != nil; pair = pair.Next() {
		records = append(records, clone(pair.Value))
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].Ordinal < records[j].Ordinal })
	return records, nil
}

func (s *Store) Delete(_ context.Context, name string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.collection(name)
	if err != nil {
		return err
	}
	for _, id := range ids {
		c.records.Delete(id)
	}
	return nil
}

func (s *Store) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Close drops all collections. Later calls fail with ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.collections = nil
	return nil
}

// collection must be called with s.mu held.
func (s *Store) collection(name string) (*collection, error) {
	if s.closed {
		return nil, ErrClosed
	}
	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", retrieval.ErrCollectionNotFound, name)
	}
	return c, nil
}

func clone(r retrieval.Record) retrieval.Record {
	out := r
	if r.Vector != nil {
		out.Vector = append([]float32(nil), r.Vector...)
	}
	if r.Metadata != nil {
		out.Metadata = make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// CosineDistance returns 1 - cos(a, b), in [0, 2]. A zero vector is at
// distance 1 from everything.
func CosineDistance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d vs %d", len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 1, nil
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb)), nil
}
