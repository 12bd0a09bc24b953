// Package memory provides an in-memory DocumentSource for tests and previews.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/tabula/internal/core/domain"
	"github.com/custodia-labs/tabula/internal/core/ports/driven"
)

// Ensure Source implements the interface.
var _ driven.DocumentSource = (*Source)(nil)

// Source holds collections of documents in memory.
type Source struct {
	mu          sync.RWMutex
	order       []string
	collections map[string][]domain.Document
	errs        map[string]error
	listErr     error
	iterations  map[string]int
}

// NewSource creates an empty in-memory source.
func NewSource() *Source {
	return &Source{
		collections: make(map[string][]domain.Document),
		errs:        make(map[string]error),
		iterations:  make(map[string]int),
	}
}

// Add appends documents to a collection, creating it if needed.
func (s *Source) Add(collection string, docs ...domain.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[collection]; !ok {
		s.order = append(s.order, collection)
		s.collections[collection] = nil
	}
	s.collections[collection] = append(s.collections[collection], docs...)
}

// FailCollection makes every read of collection return err.
func (s *Source) FailCollection(collection string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[collection] = err
}

// FailList makes ListCollections return err.
func (s *Source) FailList(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listErr = err
}

// Iterations returns how many times a collection was iterated.
func (s *Source) Iterations(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.iterations[collection]
}

// Name returns the source kind.
func (s *Source) Name() string {
	return "memory"
}

// ListCollections returns collections in the order they were added.
func (s *Source) ListCollections(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listErr != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, s.listErr)
	}
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out, nil
}

// Sample returns the first n documents of a collection.
func (s *Source) Sample(_ context.Context, collection string, n int) ([]domain.Document, error) {
	docs, err := s.documents(collection)
	if err != nil {
		return nil, err
	}
	if n < len(docs) {
		docs = docs[:n]
	}
	return docs, nil
}

// Iterate streams a collection in batches.
func (s *Source) Iterate(ctx context.Context, collection string, batchSize int) (<-chan []domain.Document, <-chan error) {
	batches := make(chan []domain.Document, 1)
	errs := make(chan error, 1)

	s.mu.Lock()
	s.iterations[collection]++
	s.mu.Unlock()

	go func() {
		defer close(batches)
		defer close(errs)

		docs, err := s.documents(collection)
		if err != nil {
			errs <- err
			return
		}
		if batchSize < 1 {
			batchSize = len(docs)
		}

		for start := 0; start < len(docs); start += batchSize {
			end := min(start+batchSize, len(docs))
			select {
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			case batches <- docs[start:end]:
			}
		}
	}()

	return batches, errs
}

// Close is a no-op.
func (s *Source) Close(_ context.Context) error {
	return nil
}

func (s *Source) documents(collection string) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err, ok := s.errs[collection]; ok {
		return nil, fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
	}
	docs, ok := s.collections[collection]
	if !ok {
		return nil, fmt.Errorf("collection %s: %w", collection, domain.ErrNotFound)
	}
	out := make([]domain.Document, len(docs))
	copy(out, docs)
	return out, nil
}
