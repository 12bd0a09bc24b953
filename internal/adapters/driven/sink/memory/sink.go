// Package memory provides an in-memory TableSink for tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/tabula/internal/core/domain"
	"github.com/custodia-labs/tabula/internal/core/ports/driven"
)

// Ensure Sink implements the interface.
var _ driven.TableSink = (*Sink)(nil)

// ErrInjected is returned by writers configured to fail.
var ErrInjected = errors.New("injected write failure")

// Sink keeps committed tables in memory.
type Sink struct {
	mu         sync.RWMutex
	tables     map[string]*domain.Table
	failAfter  map[string]int
	failCommit map[string]bool
	aborted    map[string]int
}

// NewSink creates an empty in-memory sink.
func NewSink() *Sink {
	return &Sink{
		tables:     make(map[string]*domain.Table),
		failAfter:  make(map[string]int),
		failCommit: make(map[string]bool),
		aborted:    make(map[string]int),
	}
}

// FailWritesAfter makes the writer for collection reject every batch after the first n.
func (s *Sink) FailWritesAfter(collection string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAfter[collection] = n
}

// FailCommit makes Commit fail for collection.
func (s *Sink) FailCommit(collection string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCommit[collection] = true
}

// Table returns the committed table of a collection.
func (s *Sink) Table(collection string) (*domain.Table, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[collection]
	return t, ok
}

// Aborted returns how many writers of collection were aborted.
func (s *Sink) Aborted(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.aborted[collection]
}

// Name returns the sink kind.
func (s *Sink) Name() string {
	return "memory"
}

// Open starts a buffered writer.
func (s *Sink) Open(_ context.Context, collection string, columns []string) (driven.TableWriter, error) {
	s.mu.RLock()
	failAfter, fail := s.failAfter[collection]
	s.mu.RUnlock()

	if !fail {
		failAfter = -1
	}
	return &writer{
		sink:       s,
		collection: collection,
		table:      &domain.Table{Columns: append([]string(nil), columns...)},
		failAfter:  failAfter,
	}, nil
}

// Close is a no-op.
func (s *Sink) Close() error {
	return nil
}

type writer struct {
	sink       *Sink
	collection string
	table      *domain.Table
	batches    int
	failAfter  int
}

func (w *writer) WriteBatch(_ context.Context, t *domain.Table) error {
	if w.failAfter >= 0 && w.batches >= w.failAfter {
		return ErrInjected
	}
	if len(t.Columns) != len(w.table.Columns) {
		return fmt.Errorf("column count %d, want %d", len(t.Columns), len(w.table.Columns))
	}
	w.table.Rows = append(w.table.Rows, t.Rows...)
	w.batches++
	return nil
}

func (w *writer) Commit(_ context.Context) (string, error) {
	w.sink.mu.Lock()
	defer w.sink.mu.Unlock()
	if w.sink.failCommit[w.collection] {
		return "", ErrInjected
	}
	w.sink.tables[w.collection] = w.table
	return "memory://" + w.collection, nil
}

func (w *writer) Abort(_ context.Context) error {
	w.sink.mu.Lock()
	defer w.sink.mu.Unlock()
	w.sink.aborted[w.collection]++
	return nil
}
