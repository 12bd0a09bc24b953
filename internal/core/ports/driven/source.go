package driven

import (
	"context"

	"github.com/custodia-labs/tabula/internal/core/domain"
)

// DocumentSource reads collections of documents from a document store.
// Iteration order must be stable so that sampling and output are deterministic.
type DocumentSource interface {
	// Name returns the source kind for reports.
	Name() string

	// ListCollections returns the collection names in a stable order.
	ListCollections(ctx context.Context) ([]string, error)

	// Sample returns the first n documents of a collection in iteration order.
	Sample(ctx context.Context, collection string, n int) ([]domain.Document, error)

	// Iterate streams the whole collection in batches of at most batchSize documents.
	// The error channel receives at most one error and both channels are closed
	// when iteration ends. Every call restarts from the first document.
	Iterate(ctx context.Context, collection string, batchSize int) (<-chan []domain.Document, <-chan error)

	// Close releases resources.
	Close(ctx context.Context) error
}
