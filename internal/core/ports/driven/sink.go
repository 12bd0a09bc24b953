package driven

import (
	"context"

	"github.com/custodia-labs/tabula/internal/core/domain"
)

// TableSink persists denormalized tables, one per collection.
type TableSink interface {
	// Name returns the sink kind for reports.
	Name() string

	// Open starts a new output for collection with a fixed column list.
	// Nothing is visible at the final location until Commit succeeds.
	Open(ctx context.Context, collection string, columns []string) (TableWriter, error)

	// Close releases resources.
	Close() error
}

// TableWriter appends batches to one collection's output.
// Batches are written in call order. Tables passed to WriteBatch must use
// the column list given to Open.
type TableWriter interface {
	// WriteBatch appends the rows of t.
	WriteBatch(ctx context.Context, t *domain.Table) error

	// Commit publishes the output atomically and returns its location.
	Commit(ctx context.Context) (string, error)

	// Abort discards everything written so far.
	Abort(ctx context.Context) error
}
