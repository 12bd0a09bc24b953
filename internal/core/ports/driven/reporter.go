package driven

import (
	"context"

	"github.com/custodia-labs/tabula/internal/core/domain"
)

// Reporter receives the outcome of each collection as it completes.
// Errors are logged by the caller and never fail a run.
type Reporter interface {
	Report(ctx context.Context, report domain.CollectionReport) error
}
