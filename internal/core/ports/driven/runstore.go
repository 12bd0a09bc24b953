package driven

import (
	"context"

	"github.com/custodia-labs/tabula/internal/core/domain"
)

// RunStore persists pipeline run reports.
type RunStore interface {
	// Save stores a run report, replacing any report with the same ID.
	Save(ctx context.Context, run domain.RunReport) error

	// Get retrieves a run by ID. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.RunReport, error)

	// List returns the most recent runs first, at most limit (0 means all).
	List(ctx context.Context, limit int) ([]domain.RunReport, error)
}
