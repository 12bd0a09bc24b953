package driving

import (
	"context"

	"github.com/custodia-labs/tabula/internal/core/domain"
)

// ReportService reads the history of pipeline runs.
type ReportService interface {
	// List returns recent runs, newest first.
	List(ctx context.Context, limit int) ([]domain.RunReport, error)

	// Get returns one run by ID.
	Get(ctx context.Context, id string) (*domain.RunReport, error)

	// Latest returns the most recent run. Returns domain.ErrNotFound if there is none.
	Latest(ctx context.Context) (*domain.RunReport, error)
}
