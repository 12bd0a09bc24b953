// Package logging provides a Reporter that writes one summary line per
// collection to the application logger.
package logging

import (
	"context"

	"github.com/custodia-labs/tabula/internal/core/domain"
	"github.com/custodia-labs/tabula/internal/core/ports/driven"
	"github.com/custodia-labs/tabula/internal/logger"
)

// Ensure Reporter implements the interface.
var _ driven.Reporter = (*Reporter)(nil)

// Reporter logs collection reports.
type Reporter struct{}

// NewReporter creates a log reporter.
func NewReporter() *Reporter {
	return &Reporter{}
}

// Report logs r. Failed collections are logged as warnings.
func (*Reporter) Report(_ context.Context, r domain.CollectionReport) error {
	if r.Status == domain.StatusFailed {
		logger.Warn("%s [%s]: %s", r.Collection, r.Status, r.Error)
		return nil
	}
	logger.Info("%s [%s] %s: docs=%d rows=%d columns=%d->%d skipped=%d in %s",
		r.Collection, r.Status, r.Classification, r.DocumentsIn, r.RowsOut,
		r.ColumnsBefore, r.ColumnsAfter, r.Skipped, r.Duration.Round(1e6))
	return nil
}
