package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/tabula/internal/core/domain"
)

// convertFunc turns one document into a FlatRow.
type convertFunc func(domain.Document) (domain.FlatRow, error)

// convertBatch applies fn to every document on a bounded worker group.
// Output slices are pre-sized and written by index, so order matches docs.
// The returned error is non-nil only when ctx is cancelled.
func convertBatch(
	ctx context.Context,
	docs []domain.Document,
	workers int,
	fn convertFunc,
) ([]domain.FlatRow, []error, error) {
	rows := make([]domain.FlatRow, len(docs))
	errs := make([]error, len(docs))

	if workers < 1 {
		workers = 1
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i := range docs {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			row, err := fn(docs[i])
			if err != nil {
				errs[i] = &domain.DocumentError{DocumentID: docs[i].ID, Err: err}
				return nil
			}
			rows[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return rows, errs, nil
}
