// Package throttle limits how fast batches are read from a DocumentSource.
package throttle

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/tabula/internal/core/domain"
	"github.com/custodia-labs/tabula/internal/core/ports/driven"
)

// Ensure Source implements the interface.
var _ driven.DocumentSource = (*Source)(nil)

// Source wraps another source and delivers at most perSecond batches per second.
type Source struct {
	driven.DocumentSource
	limiter *rate.Limiter
}

// Wrap returns src unchanged when perSecond <= 0.
func Wrap(src driven.DocumentSource, perSecond float64) driven.DocumentSource {
	if perSecond <= 0 {
		return src
	}
	return &Source{
		DocumentSource: src,
		limiter:        rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

// Iterate relays batches from the wrapped source, waiting for the limiter
// before each one.
func (s *Source) Iterate(ctx context.Context, collection string, batchSize int) (<-chan []domain.Document, <-chan error) {
	out := make(chan []domain.Document, 1)
	errs := make(chan error, 1)

	ctx, cancel := context.WithCancel(ctx)
	in, inErrs := s.DocumentSource.Iterate(ctx, collection, batchSize)

	go func() {
		defer close(out)
		defer close(errs)
		defer cancel()

		for batch := range in {
			if err := s.limiter.Wait(ctx); err != nil {
				errs <- err
				// Unblock the wrapped producer
				cancel()
				for range in { //nolint:revive // drain
				}
				return
			}
			select {
			case <-ctx.Done():
				errs <- ctx.Err()
				cancel()
				for range in { //nolint:revive // drain
				}
				return
			case out <- batch:
			}
		}
		if err := <-inErrs; err != nil {
			errs <- err
		}
	}()

	return out, errs
}
