package services

import (
	"github.com/custodia-labs/tabula/internal/core/domain"
	"github.com/custodia-labs/tabula/internal/core/ports/driving"
)

// Ensure TransformService implements the interface.
var _ driving.TransformService = (*TransformService)(nil)

// TransformService previews the flatten and denormalize steps on one document.
type TransformService struct {
	flattener *Flattener
}

// NewTransformService creates a transform service with the given depth limit.
func NewTransformService(maxDepth int) *TransformService {
	return &TransformService{flattener: NewFlattener(maxDepth)}
}

// Preview flattens doc and denormalizes the result with a plan built from doc alone.
func (s *TransformService) Preview(doc domain.Document) (*driving.Preview, error) {
	flat, err := s.flattener.Flatten(doc)
	if err != nil {
		return nil, &domain.DocumentError{DocumentID: doc.ID, Err: err}
	}

	builder := NewPlanBuilder(true)
	builder.Observe(flat)
	plan := builder.Build()
	table, _ := NewDenormalizer(plan).Denormalize([]domain.FlatRow{flat})

	return &driving.Preview{
		Flat:  flat,
		Plan:  plan,
		Table: table,
	}, nil
}
