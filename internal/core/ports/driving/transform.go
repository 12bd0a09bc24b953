package driving

import "github.com/custodia-labs/tabula/internal/core/domain"

// TransformService runs the flatten and denormalize steps on a single document.
type TransformService interface {
	// Preview flattens doc and denormalizes the result.
	Preview(doc domain.Document) (*Preview, error)
}

// Preview shows each step of the transformation for one document.
type Preview struct {
	Flat  domain.FlatRow
	Plan  domain.ColumnPlan
	Table *domain.Table
}
