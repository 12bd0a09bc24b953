package domain

// Classification describes whether a collection needs structural flattening.
type Classification string

// Classifications.
const (
	// ClassificationFlat means every sampled document is single level.
	ClassificationFlat Classification = "flat"

	// ClassificationNested means at least one sampled document embeds objects.
	ClassificationNested Classification = "nested"
)

// IsValid returns true if the classification is recognised.
func (c Classification) IsValid() bool {
	return c == ClassificationFlat || c == ClassificationNested
}

// String returns the string representation.
func (c Classification) String() string {
	return string(c)
}

// StructureProfile summarises the sampled documents of a collection.
type StructureProfile struct {
	Classification Classification

	// SampledDocuments is the number of documents inspected.
	SampledDocuments int

	// NestedDocuments is the number of sampled documents that embed objects.
	NestedDocuments int

	// FieldCount is the number of distinct top-level fields seen in the sample.
	FieldCount int

	// MaxDepth is the deepest nesting level seen. A root with only scalars is depth 1.
	MaxDepth int

	// HasLists is true if any sampled document contains a list.
	HasLists bool

	// LeafKinds counts sampled leaf values by kind. KindUnknown leaves make
	// their document unconvertible.
	LeafKinds map[ScalarKind]int
}

// NestedRatio returns the share of sampled documents that are nested.
func (p StructureProfile) NestedRatio() float64 {
	if p.SampledDocuments == 0 {
		return 0
	}
	return float64(p.NestedDocuments) / float64(p.SampledDocuments)
}
