package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/tabula/internal/core/domain"
	"github.com/custodia-labs/tabula/internal/core/ports/driven"
	"github.com/custodia-labs/tabula/internal/logger"
)

// StructureDetector classifies collections as flat or nested.
// Only the first sampleSize documents in source order are inspected, so a
// nested outlier beyond the sample is not seen.
type StructureDetector struct {
	source     driven.DocumentSource
	sampleSize int
}

// NewStructureDetector creates a detector reading from source.
func NewStructureDetector(source driven.DocumentSource, sampleSize int) *StructureDetector {
	if sampleSize < 1 {
		sampleSize = domain.DefaultSampleSize
	}
	return &StructureDetector{
		source:     source,
		sampleSize: sampleSize,
	}
}

// Detect samples a collection and returns its structure profile.
// An empty collection is flat with a zero profile.
func (d *StructureDetector) Detect(ctx context.Context, collection string) (*domain.StructureProfile, error) {
	docs, err := d.source.Sample(ctx, collection, d.sampleSize)
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", collection, err)
	}

	profile := ProfileDocuments(docs)
	logger.Debug("Detected %s as %s (%d/%d nested, depth %d)",
		collection, profile.Classification, profile.NestedDocuments, profile.SampledDocuments, profile.MaxDepth)
	return &profile, nil
}

// ProfileDocuments computes the structure profile of a sample.
func ProfileDocuments(docs []domain.Document) domain.StructureProfile {
	profile := domain.StructureProfile{
		Classification:   domain.ClassificationFlat,
		SampledDocuments: len(docs),
	}
	if len(docs) > 0 {
		profile.LeafKinds = make(map[domain.ScalarKind]int)
	}

	fields := make(map[string]struct{})
	for _, doc := range docs {
		for _, f := range doc.Root {
			fields[f.Key] = struct{}{}
		}
		if IsNestedDocument(doc) {
			profile.NestedDocuments++
		}
		if depth := containerDepth(doc.Root); depth > profile.MaxDepth {
			profile.MaxDepth = depth
		}
		if !profile.HasLists && containsList(doc.Root) {
			profile.HasLists = true
		}
		countKinds(profile.LeafKinds, doc.Root)
	}

	profile.FieldCount = len(fields)
	if profile.NestedDocuments > 0 {
		profile.Classification = domain.ClassificationNested
	}
	return profile
}

// IsNestedDocument reports whether the document holds a non-empty object
// below the root or, at any depth, a list holding an object. Lists of
// scalars, including lists of lists of scalars, are not nested.
func IsNestedDocument(doc domain.Document) bool {
	for _, f := range doc.Root {
		if nestedValue(f.Value) {
			return true
		}
	}
	return false
}

func nestedValue(v any) bool {
	switch x := v.(type) {
	case domain.Object:
		return len(x) > 0
	case domain.Array:
		for _, elem := range x {
			if _, ok := elem.(domain.Object); ok {
				return true
			}
			if nestedValue(elem) {
				return true
			}
		}
	}
	return false
}

// containerDepth counts nested containers. The root object is depth 1.
func containerDepth(v any) int {
	switch x := v.(type) {
	case domain.Object:
		deepest := 0
		for _, f := range x {
			if d := containerDepth(f.Value); d > deepest {
				deepest = d
			}
		}
		return deepest + 1
	case domain.Array:
		deepest := 0
		for _, elem := range x {
			if d := containerDepth(elem); d > deepest {
				deepest = d
			}
		}
		return deepest + 1
	default:
		return 0
	}
}

func containsList(v any) bool {
	switch x := v.(type) {
	case domain.Array:
		return true
	case domain.Object:
		for _, f := range x {
			if containsList(f.Value) {
				return true
			}
		}
	}
	return false
}

// countKinds tallies the scalar kinds of every leaf under v.
func countKinds(counts map[domain.ScalarKind]int, v any) {
	switch x := v.(type) {
	case domain.Object:
		for _, f := range x {
			countKinds(counts, f.Value)
		}
	case domain.Array:
		for _, elem := range x {
			countKinds(counts, elem)
		}
	default:
		counts[domain.KindOf(v)]++
	}
}
