package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memsource "github.com/custodia-labs/tabula/internal/adapters/driven/source/memory"
	"github.com/custodia-labs/tabula/internal/core/domain"
)

func TestIsNestedDocument(t *testing.T) {
	tests := []struct {
		name string
		doc  domain.Document
		want bool
	}{
		{"scalars only", doc(1, "name", "a", "n", 2), false},
		{"list of scalars", doc(1, "tags", arr("x", "y")), false},
		{"empty object", doc(1, "meta", obj()), false},
		{"embedded object", doc(1, "meta", obj("k", "v")), true},
		{"list of objects", doc(1, "items", arr(obj("v", 1))), true},
		{"mixed list", doc(1, "items", arr("x", obj("v", 1))), true},
		{"list of lists of scalars", doc(1, "m", arr(arr(1, 2), arr(3))), false},
		{"list of lists of objects", doc(1, "m", arr(arr(obj("b", 1)))), true},
		{"object deep in lists", doc(1, "m", arr(arr(arr(obj("b", 1))))), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNestedDocument(tt.doc))
		})
	}
}

func TestProfileDocuments(t *testing.T) {
	docs := []domain.Document{
		doc(1, "name", "a"),
		doc(2, "tags", arr("x")),
		doc(3, "items", arr(obj("sub", obj("v", 1)))),
	}

	profile := ProfileDocuments(docs)

	assert.Equal(t, domain.ClassificationNested, profile.Classification)
	assert.Equal(t, 3, profile.SampledDocuments)
	assert.Equal(t, 1, profile.NestedDocuments)
	assert.Equal(t, 4, profile.FieldCount)
	assert.Equal(t, 4, profile.MaxDepth)
	assert.True(t, profile.HasLists)
	assert.Equal(t, map[domain.ScalarKind]int{domain.KindInt: 4, domain.KindString: 2}, profile.LeafKinds)
}

func TestProfileDocuments_ObjectsInsideNestedLists(t *testing.T) {
	profile := ProfileDocuments([]domain.Document{doc(1, "m", arr(arr(obj("b", 1))))})

	assert.Equal(t, domain.ClassificationNested, profile.Classification)
	assert.Equal(t, 1, profile.NestedDocuments)
	assert.Equal(t, 4, profile.MaxDepth)
}

func TestProfileDocuments_UnknownLeafKinds(t *testing.T) {
	profile := ProfileDocuments([]domain.Document{doc(1, "fn", struct{}{})})

	assert.Equal(t, 1, profile.LeafKinds[domain.KindUnknown])
}

func TestStructureDetector_EmptyCollection(t *testing.T) {
	src := memsource.NewSource()
	src.Add("empty")

	profile, err := NewStructureDetector(src, 10).Detect(context.Background(), "empty")

	require.NoError(t, err)
	assert.Equal(t, domain.StructureProfile{Classification: domain.ClassificationFlat}, *profile)
}

func TestStructureDetector_SamplesFirstK(t *testing.T) {
	src := memsource.NewSource()
	for i := 0; i < 5; i++ {
		src.Add("c", doc(i, "name", "n"))
	}
	src.Add("c", doc(99, "meta", obj("k", "v")))

	profile, err := NewStructureDetector(src, 5).Detect(context.Background(), "c")
	require.NoError(t, err)
	assert.Equal(t, domain.ClassificationFlat, profile.Classification, "outlier beyond the sample is not seen")
	assert.Equal(t, 5, profile.SampledDocuments)

	profile, err = NewStructureDetector(src, 6).Detect(context.Background(), "c")
	require.NoError(t, err)
	assert.Equal(t, domain.ClassificationNested, profile.Classification)
}

func TestStructureDetector_SourceError(t *testing.T) {
	src := memsource.NewSource()
	src.Add("c", doc(1))
	src.FailCollection("c", errors.New("timeout"))

	_, err := NewStructureDetector(src, 10).Detect(context.Background(), "c")

	assert.True(t, errors.Is(err, domain.ErrSourceUnavailable))
}
