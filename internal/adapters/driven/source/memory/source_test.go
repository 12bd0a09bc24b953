package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tabula/internal/core/domain"
)

func docs(n int) []domain.Document {
	out := make([]domain.Document, n)
	for i := range out {
		out[i] = domain.Document{ID: string(rune('a' + i)), Root: domain.Object{{Key: "i", Value: i}}}
	}
	return out
}

func TestSource_IterateBatches(t *testing.T) {
	src := NewSource()
	src.Add("c", docs(5)...)

	batches, errs := src.Iterate(context.Background(), "c", 2)

	var sizes []int
	for b := range batches {
		sizes = append(sizes, len(b))
	}
	require.NoError(t, <-errs)
	assert.Equal(t, []int{2, 2, 1}, sizes)
	assert.Equal(t, 1, src.Iterations("c"))
}

func TestSource_SampleAndList(t *testing.T) {
	src := NewSource()
	src.Add("b", docs(3)...)
	src.Add("a")

	names, err := src.ListCollections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, names)

	sample, err := src.Sample(context.Background(), "b", 2)
	require.NoError(t, err)
	assert.Len(t, sample, 2)
	assert.Equal(t, "a", sample[0].ID)

	empty, err := src.Sample(context.Background(), "a", 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSource_Failures(t *testing.T) {
	src := NewSource()
	src.Add("c", docs(1)...)
	src.FailCollection("c", errors.New("connection reset"))

	_, err := src.Sample(context.Background(), "c", 1)
	assert.True(t, errors.Is(err, domain.ErrSourceUnavailable))

	batches, errs := src.Iterate(context.Background(), "c", 1)
	for range batches {
		t.Fatal("expected no batches")
	}
	assert.True(t, errors.Is(<-errs, domain.ErrSourceUnavailable))

	_, err = src.Sample(context.Background(), "missing", 1)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
