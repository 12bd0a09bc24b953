package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tabula/internal/adapters/driven/source/memory"
	"github.com/custodia-labs/tabula/internal/core/domain"
)

func docs(n int) []domain.Document {
	out := make([]domain.Document, n)
	for i := range out {
		out[i] = domain.Document{ID: string(rune('a' + i))}
	}
	return out
}

func TestWrap_Disabled(t *testing.T) {
	src := memory.NewSource()

	assert.Same(t, src, Wrap(src, 0))
}

func TestSource_IterateRelaysInOrder(t *testing.T) {
	src := memory.NewSource()
	src.Add("c", docs(5)...)
	throttled := Wrap(src, 1000)

	batches, errs := throttled.Iterate(context.Background(), "c", 2)
	var ids []string
	for b := range batches {
		for _, d := range b {
			ids = append(ids, d.ID)
		}
	}

	require.NoError(t, <-errs)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids)
}

func TestSource_IterateIsRateLimited(t *testing.T) {
	src := memory.NewSource()
	src.Add("c", docs(3)...)
	throttled := Wrap(src, 20)

	start := time.Now()
	batches, errs := throttled.Iterate(context.Background(), "c", 1)
	count := 0
	for range batches {
		count++
	}

	require.NoError(t, <-errs)
	assert.Equal(t, 3, count)
	// burst 1 at 20/s: the 2nd and 3rd batch wait ~50ms each
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestSource_IterateCancelled(t *testing.T) {
	src := memory.NewSource()
	src.Add("c", docs(10)...)
	throttled := Wrap(src, 0.5)
	ctx, cancel := context.WithCancel(context.Background())

	batches, errs := throttled.Iterate(ctx, "c", 1)
	<-batches
	cancel()
	for range batches {
	}

	assert.ErrorIs(t, <-errs, context.Canceled)
}

func TestSource_DelegatesOtherMethods(t *testing.T) {
	src := memory.NewSource()
	src.Add("c", docs(2)...)
	throttled := Wrap(src, 5)

	names, err := throttled.ListCollections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, names)
	assert.Equal(t, "memory", throttled.Name())
}
