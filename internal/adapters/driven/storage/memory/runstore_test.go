package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tabula/internal/core/domain"
)

func TestRunStore_SaveGetList(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.Save(ctx, domain.RunReport{ID: "old", StartedAt: now.Add(-time.Hour)}))
	require.NoError(t, store.Save(ctx, domain.RunReport{ID: "new", StartedAt: now}))

	run, err := store.Get(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, "old", run.ID)

	runs, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "new", runs[0].ID)

	runs, err = store.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRunStore_GetNotFound(t *testing.T) {
	store := NewRunStore()

	_, err := store.Get(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
