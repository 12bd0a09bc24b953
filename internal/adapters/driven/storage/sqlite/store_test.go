package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tabula/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)
	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})
	return store
}

func testRun(id string, started time.Time) domain.RunReport {
	return domain.RunReport{
		ID:          id,
		Source:      "mongodb",
		Sink:        "parquet",
		StartedAt:   started,
		CompletedAt: started.Add(2 * time.Second),
		Collections: []domain.CollectionReport{
			{
				Collection:     "orders",
				Classification: domain.ClassificationNested,
				Profile: domain.StructureProfile{
					Classification:   domain.ClassificationNested,
					SampledDocuments: 10,
					NestedDocuments:  4,
					FieldCount:       6,
					MaxDepth:         3,
					HasLists:         true,
				},
				Status:        domain.StatusSuccess,
				DocumentsIn:   10,
				RowsOut:       25,
				ColumnsBefore: 40,
				ColumnsAfter:  8,
				Batches:       1,
				Checksum:      "00ff00ff00ff00ff",
				Output:        "exports/orders.parquet",
				StartedAt:     started,
				Duration:      1500 * time.Millisecond,
			},
			{
				Collection: "missing",
				Status:     domain.StatusFailed,
				Error:      "collection missing: not found",
				StartedAt:  started,
			},
		},
	}
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(dir, "runs.db"), store.Path())
	_, err = os.Stat(store.Path())
	assert.NoError(t, err)

	version, err := store.schemaVersion()
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestNewStore_ReopenSkipsAppliedMigrations(t *testing.T) {
	dir := t.TempDir()

	first, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.RunStore().Save(context.Background(), testRun("r1", time.Now())))
	require.NoError(t, first.Close())

	second, err := NewStore(dir)
	require.NoError(t, err)
	defer second.Close()

	_, err = second.RunStore().Get(context.Background(), "r1")
	assert.NoError(t, err)
}

func TestRunStore_SaveAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	started := time.Date(2025, 3, 1, 12, 0, 0, 123, time.UTC)
	run := testRun("r1", started)

	require.NoError(t, store.RunStore().Save(ctx, run))

	got, err := store.RunStore().Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, run, *got)
}

func TestRunStore_SaveReplaces(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	run := testRun("r1", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, store.RunStore().Save(ctx, run))

	run.Collections = run.Collections[:1]
	run.Sink = "sqlite"
	require.NoError(t, store.RunStore().Save(ctx, run))

	got, err := store.RunStore().Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", got.Sink)
	assert.Len(t, got.Collections, 1)
}

func TestRunStore_GetNotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.RunStore().Get(context.Background(), "nope")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRunStore_ListNewestFirst(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.RunStore().Save(ctx, testRun("old", base)))
	require.NoError(t, store.RunStore().Save(ctx, testRun("new", base.Add(time.Hour))))
	require.NoError(t, store.RunStore().Save(ctx, testRun("mid", base.Add(time.Minute))))

	runs, err := store.RunStore().List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "new", runs[0].ID)
	assert.Equal(t, "mid", runs[1].ID)
	assert.Equal(t, "old", runs[2].ID)
	assert.Len(t, runs[0].Collections, 2)

	limited, err := store.RunStore().List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "new", limited[0].ID)
}

func TestRunStore_ListEmpty(t *testing.T) {
	store := setupTestStore(t)

	runs, err := store.RunStore().List(context.Background(), 10)

	require.NoError(t, err)
	assert.Empty(t, runs)
}
