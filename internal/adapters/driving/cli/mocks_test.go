package cli

import (
	"context"
	"sync"

	"github.com/custodia-labs/tabula/internal/core/domain"
	"github.com/custodia-labs/tabula/internal/core/ports/driving"
)

// mockPipeline implements driving.PipelineService for testing.
type mockPipeline struct {
	mu          sync.Mutex
	collections []string
	profiles    map[string]*domain.StructureProfile
	report      *domain.RunReport
	runErr      error
	listErr     error

	ranWith  []string
	ranAll   bool
	lastOpts driving.RunOptions
}

func (m *mockPipeline) Collections(context.Context) ([]string, error) {
	return m.collections, m.listErr
}

func (m *mockPipeline) Detect(_ context.Context, collection string) (*domain.StructureProfile, error) {
	if p, ok := m.profiles[collection]; ok {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockPipeline) Run(_ context.Context, collections []string, opts driving.RunOptions) (*domain.RunReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ranWith = collections
	m.lastOpts = opts
	return m.report, m.runErr
}

func (m *mockPipeline) RunAll(_ context.Context, opts driving.RunOptions) (*domain.RunReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ranAll = true
	m.lastOpts = opts
	return m.report, m.runErr
}

func (m *mockPipeline) Status(_ context.Context, collection string) (*driving.PipelineStatus, error) {
	return &driving.PipelineStatus{Collection: collection}, nil
}

func (m *mockPipeline) Statuses(context.Context) []driving.PipelineStatus {
	if m.report == nil {
		return nil
	}
	out := make([]driving.PipelineStatus, 0, len(m.report.Collections))
	for _, c := range m.report.Collections {
		out = append(out, driving.PipelineStatus{
			Collection:         c.Collection,
			Stage:              driving.StageDone,
			Result:             c.Status,
			DocumentsProcessed: c.DocumentsIn,
			RowsWritten:        c.RowsOut,
		})
	}
	return out
}

// setupPipelineTest installs mock as the pipeline and resets run flags.
func setupPipelineTest(mock *mockPipeline) (released *bool, cleanup func()) {
	old := openPipeline
	released = new(bool)
	openPipeline = func(context.Context) (driving.PipelineService, func(), error) {
		return mock, func() { *released = true }, nil
	}
	return released, func() {
		openPipeline = old
		runLimit, runBatchSize, runWorkers, runMonitor = 0, 0, 0, false
		collectionsDetect = false
	}
}

func sampleRunReport() *domain.RunReport {
	return &domain.RunReport{
		ID:     "run-1",
		Source: "jsonl",
		Sink:   "parquet",
		Collections: []domain.CollectionReport{
			{Collection: "orders", Status: domain.StatusSuccess, Classification: domain.ClassificationNested,
				DocumentsIn: 3, RowsOut: 5, ColumnsBefore: 9, ColumnsAfter: 4},
			{Collection: "users", Status: domain.StatusPartial, Classification: domain.ClassificationFlat,
				DocumentsIn: 2, RowsOut: 1, Skipped: 1, Error: "1 documents skipped"},
		},
	}
}
