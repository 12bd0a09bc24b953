package cli

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tabula/internal/core/domain"
)

// mockReportService implements driving.ReportService for testing.
type mockReportService struct {
	runs []domain.RunReport
}

func (m *mockReportService) List(_ context.Context, limit int) ([]domain.RunReport, error) {
	if limit > 0 && limit < len(m.runs) {
		return m.runs[:limit], nil
	}
	return m.runs, nil
}

func (m *mockReportService) Get(_ context.Context, id string) (*domain.RunReport, error) {
	for i := range m.runs {
		if m.runs[i].ID == id {
			return &m.runs[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockReportService) Latest(ctx context.Context) (*domain.RunReport, error) {
	if len(m.runs) == 0 {
		return nil, domain.ErrNotFound
	}
	return &m.runs[0], nil
}

func setupReportTest(runs ...domain.RunReport) func() {
	old := reportService
	reportService = &mockReportService{runs: runs}
	return func() {
		reportService = old
		reportLimit = 10
	}
}

func TestReportCmd_List(t *testing.T) {
	run := *sampleRunReport()
	run.StartedAt = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	run.CompletedAt = run.StartedAt.Add(1500 * time.Millisecond)
	older := domain.RunReport{ID: "run-0", Source: "mongodb", Sink: "sqlite"}
	defer setupReportTest(run, older)()

	out, err := executeCommand(t, "", "report")

	require.NoError(t, err)
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "run-0")
	assert.Contains(t, out, "1.5s")
}

func TestReportCmd_ListLimit(t *testing.T) {
	defer setupReportTest(*sampleRunReport(), domain.RunReport{ID: "run-0"})()

	out, err := executeCommand(t, "", "report", "-n", "1")

	require.NoError(t, err)
	assert.Contains(t, out, "run-1")
	assert.NotContains(t, out, "run-0")
}

func TestReportCmd_Empty(t *testing.T) {
	defer setupReportTest()()

	out, err := executeCommand(t, "", "report")

	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded yet.")
}

func TestReportCmd_Get(t *testing.T) {
	defer setupReportTest(*sampleRunReport())()

	out, err := executeCommand(t, "", "report", "run-1")

	require.NoError(t, err)
	assert.Contains(t, out, "Run run-1 (jsonl -> parquet)")
	assert.Contains(t, out, "Successful: 1  Partial: 1")
}

func TestReportCmd_Latest(t *testing.T) {
	defer setupReportTest(*sampleRunReport())()

	out, err := executeCommand(t, "", "report", "latest")

	require.NoError(t, err)
	assert.Contains(t, out, "Run run-1")
}

func TestReportCmd_NotFound(t *testing.T) {
	defer setupReportTest()()

	_, err := executeCommand(t, "", "report", "nope")

	assert.EqualError(t, err, "run nope not found")
}
