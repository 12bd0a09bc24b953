package tui

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tabula/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/tabula/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/tabula/internal/core/domain"
	"github.com/custodia-labs/tabula/internal/core/ports/driving"
)

// mockPipeline implements driving.PipelineService for testing.
type mockPipeline struct {
	mu       sync.Mutex
	statuses []driving.PipelineStatus
}

func (m *mockPipeline) Collections(context.Context) ([]string, error) { return nil, nil }

func (m *mockPipeline) Detect(context.Context, string) (*domain.StructureProfile, error) {
	return nil, nil
}

func (m *mockPipeline) Run(context.Context, []string, driving.RunOptions) (*domain.RunReport, error) {
	return nil, nil
}

func (m *mockPipeline) RunAll(context.Context, driving.RunOptions) (*domain.RunReport, error) {
	return nil, nil
}

func (m *mockPipeline) Status(context.Context, string) (*driving.PipelineStatus, error) {
	return nil, nil
}

func (m *mockPipeline) Statuses(context.Context) []driving.PipelineStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]driving.PipelineStatus(nil), m.statuses...)
}

func testStatuses() []driving.PipelineStatus {
	return []driving.PipelineStatus{
		{Collection: "orders", Stage: driving.StageDone, Result: domain.StatusSuccess,
			Classification: domain.ClassificationNested, DocumentsProcessed: 3, RowsWritten: 5},
		{Collection: "users", Stage: driving.StageWriting, Running: true, DocumentsProcessed: 10},
		{Collection: "logs", Stage: driving.StagePending},
	}
}

func newTestApp(t *testing.T, run RunFunc) (*App, *mockPipeline) {
	t.Helper()
	pipeline := &mockPipeline{statuses: testStatuses()}
	if run == nil {
		run = func(context.Context) (*domain.RunReport, error) { return &domain.RunReport{}, nil }
	}
	app, err := NewApp(&Ports{Pipeline: pipeline, Run: run})
	require.NoError(t, err)
	app.SetDimensions(120, 40)
	return app, pipeline
}

func TestNewApp_InvalidPorts(t *testing.T) {
	_, err := NewApp(&Ports{})

	assert.True(t, errors.Is(err, ErrMissingPipelineService))
}

func TestApp_Init(t *testing.T) {
	app, _ := newTestApp(t, nil)

	assert.NotNil(t, app.Init())
}

func TestApp_RunCmd_DeliversResult(t *testing.T) {
	want := &domain.RunReport{ID: "run-1"}
	app, _ := newTestApp(t, func(context.Context) (*domain.RunReport, error) { return want, nil })

	msg := app.runCmd()()

	finished, ok := msg.(messages.RunFinished)
	require.True(t, ok)
	assert.Same(t, want, finished.Report)
}

func TestApp_PollCmd(t *testing.T) {
	app, _ := newTestApp(t, nil)

	msg := app.pollCmd()()

	loaded, ok := msg.(messages.StatusesLoaded)
	require.True(t, ok)
	assert.Len(t, loaded.Statuses, 3)
}

func TestApp_StatusesLoaded_SchedulesNextPoll(t *testing.T) {
	app, _ := newTestApp(t, nil)

	_, cmd := app.Update(messages.StatusesLoaded{Statuses: testStatuses()})

	assert.NotNil(t, cmd)
	assert.Len(t, app.Statuses(), 3)
	done, total := app.bar.Progress()
	assert.Equal(t, 1, done)
	assert.Equal(t, 3, total)
}

func TestApp_Tick_StopsAfterFinish(t *testing.T) {
	app, _ := newTestApp(t, nil)

	_, cmd := app.Update(messages.Tick{})
	assert.NotNil(t, cmd)

	app.Update(messages.RunFinished{Report: &domain.RunReport{}})
	_, cmd = app.Update(messages.Tick{})
	assert.Nil(t, cmd)
}

func TestApp_RunFinished(t *testing.T) {
	app, pipeline := newTestApp(t, nil)
	pipeline.statuses[1] = driving.PipelineStatus{Collection: "users", Stage: driving.StageDone, Result: domain.StatusFailed}
	report := &domain.RunReport{Collections: []domain.CollectionReport{
		{Collection: "orders", Status: domain.StatusSuccess, Output: "exports/orders.parquet"},
		{Collection: "users", Status: domain.StatusFailed, Error: "source unavailable"},
	}}

	_, cmd := app.Update(messages.RunFinished{Report: report})

	assert.Nil(t, cmd, "monitor stays open until the user quits")
	assert.True(t, app.Finished())
	assert.Same(t, report, app.Report())
	assert.Equal(t, status.StateDone, app.bar.State())
	assert.Contains(t, app.bar.Message(), "1 succeeded, 0 partial, 1 failed")
	assert.Contains(t, app.View(), "exports/orders.parquet")
}

func TestApp_RunFinished_Error(t *testing.T) {
	app, _ := newTestApp(t, nil)

	app.Update(messages.RunFinished{Err: errors.New("source unavailable")})

	assert.EqualError(t, app.Err(), "source unavailable")
	assert.Equal(t, status.StateError, app.bar.State())
}

func TestApp_QuitDuringRun_CancelsAndWaits(t *testing.T) {
	app, _ := newTestApp(t, nil)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})

	assert.Nil(t, cmd)
	assert.Error(t, app.ctx.Err())
	assert.Equal(t, status.StateCancelling, app.bar.State())

	_, cmd = app.Update(messages.RunFinished{Err: context.Canceled})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestApp_QuitAfterRun(t *testing.T) {
	app, _ := newTestApp(t, nil)
	app.Update(messages.RunFinished{Report: &domain.RunReport{}})

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestApp_CursorNavigation(t *testing.T) {
	app, _ := newTestApp(t, nil)
	app.Update(messages.StatusesLoaded{Statuses: testStatuses()})

	down := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}}
	up := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}}

	app.Update(down)
	app.Update(down)
	app.Update(down)
	assert.Equal(t, 2, app.Cursor())

	app.Update(up)
	assert.Equal(t, 1, app.Cursor())

	app.Update(messages.StatusesLoaded{Statuses: testStatuses()[:1]})
	assert.Equal(t, 0, app.Cursor())
}

func TestApp_HelpToggle(t *testing.T) {
	app, _ := newTestApp(t, nil)

	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	assert.Contains(t, app.View(), "quit")
	assert.True(t, app.showHelp)

	app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, app.showHelp)
}

func TestApp_View(t *testing.T) {
	app, _ := newTestApp(t, nil)
	app.Update(messages.StatusesLoaded{Statuses: testStatuses()})

	view := app.View()

	assert.Contains(t, view, "COLLECTION")
	assert.Contains(t, view, "orders")
	assert.Contains(t, view, "writing")
	assert.Contains(t, view, "Running 1/3 collections")
}

func TestApp_View_NotReady(t *testing.T) {
	app, err := NewApp(&Ports{
		Pipeline: &mockPipeline{},
		Run:      func(context.Context) (*domain.RunReport, error) { return nil, nil },
	})
	require.NoError(t, err)

	assert.Equal(t, "Initialising...", app.View())
}

func TestApp_WithContext(t *testing.T) {
	app, _ := newTestApp(t, nil)
	parent, cancel := context.WithCancel(context.Background())

	app.WithContext(parent)
	cancel()

	assert.Error(t, app.ctx.Err())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
